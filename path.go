package asar

import "strings"

// NormalizePath converts a user-provided archive path to fs.ValidPath form.
//
// It strips leading and trailing slashes, collapses repeated slashes,
// converts backslashes to slashes, and maps "" and "/" to ".". Elements
// such as ".." are preserved and rejected later by fs.ValidPath.
func NormalizePath(p string) string {
	p = strings.Trim(strings.ReplaceAll(p, `\`, "/"), "/")
	if p == "" {
		return "."
	}
	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return "."
	}
	return strings.Join(result, "/")
}
