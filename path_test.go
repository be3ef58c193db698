package asar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "sub/b.txt", "sub/b.txt"},
		{"leading slash", "/sub/b.txt", "sub/b.txt"},
		{"trailing slash", "sub/", "sub"},
		{"empty", "", "."},
		{"root", "/", "."},
		{"only slashes", "///", "."},
		{"dot", ".", "."},
		{"repeated slashes", "a//b///c", "a/b/c"},
		{"backslashes", `sub\deep\c.txt`, "sub/deep/c.txt"},
		{"mixed separators", `\sub/deep\\c.txt`, "sub/deep/c.txt"},
		// Dot segments are left for fs.ValidPath to reject.
		{"dotdot kept", "a/../b", "a/../b"},
		{"leading dotdot", "../etc", "../etc"},
		{"dot segment kept", "a/./b", "a/./b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizePath(tt.input))
		})
	}
}
