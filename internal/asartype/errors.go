package asartype

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors shared by the archive packages.
var (
	// ErrFormat is returned when a header or metadata document is malformed,
	// truncated, or internally inconsistent.
	ErrFormat = errors.New("asar: malformed archive")

	// ErrOversize is returned when a source file exceeds MaxFileSize.
	ErrOversize = errors.New("asar: file exceeds maximum size")

	// ErrInvalidSource is returned when a pack source is neither a directory
	// nor a pattern that matches at least one path.
	ErrInvalidSource = errors.New("asar: invalid source")

	// ErrNotFound is returned when a requested entry does not exist in the archive.
	// It also matches fs.ErrNotExist.
	ErrNotFound = fmt.Errorf("asar: entry not found: %w", fs.ErrNotExist)

	// ErrIsDir is returned when a file operation targets a directory entry.
	ErrIsDir = errors.New("asar: entry is a directory")

	// ErrSizeOverflow is returned when offsets or sizes exceed supported limits.
	ErrSizeOverflow = errors.New("asar: size overflow")

	// ErrIO matches every *IOError.
	ErrIO = errors.New("asar: i/o error")
)

// IOError records a failed filesystem operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// Error implements error.
func (e *IOError) Error() string {
	if e.Path == "" {
		return "asar: " + e.Op + ": " + e.Err.Error()
	}
	return "asar: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error { return e.Err }

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }

// NewIOError wraps err as an *IOError. A nil err returns nil.
// Errors that already carry ErrIO are returned unchanged.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrIO) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}
