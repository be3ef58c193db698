package asar

import (
	"errors"

	"github.com/meigma/asar/internal/asartype"
	"github.com/meigma/asar/internal/platform"
)

// Sentinel errors re-exported from internal/asartype.
var (
	// ErrFormat is returned when a header or metadata document is malformed,
	// truncated, or internally inconsistent, including file ranges that
	// extend past the end of the archive.
	ErrFormat = asartype.ErrFormat

	// ErrOversize is returned when a source file exceeds MaxFileSize.
	ErrOversize = asartype.ErrOversize

	// ErrInvalidSource is returned when a pack source is neither a directory
	// nor a pattern matching at least one path.
	ErrInvalidSource = asartype.ErrInvalidSource

	// ErrNotFound is returned when a requested entry does not exist.
	// It also matches fs.ErrNotExist.
	ErrNotFound = asartype.ErrNotFound

	// ErrIsDir is returned when a file operation targets a directory entry.
	ErrIsDir = asartype.ErrIsDir

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = asartype.ErrSizeOverflow

	// ErrIO matches every *IOError.
	ErrIO = asartype.ErrIO
)

// Sentinel errors specific to the asar package.
var (
	// ErrTooManyFiles is returned when the file count exceeds the configured limit.
	ErrTooManyFiles = errors.New("asar: too many files")

	// ErrChanged is returned when a source file changed between walking and writing.
	ErrChanged = platform.ErrChanged

	// ErrSymlink is returned when a source file was replaced by a symbolic
	// link between walking and writing.
	ErrSymlink = platform.ErrSymlink
)

// IOError records a failed filesystem operation. errors.Is(err, ErrIO)
// reports true for every *IOError.
type IOError = asartype.IOError

// NewIOError wraps err as an *IOError. A nil err returns nil.
func NewIOError(op, path string, err error) error {
	return asartype.NewIOError(op, path, err)
}
