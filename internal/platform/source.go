// Package platform holds the filesystem rules for reading source files.
package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrSymlink is returned when attempting to open a symbolic link.
var ErrSymlink = errors.New("symbolic links not supported")

// ErrChanged is returned when a source file no longer matches the size
// recorded while walking.
var ErrChanged = errors.New("file changed during archive creation")

// Skip reports whether a directory entry found while walking should be left
// out of the archive: symlinks and anything that is neither a regular file
// nor a directory.
func Skip(d fs.DirEntry) bool {
	t := d.Type()
	if t&fs.ModeSymlink != 0 {
		return true
	}
	return !t.IsDir() && !t.IsRegular()
}

// OpenSource opens name under root for copying into an archive. The file
// must still be a regular file of exactly size bytes.
func OpenSource(root *os.Root, name string, size uint64) (*os.File, error) {
	f, err := openNoFollow(root, name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("not a regular file: %s", name)
	}
	if info.Size() < 0 || uint64(info.Size()) != size {
		f.Close()
		return nil, fmt.Errorf("%w: %s: size %d, expected %d", ErrChanged, name, info.Size(), size)
	}
	return f, nil
}

// openNoFollow opens name under root, refusing symlinks. The opened file is
// checked against the Lstat result so a swap between the two calls fails.
func openNoFollow(root *os.Root, name string) (*os.File, error) {
	before, err := root.Lstat(name)
	if err != nil {
		return nil, err
	}
	if before.Mode()&fs.ModeSymlink != 0 {
		return nil, ErrSymlink
	}
	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	after, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !os.SameFile(before, after) {
		f.Close()
		return nil, fmt.Errorf("%w: %s: replaced while opening", ErrChanged, name)
	}
	return f, nil
}
