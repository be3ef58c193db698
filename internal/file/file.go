// Package file provides fs.File and fs.FileInfo implementations for archive entries.
package file

import (
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/meigma/asar/internal/asartype"
)

// Interface compliance.
var (
	_ fs.File        = (*File)(nil)
	_ io.ReaderAt    = (*File)(nil)
	_ io.Seeker      = (*File)(nil)
	_ fs.ReadDirFile = (*Dir)(nil)
)

// File is an open archive file backed by a section of the data region.
type File struct {
	*io.SectionReader
	name string
	size int64
}

// NewFile returns a File reading size bytes at off from data.
func NewFile(data io.ReaderAt, name string, off, size int64) *File {
	return &File{SectionReader: io.NewSectionReader(data, off, size), name: name, size: size}
}

// Stat returns file info.
func (f *File) Stat() (fs.FileInfo, error) {
	return &Info{name: Base(f.name), size: f.size}, nil
}

// Close is a no-op; the archive owns the underlying source.
func (f *File) Close() error { return nil }

// Dir is an open archive directory.
type Dir struct {
	name    string
	node    *asartype.Node
	entries []fs.DirEntry
	pos     int
}

// NewDir returns a Dir listing node's children.
func NewDir(name string, node *asartype.Node) *Dir {
	return &Dir{name: name, node: node}
}

func (d *Dir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *Dir) Stat() (fs.FileInfo, error) {
	return NewDirInfo(Base(d.name)), nil
}

func (d *Dir) Close() error { return nil }

// ReadDir implements fs.ReadDirFile. Entries are returned in name order.
func (d *Dir) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.entries == nil {
		d.entries = Entries(d.node)
	}
	rest := d.entries[d.pos:]
	if n <= 0 {
		d.pos = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	d.pos += n
	return rest[:n], nil
}

// Entries returns the directory entries for node's children in name order.
func Entries(node *asartype.Node) []fs.DirEntry {
	out := make([]fs.DirEntry, 0, node.Len())
	for _, name := range node.Names() {
		child, _ := node.Child(name)
		out = append(out, NewDirEntry(NewInfo(name, child)))
	}
	return out
}

// NewInfo returns file info for a node.
func NewInfo(name string, node *asartype.Node) fs.FileInfo {
	if node.IsDir() {
		return NewDirInfo(name)
	}
	return &Info{name: name, size: int64(node.Size())} //nolint:gosec // bounded by MaxFileSize
}

// Info implements fs.FileInfo for regular files.
type Info struct {
	name string
	size int64
}

func (fi *Info) Name() string       { return fi.name }
func (fi *Info) Size() int64        { return fi.size }
func (fi *Info) Mode() fs.FileMode  { return 0o644 }
func (fi *Info) ModTime() time.Time { return time.Time{} }
func (fi *Info) IsDir() bool        { return false }
func (fi *Info) Sys() any           { return nil }

// DirInfo implements fs.FileInfo for directories.
type DirInfo struct {
	name string
}

// NewDirInfo creates a DirInfo with the given name.
func NewDirInfo(name string) *DirInfo {
	return &DirInfo{name: name}
}

func (di *DirInfo) Name() string       { return di.name }
func (di *DirInfo) Size() int64        { return 0 }
func (di *DirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o755 }
func (di *DirInfo) ModTime() time.Time { return time.Time{} }
func (di *DirInfo) IsDir() bool        { return true }
func (di *DirInfo) Sys() any           { return nil }

// DirEntry implements fs.DirEntry by wrapping fs.FileInfo.
type DirEntry struct {
	info fs.FileInfo
}

// NewDirEntry creates a DirEntry wrapping the given FileInfo.
func NewDirEntry(info fs.FileInfo) *DirEntry {
	return &DirEntry{info: info}
}

func (de *DirEntry) Name() string               { return de.info.Name() }
func (de *DirEntry) IsDir() bool                { return de.info.IsDir() }
func (de *DirEntry) Type() fs.FileMode          { return de.info.Mode().Type() }
func (de *DirEntry) Info() (fs.FileInfo, error) { return de.info, nil }

// Base returns the last element of a slash-separated path.
// If path is empty or ".", it returns ".".
func Base(path string) string {
	if path == "" || path == "." {
		return "."
	}
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
