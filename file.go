package asar

import (
	"fmt"
	"os"
)

// fileSource wraps *os.File to implement ByteSource.
// os.File has ReadAt but not Size, so we cache the size at construction.
type fileSource struct {
	file *os.File
	size int64
}

// ReadAt implements io.ReaderAt.
func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

// Size returns the total size of the file.
func (s *fileSource) Size() int64 {
	return s.size
}

// ArchiveFile wraps an Archive with its underlying file handle.
// Close must be called to release file resources.
type ArchiveFile struct {
	*Archive
	f *os.File
}

// Close closes the underlying archive file.
func (af *ArchiveFile) Close() error {
	if af.f == nil {
		return nil
	}
	err := af.f.Close()
	af.f = nil
	return err
}

// OpenFile opens the archive at path for random access.
//
// Only the header and metadata are read up front; file contents are read
// on demand. The returned ArchiveFile must be closed to release the file.
func OpenFile(path string, opts ...Option) (*ArchiveFile, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, NewIOError("open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, NewIOError("stat", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrFormat, path)
	}

	a, err := New(&fileSource{file: f, size: info.Size()}, opts...)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &ArchiveFile{Archive: a, f: f}, nil
}

// Interface compliance.
var (
	_ ByteSource                 = (*fileSource)(nil)
	_ interface{ Close() error } = (*ArchiveFile)(nil)
)
