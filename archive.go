package asar

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"

	"github.com/meigma/asar/internal/file"
	"github.com/meigma/asar/internal/header"
	"github.com/meigma/asar/internal/index"
	"github.com/meigma/asar/internal/sizing"
)

// Interface compliance.
var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.StatFS     = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
	_ fs.ReadDirFS  = (*Archive)(nil)
)

// ByteSource provides random access to archive bytes.
//
// *io.SectionReader and *bytes.Reader satisfy it; OpenFile wraps *os.File.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// Archive provides read access to a decoded archive.
//
// The metadata tree is decoded once by New and is immutable afterwards, so
// an Archive is safe for concurrent use as long as its ByteSource is.
// Archive implements fs.FS, fs.StatFS, fs.ReadFileFS, and fs.ReadDirFS
// for compatibility with the standard library.
type Archive struct {
	hdr    Header
	idx    *index.Index
	data   *io.SectionReader
	logger *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger for archive reads and extraction.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// New decodes the header and metadata document at the start of source.
//
// New fails with ErrFormat when the header is inconsistent, the metadata
// document is malformed, or source is shorter than the header declares.
// Read failures are reported as *IOError.
func New(source ByteSource, opts ...Option) (*Archive, error) {
	a := &Archive{}
	for _, opt := range opts {
		opt(a)
	}

	size := source.Size()
	var buf [HeaderSize]byte
	if err := readFull(source, buf[:], 0, size); err != nil {
		return nil, err
	}
	hdr, err := DecodeHeader(buf[:])
	if err != nil {
		return nil, err
	}

	dataStart := hdr.DataOffset()
	if size < dataStart {
		return nil, fmt.Errorf("%w: archive is %d bytes, header declares data at %d", ErrFormat, size, dataStart)
	}
	metaLen, err := sizing.ToInt(uint64(hdr.MetadataSize), ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	meta := make([]byte, metaLen)
	if err := readFull(source, meta, header.Size, size); err != nil {
		return nil, err
	}
	idx, err := index.Load(meta)
	if err != nil {
		return nil, err
	}

	a.hdr = hdr
	a.idx = idx
	a.data = io.NewSectionReader(source, dataStart, size-dataStart)
	a.log().Debug("archive opened", "entries", idx.Len(), "files", idx.Files(), "metadata_size", hdr.MetadataSize)
	return a, nil
}

// readFull reads len(p) bytes at off, mapping a short source to ErrFormat.
func readFull(src io.ReaderAt, p []byte, off, size int64) error {
	if off+int64(len(p)) > size {
		return fmt.Errorf("%w: truncated archive: need %d bytes at offset %d, have %d",
			ErrFormat, len(p), off, size)
	}
	n, err := src.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return NewIOError("read", "archive", err)
}

// Header returns the decoded archive header.
func (a *Archive) Header() Header {
	return a.hdr
}

// Root returns the root directory of the metadata tree.
// The tree must not be modified.
func (a *Archive) Root() *Node {
	return a.idx.Root()
}

// Len returns the number of entries in the archive, directories included.
func (a *Archive) Len() int {
	return a.idx.Len()
}

// Files returns the number of file entries.
func (a *Archive) Files() int {
	return a.idx.Files()
}

// DataSize returns the length of the data region referenced by the metadata.
func (a *Archive) DataSize() uint64 {
	return a.idx.DataSize()
}

// Size returns the number of data bytes available after the metadata.
func (a *Archive) Size() int64 {
	return a.data.Size()
}

// Entries returns a pre-order iterator over every entry. Directories precede
// their children and siblings appear in name order.
//
// The iterator reads nothing from the source and can be ranged over any
// number of times.
func (a *Archive) Entries() iter.Seq[Entry] {
	return a.idx.Entries()
}

// Lookup returns the entry at name, an exact slash-separated archive path.
func (a *Archive) Lookup(name string) (Entry, bool) {
	node, ok := a.idx.Lookup(name)
	if !ok {
		return Entry{}, false
	}
	return Entry{Path: name, Node: node}, true
}

// section returns a reader over entry's bytes after checking its range
// against the data region.
func (a *Archive) section(e Entry) (*io.SectionReader, error) {
	if !sizing.InBounds(e.Offset(), e.Size(), uint64(a.data.Size())) { //nolint:gosec // size is non-negative
		return nil, fmt.Errorf("%w: %s: range [%d, +%d) exceeds data size %d",
			ErrFormat, e.Path, e.Offset(), e.Size(), a.data.Size())
	}
	return io.NewSectionReader(a.data, int64(e.Offset()), int64(e.Size())), nil //nolint:gosec // bounded above
}

// Open implements fs.FS.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	e, ok := a.Lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if e.IsDir() {
		return file.NewDir(name, e.Node), nil
	}
	sr, err := a.section(e)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return file.NewFile(sr, name, 0, sr.Size()), nil
}

// Stat implements fs.StatFS.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	e, ok := a.Lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return file.NewInfo(file.Base(name), e.Node), nil
}

// ReadFile implements fs.ReadFileFS.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	e, ok := a.Lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrNotExist}
	}
	if e.IsDir() {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: ErrIsDir}
	}
	sr, err := a.section(e)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	buf := make([]byte, sr.Size())
	if _, err := io.ReadFull(sr, buf); err != nil {
		return nil, NewIOError("read", name, err)
	}
	return buf, nil
}

// ReadDir implements fs.ReadDirFS. Entries are sorted by name.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	e, ok := a.Lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	if !e.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	return file.Entries(e.Node), nil
}
