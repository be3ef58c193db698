// Package testutil provides helpers for building source trees and archives in tests.
package testutil

import (
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/meigma/asar/internal/asartype"
	"github.com/meigma/asar/internal/header"
	"github.com/meigma/asar/internal/index"
)

// WriteTree creates files below dir. Keys are slash-separated relative
// paths; a key ending in "/" creates an empty directory.
func WriteTree(tb testing.TB, dir string, files map[string]string) {
	tb.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			if err := os.MkdirAll(path, 0o755); err != nil {
				tb.Fatalf("mkdir %s: %v", name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			tb.Fatalf("mkdir %s: %v", filepath.Dir(name), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			tb.Fatalf("write %s: %v", name, err)
		}
	}
}

// ReadTree returns the regular files below dir keyed by slash-separated
// relative path.
func ReadTree(tb testing.TB, dir string) map[string]string {
	tb.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		tb.Fatalf("read tree %s: %v", dir, err)
	}
	return out
}

// BuildTree builds a node tree and matching data region from files.
// Keys follow the WriteTree conventions. File contents are laid out
// back to back in sorted key order.
func BuildTree(tb testing.TB, files map[string]string) (*asartype.Node, []byte) {
	tb.Helper()
	root := asartype.NewDir()
	var data []byte
	for _, name := range slices.Sorted(maps.Keys(files)) {
		isDir := strings.HasSuffix(name, "/")
		parts := strings.Split(strings.TrimSuffix(name, "/"), "/")
		parent := root
		for _, part := range parts[:len(parts)-1] {
			parent = ensureDir(tb, parent, part)
		}
		last := parts[len(parts)-1]
		if isDir {
			ensureDir(tb, parent, last)
			continue
		}
		content := files[name]
		if err := parent.Add(last, asartype.NewFile(uint64(len(data)), uint64(len(content)))); err != nil {
			tb.Fatalf("add %s: %v", name, err)
		}
		data = append(data, content...)
	}
	return root, data
}

// BuildArchive returns the bytes of a complete archive holding files.
func BuildArchive(tb testing.TB, files map[string]string) []byte {
	tb.Helper()
	root, data := BuildTree(tb, files)
	return EncodeArchive(tb, root, data)
}

// EncodeArchive assembles header, metadata, padding and data region.
func EncodeArchive(tb testing.TB, root *asartype.Node, data []byte) []byte {
	tb.Helper()
	meta, err := index.Encode(root)
	if err != nil {
		tb.Fatalf("encode metadata: %v", err)
	}
	hdr := header.Encode(uint32(len(meta))) //nolint:gosec // test metadata is small
	out := make([]byte, 0, header.Size+len(meta)+3+len(data))
	out = append(out, hdr[:]...)
	out = append(out, meta...)
	out = append(out, make([]byte, header.Padding(uint64(len(meta))))...)
	return append(out, data...)
}

// WriteArchive writes an archive holding files to a temp file and returns its path.
func WriteArchive(tb testing.TB, files map[string]string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "test.asar")
	if err := os.WriteFile(path, BuildArchive(tb, files), 0o644); err != nil {
		tb.Fatalf("write archive: %v", err)
	}
	return path
}

func ensureDir(tb testing.TB, parent *asartype.Node, name string) *asartype.Node {
	tb.Helper()
	if child, ok := parent.Child(name); ok {
		if !child.IsDir() {
			tb.Fatalf("%s is a file", name)
		}
		return child
	}
	dir := asartype.NewDir()
	if err := parent.Add(name, dir); err != nil {
		tb.Fatalf("add dir %s: %v", name, err)
	}
	return dir
}

// MockByteSource is an in-memory ByteSource.
type MockByteSource struct {
	Data []byte

	reads atomic.Int64
}

// NewMockByteSource returns a MockByteSource over data.
func NewMockByteSource(data []byte) *MockByteSource {
	return &MockByteSource{Data: data}
}

// ReadAt implements io.ReaderAt.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
	m.reads.Add(1)
	if off >= int64(len(m.Data)) {
		return 0, io.EOF
	}
	n := copy(p, m.Data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the length of the data.
func (m *MockByteSource) Size() int64 {
	return int64(len(m.Data))
}

// Reads returns the number of ReadAt calls so far.
func (m *MockByteSource) Reads() int64 {
	return m.reads.Load()
}
