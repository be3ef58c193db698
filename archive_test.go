package asar

import (
	"bytes"
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/asar/internal/testutil"
)

func newArchive(t *testing.T, raw []byte) *Archive {
	t.Helper()
	a, err := New(bytes.NewReader(raw))
	require.NoError(t, err)
	return a
}

func entryPaths(a *Archive) []string {
	var paths []string
	for e := range a.Entries() {
		paths = append(paths, e.Path)
	}
	return paths
}

func TestEntriesNested(t *testing.T) {
	t.Parallel()

	a := newArchive(t, testutil.BuildArchive(t, map[string]string{
		"a.txt":     "hello",
		"sub/b.txt": "world",
	}))

	assert.Equal(t, []string{"a.txt", "sub", "sub/b.txt"}, entryPaths(a))
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, 2, a.Files())
	assert.Equal(t, uint64(10), a.DataSize())
	assert.Equal(t, int64(10), a.Size())
}

func TestEntriesIdempotent(t *testing.T) {
	t.Parallel()

	a := newArchive(t, testutil.BuildArchive(t, roundTripTree))
	first := entryPaths(a)
	assert.Equal(t, first, entryPaths(a))
	assert.Len(t, first, a.Len())
}

func TestEntriesParentsFirst(t *testing.T) {
	t.Parallel()

	a := newArchive(t, testutil.BuildArchive(t, roundTripTree))
	seen := map[string]bool{".": true}
	for e := range a.Entries() {
		parent := filepath.ToSlash(filepath.Dir(e.Path))
		assert.True(t, seen[parent], "%s listed before its parent", e.Path)
		seen[e.Path] = true
	}
}

func TestNewEmpty(t *testing.T) {
	t.Parallel()

	a := newArchive(t, testutil.BuildArchive(t, map[string]string{}))
	assert.Zero(t, a.Len())
	assert.Empty(t, entryPaths(a))
	assert.Equal(t, uint32(12), a.Header().MetadataSize)
}

func TestNewMalformed(t *testing.T) {
	t.Parallel()

	good := testutil.BuildArchive(t, map[string]string{"a.txt": "hello"})
	metaSize := binary.LittleEndian.Uint32(good[12:16])

	withMeta := func(meta string) []byte {
		hdr := EncodeHeader(uint32(len(meta)))
		raw := append(hdr[:], meta...)
		return append(raw, make([]byte, (4-len(meta)%4)%4)...)
	}
	badTag := bytes.Clone(good)
	binary.LittleEndian.PutUint32(badTag[0:4], 5)
	badPadded := bytes.Clone(good)
	binary.LittleEndian.PutUint32(badPadded[8:12], 1000)

	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"short header", good[:10]},
		{"truncated metadata", good[:16+metaSize/2]},
		{"bad tag", badTag},
		{"inconsistent sizes", badPadded},
		{"not json", withMeta("{{{{")},
		{"root without files", withMeta(`{"offset":"0","size":1}`)},
		{"files not an object", withMeta(`{"files":[]}`)},
		{"offset not a string", withMeta(`{"files":{"a":{"offset":0,"size":1}}}`)},
		{"missing size", withMeta(`{"files":{"a":{"offset":"0"}}}`)},
		{"both variants", withMeta(`{"files":{"a":{"files":{},"offset":"0","size":1}}}`)},
		{"dotdot name", withMeta(`{"files":{"..":{"files":{}}}}`)},
		{"slash in name", withMeta(`{"files":{"a/b":{"offset":"0","size":0}}}`)},
		{"size too large", withMeta(`{"files":{"a":{"offset":"0","size":4294967296}}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(bytes.NewReader(tt.raw))
			require.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	a := newArchive(t, testutil.BuildArchive(t, roundTripTree))

	e, ok := a.Lookup("sub/deep/c.bin")
	require.True(t, ok)
	assert.Equal(t, KindFile, e.Node.Kind())
	assert.Equal(t, uint64(5), e.Size())

	e, ok = a.Lookup("sub")
	require.True(t, ok)
	assert.True(t, e.IsDir())

	_, ok = a.Lookup("sub/missing")
	assert.False(t, ok)
	_, ok = a.Lookup("a.txt/child")
	assert.False(t, ok)
}

func TestArchiveFS(t *testing.T) {
	t.Parallel()

	a := newArchive(t, testutil.BuildArchive(t, roundTripTree))
	require.NoError(t, fstest.TestFS(a,
		"a.txt", "sub/b.txt", "sub/deep/c.bin", "sub/deep/empty.txt", "emptydir", "z/y/x/w.txt"))

	data, err := fs.ReadFile(a, "z/y/x/w.txt")
	require.NoError(t, err)
	assert.Equal(t, "nested", string(data))

	_, err = a.Open("missing")
	require.ErrorIs(t, err, fs.ErrNotExist)
	_, err = a.Open("../a.txt")
	require.ErrorIs(t, err, fs.ErrInvalid)
	_, err = a.ReadFile("sub")
	require.ErrorIs(t, err, ErrIsDir)

	info, err := a.Stat("sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", info.Name())
	assert.Equal(t, int64(5), info.Size())
}

func TestArchiveOutOfBounds(t *testing.T) {
	t.Parallel()

	root := NewDir()
	require.NoError(t, root.Add("ok.txt", NewFile(0, 2)))
	require.NoError(t, root.Add("past.txt", NewFile(2, 100)))
	a := newArchive(t, testutil.EncodeArchive(t, root, []byte("ok12")))

	_, err := a.ReadFile("past.txt")
	require.ErrorIs(t, err, ErrFormat)
	_, err = a.Open("past.txt")
	require.ErrorIs(t, err, ErrFormat)

	data, err := a.ReadFile("ok.txt")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

func TestOpenFileErrors(t *testing.T) {
	t.Parallel()

	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.asar"))
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, err = OpenFile(t.TempDir())
	require.ErrorIs(t, err, ErrFormat)

	junk := filepath.Join(t.TempDir(), "junk.asar")
	require.NoError(t, os.WriteFile(junk, []byte("definitely not an archive"), 0o644))
	_, err = OpenFile(junk)
	require.ErrorIs(t, err, ErrFormat)
}

func TestArchiveFileClose(t *testing.T) {
	t.Parallel()

	af, err := OpenFile(testutil.WriteArchive(t, map[string]string{"a": "1"}))
	require.NoError(t, err)
	require.NoError(t, af.Close())
	require.NoError(t, af.Close())
}
