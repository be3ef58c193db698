package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/asar/internal/asartype"
	"github.com/meigma/asar/internal/testutil"
)

func openRoot(t *testing.T) (string, *os.Root) {
	t.Helper()
	dir := t.TempDir()
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { root.Close() })
	return dir, root
}

func TestFileSinkExtract(t *testing.T) {
	t.Parallel()

	for _, direct := range []bool{false, true} {
		dir, root := openRoot(t)
		entries, source := entriesFor(t, sampleFiles)

		_, err := NewProcessor(source).Process(entries, NewFileSink(root, WithDirectWrites(direct)))
		require.NoError(t, err)

		assert.Equal(t, map[string]string{
			"a.txt":          "alpha",
			"b.txt":          "bravo",
			"dir/c.txt":      "charlie",
			"dir/deep/d.txt": "delta",
			"empty.txt":      "",
		}, testutil.ReadTree(t, dir))
	}
}

func TestFileSinkSkipExisting(t *testing.T) {
	t.Parallel()

	dir, root := openRoot(t)
	testutil.WriteTree(t, dir, map[string]string{"a.txt": "local"})
	entries, source := entriesFor(t, sampleFiles)

	stats, err := NewProcessor(source).Process(entries, NewFileSink(root, WithSkipExisting(true)))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "local", string(got))
}

func TestFileSinkOverwrites(t *testing.T) {
	t.Parallel()

	dir, root := openRoot(t)
	testutil.WriteTree(t, dir, map[string]string{"a.txt": "local"})
	entries, source := entriesFor(t, sampleFiles)

	_, err := NewProcessor(source).Process(entries, NewFileSink(root))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(got))
}

func TestFileSinkDiscardLeavesNothing(t *testing.T) {
	t.Parallel()

	dir, root := openRoot(t)
	sink := NewFileSink(root)
	w, err := sink.Writer(&Entry{Path: "sub/x.txt", Node: asartype.NewFile(0, 1)})
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Discard())

	assert.Empty(t, testutil.ReadTree(t, dir))
}

func TestFileSinkRejectsEscapes(t *testing.T) {
	t.Parallel()

	_, root := openRoot(t)
	sink := NewFileSink(root)
	for _, p := range []string{"../x", "/abs", ".", "a/../../x"} {
		_, err := sink.Writer(&Entry{Path: p, Node: asartype.NewFile(0, 0)})
		require.Error(t, err, p)
	}
}
