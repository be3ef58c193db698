package asartype

import (
	"errors"
	"io/fs"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeMarshalEmptyDir(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewDir())
	require.NoError(t, err)
	assert.JSONEq(t, `{"files":{}}`, string(data))
	assert.Equal(t, `{"files":{}}`, string(data))
}

func TestNodeMarshalTree(t *testing.T) {
	t.Parallel()

	root := NewDir()
	sub := NewDir()
	require.NoError(t, root.Add("sub", sub))
	require.NoError(t, root.Add("a.txt", NewFile(0, 3)))
	require.NoError(t, sub.Add("b.txt", NewFile(3, 2)))

	data, err := json.Marshal(root)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"files":{"a.txt":{"offset":"0","size":3},"sub":{"files":{"b.txt":{"offset":"3","size":2}}}}}`,
		string(data))
}

func TestNodeMarshalLargeOffset(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewFile(1<<60+1, 7))
	require.NoError(t, err)
	assert.JSONEq(t, `{"offset":"1152921504606846977","size":7}`, string(data))
}

func TestNodeUnmarshal(t *testing.T) {
	t.Parallel()

	var root Node
	err := json.Unmarshal([]byte(`{"files":{"z":{"files":{}},"a.txt":{"offset":"10","size":4}}}`), &root)
	require.NoError(t, err)

	assert.True(t, root.IsDir())
	assert.Equal(t, []string{"a.txt", "z"}, root.Names())

	file, ok := root.Child("a.txt")
	require.True(t, ok)
	assert.Equal(t, KindFile, file.Kind())
	assert.Equal(t, uint64(10), file.Offset())
	assert.Equal(t, uint64(4), file.Size())

	dir, ok := root.Child("z")
	require.True(t, ok)
	assert.True(t, dir.IsDir())
	assert.Zero(t, dir.Len())
}

func TestNodeUnmarshalRoundTrip(t *testing.T) {
	t.Parallel()

	root := NewDir()
	docs := NewDir()
	require.NoError(t, root.Add("docs", docs))
	require.NoError(t, docs.Add("readme.md", NewFile(0, 100)))
	require.NoError(t, root.Add("main.js", NewFile(100, MaxFileSize)))

	data, err := json.Marshal(root)
	require.NoError(t, err)

	var decoded Node
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, root.Names(), decoded.Names())

	mainJS, ok := decoded.Child("main.js")
	require.True(t, ok)
	assert.Equal(t, uint64(100), mainJS.Offset())
	assert.Equal(t, uint64(MaxFileSize), mainJS.Size())
}

func TestNodeUnmarshalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		json string
	}{
		{"numeric offset", `{"offset":5,"size":1}`},
		{"unparsable offset", `{"offset":"five","size":1}`},
		{"negative offset", `{"offset":"-1","size":1}`},
		{"missing size", `{"offset":"0"}`},
		{"null size", `{"offset":"0","size":null}`},
		{"string size", `{"offset":"0","size":"1"}`},
		{"fractional size", `{"offset":"0","size":1.5}`},
		{"oversize", `{"offset":"0","size":4294967296}`},
		{"neither", `{"size":1}`},
		{"both", `{"files":{},"offset":"0","size":1}`},
		{"files not object", `{"files":[]}`},
		{"dotdot name", `{"files":{"..":{"files":{}}}}`},
		{"slash name", `{"files":{"a/b":{"offset":"0","size":0}}}`},
		{"empty name", `{"files":{"":{"offset":"0","size":0}}}`},
		{"null child", `{"files":{"a":null}}`},
		{"nested error", `{"files":{"a":{"files":{"b":{"offset":"x","size":0}}}}}`},
		{"not an object", `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var n Node
			err := json.Unmarshal([]byte(tt.json), &n)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat) || isSyntaxError(err), "got %v", err)
		})
	}
}

func isSyntaxError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func TestNodeAdd(t *testing.T) {
	t.Parallel()

	root := NewDir()
	require.NoError(t, root.Add("b", NewFile(0, 0)))
	require.NoError(t, root.Add("a", NewDir()))
	assert.Equal(t, []string{"a", "b"}, root.Names())

	require.ErrorIs(t, root.Add("a", NewDir()), ErrFormat)
	require.ErrorIs(t, root.Add("..", NewDir()), ErrFormat)

	file, _ := root.Child("b")
	require.ErrorIs(t, file.Add("c", NewDir()), ErrFormat)
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.txt", true},
		{".hidden", true},
		{"with space", true},
		{"", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{"a\x00b", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidName(tt.name), "ValidName(%q)", tt.name)
	}
}

func TestIOError(t *testing.T) {
	t.Parallel()

	err := NewIOError("open", "/tmp/x.asar", fs.ErrNotExist)
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "asar: open /tmp/x.asar: file does not exist", err.Error())

	assert.Same(t, err, NewIOError("read", "", err))
	assert.NoError(t, NewIOError("read", "", nil))

	require.ErrorIs(t, ErrNotFound, fs.ErrNotExist)
}
