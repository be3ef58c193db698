package index

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/meigma/asar/internal/asartype"
)

// Index provides access to the decoded metadata tree.
//
// An Index is immutable after Load; all accessors are safe for concurrent use.
type Index struct {
	root     *asartype.Node
	entries  int
	files    int
	dataSize uint64
}

// Load parses a metadata document.
//
// It fails with asartype.ErrFormat when the bytes are not a well-formed
// document or the root has no "files" mapping.
func Load(data []byte) (*Index, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty metadata document", asartype.ErrFormat)
	}
	root := new(asartype.Node)
	if err := json.Unmarshal(data, root); err != nil {
		if errors.Is(err, asartype.ErrFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: metadata: %v", asartype.ErrFormat, err)
	}
	if !root.IsDir() {
		return nil, fmt.Errorf("%w: metadata root has no files mapping", asartype.ErrFormat)
	}
	return FromRoot(root), nil
}

// FromRoot wraps an already built tree. root must be a directory node.
func FromRoot(root *asartype.Node) *Index {
	idx := &Index{root: root}
	for e := range idx.Entries() {
		idx.entries++
		if e.IsDir() {
			continue
		}
		idx.files++
		if end := e.Offset() + e.Size(); end > idx.dataSize && end >= e.Offset() {
			idx.dataSize = end
		}
	}
	return idx
}

// Encode serializes root as a metadata document.
func Encode(root *asartype.Node) ([]byte, error) {
	if !root.IsDir() {
		return nil, fmt.Errorf("%w: metadata root must be a directory", asartype.ErrFormat)
	}
	return json.Marshal(root)
}

// Root returns the root directory node.
func (idx *Index) Root() *asartype.Node {
	return idx.root
}

// Len returns the number of entries (files and directories) below the root.
func (idx *Index) Len() int {
	return idx.entries
}

// Files returns the number of file entries.
func (idx *Index) Files() int {
	return idx.files
}

// DataSize returns the end of the furthest file region, i.e. the minimum
// length of the data region required by the metadata.
func (idx *Index) DataSize() uint64 {
	return idx.dataSize
}

// Lookup returns the node for a slash-separated path relative to the root.
// The path "." (or "") resolves to the root itself.
func (idx *Index) Lookup(path string) (*asartype.Node, bool) {
	if path == "" || path == "." {
		return idx.root, true
	}
	node := idx.root
	for elem := range strings.SplitSeq(path, "/") {
		if !node.IsDir() {
			return nil, false
		}
		child, ok := node.Child(elem)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// Entries returns a depth-first pre-order iterator over every entry below
// the root. Directories are yielded before their children; siblings are
// yielded in name order.
//
// The sequence is driven entirely by the in-memory tree and can be iterated
// any number of times.
func (idx *Index) Entries() iter.Seq[asartype.Entry] {
	return Walk(idx.root, "")
}

// Walk returns a pre-order iterator over the entries below dir, with paths
// prefixed by prefix. It uses an explicit stack, so deep trees do not grow
// the goroutine stack.
func Walk(dir *asartype.Node, prefix string) iter.Seq[asartype.Entry] {
	return func(yield func(asartype.Entry) bool) {
		if dir == nil || !dir.IsDir() {
			return
		}
		stack := pushChildren(nil, dir, prefix)
		for len(stack) > 0 {
			e := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(e) {
				return
			}
			if e.IsDir() {
				stack = pushChildren(stack, e.Node, e.Path)
			}
		}
	}
}

// pushChildren pushes dir's children in reverse name order so they pop in order.
func pushChildren(stack []asartype.Entry, dir *asartype.Node, prefix string) []asartype.Entry {
	names := dir.Names()
	for i := len(names) - 1; i >= 0; i-- {
		child, _ := dir.Child(names[i])
		stack = append(stack, asartype.Entry{Path: Join(prefix, names[i]), Node: child})
	}
	return stack
}

// Join joins an archive path prefix and a child name with "/".
func Join(prefix, name string) string {
	if prefix == "" || prefix == "." {
		return name
	}
	return prefix + "/" + name
}
