package asartype

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// MaxFileSize is the largest file the format can describe.
const MaxFileSize = math.MaxUint32

// Kind identifies the variant of a Node.
type Kind uint8

const (
	KindDir Kind = iota
	KindFile
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Node is one entry of the metadata document: a directory with named
// children, or a file with an offset and size relative to the data region.
//
// Nodes are built once (by the walker or by decoding) and are treated as
// read-only afterwards.
type Node struct {
	kind     Kind
	offset   uint64
	size     uint64
	names    []string // sorted
	children map[string]*Node
}

// NewDir returns an empty directory node.
func NewDir() *Node {
	return &Node{kind: KindDir, children: make(map[string]*Node)}
}

// NewFile returns a file node.
func NewFile(offset, size uint64) *Node {
	return &Node{kind: KindFile, offset: offset, size: size}
}

// Kind returns the variant of n.
func (n *Node) Kind() Kind { return n.kind }

// IsDir reports whether n is a directory.
func (n *Node) IsDir() bool { return n.kind == KindDir }

// Offset returns the file's offset in the data region. Zero for directories.
func (n *Node) Offset() uint64 { return n.offset }

// Size returns the file size in bytes. Zero for directories.
func (n *Node) Size() uint64 { return n.size }

// Len returns the number of direct children.
func (n *Node) Len() int { return len(n.names) }

// Names returns the child names in sorted order.
// The returned slice must not be modified.
func (n *Node) Names() []string { return n.names }

// Child returns the named child.
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.children[name]
	return c, ok
}

// Add inserts child under name. It fails if n is not a directory, the name
// is not a valid path element, or the name is already taken.
func (n *Node) Add(name string, child *Node) error {
	if n.kind != KindDir {
		return fmt.Errorf("%w: add %q to a file entry", ErrFormat, name)
	}
	if !ValidName(name) {
		return fmt.Errorf("%w: invalid entry name %q", ErrFormat, name)
	}
	i, found := slices.BinarySearch(n.names, name)
	if found {
		return fmt.Errorf("%w: duplicate entry name %q", ErrFormat, name)
	}
	n.names = slices.Insert(n.names, i, name)
	n.children[name] = child
	return nil
}

// ValidName reports whether name can be used as a single path element.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

type dirJSON struct {
	Files map[string]*Node `json:"files"`
}

type fileJSON struct {
	Offset string `json:"offset"`
	Size   uint64 `json:"size"`
}

// MarshalJSON encodes a directory as {"files":{...}} and a file as
// {"offset":"<decimal>","size":<n>}. Offsets are strings so readers limited
// to 53-bit integers do not lose precision.
func (n *Node) MarshalJSON() ([]byte, error) {
	switch n.kind {
	case KindDir:
		children := n.children
		if children == nil {
			children = map[string]*Node{}
		}
		return json.Marshal(dirJSON{Files: children})
	case KindFile:
		return json.Marshal(fileJSON{Offset: strconv.FormatUint(n.offset, 10), Size: n.size})
	default:
		return nil, fmt.Errorf("%w: unknown node kind %d", ErrFormat, n.kind)
	}
}

type rawNode struct {
	Files  json.RawMessage `json:"files"`
	Offset json.RawMessage `json:"offset"`
	Size   json.RawMessage `json:"size"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// UnmarshalJSON decodes a node and fixes its variant: a "files" object makes
// a directory, an "offset" makes a file. Anything else is ErrFormat.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}

	hasFiles, hasOffset := present(raw.Files), present(raw.Offset)
	switch {
	case hasFiles && hasOffset:
		return fmt.Errorf("%w: entry has both files and offset", ErrFormat)
	case hasFiles:
		return n.decodeDir(raw.Files)
	case hasOffset:
		return n.decodeFile(raw.Offset, raw.Size)
	default:
		return fmt.Errorf("%w: entry is neither a directory nor a file", ErrFormat)
	}
}

func (n *Node) decodeDir(data json.RawMessage) error {
	var children map[string]*Node
	if err := json.Unmarshal(data, &children); err != nil {
		return fmt.Errorf("%w: files: %v", ErrFormat, err)
	}
	names := make([]string, 0, len(children))
	for name, child := range children {
		if !ValidName(name) {
			return fmt.Errorf("%w: invalid entry name %q", ErrFormat, name)
		}
		if child == nil {
			return fmt.Errorf("%w: entry %q is null", ErrFormat, name)
		}
		names = append(names, name)
	}
	slices.Sort(names)
	if children == nil {
		children = make(map[string]*Node)
	}
	*n = Node{kind: KindDir, names: names, children: children}
	return nil
}

func (n *Node) decodeFile(offsetData, sizeData json.RawMessage) error {
	var offsetStr string
	if err := json.Unmarshal(offsetData, &offsetStr); err != nil {
		return fmt.Errorf("%w: offset must be a string: %s", ErrFormat, offsetData)
	}
	offset, err := strconv.ParseUint(offsetStr, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: unparsable offset %q", ErrFormat, offsetStr)
	}
	if !present(sizeData) {
		return fmt.Errorf("%w: file entry has no size", ErrFormat)
	}
	size, err := strconv.ParseUint(string(sizeData), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid size %s", ErrFormat, sizeData)
	}
	if size > MaxFileSize {
		return fmt.Errorf("%w: size %d exceeds maximum file size", ErrFormat, size)
	}
	*n = Node{kind: KindFile, offset: offset, size: size}
	return nil
}
