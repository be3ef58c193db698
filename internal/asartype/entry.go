package asartype

// Entry is a node together with its slash-separated path relative to the
// archive root (e.g. "sub/b.txt").
type Entry struct {
	Path string
	Node *Node
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Node.IsDir() }

// Offset returns the file's offset in the data region.
func (e Entry) Offset() uint64 { return e.Node.Offset() }

// Size returns the file size in bytes.
func (e Entry) Size() uint64 { return e.Node.Size() }
