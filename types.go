package asar

import (
	"fmt"

	"github.com/meigma/asar/internal/asartype"
	"github.com/meigma/asar/internal/header"
)

// Re-export types from internal packages for the public API.
type (
	// Node is a directory or file in the metadata tree.
	Node = asartype.Node

	// Kind distinguishes directory nodes from file nodes.
	Kind = asartype.Kind

	// Entry is a node with its slash-separated path relative to the archive root.
	Entry = asartype.Entry

	// Header holds the decoded 16-byte archive header.
	Header = header.Header

	// ProgressEvent represents a progress update during operations.
	ProgressEvent = asartype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = asartype.ProgressStage

	// ProgressFunc receives progress updates during operations.
	ProgressFunc = asartype.ProgressFunc
)

// Re-export node kinds.
const (
	KindDir  = asartype.KindDir
	KindFile = asartype.KindFile
)

// Re-export progress stage constants.
const (
	StageWalking    = asartype.StageWalking
	StageWriting    = asartype.StageWriting
	StageExtracting = asartype.StageExtracting
)

const (
	// HeaderSize is the length of the encoded header.
	HeaderSize = header.Size

	// MaxFileSize is the largest file an archive can hold.
	MaxFileSize = asartype.MaxFileSize
)

// NewDir returns an empty directory node.
func NewDir() *Node { return asartype.NewDir() }

// NewFile returns a file node covering size bytes at offset in the data region.
func NewFile(offset, size uint64) *Node { return asartype.NewFile(offset, size) }

// EncodeHeader returns the header for a metadata document of metadataSize bytes.
func EncodeHeader(metadataSize uint32) [HeaderSize]byte {
	return header.Encode(metadataSize)
}

// DecodeHeader parses the first HeaderSize bytes of b.
// It fails with ErrFormat when b is short or the fields are inconsistent.
func DecodeHeader(b []byte) (Header, error) {
	h, err := header.Decode(b)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return h, nil
}
