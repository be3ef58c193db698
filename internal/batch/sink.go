package batch

import (
	"io"

	"github.com/meigma/asar/internal/asartype"
)

// Entry is an alias for asartype.Entry.
type Entry = asartype.Entry

// Sink receives file content during batch processing.
//
// Implementations determine where content is written and can filter which
// entries to process.
type Sink interface {
	// ShouldProcess returns false if this entry should be skipped.
	ShouldProcess(entry *Entry) bool

	// Writer returns a writer for the entry's content.
	// The returned Committer must have Commit() called after a successful
	// write, or Discard() called on any error.
	Writer(entry *Entry) (Committer, error)
}

// Committer is a writer that can be committed or discarded.
//
// Implementations should stage writes until Commit is called. A file-based
// implementation might write to a temp file and rename it on Commit, or
// delete it on Discard.
type Committer interface {
	io.Writer

	// Commit finalizes the write, making content available.
	Commit() error

	// Discard aborts the write and cleans up any temporary resources.
	Discard() error
}
