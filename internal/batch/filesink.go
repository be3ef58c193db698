package batch

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// filePerm is the mode used for extracted files, before umask.
const filePerm = 0o644

// FileSink writes entries below a destination root.
//
// By default, files are written to a temporary file in the same directory
// and renamed to the final path on Commit, so partially written files are
// never visible at the final path. All paths are resolved through an
// os.Root, so entries cannot escape the destination.
type FileSink struct {
	root         *os.Root
	skipExisting bool
	directWrite  bool
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithSkipExisting skips entries whose destination already exists.
// By default, existing files are overwritten.
func WithSkipExisting(skip bool) FileSinkOption {
	return func(s *FileSink) {
		s.skipExisting = skip
	}
}

// WithDirectWrites disables temp files and writes directly to the final path.
func WithDirectWrites(enabled bool) FileSinkOption {
	return func(s *FileSink) {
		s.directWrite = enabled
	}
}

// NewFileSink creates a FileSink that writes below root.
// The caller owns root and must keep it open while the sink is in use.
func NewFileSink(root *os.Root, opts ...FileSinkOption) *FileSink {
	s := &FileSink{root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShouldProcess returns false if the file already exists and skipping is enabled.
func (s *FileSink) ShouldProcess(entry *Entry) bool {
	if !s.skipExisting {
		return true
	}
	_, err := s.root.Lstat(filepath.FromSlash(entry.Path))
	return errors.Is(err, fs.ErrNotExist)
}

// Writer returns a Committer for entry's destination path.
func (s *FileSink) Writer(entry *Entry) (Committer, error) {
	if !fs.ValidPath(entry.Path) || entry.Path == "." {
		return nil, &fs.PathError{Op: "extract", Path: entry.Path, Err: fs.ErrInvalid}
	}
	destRel := filepath.FromSlash(entry.Path)
	if err := s.root.MkdirAll(filepath.Dir(destRel), 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", filepath.Dir(destRel), err)
	}

	if s.directWrite {
		f, err := s.root.OpenFile(destRel, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
		if err != nil {
			return nil, fmt.Errorf("create file %s: %w", destRel, err)
		}
		return &directCommitter{root: s.root, file: f, destRel: destRel}, nil
	}

	tempFile, tempRel, err := createTempFile(s.root, filepath.Dir(destRel), ".asar-")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &fileCommitter{root: s.root, tempFile: tempFile, tempRel: tempRel, destRel: destRel}, nil
}

// fileCommitter writes to a temp file and renames on Commit.
type fileCommitter struct {
	root     *os.Root
	tempFile *os.File
	tempRel  string
	destRel  string
}

// Write implements io.Writer.
func (c *fileCommitter) Write(p []byte) (int, error) {
	return c.tempFile.Write(p)
}

// Commit closes the temp file and renames it to the final path.
func (c *fileCommitter) Commit() error {
	if err := c.tempFile.Close(); err != nil {
		_ = c.root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := c.root.Rename(c.tempRel, c.destRel); err != nil {
		_ = c.root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename to %s: %w", c.destRel, err)
	}
	return nil
}

// Discard closes and removes the temp file.
func (c *fileCommitter) Discard() error {
	_ = c.tempFile.Close() //nolint:errcheck // we're cleaning up
	return c.root.Remove(c.tempRel)
}

// directCommitter writes directly to the final path.
type directCommitter struct {
	root    *os.Root
	file    *os.File
	destRel string
}

// Write implements io.Writer.
func (c *directCommitter) Write(p []byte) (int, error) {
	return c.file.Write(p)
}

// Commit closes the file.
func (c *directCommitter) Commit() error {
	if err := c.file.Close(); err != nil {
		_ = c.root.Remove(c.destRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// Discard closes and removes the file.
func (c *directCommitter) Discard() error {
	_ = c.file.Close() //nolint:errcheck // best-effort cleanup
	return c.root.Remove(c.destRel)
}

func createTempFile(root *os.Root, dir, prefix string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		name, err := randomSuffix()
		if err != nil {
			return nil, "", err
		}
		relPath := filepath.Join(dir, prefix+name)
		f, err := root.OpenFile(relPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
		if err == nil {
			return f, relPath, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

func randomSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
