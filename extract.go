package asar

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/meigma/asar/internal/batch"
)

// ExtractStats summarizes an ExtractAll call.
type ExtractStats struct {
	// Dirs is the number of directories created or already present.
	Dirs int

	// Files is the number of files written.
	Files int

	// Skipped is the number of files left untouched because they existed.
	Skipped int

	// Bytes is the total size of the files written.
	Bytes uint64
}

// ExtractAll recreates the archive's tree below dest.
//
// dest and every directory entry are created in pre-order; directories
// that already exist are accepted. File contents are then read from the
// data region and written below dest. Files that sit next to each other in
// the archive are fetched with a single read, and independent files may be
// written concurrently. Paths cannot escape dest.
//
// A file range that extends past the data region fails with ErrFormat
// before it is read. Filesystem failures are reported as *IOError.
func (a *Archive) ExtractAll(dest string, opts ...ExtractOption) (ExtractStats, error) {
	cfg := newExtractConfig(opts)
	var stats ExtractStats

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return stats, NewIOError("mkdir", dest, err)
	}
	root, err := os.OpenRoot(dest)
	if err != nil {
		return stats, NewIOError("open", dest, err)
	}
	defer root.Close()

	a.log().Info("extracting archive", "dest", dest, "entries", a.Len())

	files := make([]Entry, 0, a.Files())
	for e := range a.Entries() {
		if !e.IsDir() {
			files = append(files, e)
			continue
		}
		if err := root.MkdirAll(filepath.FromSlash(e.Path), 0o755); err != nil {
			return stats, NewIOError("mkdir", e.Path, err)
		}
		stats.Dirs++
	}

	proc := batch.NewProcessor(a.data,
		batch.WithWorkers(cfg.workers),
		batch.WithMaxGroupBytes(cfg.maxGroup),
		batch.WithProgress(cfg.progress),
		batch.WithLogger(a.logger),
	)
	sink := batch.NewFileSink(root,
		batch.WithSkipExisting(cfg.skipExisting),
		batch.WithDirectWrites(cfg.directWrites),
	)
	ps, err := proc.Process(files, sink)
	stats.Files = ps.Processed
	stats.Skipped = ps.Skipped
	stats.Bytes = ps.TotalBytes
	if err != nil {
		return stats, err
	}

	a.log().Debug("archive extracted", "dirs", stats.Dirs, "files", stats.Files, "skipped", stats.Skipped, "bytes", stats.Bytes)
	return stats, nil
}

// ExtractFile writes the single file at name to destPath.
//
// name is an archive path; it is passed through NormalizePath and must
// match an entry exactly. The parent of destPath must already exist.
// ExtractFile fails with ErrNotFound when no entry matches and ErrIsDir
// when name is a directory.
func (a *Archive) ExtractFile(name, destPath string, opts ...ExtractOption) error {
	cfg := newExtractConfig(opts)

	name = NormalizePath(name)
	e, ok := a.Lookup(name)
	if !ok || !fs.ValidPath(name) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if e.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsDir, name)
	}
	sr, err := a.section(e)
	if err != nil {
		return err
	}

	if cfg.skipExisting {
		if _, err := os.Lstat(destPath); err == nil {
			a.log().Debug("skipped existing file", "path", name, "dest", destPath)
			return nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return NewIOError("stat", destPath, err)
		}
	}

	a.log().Debug("extracting file", "path", name, "dest", destPath, "size", e.Size())
	if cfg.directWrites {
		err = writeFileDirect(destPath, sr)
	} else {
		err = streamFileAtomic(destPath, sr)
	}
	if err != nil {
		return err
	}

	if cfg.progress != nil {
		cfg.progress(ProgressEvent{
			Stage:      StageExtracting,
			Path:       name,
			BytesDone:  e.Size(),
			BytesTotal: e.Size(),
			FilesDone:  1,
			FilesTotal: 1,
		})
	}
	return nil
}

// streamFileAtomic streams from r to a temp file then renames to target,
// ensuring atomic replacement of the target file.
func streamFileAtomic(target string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".asar-*")
	if err != nil {
		return NewIOError("create", target, err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return NewIOError("write", target, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return NewIOError("close", target, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return NewIOError("chmod", target, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return NewIOError("rename", target, err)
	}
	return nil
}

// writeFileDirect copies r to target without a temp file.
func writeFileDirect(target string, r io.Reader) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return NewIOError("create", target, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return NewIOError("write", target, err)
	}
	if err := f.Close(); err != nil {
		return NewIOError("close", target, err)
	}
	return nil
}
