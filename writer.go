package asar

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meigma/asar/internal/header"
	"github.com/meigma/asar/internal/index"
	"github.com/meigma/asar/internal/platform"
)

// writeBufferSize is the buffer used between source files and the archive.
const writeBufferSize = 256 << 10

// archiveWriter holds state for writing a planned archive.
type archiveWriter struct {
	walker
	plan *Plan
}

// WriteArchive writes the archive described by plan to dest.
//
// The archive is written to a temporary file in dest's directory and renamed
// into place on success, so dest is either the complete archive or left
// untouched. Every source file must still have the size recorded in plan;
// otherwise WriteArchive fails with an error wrapping ErrChanged.
func WriteArchive(ctx context.Context, plan *Plan, dest string, opts ...CreateOption) error {
	meta, err := index.Encode(plan.Root)
	if err != nil {
		return err
	}
	if uint64(len(meta)) > header.MaxMetadataSize {
		return fmt.Errorf("%w: metadata document is %d bytes", ErrOversize, len(meta))
	}

	root, err := os.OpenRoot(plan.Dir)
	if err != nil {
		return NewIOError("open", plan.Dir, err)
	}
	defer root.Close()

	w := &archiveWriter{
		walker: walker{cfg: newCreateConfig(opts), root: root, dir: plan.Dir},
		plan:   plan,
	}
	w.log().Info("writing archive", "dest", dest, "file_count", len(plan.Files), "data_size", plan.DataSize)

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".asar-*")
	if err != nil {
		return NewIOError("create", dest, err)
	}
	tmpPath := tmp.Name()

	if err := w.writeTo(ctx, tmp, meta); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return NewIOError("sync", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return NewIOError("close", dest, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return NewIOError("chmod", dest, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return NewIOError("rename", dest, err)
	}

	w.log().Debug("archive written", "dest", dest)
	return nil
}

// writeTo streams header, metadata, padding and file data to out.
func (w *archiveWriter) writeTo(ctx context.Context, out io.Writer, meta []byte) error {
	bw := bufio.NewWriterSize(out, writeBufferSize)

	hdr := header.Encode(uint32(len(meta))) //nolint:gosec // checked against MaxMetadataSize
	if _, err := bw.Write(hdr[:]); err != nil {
		return NewIOError("write", "header", err)
	}
	if _, err := bw.Write(meta); err != nil {
		return NewIOError("write", "metadata", err)
	}
	var pad [3]byte
	if _, err := bw.Write(pad[:header.Padding(uint64(len(meta)))]); err != nil {
		return NewIOError("write", "padding", err)
	}

	var done uint64
	for i, sf := range w.plan.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.copyFile(bw, sf); err != nil {
			return err
		}
		done += sf.Size
		w.reportWrite(sf.Name, done, i+1)
	}

	if err := bw.Flush(); err != nil {
		return NewIOError("write", "archive", err)
	}
	return nil
}

// copyFile appends exactly sf.Size bytes of sf to out.
func (w *archiveWriter) copyFile(out io.Writer, sf SourceFile) error {
	f, err := platform.OpenSource(w.root, filepath.FromSlash(sf.Name), sf.Size)
	if err != nil {
		return NewIOError("open", sf.Path, err)
	}
	defer f.Close()

	n, err := io.CopyN(out, f, int64(sf.Size)) //nolint:gosec // Size <= MaxFileSize
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: short read (%d of %d bytes)", ErrChanged, n, sf.Size)
		}
		return NewIOError("copy", sf.Path, err)
	}
	return nil
}

// reportWrite sends a writing progress event if a callback is configured.
func (w *archiveWriter) reportWrite(name string, bytesDone uint64, filesDone int) {
	if w.cfg.progress == nil {
		return
	}
	w.cfg.progress(ProgressEvent{
		Stage:      StageWriting,
		Path:       name,
		BytesDone:  bytesDone,
		BytesTotal: w.plan.DataSize,
		FilesDone:  filesDone,
		FilesTotal: len(w.plan.Files),
	})
}

// Pack writes an archive of src to dest.
//
// When src is a directory it is walked with Walk. Otherwise src is treated
// as a pattern relative to the working directory and resolved with
// WalkPattern. Nothing is written to dest when walking fails.
func Pack(ctx context.Context, src, dest string, opts ...CreateOption) error {
	var (
		plan *Plan
		err  error
	)
	if info, statErr := os.Stat(src); statErr == nil && info.IsDir() {
		plan, err = Walk(ctx, src, opts...)
	} else {
		plan, err = WalkPattern(ctx, ".", src, opts...)
	}
	if err != nil {
		return err
	}
	return WriteArchive(ctx, plan, dest, opts...)
}
