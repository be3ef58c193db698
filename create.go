package asar

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/moby/patternmatcher"

	"github.com/meigma/asar/internal/platform"
	"github.com/meigma/asar/internal/sizing"
)

// DefaultMaxFiles is the default limit used when no MaxFiles option is set.
const DefaultMaxFiles = 1_000_000

// SourceFile is a regular file selected for packing.
type SourceFile struct {
	// Name is the slash-separated archive path.
	Name string

	// Path is the absolute path of the file on disk.
	Path string

	// Size is the file size recorded while walking.
	Size uint64
}

// Plan is the in-memory description of an archive about to be written.
//
// Files are listed in offset order: each file's data follows the previous
// one's, starting at zero.
type Plan struct {
	// Dir is the absolute source root that Files are relative to.
	Dir string

	// Root is the metadata tree.
	Root *Node

	Files []SourceFile

	// DataSize is the total length of the data region.
	DataSize uint64
}

// accumulator is the offset state threaded through a walk.
type accumulator struct {
	offset uint64
	files  []SourceFile
}

// walker holds state for enumerating a source tree.
type walker struct {
	cfg  createConfig
	root *os.Root
	dir  string
}

// log returns the logger, falling back to a discard logger if nil.
func (w *walker) log() *slog.Logger {
	if w.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.cfg.logger
}

// Walk enumerates dir depth-first and assigns every regular file a
// contiguous range of the data region.
//
// Entries of each directory are visited in name order, so the same tree
// always produces the same plan. Empty directories are kept. Symbolic
// links and other non-regular files are skipped.
//
// Walk fails with ErrInvalidSource when dir is not a directory, ErrOversize
// when a file exceeds MaxFileSize, and ErrTooManyFiles when the file count
// exceeds the configured limit.
func Walk(ctx context.Context, dir string, opts ...CreateOption) (*Plan, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSource, dir, err)
		}
		return nil, NewIOError("stat", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidSource, dir)
	}

	w, err := newWalker(dir, opts)
	if err != nil {
		return nil, err
	}
	defer w.root.Close()

	w.log().Info("walking source tree", "dir", w.dir)
	w.reportProgress("", accumulator{})

	plan := &Plan{Dir: w.dir, Root: NewDir()}
	acc, err := w.walkDir(ctx, ".", plan.Root, accumulator{})
	if err != nil {
		return nil, err
	}
	plan.Files = acc.files
	plan.DataSize = acc.offset

	w.log().Debug("source tree walked", "file_count", len(plan.Files), "data_size", plan.DataSize)
	return plan, nil
}

// WalkPattern selects the paths below root matching pattern and lays them
// out exactly as Walk would for the same set of files.
//
// The pattern is slash-separated and relative to root. It supports *, ?,
// character classes and ** for any number of directories. Parent
// directories of a match are created as needed; a matched directory
// contributes its whole subtree.
//
// WalkPattern fails with ErrInvalidSource when the pattern is malformed,
// absolute, or matches nothing.
func WalkPattern(ctx context.Context, root, pattern string, opts ...CreateOption) (*Plan, error) {
	if pattern == "" || path.IsAbs(filepath.ToSlash(pattern)) || strings.HasPrefix(pattern, "!") {
		return nil, fmt.Errorf("%w: unsupported pattern %q", ErrInvalidSource, pattern)
	}
	pm, err := patternmatcher.New([]string{pattern})
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %w", ErrInvalidSource, pattern, err)
	}

	w, err := newWalker(root, opts)
	if err != nil {
		return nil, err
	}
	defer w.root.Close()

	base := staticPrefix(pattern)
	depth := patternDepth(pattern)
	if _, err := w.root.Stat(filepath.FromSlash(base)); err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %w", ErrInvalidSource, pattern, err)
	}

	w.log().Info("walking source pattern", "dir", w.dir, "pattern", pattern)
	w.reportProgress("", accumulator{})

	plan := &Plan{Dir: w.dir, Root: NewDir()}
	dirs := map[string]*Node{".": plan.Root}
	acc := accumulator{}
	matched := 0

	err = fs.WalkDir(w.root.FS(), base, func(name string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return NewIOError("walk", name, walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if name == "." {
			return nil
		}
		if platform.Skip(d) {
			w.log().Debug("skipped non-regular file", "path", name)
			return nil
		}
		ok, err := pm.MatchesOrParentMatches(filepath.FromSlash(name))
		if err != nil {
			return fmt.Errorf("%w: pattern %q: %w", ErrInvalidSource, pattern, err)
		}
		if !ok {
			if d.IsDir() && depth > 0 && pathDepth(name) >= depth {
				return fs.SkipDir
			}
			return nil
		}
		matched++

		parent, err := materialize(dirs, path.Dir(name))
		if err != nil {
			return err
		}
		if d.IsDir() {
			_, err := materialize(dirs, name)
			return err
		}
		acc, err = w.addFile(name, d, parent, acc)
		return err
	})
	if err != nil {
		return nil, err
	}
	if matched == 0 {
		return nil, fmt.Errorf("%w: pattern %q matched nothing", ErrInvalidSource, pattern)
	}

	plan.Files = acc.files
	plan.DataSize = acc.offset
	w.log().Debug("source pattern walked", "matches", matched, "file_count", len(plan.Files), "data_size", plan.DataSize)
	return plan, nil
}

func newWalker(dir string, opts []CreateOption) (*walker, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, NewIOError("resolve", dir, err)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSource, dir, err)
		}
		return nil, NewIOError("open", dir, err)
	}
	return &walker{cfg: newCreateConfig(opts), root: root, dir: abs}, nil
}

// walkDir adds the contents of the directory rel to dir and returns the
// advanced accumulator.
func (w *walker) walkDir(ctx context.Context, rel string, dir *Node, acc accumulator) (accumulator, error) {
	if err := ctx.Err(); err != nil {
		return acc, err
	}
	entries, err := fs.ReadDir(w.root.FS(), rel)
	if err != nil {
		return acc, NewIOError("readdir", rel, err)
	}

	for _, d := range entries {
		name := path.Join(rel, d.Name())
		if platform.Skip(d) {
			w.log().Debug("skipped non-regular file", "path", name)
			continue
		}
		if !d.IsDir() {
			if acc, err = w.addFile(name, d, dir, acc); err != nil {
				return acc, err
			}
			continue
		}
		sub := NewDir()
		if err := dir.Add(d.Name(), sub); err != nil {
			return acc, fmt.Errorf("%w: %s: %w", ErrInvalidSource, name, err)
		}
		if acc, err = w.walkDir(ctx, name, sub, acc); err != nil {
			return acc, err
		}
	}
	return acc, nil
}

// addFile appends the regular file name to parent at the current offset.
func (w *walker) addFile(name string, d fs.DirEntry, parent *Node, acc accumulator) (accumulator, error) {
	info, err := d.Info()
	if err != nil {
		return acc, NewIOError("stat", name, err)
	}
	size := uint64(max(info.Size(), 0)) //nolint:gosec // clamped to non-negative
	if size > MaxFileSize {
		return acc, fmt.Errorf("%w: %s is %s, limit is %s", ErrOversize, name,
			units.BytesSize(float64(size)), units.BytesSize(float64(MaxFileSize)))
	}
	if w.cfg.maxFiles > 0 && len(acc.files) >= w.cfg.maxFiles {
		return acc, fmt.Errorf("%w: limit is %d", ErrTooManyFiles, w.cfg.maxFiles)
	}
	end, ok := sizing.AddUint64(acc.offset, size)
	if !ok {
		return acc, fmt.Errorf("%w: data region at %s", ErrSizeOverflow, name)
	}
	if err := parent.Add(path.Base(name), NewFile(acc.offset, size)); err != nil {
		return acc, fmt.Errorf("%w: %s: %w", ErrInvalidSource, name, err)
	}

	acc.files = append(acc.files, SourceFile{
		Name: name,
		Path: filepath.Join(w.dir, filepath.FromSlash(name)),
		Size: size,
	})
	acc.offset = end
	w.reportProgress(name, acc)
	return acc, nil
}

// reportProgress sends a walking progress event if a callback is configured.
func (w *walker) reportProgress(name string, acc accumulator) {
	if w.cfg.progress == nil {
		return
	}
	w.cfg.progress(ProgressEvent{
		Stage:     StageWalking,
		Path:      name,
		BytesDone: acc.offset,
		FilesDone: len(acc.files),
	})
}

// materialize returns the directory node for dir, creating it and any
// missing parents on first use.
func materialize(dirs map[string]*Node, dir string) (*Node, error) {
	if n, ok := dirs[dir]; ok {
		return n, nil
	}
	parent, err := materialize(dirs, path.Dir(dir))
	if err != nil {
		return nil, err
	}
	n := NewDir()
	if err := parent.Add(path.Base(dir), n); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSource, dir, err)
	}
	dirs[dir] = n
	return n, nil
}

// staticPrefix returns the leading directories of pattern that contain no
// wildcard characters. The walk starts there.
// patternDepth returns the number of path segments pattern can match, or 0
// when a ** segment lets it match at any depth.
func patternDepth(pattern string) int {
	clean := path.Clean(filepath.ToSlash(pattern))
	if strings.Contains(clean, "**") {
		return 0
	}
	return pathDepth(clean)
}

func pathDepth(name string) int {
	return strings.Count(name, "/") + 1
}

func staticPrefix(pattern string) string {
	parts := strings.Split(path.Clean(filepath.ToSlash(pattern)), "/")
	n := 0
	for _, part := range parts[:len(parts)-1] {
		if strings.ContainsAny(part, `*?[\`) {
			break
		}
		n++
	}
	if n == 0 {
		return "."
	}
	return strings.Join(parts[:n], "/")
}
