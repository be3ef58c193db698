// Package batch extracts archive entries to a Sink with grouped range reads.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/asar/internal/asartype"
	"github.com/meigma/asar/internal/sizing"
)

const (
	// parallelMinAvgBytes is the minimum average entry size to use parallel processing.
	// Below this threshold, serial processing is more efficient due to reduced overhead.
	parallelMinAvgBytes = 64 << 10 // 64KB

	// DefaultMaxGroupBytes caps how many bytes of adjacent entries are
	// buffered for a single read. Larger entries are streamed.
	DefaultMaxGroupBytes = 8 << 20 // 8MB
)

// Source provides random access to the data region of an archive.
// *io.SectionReader satisfies it.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Processor reads entries from a data region and writes them to a Sink.
//
// Entries that are adjacent in the data region are read with a single
// ReadAt. Independent groups may be processed concurrently; each
// destination is written by exactly one worker.
type Processor struct {
	source        Source
	workers       int // 0 = auto, <0 = serial, >0 = fixed count
	maxGroupBytes uint64
	progress      asartype.ProgressFunc
	logger        *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of workers for parallel processing.
// Values < 0 force serial processing. Zero uses automatic heuristics.
// Values > 0 force a specific worker count.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithMaxGroupBytes caps the size of a buffered group read.
// Zero keeps DefaultMaxGroupBytes.
func WithMaxGroupBytes(n uint64) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.maxGroupBytes = n
		}
	}
}

// WithProgress sets a callback invoked after each entry is written.
func WithProgress(fn asartype.ProgressFunc) ProcessorOption {
	return func(p *Processor) {
		p.progress = fn
	}
}

// WithLogger sets the logger for batch processing operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a new batch processor reading from source.
func NewProcessor(source Source, opts ...ProcessorOption) *Processor {
	p := &Processor{
		source:        source,
		maxGroupBytes: DefaultMaxGroupBytes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// progressState tracks completed work across workers.
type progressState struct {
	filesDone  atomic.Int64
	bytesDone  atomic.Uint64
	filesTotal int
	bytesTotal uint64
}

// Process reads file entries and writes their content to sink.
//
// Directory entries are ignored. Entries are filtered through
// sink.ShouldProcess, bounds-checked against the source, sorted by offset,
// grouped into contiguous ranges and processed. Processing stops on the
// first error.
func (p *Processor) Process(entries []Entry, sink Sink) (ProcessStats, error) {
	var stats ProcessStats

	toProcess := make([]*Entry, 0, len(entries))
	var totalBytes uint64
	for i := range entries {
		entry := &entries[i]
		if entry.IsDir() {
			continue
		}
		if !sink.ShouldProcess(entry) {
			stats.Skipped++
			continue
		}
		toProcess = append(toProcess, entry)
		totalBytes += entry.Size()
	}
	if len(toProcess) == 0 {
		return stats, nil
	}

	sourceSize := uint64(max(p.source.Size(), 0)) //nolint:gosec // clamped to non-negative
	for _, entry := range toProcess {
		if !sizing.InBounds(entry.Offset(), entry.Size(), sourceSize) {
			return stats, fmt.Errorf("%w: %s: range [%d, +%d) exceeds data size %d",
				asartype.ErrFormat, entry.Path, entry.Offset(), entry.Size(), sourceSize)
		}
	}

	slices.SortStableFunc(toProcess, func(a, b *Entry) int {
		switch {
		case a.Offset() < b.Offset():
			return -1
		case a.Offset() > b.Offset():
			return 1
		default:
			return 0
		}
	})

	groups := groupAdjacentEntries(toProcess, p.maxGroupBytes)
	workers := p.workerCount(len(groups), totalBytes, len(toProcess))
	p.log().Debug("batch processing", "entries", len(toProcess), "groups", len(groups), "workers", workers)

	state := &progressState{filesTotal: len(toProcess), bytesTotal: totalBytes}
	if workers < 2 {
		for _, group := range groups {
			if err := p.processGroup(group, sink, state); err != nil {
				return stats, err
			}
		}
	} else {
		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(workers)
		for _, group := range groups {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				return p.processGroup(group, sink, state)
			})
		}
		if err := g.Wait(); err != nil {
			return stats, err
		}
	}

	stats.Processed = len(toProcess)
	stats.TotalBytes = totalBytes
	return stats, nil
}

// processGroup reads a contiguous range and writes each entry.
func (p *Processor) processGroup(group rangeGroup, sink Sink, state *progressState) error {
	if len(group.entries) == 1 && group.size() > p.maxGroupBytes {
		return p.streamEntry(group.entries[0], sink, state)
	}

	data, err := p.readGroupData(group)
	if err != nil {
		return err
	}
	for _, entry := range group.entries {
		local := entry.Offset() - group.start
		content := data[local : local+entry.Size()]
		if err := p.writeEntry(entry, sink, state, func(w io.Writer) error {
			return writeAll(w, content)
		}); err != nil {
			return err
		}
	}
	return nil
}

// streamEntry copies a single large entry without buffering it in memory.
func (p *Processor) streamEntry(entry *Entry, sink Sink, state *progressState) error {
	off, err := sizing.ToInt64(entry.Offset(), asartype.ErrSizeOverflow)
	if err != nil {
		return fmt.Errorf("batch: %s: %w", entry.Path, err)
	}
	size, err := sizing.ToInt64(entry.Size(), asartype.ErrSizeOverflow)
	if err != nil {
		return fmt.Errorf("batch: %s: %w", entry.Path, err)
	}
	return p.writeEntry(entry, sink, state, func(w io.Writer) error {
		n, err := io.Copy(w, io.NewSectionReader(p.source, off, size))
		if err != nil {
			return asartype.NewIOError("read", entry.Path, err)
		}
		if n != size {
			return asartype.NewIOError("read", entry.Path, io.ErrUnexpectedEOF)
		}
		return nil
	})
}

// writeEntry obtains a writer from sink, fills it, and commits or discards.
func (p *Processor) writeEntry(entry *Entry, sink Sink, state *progressState, fill func(io.Writer) error) error {
	w, err := sink.Writer(entry)
	if err != nil {
		return asartype.NewIOError("create", entry.Path, err)
	}
	if err := fill(w); err != nil {
		_ = w.Discard() //nolint:errcheck // best-effort cleanup
		return asartype.NewIOError("write", entry.Path, err)
	}
	if err := w.Commit(); err != nil {
		return asartype.NewIOError("commit", entry.Path, err)
	}
	p.report(entry, state)
	return nil
}

// readGroupData reads the contiguous byte range for a group.
func (p *Processor) readGroupData(group rangeGroup) ([]byte, error) {
	size, err := sizing.ToInt(group.size(), asartype.ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	start, err := sizing.ToInt64(group.start, asartype.ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	data := make([]byte, size)
	n, err := p.source.ReadAt(data, start)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, asartype.NewIOError("read", group.entries[0].Path, err)
	}
	if n != size {
		return nil, asartype.NewIOError("read", group.entries[0].Path,
			fmt.Errorf("short read (%d of %d bytes): %w", n, size, io.ErrUnexpectedEOF))
	}
	return data, nil
}

func (p *Processor) report(entry *Entry, state *progressState) {
	files := state.filesDone.Add(1)
	bytes := state.bytesDone.Add(entry.Size())
	if p.progress == nil {
		return
	}
	p.progress(asartype.ProgressEvent{
		Stage:      asartype.StageExtracting,
		Path:       entry.Path,
		BytesDone:  bytes,
		BytesTotal: state.bytesTotal,
		FilesDone:  int(files),
		FilesTotal: state.filesTotal,
	})
}

// workerCount determines the number of workers to use for processing.
func (p *Processor) workerCount(groups int, totalBytes uint64, files int) int {
	if groups < 2 || p.workers < 0 {
		return 1
	}

	workers := p.workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
		// Use size-based heuristic: only parallelize for larger entries
		if totalBytes/uint64(files) < parallelMinAvgBytes { //nolint:gosec // files > 0
			return 1
		}
	}
	return max(min(workers, groups), 1)
}

func writeAll(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}
