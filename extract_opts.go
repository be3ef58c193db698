package asar

// extractConfig holds configuration for ExtractAll and ExtractFile.
type extractConfig struct {
	workers      int
	skipExisting bool
	directWrites bool
	maxGroup     uint64
	progress     ProgressFunc
}

// ExtractOption configures extraction.
type ExtractOption func(*extractConfig)

func newExtractConfig(opts []ExtractOption) extractConfig {
	var cfg extractConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// ExtractWithWorkers sets the number of workers used to write files.
// Values < 0 force serial processing. Zero uses automatic heuristics.
// Values > 0 force a specific worker count.
func ExtractWithWorkers(n int) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.workers = n
	}
}

// ExtractWithSkipExisting leaves files that already exist at the
// destination untouched. By default, existing files are overwritten.
func ExtractWithSkipExisting(skip bool) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.skipExisting = skip
	}
}

// ExtractWithDirectWrites writes straight to the final path instead of a
// temporary file that is renamed into place. A failed extraction may then
// leave partial files behind.
func ExtractWithDirectWrites(enabled bool) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.directWrites = enabled
	}
}

// ExtractWithMaxGroupBytes caps how many bytes of adjacent files ExtractAll
// reads in one request. Larger files are streamed individually. Zero keeps
// the default of 8 MiB.
func ExtractWithMaxGroupBytes(n uint64) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.maxGroup = n
	}
}

// ExtractWithProgress sets a callback invoked after each file is written.
// The callback may be invoked from multiple goroutines concurrently.
func ExtractWithProgress(fn ProgressFunc) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.progress = fn
	}
}
