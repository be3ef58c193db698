package asar

import "log/slog"

// createConfig holds configuration for walking a source tree.
type createConfig struct {
	maxFiles int
	progress ProgressFunc
	logger   *slog.Logger
}

// CreateOption configures Walk, WalkPattern, WriteArchive and Pack.
type CreateOption func(*createConfig)

func newCreateConfig(opts []CreateOption) createConfig {
	var cfg createConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxFiles == 0 {
		cfg.maxFiles = DefaultMaxFiles
	}
	return cfg
}

// CreateWithMaxFiles limits the number of files included in the archive.
// Zero uses DefaultMaxFiles. Negative means no limit.
func CreateWithMaxFiles(n int) CreateOption {
	return func(cfg *createConfig) {
		cfg.maxFiles = n
	}
}

// CreateWithProgress sets a callback to receive progress updates while
// walking and writing.
// The callback may be invoked from multiple goroutines concurrently.
func CreateWithProgress(fn ProgressFunc) CreateOption {
	return func(cfg *createConfig) {
		cfg.progress = fn
	}
}

// CreateWithLogger sets the logger for archive creation.
// If not set, logging is disabled.
func CreateWithLogger(logger *slog.Logger) CreateOption {
	return func(cfg *createConfig) {
		cfg.logger = logger
	}
}
