package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/asar"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
)

// Configuration keys. Each is also readable from ASAR_<KEY> with dashes
// replaced by underscores.
const (
	keyVerbose      = "verbose"
	keyWorkers      = "workers"
	keyMaxFiles     = "max-files"
	keySkipExisting = "skip-existing"
)

// app carries state shared by all subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *slog.Logger
}

func newApp() *app {
	v := viper.New()
	v.SetDefault(keyVerbose, false)
	v.SetDefault(keyWorkers, 0)
	v.SetDefault(keyMaxFiles, asar.DefaultMaxFiles)
	v.SetDefault(keySkipExisting, false)
	v.SetEnvPrefix("ASAR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &app{v: v}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	a := newApp()
	root := &cobra.Command{
		Use:   "asar",
		Short: "Pack directories into asar archives and extract them",
		Long: `asar packs a directory tree into a single archive file and unpacks it again.

An archive is a 16-byte header, a JSON document describing the tree, and
the concatenated contents of every file. Settings can come from flags,
a config file (--config) or ASAR_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().BoolP(keyVerbose, "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML, TOML or JSON)")

	root.AddCommand(
		newListCmd(a),
		newPackCmd(a),
		newExtractCmd(a),
		newExtractFileCmd(a),
	)
	return root
}

// init loads configuration and installs the logger.
func (a *app) init(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
	}
	a.logger = newLogger(cmd.ErrOrStderr(), a.v.GetBool(keyVerbose))
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("loaded config", "path", used)
	}
	return nil
}

// newLogger returns an slog.Logger backed by a charmbracelet/log handler.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Prefix: "asar",
		Level:  level,
	})
	return slog.New(handler)
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Execute runs the CLI and exits with the code of any ExitError.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(exitFailure)
	}
}
