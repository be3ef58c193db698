package main

import (
	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/meigma/asar"
)

func newPackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack <source> <archive>",
		Short: "Pack a directory or glob pattern into an archive",
		Long: `Pack a directory tree into an archive.

When <source> is not a directory it is treated as a glob pattern relative
to the working directory. Patterns support *, ?, [...] and ** and must
match at least one path. Symbolic links are skipped.`,
		Example: `  asar pack ./app app.asar
  asar pack 'src/**/*.js' scripts.asar`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classify(a.pack(cmd, args[0], args[1]))
		},
	}
	cmd.Flags().Int(keyMaxFiles, asar.DefaultMaxFiles, "maximum number of files (negative for no limit)")
	return cmd
}

func (a *app) pack(cmd *cobra.Command, src, dest string) error {
	log := a.logger
	opts := []asar.CreateOption{
		asar.CreateWithLogger(log),
		asar.CreateWithMaxFiles(a.v.GetInt(keyMaxFiles)),
		asar.CreateWithProgress(func(ev asar.ProgressEvent) {
			if ev.Path != "" {
				log.Debug(ev.Stage.String(), "path", ev.Path, "files", ev.FilesDone)
			}
		}),
	}
	if err := asar.Pack(cmd.Context(), src, dest, opts...); err != nil {
		return err
	}

	af, err := asar.OpenFile(dest)
	if err != nil {
		return err
	}
	defer af.Close()
	log.Info("packed archive", "archive", dest, "files", af.Files(), "size", units.HumanSize(float64(af.DataSize())))
	return nil
}
