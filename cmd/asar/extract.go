package main

import (
	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/meigma/asar"
)

func newExtractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <archive> <dest>",
		Short: "Extract every entry of an archive below a directory",
		Long: `Extract an archive below <dest>, creating it if needed.

Existing directories are reused. Existing files are overwritten unless
--skip-existing is set.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classify(a.extract(args[0], args[1]))
		},
	}
	cmd.Flags().Int(keyWorkers, 0, "parallel file writers (0 = automatic, negative = serial)")
	cmd.Flags().Bool(keySkipExisting, false, "keep files that already exist at the destination")
	return cmd
}

func (a *app) extract(path, dest string) error {
	af, err := asar.OpenFile(path, asar.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer af.Close()

	stats, err := af.ExtractAll(dest,
		asar.ExtractWithWorkers(a.v.GetInt(keyWorkers)),
		asar.ExtractWithSkipExisting(a.v.GetBool(keySkipExisting)),
	)
	if err != nil {
		return err
	}
	a.logger.Info("extracted archive",
		"dest", dest,
		"dirs", stats.Dirs,
		"files", stats.Files,
		"skipped", stats.Skipped,
		"size", units.HumanSize(float64(stats.Bytes)),
	)
	return nil
}
