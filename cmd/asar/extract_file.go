package main

import (
	"path"

	"github.com/spf13/cobra"

	"github.com/meigma/asar"
)

func newExtractFileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract-file <archive> <path> [dest]",
		Short: "Extract a single file from an archive",
		Long: `Extract the file at <path> inside the archive to [dest].

<path> must name a file exactly, e.g. "sub/b.txt". [dest] defaults to
the file's base name in the working directory; its parent directory
must already exist.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(_ *cobra.Command, args []string) error {
			dest := path.Base(asar.NormalizePath(args[1]))
			if len(args) == 3 {
				dest = args[2]
			}
			return classify(a.extractFile(args[0], args[1], dest))
		},
	}
	cmd.Flags().Bool(keySkipExisting, false, "keep the destination if it already exists")
	return cmd
}

func (a *app) extractFile(archivePath, name, dest string) error {
	af, err := asar.OpenFile(archivePath, asar.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer af.Close()

	if err := af.ExtractFile(name, dest, asar.ExtractWithSkipExisting(a.v.GetBool(keySkipExisting))); err != nil {
		return err
	}
	a.logger.Debug("extracted file", "path", name, "dest", dest)
	return nil
}
