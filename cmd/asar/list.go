package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/meigma/asar"
)

func newListCmd(a *app) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:     "list <archive>",
		Aliases: []string{"ls"},
		Short:   "List the entries of an archive",
		Long: `List every entry of an archive in pre-order: each directory precedes its
children and siblings appear in name order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return classify(a.list(cmd, args[0], long))
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show kind, size and data offset")
	return cmd
}

func (a *app) list(cmd *cobra.Command, path string, long bool) error {
	af, err := asar.OpenFile(path, asar.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer af.Close()

	out := cmd.OutOrStdout()
	if !long {
		for e := range af.Entries() {
			fmt.Fprintln(out, e.Path)
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for e := range af.Entries() {
		if e.IsDir() {
			fmt.Fprintf(tw, "dir\t-\t-\t%s/\n", e.Path)
			continue
		}
		fmt.Fprintf(tw, "file\t%s\t%d\t%s\n", units.HumanSize(float64(e.Size())), e.Offset(), e.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d entries, %d files, %s of data\n",
		af.Len(), af.Files(), units.HumanSize(float64(af.DataSize())))
	return nil
}
