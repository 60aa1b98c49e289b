package main

import (
	"fmt"
	"text/tabwriter"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"segfetch/internal/model"
	"segfetch/internal/supervisor"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List tasks known to a running segfetchctl serve daemon",
	RunE:  runLs,
}

func init() {
	addServerFlags(lsCmd)
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	var views []model.TaskView
	if err := newAPIClient(cmd).do("GET", "/downloads", nil, &views); err != nil {
		return err
	}
	supervisor.SortByDateAdded(views)

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tPROGRESS\tSIZE\tETA")
	for _, v := range views {
		size := "?"
		if v.FileSize > 0 {
			size = humanize.Bytes(uint64(v.FileSize))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\t%s\n", v.ID, v.FileName, v.Status, v.ProgressPercent, size, v.ETA)
	}
	return tw.Flush()
}
