package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop [id]",
	Short: "Stop a download, tearing its workers down",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pauseOnly, _ := cmd.Flags().GetBool("pause-only")
		path := "/downloads/" + args[0] + "/stop"
		if pauseOnly {
			path += "?pause_only=true"
		}
		if err := newAPIClient(cmd).do("POST", path, nil, nil); err != nil {
			return err
		}
		fmt.Println("stopped", args[0])
		return nil
	},
}

func init() {
	stopCmd.Flags().Bool("pause-only", false, "stop workers but keep the task resumable (Paused, not Cancelled)")
	addServerFlags(stopCmd)
	rootCmd.AddCommand(stopCmd)
}
