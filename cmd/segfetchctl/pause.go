package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause [id]",
	Short: "Pause a running download in-place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPIClient(cmd).do("POST", "/downloads/"+args[0]+"/pause", nil, nil); err != nil {
			return err
		}
		fmt.Println("paused", args[0])
		return nil
	},
}

func init() {
	addServerFlags(pauseCmd)
	rootCmd.AddCommand(pauseCmd)
}
