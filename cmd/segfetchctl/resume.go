package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [id]",
	Short: "Resume a paused or stopped download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPIClient(cmd).do("POST", "/downloads/"+args[0]+"/resume", nil, nil); err != nil {
			return err
		}
		fmt.Println("resumed", args[0])
		return nil
	},
}

func init() {
	addServerFlags(resumeCmd)
	rootCmd.AddCommand(resumeCmd)
}
