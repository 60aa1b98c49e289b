package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Stop and permanently remove a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPIClient(cmd).do("DELETE", "/downloads/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Println("removed", args[0])
		return nil
	},
}

func init() {
	addServerFlags(rmCmd)
	rootCmd.AddCommand(rmCmd)
}
