package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Submit a download to a running segfetchctl serve daemon",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringP("output", "o", "", "destination directory")
	addCmd.Flags().StringP("name", "n", "", "output file name")
	addCmd.Flags().IntP("segments", "s", 4, "initial number of segments")
	addCmd.Flags().String("at", "", "schedule the download to start at this RFC3339 time (default: start immediately)")
	addServerFlags(addCmd)
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	destDir, _ := cmd.Flags().GetString("output")
	name, _ := cmd.Flags().GetString("name")
	segments, _ := cmd.Flags().GetInt("segments")
	at, _ := cmd.Flags().GetString("at")

	req := map[string]any{
		"url":       args[0],
		"dest_dir":  destDir,
		"file_name": name,
		"segments":  segments,
	}
	if at != "" {
		req["schedule_at"] = at
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := newAPIClient(cmd).do("POST", "/downloads", req, &resp); err != nil {
		return err
	}
	fmt.Println(resp.ID)
	return nil
}
