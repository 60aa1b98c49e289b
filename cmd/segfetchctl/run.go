package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"segfetch/internal/bandwidth"
	"segfetch/internal/config"
	"segfetch/internal/controller"
	"segfetch/internal/httpclient"
	"segfetch/internal/logging"
	"segfetch/internal/model"
)

var runCmd = &cobra.Command{
	Use:   "run [url]",
	Short: "Download a single URL in the foreground, printing progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringP("output", "o", "", "destination directory (default: ~/Downloads)")
	runCmd.Flags().StringP("name", "n", "", "output file name (default: derived from URL)")
	runCmd.Flags().IntP("segments", "s", 4, "initial number of segments")
	runCmd.Flags().Int("rate-limit", 0, "global rate limit in bytes/sec, 0 for unlimited")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	url := args[0]
	destDir, _ := cmd.Flags().GetString("output")
	name, _ := cmd.Flags().GetString("name")
	segments, _ := cmd.Flags().GetInt("segments")
	rateLimit, _ := cmd.Flags().GetInt("rate-limit")

	cfg := config.Default()
	if destDir == "" {
		destDir = cfg.DefaultDownloadDirectory
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	logger, err := logging.New(logDir(), os.Stderr, nil)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}

	bw := bandwidth.NewManager()
	bw.SetLimit(rateLimit)
	client := httpclient.New(cfg.UserAgent)

	ctrl := controller.New(uuid.NewString(), url, destDir, name, segments, client, bw, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nstopping...")
		ctrl.Stop(false)
	}()

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		view := ctrl.View()
		printProgress(view)
		if view.Status.IsTerminal() {
			fmt.Println()
			if view.Status != model.StatusCompleted {
				return fmt.Errorf("download finished with status %s", view.Status)
			}
			return nil
		}
	}
	return nil
}

func printProgress(v model.TaskView) {
	size := "?"
	if v.FileSize > 0 {
		size = humanize.Bytes(uint64(v.FileSize))
	}
	fmt.Printf("\r%-20s %3d%%  %8s/s  eta %s  size %s   ", v.Status, v.ProgressPercent, humanize.Bytes(uint64(v.SpeedKbps*1024)), v.ETA, size)
}
