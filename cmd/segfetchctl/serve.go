package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"segfetch/internal/config"
	"segfetch/internal/history"
	"segfetch/internal/httpapi"
	"segfetch/internal/logging"
	"segfetch/internal/supervisor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the download engine as a background HTTP service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8787", "listen address")
	serveCmd.Flags().String("token", "", "auth token required on every request (empty disables auth)")
	serveCmd.Flags().Int("rate-limit", 0, "global rate limit in bytes/sec, 0 for unlimited")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	token, _ := cmd.Flags().GetString("token")
	rateLimit, _ := cmd.Flags().GetInt("rate-limit")

	cfg := config.Default()
	cfg.GlobalRateLimitBytesPerSec = rateLimit

	logger, err := logging.New(logDir(), os.Stdout, nil)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}

	store, err := history.Open(historyPath())
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close()

	sup := supervisor.New(logger, cfg.UserAgent, cfg.GlobalRateLimitBytesPerSec)

	api := httpapi.New(logger, sup, token)
	api.Start(addr)
	defer api.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	logger.Info("segfetchctl serving", "addr", addr)
	for {
		select {
		case <-sigCh:
			logger.Info("shutting down")
			sup.StopAll()
			return nil
		case <-ticker.C:
			sup.TickScheduler(ctx)
			for _, v := range sup.List() {
				if v.Status.IsTerminal() {
					if err := store.Record(v); err != nil {
						logger.Warn("history record failed", "id", v.ID, "error", err)
					}
				}
			}
		}
	}
}
