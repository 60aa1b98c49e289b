package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"segfetch/internal/netcheck"
)

var speedtestCmd = &cobra.Command{
	Use:   "speedtest",
	Short: "Run a one-off network speed test",
	RunE:  runSpeedTest,
}

func init() {
	rootCmd.AddCommand(speedtestCmd)
}

func runSpeedTest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	fmt.Println("running speed test...")
	result, err := netcheck.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("server:    %s (%s)\n", result.ServerName, result.ISP)
	fmt.Printf("ping:      %d ms\n", result.PingMs)
	fmt.Printf("download:  %.2f Mbps (%s/s)\n", result.DownloadMbps, humanize.Bytes(uint64(result.DownloadMbps*1024*1024/8)))
	fmt.Printf("upload:    %.2f Mbps\n", result.UploadMbps)
	return nil
}
