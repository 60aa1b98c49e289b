// Package netcheck runs an optional network speed test to help size
// initial_segment_count suggestions; it is not on the controller's hot
// path. Grounded on the teacher's core/network.go RunSpeedTest.
package netcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/showwin/speedtest-go/speedtest"
)

// Result is the outcome of one speed test run.
type Result struct {
	DownloadMbps float64
	UploadMbps   float64
	PingMs       int64
	ServerName   string
	ISP          string
	Timestamp    time.Time
}

// Run performs ping, download, and upload tests against the nearest
// available server, bounded by a 30s timeout the same as the teacher.
func Run(ctx context.Context) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	user, err := speedtest.FetchUserInfo()
	if err != nil {
		return nil, fmt.Errorf("netcheck: no internet connection: %w", err)
	}

	servers, err := speedtest.FetchServers()
	if err != nil {
		return nil, fmt.Errorf("netcheck: fetching servers: %w", err)
	}

	targets, err := servers.FindServer([]int{})
	if err != nil || len(targets) == 0 {
		return nil, fmt.Errorf("netcheck: no speed test servers available")
	}
	server := targets[0]

	if err := server.PingTestContext(ctx, nil); err != nil {
		return nil, fmt.Errorf("netcheck: ping test failed: %w", err)
	}
	if err := server.DownloadTestContext(ctx); err != nil {
		return nil, fmt.Errorf("netcheck: download test failed: %w", err)
	}
	if err := server.UploadTestContext(ctx); err != nil {
		return nil, fmt.Errorf("netcheck: upload test failed: %w", err)
	}

	return &Result{
		DownloadMbps: float64(server.DLSpeed) / 1000 / 1000 * 8,
		UploadMbps:   float64(server.ULSpeed) / 1000 / 1000 * 8,
		PingMs:       server.Latency.Milliseconds(),
		ServerName:   server.Name,
		ISP:          user.Isp,
		Timestamp:    time.Now(),
	}, nil
}
