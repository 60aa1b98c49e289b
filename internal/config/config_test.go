package config

import (
	"strings"
	"testing"
)

func TestDefaultResolvesDownloadDirectory(t *testing.T) {
	cfg := Default()
	if cfg.DefaultDownloadDirectory == "" {
		t.Fatal("DefaultDownloadDirectory is empty")
	}
	if !strings.HasSuffix(cfg.DefaultDownloadDirectory, "Downloads") {
		t.Errorf("DefaultDownloadDirectory = %q, want suffix Downloads", cfg.DefaultDownloadDirectory)
	}
}

func TestDefaultHasNoRateLimitOrUserAgent(t *testing.T) {
	cfg := Default()
	if cfg.GlobalRateLimitBytesPerSec != 0 {
		t.Errorf("GlobalRateLimitBytesPerSec = %d, want 0", cfg.GlobalRateLimitBytesPerSec)
	}
	if cfg.UserAgent != "" {
		t.Errorf("UserAgent = %q, want empty", cfg.UserAgent)
	}
}
