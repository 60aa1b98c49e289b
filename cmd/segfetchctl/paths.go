package main

import (
	"os"
	"path/filepath"
)

// logDir returns the directory the shared logger writes its durable
// JSON log to, grounded on the teacher's logger.New (os.UserConfigDir()
// + app name + "logs").
func logDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "segfetch", "logs")
}

// historyPath returns the sqlite database path for persisted task
// history, alongside the log directory.
func historyPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	dir := filepath.Join(base, "segfetch")
	os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, "history.db")
}
