// Package config models the plain configuration values the external
// settings collaborator supplies to the core; the core never owns a
// settings store (persistence is the shell's job).
package config

import (
	"os"
	"path/filepath"
)

// Values mirrors the teacher's ConfigManager getters (GetUserAgent,
// GetDefaultDownloadPath, ...) but as plain fields with no DB backing.
type Values struct {
	// DefaultDownloadDirectory falls back to the user's home Downloads
	// folder when empty, matching settings.py's SettingsManager default.
	DefaultDownloadDirectory string

	// UserAgent is injected into HEAD and GET headers when non-empty; a
	// blank value (the zero value) means "let the HTTP library choose",
	// same as the Python original's blank default.
	UserAgent string

	// GlobalRateLimitBytesPerSec is the one enforcement hook the spec
	// sanctions (see internal/bandwidth). Zero disables enforcement.
	GlobalRateLimitBytesPerSec int
}

// Default returns the zero-configuration value set: no rate limit, no
// user agent override, and a download directory resolved to
// ~/Downloads.
func Default() Values {
	return Values{
		DefaultDownloadDirectory: defaultDownloadDirectory(),
	}
}

func defaultDownloadDirectory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}
