// Package xdg provides helpers to resolve XDG Base Directory paths for droidsql.
// It implements the XDG Base Directory specification for determining appropriate
// locations for configuration files and the pulled-database cache.
//
// The package handles fallback to traditional locations when XDG environment
// variables are not set and ensures proper permissions for security-sensitive
// directories like configuration storage.
package xdg

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the XDG config directory for droidsql.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/droidsql when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	dir := filepath.Join(base, "droidsql")
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}

// CacheDir returns the XDG cache directory for droidsql. Pulled database
// copies and their metadata sidecars live here; the directory persists
// across invocations and is only emptied by an explicit cache clear.
// It falls back to ~/.cache/droidsql when XDG_CACHE_HOME is unset.
func CacheDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "droidsql")
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir, pulled DBs may hold app data
		return "", err
	}
	return dir, nil
}
