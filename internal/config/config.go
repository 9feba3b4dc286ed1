// Package config loads and stores CLI configuration in the XDG config dir.
// Everything here is a default; command-line flags override each field.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"droidsql/cli/internal/xdg"
)

// Config holds persistent CLI defaults.
type Config struct {
	Package     string `json:"package"`
	Database    string `json:"database"`
	Serial      string `json:"serial"`
	CacheOn     bool   `json:"cache"`
	Compression bool   `json:"compression"`
	RowLimit    int    `json:"row_limit"`
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults.
func Load() (Config, error) {
	var c Config
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.CacheOn = true
			c.Compression = true
			c.RowLimit = 100
			return c, nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
