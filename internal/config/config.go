package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.sphinx/config.toml.
type Config struct {
	DefaultAccount string `toml:"default_account"`
	RelayURL       string `toml:"relay_url"`
	RelayToken     string `toml:"relay_token"`

	// DefaultSatsPerMinute is the sats streaming rate used when a feed
	// carries no suggested amount.
	DefaultSatsPerMinute int `toml:"default_sats_per_minute"`

	// GroupingWindowMinutes overrides the bubble grouping time window.
	// Zero keeps the built-in 5 minute window.
	GroupingWindowMinutes int `toml:"grouping_window_minutes"`
}

// GroupingWindow returns the configured bubble grouping window, or zero
// when the default should be used.
func (c *Config) GroupingWindow() time.Duration {
	return time.Duration(c.GroupingWindowMinutes) * time.Minute
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
