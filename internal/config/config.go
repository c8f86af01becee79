// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/beaconhq/console-agent/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete console agent configuration.
type Config struct {
	Version string `toml:"version"`

	// Backend configuration
	Backend BackendConfig `toml:"backend"`

	// Console context defaults
	Console ConsoleConfig `toml:"console"`

	// History persistence configuration
	History HistoryConfig `toml:"history"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// BackendConfig contains agent backend connection settings.
type BackendConfig struct {
	// URL is the console API base URL
	URL string `toml:"url"`
	// AuthToken is attached as a bearer token when non-empty
	AuthToken string `toml:"auth_token"`
	// TimeoutSecs applies to non-streaming requests
	TimeoutSecs int `toml:"timeout_secs"`
	// RequestsPerMinute caps outgoing chat calls client-side
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// ConsoleConfig carries the default console position sent with each message.
type ConsoleConfig struct {
	// Tenant is the default active tenant slug
	Tenant string `toml:"tenant"`
	// Context is the default data scope, e.g. "campaign:q3"
	Context string `toml:"context"`
	// Pathname is the default console route
	Pathname string `toml:"pathname"`
}

// HistoryConfig contains conversation persistence settings.
type HistoryConfig struct {
	// Enabled turns write-behind persistence on or off
	Enabled bool `toml:"enabled"`
	// Path overrides the database location (empty = ~/.beacon/history.db)
	Path string `toml:"path"`
	// MaxConversations caps stored conversations (0 = unlimited)
	MaxConversations int `toml:"max_conversations"`
}

// UIConfig contains terminal rendering settings.
type UIConfig struct {
	// Theme selects the markdown rendering style: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// ShowToolCalls renders tool call activity inline
	ShowToolCalls bool `toml:"show_tool_calls"`
	// CompactMode trims blank lines between messages
	CompactMode bool `toml:"compact_mode"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Backend: BackendConfig{
			URL:               "http://127.0.0.1:8787",
			TimeoutSecs:       10,
			RequestsPerMinute: 30,
		},
		History: HistoryConfig{
			Enabled:          true,
			MaxConversations: 200,
		},
		UI: UIConfig{
			Theme:         "dark",
			ShowToolCalls: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the beacon configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".beacon"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the default config file, applies environment overrides, and
// validates. A missing file is not an error; defaults are used.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the default TOML file atomically. The
// file holds the auth token, so permissions are owner-only.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a specific path.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// applyEnvOverrides applies BEACON_* environment variables over the file
// layer. Environment always wins.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BEACON_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("BEACON_TOKEN"); v != "" {
		cfg.Backend.AuthToken = v
	}
	if v := os.Getenv("BEACON_TENANT"); v != "" {
		cfg.Console.Tenant = v
	}
	if v := os.Getenv("BEACON_CONTEXT"); v != "" {
		cfg.Console.Context = v
	}
	if v := os.Getenv("BEACON_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Backend.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("BEACON_HISTORY"); v != "" {
		cfg.History.Enabled = v != "0" && !strings.EqualFold(v, "false")
	}
	if v := os.Getenv("BEACON_THEME"); v != "" {
		cfg.UI.Theme = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return ValidationError{Field: "backend.url", Message: "must not be empty"}
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{Field: "backend.url", Message: "must be an http(s) URL"}
	}
	if c.Backend.TimeoutSecs < 0 {
		return ValidationError{Field: "backend.timeout_secs", Message: "must not be negative"}
	}
	if c.Backend.RequestsPerMinute < 0 {
		return ValidationError{Field: "backend.requests_per_minute", Message: "must not be negative"}
	}
	switch c.UI.Theme {
	case "", "dark", "light", "auto":
	default:
		return ValidationError{Field: "ui.theme", Message: "must be dark, light, or auto"}
	}
	if c.History.MaxConversations < 0 {
		return ValidationError{Field: "history.max_conversations", Message: "must not be negative"}
	}
	return nil
}

// Timeout returns the backend timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// HistoryPath resolves the database location.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}
