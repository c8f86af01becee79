// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	def := Default()
	if cfg.Backend.URL != def.Backend.URL || cfg.UI.Theme != def.UI.Theme {
		t.Errorf("config = %+v, want defaults", cfg)
	}
}

func TestLoadFromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = "1.0.0"

[backend]
url = "https://console.example.com"
auth_token = "tok-123"
timeout_secs = 20

[console]
tenant = "acme"
context = "campaign:q3"

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Backend.URL != "https://console.example.com" {
		t.Errorf("url = %q", cfg.Backend.URL)
	}
	if cfg.Backend.AuthToken != "tok-123" {
		t.Errorf("token = %q", cfg.Backend.AuthToken)
	}
	if cfg.Console.Tenant != "acme" || cfg.Console.Context != "campaign:q3" {
		t.Errorf("console = %+v", cfg.Console)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
	// Unset fields keep their defaults.
	if cfg.Backend.RequestsPerMinute != Default().Backend.RequestsPerMinute {
		t.Errorf("requests_per_minute = %d", cfg.Backend.RequestsPerMinute)
	}
	if cfg.Timeout() != 20*time.Second {
		t.Errorf("timeout = %s", cfg.Timeout())
	}
}

func TestEnvOverridesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[backend]\nurl = \"http://file.example.com\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BEACON_URL", "http://env.example.com")
	t.Setenv("BEACON_TENANT", "globex")
	t.Setenv("BEACON_HISTORY", "false")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.URL != "http://env.example.com" {
		t.Errorf("url = %q, env should win over file", cfg.Backend.URL)
	}
	if cfg.Console.Tenant != "globex" {
		t.Errorf("tenant = %q", cfg.Console.Tenant)
	}
	if cfg.History.Enabled {
		t.Error("BEACON_HISTORY=false should disable history")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.Backend.URL = "" }},
		{"bad scheme", func(c *Config) { c.Backend.URL = "ftp://example.com" }},
		{"negative timeout", func(c *Config) { c.Backend.TimeoutSecs = -1 }},
		{"unknown theme", func(c *Config) { c.UI.Theme = "solarized" }},
		{"negative limit", func(c *Config) { c.History.MaxConversations = -5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted invalid config")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.Console.Tenant = "acme"
	cfg.Backend.AuthToken = "secret"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %o, want 0600", info.Mode().Perm())
	}

	got, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Console.Tenant != "acme" || got.Backend.AuthToken != "secret" {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[console]\ntenant = \"acme\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.debounce = 50 * time.Millisecond
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[console]\ntenant = \"globex\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Console.Tenant != "globex" {
			t.Errorf("reloaded tenant = %q", cfg.Console.Tenant)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never fired")
	}
}
