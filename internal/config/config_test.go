// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Server.BaseURL != DefaultBaseURL {
		t.Errorf("base url = %q", cfg.Server.BaseURL)
	}
	if cfg.ReplyDelay() != 900*time.Millisecond {
		t.Errorf("reply delay = %v", cfg.ReplyDelay())
	}
	if cfg.Timeout() != 15*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}
}

func TestLoadFromPathTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
version = "1.0"

[server]
base_url = "http://localhost:3000"
timeout_secs = 5

[bot]
reply_delay_ms = 100
script = ["hi", "ok"]

[storage]
watch = true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.BaseURL != "http://localhost:3000" {
		t.Errorf("base url = %q", cfg.Server.BaseURL)
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}
	if len(cfg.Bot.Script) != 2 || cfg.Bot.Script[0] != "hi" {
		t.Errorf("script = %v", cfg.Bot.Script)
	}
	if !cfg.Storage.Watch {
		t.Error("watch not set")
	}
}

func TestLoadFromPathJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"server":{"base_url":"http://localhost:9999"},"session":{"ephemeral":true}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.BaseURL != "http://localhost:9999" {
		t.Errorf("base url = %q", cfg.Server.BaseURL)
	}
	if !cfg.Session.Ephemeral {
		t.Error("ephemeral not set")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative url", func(c *Config) { c.Server.BaseURL = "not-a-url" }},
		{"bad scheme", func(c *Config) { c.Server.BaseURL = "ftp://x.example" }},
		{"negative timeout", func(c *Config) { c.Server.TimeoutSecs = -1 }},
		{"negative delay", func(c *Config) { c.Bot.ReplyDelayMS = -5 }},
		{"unknown theme", func(c *Config) { c.UI.Theme = "solarized" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CHATIFY_BASE_URL", "http://env.example/")
	t.Setenv("CHATIFY_EPHEMERAL", "true")
	t.Setenv("CHATIFY_REPLY_DELAY_MS", "250")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.BaseURL != "http://env.example" {
		t.Errorf("base url = %q", cfg.Server.BaseURL)
	}
	if !cfg.Session.Ephemeral {
		t.Error("ephemeral not applied")
	}
	if cfg.Bot.ReplyDelayMS != 250 {
		t.Errorf("delay = %d", cfg.Bot.ReplyDelayMS)
	}
}

func TestSaveIfMissingSeedsOnce(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := Default()
	cfg.Server.TimeoutSecs = 42
	if err := SaveIfMissing(cfg); err != nil {
		t.Fatalf("SaveIfMissing: %v", err)
	}

	dir, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.toml")
	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load seeded config: %v", err)
	}
	if loaded.Server.TimeoutSecs != 42 {
		t.Errorf("seeded timeout = %d", loaded.Server.TimeoutSecs)
	}

	// An existing file is never overwritten.
	other := Default()
	other.Server.TimeoutSecs = 7
	if err := SaveIfMissing(other); err != nil {
		t.Fatal(err)
	}
	loaded, err = LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.TimeoutSecs != 42 {
		t.Errorf("existing config overwritten: timeout = %d", loaded.Server.TimeoutSecs)
	}
}

func TestDataDirOverride(t *testing.T) {
	cfg := Default()
	cfg.Storage.DataDir = "/tmp/elsewhere"
	dir, err := cfg.DataDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/tmp/elsewhere" {
		t.Errorf("data dir = %q", dir)
	}
}
