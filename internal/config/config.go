// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading for chatify-tui.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.chatify/config.toml
//   - ~/.chatify/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/chatify-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete chatify-tui configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Server  ServerConfig  `toml:"server" json:"server"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Session SessionConfig `toml:"session" json:"session"`
	Bot     BotConfig     `toml:"bot" json:"bot"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// ServerConfig points the client at a Chatify API deployment.
type ServerConfig struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds every HTTP request.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// StorageConfig controls where local state lives.
type StorageConfig struct {
	// DataDir holds credentials, bot history, and the view cache.
	// Empty means ~/.chatify.
	DataDir string `toml:"data_dir" json:"data_dir"`
	// Watch enables a filesystem watcher on the active bot-history file so
	// a second running instance converges on external changes.
	Watch bool `toml:"watch" json:"watch"`
}

// SessionConfig controls credential persistence.
type SessionConfig struct {
	// Ephemeral keeps the login token in memory only; nothing credential-
	// shaped is written to disk and every start requires a fresh login.
	Ephemeral bool `toml:"ephemeral" json:"ephemeral"`
}

// BotConfig tunes the simulated conversation partner.
type BotConfig struct {
	// ReplyDelayMS is how long the peer "thinks" before answering.
	ReplyDelayMS int `toml:"reply_delay_ms" json:"reply_delay_ms"`
	// Script overrides the built-in rotation of canned replies.
	Script []string `toml:"script" json:"script"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme selects the color scheme: "dark", "light", or "auto".
	Theme string `toml:"theme" json:"theme"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultBaseURL is the public Chatify deployment.
const DefaultBaseURL = "https://chatify-api.up.railway.app"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Server: ServerConfig{
			BaseURL:     DefaultBaseURL,
			TimeoutSecs: 15,
		},
		Storage: StorageConfig{
			DataDir: "",
			Watch:   false,
		},
		Session: SessionConfig{
			Ephemeral: false,
		},
		Bot: BotConfig{
			ReplyDelayMS: 900,
		},
		UI: UIConfig{
			Theme: "auto",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the configuration directory (~/.chatify).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".chatify"), nil
}

// DataDir resolves the directory for all persisted state, honoring the
// storage.data_dir override.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	return ConfigDir()
}

// Timeout returns the configured request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	secs := c.Server.TimeoutSecs
	if secs <= 0 {
		secs = 15
	}
	return time.Duration(secs) * time.Second
}

// ReplyDelay returns the simulated-peer thinking delay as a duration.
func (c *Config) ReplyDelay() time.Duration {
	ms := c.Bot.ReplyDelayMS
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration: TOML first, then JSON, then built-in
// defaults, with environment overrides applied last. A missing file is not
// an error; a malformed file is.
func Load() (*Config, error) {
	cfg := Default()

	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}

	tomlPath := filepath.Join(dir, "config.toml")
	jsonPath := filepath.Join(dir, "config.json")

	switch {
	case fileExists(tomlPath):
		if err := loadTOML(cfg, tomlPath); err != nil {
			return nil, err
		}
	case fileExists(jsonPath):
		if err := loadJSON(cfg, jsonPath); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads a specific config file, picking the decoder from the
// extension.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	var err error
	if strings.HasSuffix(path, ".json") {
		err = loadJSON(cfg, path)
	} else {
		err = loadTOML(cfg, path)
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func loadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Save writes the configuration as TOML to the default location.
func Save(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	path := filepath.Join(dir, "config.toml")
	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SaveIfMissing seeds the default location with the current configuration
// when no config file exists yet, so users have a file to edit. An existing
// file, TOML or JSON, is left untouched.
func SaveIfMissing(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if fileExists(filepath.Join(dir, "config.toml")) || fileExists(filepath.Join(dir, "config.json")) {
		return nil
	}
	return Save(cfg)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for values the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ValidationError{Field: "server.base_url", Message: "must be an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: "server.base_url", Message: "scheme must be http or https"}
	}
	if c.Server.TimeoutSecs < 0 {
		return ValidationError{Field: "server.timeout_secs", Message: "must not be negative"}
	}
	if c.Bot.ReplyDelayMS < 0 {
		return ValidationError{Field: "bot.reply_delay_ms", Message: "must not be negative"}
	}
	switch c.UI.Theme {
	case "", "auto", "dark", "light":
	default:
		return ValidationError{Field: "ui.theme", Message: "must be auto, dark, or light"}
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variables on top of the loaded file:
//   - CHATIFY_BASE_URL: overrides server.base_url
//   - CHATIFY_TIMEOUT_SECS: overrides server.timeout_secs
//   - CHATIFY_DATA_DIR: overrides storage.data_dir
//   - CHATIFY_WATCH: "1"/"true" enables the storage watcher
//   - CHATIFY_EPHEMERAL: "1"/"true" keeps credentials in memory only
//   - CHATIFY_REPLY_DELAY_MS: overrides bot.reply_delay_ms
//   - CHATIFY_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CHATIFY_BASE_URL"); v != "" {
		c.Server.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("CHATIFY_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.TimeoutSecs = n
		}
	}
	if v := os.Getenv("CHATIFY_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("CHATIFY_WATCH"); v != "" {
		c.Storage.Watch = isTruthy(v)
	}
	if v := os.Getenv("CHATIFY_EPHEMERAL"); v != "" {
		c.Session.Ephemeral = isTruthy(v)
	}
	if v := os.Getenv("CHATIFY_REPLY_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Bot.ReplyDelayMS = n
		}
	}
	if v := os.Getenv("CHATIFY_THEME"); v != "" {
		c.UI.Theme = v
	}
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
