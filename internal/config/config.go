package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/go-homedir"
)

// EnvPrefix is the prefix of environment overrides, e.g. VAKIT_WEB_LISTEN.
const EnvPrefix = "VAKIT_"

// ErrEmptyPath is returned when a file path that must be set is empty.
var ErrEmptyPath = errors.New("config path is empty")

// Source kinds.
const (
	SourceDataset = "dataset"
	SourceHTTP    = "http"
	SourceICS     = "ics"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the web API.
type BasicAuthConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

func (b BasicAuthConfig) Enabled() bool { return b.Username != "" }

type TickConfig struct {
	IntervalSeconds int `koanf:"interval_seconds"`
}

type SourceConfig struct {
	// Kind is one of "dataset", "http" or "ics".
	Kind string `koanf:"kind"`
	// DatasetDir holds "<location>.json" files for the dataset source.
	DatasetDir string `koanf:"dataset_dir"`
	// URL is the template for the http and ics sources. It may contain
	// {location}, {year} and {month}.
	URL            string `koanf:"url"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

type WebConfig struct {
	// Listen is the HTTP listen address; empty disables the API.
	Listen    string          `koanf:"listen"`
	BasicAuth BasicAuthConfig `koanf:"basic_auth"`
}

type DisplayConfig struct {
	// File is where the status JSON is written; empty disables it.
	File string `koanf:"file"`
}

type TelegramConfig struct {
	BotToken string `koanf:"bot_token"`
	ChatID   string `koanf:"chat_id"`
	BaseURL  string `koanf:"base_url"`
}

func (t TelegramConfig) Enabled() bool { return t.BotToken != "" && t.ChatID != "" }

type NotifyConfig struct {
	Telegram TelegramConfig `koanf:"telegram"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

// Config is the process configuration. User-editable state (location,
// reminders) lives in Settings instead.
type Config struct {
	// Timezone is the IANA zone the time tables are expressed in.
	Timezone     string        `koanf:"timezone"`
	DataDir      string        `koanf:"data_dir"`
	SettingsPath string        `koanf:"settings_path"`
	Tick         TickConfig    `koanf:"tick"`
	Source       SourceConfig  `koanf:"source"`
	Web          WebConfig     `koanf:"web"`
	Display      DisplayConfig `koanf:"display"`
	Notify       NotifyConfig  `koanf:"notify"`
	Log          LogConfig     `koanf:"log"`
}

// Defaults are the values used when neither the file nor the environment
// sets a key.
func Defaults() map[string]any {
	return map[string]any{
		"timezone":      "Europe/Istanbul",
		"data_dir":      "~/.vakit",
		"settings_path": "",
		"tick": map[string]any{
			"interval_seconds": 60,
		},
		"source": map[string]any{
			"kind":            SourceDataset,
			"dataset_dir":     "",
			"url":             "",
			"timeout_seconds": 15,
		},
		"web": map[string]any{
			"listen": "127.0.0.1:8080",
			"basic_auth": map[string]any{
				"username": "",
				"password": "",
			},
		},
		"display": map[string]any{
			"file": "",
		},
		"notify": map[string]any{
			"telegram": map[string]any{
				"bot_token": "",
				"chat_id":   "",
				"base_url":  "",
			},
		},
		"log": map[string]any{
			"level": "info",
		},
	}
}

// Load layers defaults, the YAML file at path (if it exists) and VAKIT_*
// environment variables, in that order. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		path = expand(path)
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	// Env names cannot tell a nesting dot from an underscore inside a key,
	// so they are matched against the known keys.
	known := make(map[string]string)
	for _, key := range k.Keys() {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return known[strings.ToLower(strings.TrimPrefix(s, EnvPrefix))]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.DataDir = expand(c.DataDir)
	if c.SettingsPath == "" {
		c.SettingsPath = filepath.Join(c.DataDir, "settings.yaml")
	}
	c.SettingsPath = expand(c.SettingsPath)
	if c.Source.DatasetDir == "" {
		c.Source.DatasetDir = filepath.Join(c.DataDir, "dataset")
	}
	c.Source.DatasetDir = expand(c.Source.DatasetDir)
	c.Display.File = expand(c.Display.File)
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
}

func (c *Config) Validate() error {
	if c.Tick.IntervalSeconds <= 0 {
		return fmt.Errorf("tick.interval_seconds must be positive, got %d", c.Tick.IntervalSeconds)
	}
	switch c.Source.Kind {
	case SourceDataset:
	case SourceHTTP, SourceICS:
		if c.Source.URL == "" {
			return fmt.Errorf("source.url is required for source kind %q", c.Source.Kind)
		}
	default:
		return fmt.Errorf("unknown source kind: %q (supported: %s, %s, %s)",
			c.Source.Kind, SourceDataset, SourceHTTP, SourceICS)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// TickInterval is the scheduler period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Tick.IntervalSeconds) * time.Second
}

func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// CacheDir holds the time-table cache entries.
func (c *Config) CacheDir() string { return filepath.Join(c.DataDir, "cache") }

// HTTPCacheDir holds the last body per source URL for revalidation.
func (c *Config) HTTPCacheDir() string { return filepath.Join(c.DataDir, "http") }

// ReminderLogPath is the SQLite dedup log.
func (c *Config) ReminderLogPath() string { return filepath.Join(c.DataDir, "reminders.db") }

func expand(path string) string {
	if path == "" {
		return path
	}
	out, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return out
}
