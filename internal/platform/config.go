package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/notes/pkg/watch"
)

// DefaultConfigFile is the config file looked up in the library root.
const DefaultConfigFile = "notes.yaml"

// DefaultListen is the default address of the host endpoint.
const DefaultListen = "127.0.0.1:7465"

// Config is the user configuration.
type Config struct {
	Library  string `yaml:"library"`
	Listen   string `yaml:"listen"`
	Codec    string `yaml:"codec"`
	LogLevel string `yaml:"log_level"`

	// UseCloud asks for the library to be kept in synced storage. Syncing
	// runs SyncCommand; without one, Sync reports that it is unsupported.
	UseCloud bool `yaml:"use_cloud"`
	// SyncCommand is the program and arguments run in the library directory
	// to sync it, e.g. ["rclone", "bisync", ".", "remote:Notes"].
	SyncCommand []string `yaml:"sync_command,omitempty"`
	// HasPromptedForCloud records that the user already answered the
	// synced storage question.
	HasPromptedForCloud bool `yaml:"has_prompted_for_cloud"`
}

// fileConfig also accepts the older preference keys.
type fileConfig struct {
	Library             string   `yaml:"library"`
	Listen              string   `yaml:"listen"`
	Codec               string   `yaml:"codec"`
	LogLevel            string   `yaml:"log_level"`
	UseCloud            *bool    `yaml:"use_cloud"`
	SyncCommand         []string `yaml:"sync_command"`
	HasPromptedForCloud *bool    `yaml:"has_prompted_for_cloud"`
	UseICloud           *bool    `yaml:"use_icloud"`
	HasPromptedICloud   *bool    `yaml:"has_prompted_for_icloud"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Library:  ".",
		Listen:   DefaultListen,
		Codec:    watch.JSON.Name(),
		LogLevel: "info",
	}
}

// LoadConfig reads path over the defaults. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if fc.Library != "" {
		cfg.Library = fc.Library
	}
	if fc.Listen != "" {
		cfg.Listen = fc.Listen
	}
	if fc.Codec != "" {
		cfg.Codec = fc.Codec
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	cfg.UseCloud = firstBool(fc.UseCloud, fc.UseICloud)
	cfg.SyncCommand = fc.SyncCommand
	cfg.HasPromptedForCloud = firstBool(fc.HasPromptedForCloud, fc.HasPromptedICloud)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func firstBool(vals ...*bool) bool {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return false
}

// Validate checks the codec, log level and sync command.
func (c Config) Validate() error {
	if _, err := watch.CodecByName(c.Codec); err != nil {
		return err
	}
	if len(c.SyncCommand) > 0 && strings.TrimSpace(c.SyncCommand[0]) == "" {
		return ErrEmptySyncCommand
	}
	_, err := c.Level()
	return err
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return level, nil
}

// Save writes the config to path.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
