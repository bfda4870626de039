package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures what tracetail needs to reach a device and tune a tail.
type Config struct {
	Address      string
	Alias        string
	Factory      string
	System       string
	SchemaDir    string
	PollSeconds  int
	WindowBytes  int64
	OverlapBytes int64
	Lookback     int
	DisplayLimit int
}

const (
	defaultConfigPath   = "~/.config/tracetail/config.toml"
	defaultSchemaDir    = "~/.config/tracetail/schemas"
	defaultPollSeconds  = 2
	defaultDisplayLimit = 400
)

// Load locates and parses the config, falling back to defaults when the
// file is missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		PollSeconds:  defaultPollSeconds,
		DisplayLimit: defaultDisplayLimit,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.SchemaDir = mustExpand(defaultSchemaDir)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Address      string `toml:"address"`
		Alias        string `toml:"alias"`
		Factory      string `toml:"factory"`
		System       string `toml:"system"`
		SchemaDir    string `toml:"schema_dir"`
		PollSeconds  int    `toml:"poll_seconds"`
		WindowBytes  int64  `toml:"window_bytes"`
		OverlapBytes int64  `toml:"overlap_bytes"`
		Lookback     int    `toml:"lookback"`
		DisplayLimit int    `toml:"display_limit"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.Address = strings.TrimSpace(raw.Address)
	cfg.Alias = strings.TrimSpace(raw.Alias)
	cfg.Factory = strings.TrimSpace(raw.Factory)
	cfg.System = strings.TrimSpace(raw.System)

	cfg.SchemaDir = strings.TrimSpace(raw.SchemaDir)
	if cfg.SchemaDir == "" {
		cfg.SchemaDir = defaultSchemaDir
	}
	cfg.SchemaDir = mustExpand(cfg.SchemaDir)

	if raw.PollSeconds > 0 {
		cfg.PollSeconds = raw.PollSeconds
	}
	if raw.WindowBytes > 0 {
		cfg.WindowBytes = raw.WindowBytes
	}
	if raw.OverlapBytes > 0 {
		cfg.OverlapBytes = raw.OverlapBytes
	}
	if raw.Lookback > 0 {
		cfg.Lookback = raw.Lookback
	}
	if raw.DisplayLimit > 0 {
		cfg.DisplayLimit = raw.DisplayLimit
	}
	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
