// Package config loads lispy settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Prompt      string   `yaml:"prompt"`
	HistoryFile string   `yaml:"history_file"`
	Prelude     bool     `yaml:"prelude"`
	Load        []string `yaml:"load"`
	Journal     string   `yaml:"journal"`
	Socket      string   `yaml:"socket"`
	MaxTraces   int      `yaml:"max_traces"`
	LogLevel    string   `yaml:"log_level"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".lispy_history")
	}
	return Config{
		Prompt:      "lispy> ",
		HistoryFile: history,
		Prelude:     true,
		Socket:      "/tmp/lispy.sock",
		MaxTraces:   1000,
		LogLevel:    "info",
	}
}

// Load reads path over the defaults, then applies environment overrides. A
// missing file is not an error; an empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.Socket = envOr("LISPY_SOCK", cfg.Socket)
	cfg.Journal = envOr("LISPY_JOURNAL", cfg.Journal)
	cfg.HistoryFile = envOr("LISPY_HISTORY", cfg.HistoryFile)
	cfg.LogLevel = envOr("LISPY_LOG_LEVEL", cfg.LogLevel)

	if cfg.MaxTraces <= 0 {
		return cfg, fmt.Errorf("max_traces must be positive, got %d", cfg.MaxTraces)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseLevel maps a log_level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log_level %q", s)
}

// Logger returns a text logger on stderr at the configured level.
func (c Config) Logger() *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
