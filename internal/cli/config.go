package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"hush/internal/hush"
)

// Config holds the user's settings. Every field has a usable default.
type Config struct {
	MaxCallDepth int    `yaml:"max_call_depth"`
	Color        string `yaml:"color"`
	HistoryFile  string `yaml:"history_file"`
	Debug        bool   `yaml:"debug"`
}

func Defaults() *Config {
	return &Config{
		MaxCallDepth: hush.DefaultMaxCallDepth,
		Color:        "auto",
		HistoryFile:  "~/.hush_history",
	}
}

// resolveConfigPath picks the config file. An explicitly named file must
// exist; the per-user default may not.
func resolveConfigPath(explicit string, getenv func(string) string) (path string, required bool) {
	if explicit != "" {
		return explicit, true
	}
	if env := getenv("HUSH_CONFIG"); env != "" {
		return env, true
	}
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hush", "config.yaml"), false
	}
	if home := getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "hush", "config.yaml"), false
	}
	return "", false
}

// LoadConfig reads the configuration from fsys. Unknown keys are errors.
func LoadConfig(fsys afero.Fs, explicit string, getenv func(string) string) (*Config, error) {
	cfg := Defaults()
	path, required := resolveConfigPath(explicit, getenv)
	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	if c.MaxCallDepth <= 0 {
		return fmt.Errorf("max_call_depth must be positive, got %d", c.MaxCallDepth)
	}
	return nil
}

// expandHome replaces a leading ~ with $HOME.
func expandHome(path string, getenv func(string) string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := getenv("HOME")
	if home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
