package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration. Precedence: flags (applied by
// the CLI) > environment > config file > defaults.
type Config struct {
	Repo        string        `toml:"repo"`
	Editor      string        `toml:"editor"`
	MaxAttempts int           `toml:"max_attempts"`
	Timeout     time.Duration `toml:"-"`
	TimeoutRaw  string        `toml:"timeout"`
	LogLevel    string        `toml:"log_level"`
}

// DefaultConfigPath returns the config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "thumbcap", "config.toml")
}

// Load reads the config file if present and applies environment overrides.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom reads path if present and applies environment overrides.
// A missing file is not an error; defaults apply.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{
		MaxAttempts: 1,
		Timeout:     30 * time.Second,
		LogLevel:    "info",
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
		if cfg.TimeoutRaw != "" {
			d, err := time.ParseDuration(cfg.TimeoutRaw)
			if err != nil {
				return nil, err
			}
			cfg.Timeout = d
		}
	}

	// Env overrides
	if repo := os.Getenv("THUMBCAP_REPO"); repo != "" {
		cfg.Repo = repo
	}
	if editor := os.Getenv("THUMBCAP_EDITOR"); editor != "" {
		cfg.Editor = editor
	}
	if attempts := os.Getenv("THUMBCAP_MAX_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil && n > 0 {
			cfg.MaxAttempts = n
		}
	}
	if level := os.Getenv("THUMBCAP_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if cfg.Editor == "" {
		cfg.Editor = fallbackEditor()
	}
	cfg.Repo = ExpandPath(cfg.Repo)
	return cfg, nil
}

func fallbackEditor() string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	return "vi"
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
