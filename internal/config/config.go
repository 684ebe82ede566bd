package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Playback contains clock and speed settings.
type Playback struct {
	Speed      float64 `toml:"speed"`
	MinSpeed   float64 `toml:"min_speed"`
	MaxSpeed   float64 `toml:"max_speed"`
	DefaultFPS float64 `toml:"default_fps"` // tempo until the recording sets one
	Autoplay   bool    `toml:"autoplay"`
}

// Indexing contains frame index parser settings.
type Indexing struct {
	ChunkBudgetMillis int `toml:"chunk_budget_ms"`
	SettleMillis      int `toml:"settle_ms"`
}

// Source contains byte source settings.
type Source struct {
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
	UserAgent          string `toml:"user_agent"`
}

// Viewer contains websocket viewer settings.
type Viewer struct {
	Bind string `toml:"bind"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for scenereplay.
type Config struct {
	Playback Playback `toml:"playback"`
	Indexing Indexing `toml:"indexing"`
	Source   Source   `toml:"source"`
	Viewer   Viewer   `toml:"viewer"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scenereplay/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file
// is not an error; defaults apply. It returns the config, the resolved path
// and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("scenereplay.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() {
	if env := strings.TrimSpace(os.Getenv("SCENEREPLAY_LOG_LEVEL")); env != "" {
		c.Logging.Level = env
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Viewer.Bind = strings.TrimSpace(c.Viewer.Bind)
	c.Source.UserAgent = strings.TrimSpace(c.Source.UserAgent)
}

// ChunkBudget returns the indexing budget per step.
func (c *Config) ChunkBudget() time.Duration {
	return time.Duration(c.Indexing.ChunkBudgetMillis) * time.Millisecond
}

// SettleDelay returns the pause between indexing and the first frame.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Indexing.SettleMillis) * time.Millisecond
}

// HTTPTimeout returns the request timeout for HTTP sources.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Source.HTTPTimeoutSeconds) * time.Second
}

// MillisPerFrame converts the default tempo into a frame period.
func (c *Config) MillisPerFrame() float64 {
	return 1000.0 / c.Playback.DefaultFPS
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
