package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/reallyoldfogie/scene-replay-go/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SCENEREPLAY_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent")
	}
	if resolved != path {
		t.Fatalf("resolved %q, want %q", resolved, path)
	}
	if cfg.Playback.Speed != 1 || cfg.Playback.DefaultFPS != 50 || !cfg.Playback.Autoplay {
		t.Fatalf("unexpected playback defaults: %+v", cfg.Playback)
	}
	if cfg.ChunkBudget() != 200*time.Millisecond || cfg.SettleDelay() != 100*time.Millisecond {
		t.Fatalf("unexpected indexing durations %v %v", cfg.ChunkBudget(), cfg.SettleDelay())
	}
	if cfg.MillisPerFrame() != 20 {
		t.Fatalf("MillisPerFrame = %v, want 20", cfg.MillisPerFrame())
	}
	if cfg.HTTPTimeout() != time.Minute {
		t.Fatalf("HTTPTimeout = %v", cfg.HTTPTimeout())
	}
	if cfg.Viewer.Bind != "127.0.0.1:7490" {
		t.Fatalf("unexpected viewer bind %q", cfg.Viewer.Bind)
	}
}

func TestLoadDefaultPathUnderHome(t *testing.T) {
	t.Setenv("SCENEREPLAY_LOG_LEVEL", "")
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected no config in temp HOME")
	}
	want := filepath.Join(home, ".config", "scenereplay", "config.toml")
	if resolved != want {
		t.Fatalf("resolved %q, want %q", resolved, want)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("SCENEREPLAY_LOG_LEVEL", "")
	cfg := config.Default()
	cfg.Playback.Speed = 0.5
	cfg.Playback.DefaultFPS = 25
	cfg.Indexing.SettleMillis = 0
	cfg.Logging.Format = "JSON"
	cfg.Logging.Level = " Debug "

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if loaded.Playback.Speed != 0.5 || loaded.MillisPerFrame() != 40 {
		t.Fatalf("overrides not applied: %+v", loaded.Playback)
	}
	if loaded.SettleDelay() != 0 {
		t.Fatalf("SettleDelay = %v, want 0", loaded.SettleDelay())
	}
	if loaded.Logging.Format != "json" || loaded.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", loaded.Logging)
	}
}

func TestLoadEnvLogLevel(t *testing.T) {
	t.Setenv("SCENEREPLAY_LOG_LEVEL", "WARN")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("level %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[playback]\nspeeed = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"speed above max", func(c *config.Config) { c.Playback.Speed = 2 }, "playback.speed"},
		{"min above max", func(c *config.Config) { c.Playback.MinSpeed = 2 }, "min_speed"},
		{"zero fps", func(c *config.Config) { c.Playback.DefaultFPS = 0 }, "default_fps"},
		{"zero chunk budget", func(c *config.Config) { c.Indexing.ChunkBudgetMillis = 0 }, "chunk_budget_ms"},
		{"negative settle", func(c *config.Config) { c.Indexing.SettleMillis = -1 }, "settle_ms"},
		{"zero timeout", func(c *config.Config) { c.Source.HTTPTimeoutSeconds = 0 }, "http_timeout_seconds"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
