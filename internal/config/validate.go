package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateIndexing(); err != nil {
		return err
	}
	if err := c.validateSource(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePlayback() error {
	p := c.Playback
	for name, v := range map[string]float64{
		"playback.speed":       p.Speed,
		"playback.min_speed":   p.MinSpeed,
		"playback.max_speed":   p.MaxSpeed,
		"playback.default_fps": p.DefaultFPS,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if p.MinSpeed > p.MaxSpeed {
		return errors.New("playback.min_speed must not exceed playback.max_speed")
	}
	if p.Speed < p.MinSpeed || p.Speed > p.MaxSpeed {
		return fmt.Errorf("playback.speed must be within [%g, %g]", p.MinSpeed, p.MaxSpeed)
	}
	return nil
}

func (c *Config) validateIndexing() error {
	if c.Indexing.ChunkBudgetMillis <= 0 {
		return errors.New("indexing.chunk_budget_ms must be positive")
	}
	if c.Indexing.SettleMillis < 0 {
		return errors.New("indexing.settle_ms must not be negative")
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source.HTTPTimeoutSeconds <= 0 {
		return errors.New("source.http_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
