package adapters

import (
	"log/slog"
	"sync/atomic"

	"github.com/reallyoldfogie/scene-replay-go/replay"
)

// LogSink is a headless scene: it logs commands at debug level and counts them.
type LogSink struct {
	Logger   *slog.Logger
	commands atomic.Int64
	renders  atomic.Int64
}

// NewLogSink returns a LogSink writing to logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{Logger: logger.With("component", "scene")}
}

func (s *LogSink) Apply(cmd replay.Command) error {
	s.commands.Add(1)
	s.Logger.Debug("apply", "kind", int32(cmd.Kind), "bytes", len(cmd.Body))
	return nil
}

func (s *LogSink) Render() {
	s.renders.Add(1)
}

// Commands returns how many commands were applied.
func (s *LogSink) Commands() int64 { return s.commands.Load() }

// Renders returns how many times Render was called.
func (s *LogSink) Renders() int64 { return s.renders.Load() }
