package replay

import (
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
)

// ValidateFile reads the recording at path and validates it.
// See Validate.
func ValidateFile(path string, logger *slog.Logger) (Summary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Summary{}, fmt.Errorf("recording not found: %w", err)
	}
	if info.IsDir() {
		return Summary{}, fmt.Errorf("recording %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("read recording: %w", err)
	}
	logger = orDiscard(logger).With("path", path)
	return Validate(data, logger)
}

// Validate indexes every frame, decodes every command list and summarises
// the result. Structural and decode failures are errors; odd but playable
// recordings only produce warnings on logger.
func Validate(data []byte, logger *slog.Logger) (Summary, error) {
	logger = orDiscard(logger)
	sum := Summary{
		Bytes:  len(data),
		SHA256: ContentHash(data),
		CRC32:  crc32.ChecksumIEEE(data),
	}

	s := NewStore()
	if _, err := s.Load(data, nil); err != nil {
		return sum, err
	}
	sum.Frames = s.FrameCount()
	sum.LargestFrame = -1

	for n := 0; n < s.FrameCount(); n++ {
		d, _ := s.Descriptor(n)
		if d.Size == 0 {
			sum.EmptyFrames++
		}
		if d.Size > sum.LargestSize || sum.LargestFrame < 0 {
			sum.LargestFrame, sum.LargestSize = n, d.Size
		}
		cmds, err := s.Frame(n)
		if err != nil {
			return sum, err
		}
		sum.Commands += len(cmds)
		for _, c := range cmds {
			fps, ok := c.FramesPerSecond()
			if !ok {
				continue
			}
			if sum.TempoChanges == 0 {
				sum.FramesPerSecond = fps
			}
			sum.TempoChanges++
		}
	}

	if sum.Frames == 0 {
		logger.Warn("recording has no frames")
	}
	if sum.TempoChanges == 0 && sum.Frames > 0 {
		logger.Warn("recording has no frame rate command, default tempo applies")
	}
	if sum.EmptyFrames > 0 {
		logger.Debug("recording has empty frames", "count", sum.EmptyFrames)
	}

	logger.Info("validated recording",
		"frames", sum.Frames,
		"commands", sum.Commands,
		"fps", sum.FramesPerSecond,
		"bytes", sum.Bytes,
	)
	return sum, nil
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
