package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reallyoldfogie/scene-replay-go/replay"
	"github.com/reallyoldfogie/scene-replay-go/replay/recorder"
)

type commandSpec struct {
	frame int
	cmd   replay.Command
}

// Format: frame:kind:hexpayload  e.g., 0:7:0AFFEE
func parseCommandSpec(v string) (commandSpec, error) {
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return commandSpec{}, fmt.Errorf("invalid --command %q, want frame:kind:hexpayload", v)
	}
	frame, err := strconv.Atoi(parts[0])
	if err != nil || frame < 0 {
		return commandSpec{}, fmt.Errorf("frame: invalid value %q", parts[0])
	}
	kind, err := parseInt(parts[1])
	if err != nil {
		return commandSpec{}, fmt.Errorf("kind: %w", err)
	}
	body, err := hex.DecodeString(parts[2])
	if err != nil {
		return commandSpec{}, fmt.Errorf("hexpayload: %w", err)
	}
	cmd := replay.Command{Kind: replay.CommandKind(kind), Body: body}
	if cmd.Kind == replay.KindSetFramesPerSecond {
		if _, ok := cmd.FramesPerSecond(); !ok {
			return commandSpec{}, fmt.Errorf("kind %d needs an 8 byte positive float64 payload; use --fps", kind)
		}
	}
	return commandSpec{frame: frame, cmd: cmd}, nil
}

func parseInt(s string) (int64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		return int64(int32(v)), err
	}
	return strconv.ParseInt(s, 10, 32)
}

// buildFrames groups specs by frame; the result has at least minFrames entries.
func buildFrames(specs []commandSpec, minFrames int) [][]replay.Command {
	count := minFrames
	for _, sp := range specs {
		if sp.frame+1 > count {
			count = sp.frame + 1
		}
	}
	frames := make([][]replay.Command, count)
	for _, sp := range specs {
		frames[sp.frame] = append(frames[sp.frame], sp.cmd)
	}
	return frames
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var out string
	var frameCount int
	var fps float64
	var rawCommands []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write a synthetic recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := make([]commandSpec, 0, len(rawCommands))
			for _, raw := range rawCommands {
				sp, err := parseCommandSpec(raw)
				if err != nil {
					return err
				}
				specs = append(specs, sp)
			}
			if frameCount < 0 {
				return fmt.Errorf("--frames must not be negative")
			}

			rec, err := recorder.NewFile(out)
			if err != nil {
				return fmt.Errorf("create recording: %w", err)
			}
			// If no commands are provided, still produce a valid recording of empty frames.
			for i, cmds := range buildFrames(specs, frameCount) {
				if i == 0 && fps > 0 {
					rec.SetFramesPerSecond(fps)
				}
				for _, c := range cmds {
					rec.Record(c)
				}
				if err := rec.EndFrame(); err != nil {
					_ = rec.Close()
					return fmt.Errorf("write frame %d: %w", i, err)
				}
			}
			frames := rec.Frames()
			if err := rec.Close(); err != nil {
				return fmt.Errorf("close: %w", err)
			}

			if logger, err := ctx.ensureLogger(); err == nil {
				logger.Debug("recording written", "path", out, "frames", frames, "commands", len(specs))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d frames, %d commands)\n", out, frames, len(specs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "example.rec", "Output recording path")
	cmd.Flags().IntVar(&frameCount, "frames", 1, "Minimum number of frames to write")
	cmd.Flags().Float64Var(&fps, "fps", 50, "Frame rate command written into frame 0 (0 to omit)")
	cmd.Flags().StringArrayVar(&rawCommands, "command", nil, "Command spec frame:kind:hexpayload (repeatable)")
	return cmd
}
