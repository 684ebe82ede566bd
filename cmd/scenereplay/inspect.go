package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/reallyoldfogie/scene-replay-go/replay"
	"github.com/reallyoldfogie/scene-replay-go/replay/source"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <recording|url>",
		Short: "Print the frame index of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			src := source.Auto{HTTP: source.NewHTTP(cfg.HTTPTimeout(), cfg.Source.UserAgent)}
			data, err := src.Fetch(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			sum, err := replay.Validate(data, logger.With("recording", args[0]))
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}

			store := replay.NewStore()
			if _, err := store.Load(data, nil); err != nil {
				return err
			}
			writeSummary(cmd.OutOrStdout(), sum, cfg.Playback.DefaultFPS)
			fmt.Fprintln(cmd.OutOrStdout(), frameTable(store, limit))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Frames to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func writeSummary(w io.Writer, sum replay.Summary, defaultFPS float64) {
	fps := "none (default " + strconv.FormatFloat(defaultFPS, 'g', -1, 64) + ")"
	if sum.TempoChanges > 0 {
		fps = strconv.FormatFloat(sum.FramesPerSecond, 'g', -1, 64)
	}
	dur := time.Duration(sum.DurationMillis(defaultFPS) * float64(time.Millisecond))
	fmt.Fprintf(w, "Frames:    %d (%d empty)\n", sum.Frames, sum.EmptyFrames)
	fmt.Fprintf(w, "Commands:  %d\n", sum.Commands)
	fmt.Fprintf(w, "Size:      %s\n", humanize.Bytes(uint64(sum.Bytes)))
	fmt.Fprintf(w, "Tempo:     %s fps\n", fps)
	fmt.Fprintf(w, "Duration:  %s at 1x\n", dur.Round(time.Millisecond))
	if sum.LargestFrame >= 0 {
		fmt.Fprintf(w, "Largest:   frame %d (%s)\n", sum.LargestFrame, humanize.Bytes(uint64(sum.LargestSize)))
	}
	fmt.Fprintf(w, "SHA-256:   %s\n", sum.SHA256)
}

func frameTable(store *replay.Store, limit int) string {
	count := store.FrameCount()
	if limit <= 0 || limit > count {
		limit = count
	}
	rows := make([][]string, 0, limit)
	for n := 0; n < limit; n++ {
		d, _ := store.Descriptor(n)
		cmds, err := store.Frame(n)
		if err != nil {
			rows = append(rows, []string{strconv.Itoa(n), strconv.Itoa(d.Offset), strconv.Itoa(d.Size), "-", err.Error(), ""})
			continue
		}
		fps := ""
		for _, c := range cmds {
			if v, ok := c.FramesPerSecond(); ok {
				fps = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		rows = append(rows, []string{
			strconv.Itoa(n),
			strconv.Itoa(d.Offset),
			strconv.Itoa(d.Size),
			strconv.Itoa(len(cmds)),
			kindList(cmds),
			fps,
		})
	}
	return renderTable(
		[]string{"Frame", "Offset", "Size", "Commands", "Kinds", "FPS"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignRight},
	)
}

// kindList summarises command kinds as "kind×count" in ascending kind order.
func kindList(cmds []replay.Command) string {
	counts := map[replay.CommandKind]int{}
	for _, c := range cmds {
		counts[c.Kind]++
	}
	kinds := make([]int, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, int(k))
	}
	sort.Ints(kinds)
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%d×%d", k, counts[replay.CommandKind(k)]))
	}
	return strings.Join(parts, " ")
}
