package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/reallyoldfogie/scene-replay-go/internal/logging"
	"github.com/reallyoldfogie/scene-replay-go/replay"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var verbose, quiet bool

	cmd := &cobra.Command{
		Use:   "validate <recording> [recording...]",
		Short: "Validate recordings: framing and every command list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if quiet || !verbose {
				logger = logging.NewNop()
			}
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

			failed := 0
			for _, file := range args {
				if verbose {
					fmt.Fprintf(stdout, "Validating %s...\n", file)
				}
				sum, err := replay.ValidateFile(file, logger)
				if err != nil {
					fmt.Fprintf(stderr, "❌ %s: %v\n", filepath.Base(file), err)
					failed++
					continue
				}
				if !quiet {
					fmt.Fprintf(stdout, "✅ %s: valid (%d frames, %d commands, %s)\n",
						filepath.Base(file), sum.Frames, sum.Commands, humanize.Bytes(uint64(sum.Bytes)))
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d recordings failed validation", failed, len(args))
			}
			if !quiet && len(args) > 1 {
				fmt.Fprintf(stdout, "\nAll %d recordings are valid!\n", len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	return cmd
}
