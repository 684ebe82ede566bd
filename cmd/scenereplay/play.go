package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/reallyoldfogie/scene-replay-go/adapters"
	"github.com/reallyoldfogie/scene-replay-go/internal/config"
	"github.com/reallyoldfogie/scene-replay-go/replay/player"
	"github.com/reallyoldfogie/scene-replay-go/replay/source"
)

const watchDebounce = 250 * time.Millisecond

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var speed float64
	var duration time.Duration
	var serve string
	var watch bool

	cmd := &cobra.Command{
		Use:   "play <recording|url>",
		Short: "Play a recording headless, optionally streaming frames to websocket viewers",
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
			if !cmd.Flags().Changed("speed") {
				speed = cfg.Playback.Speed
			}
			if cmd.Flags().Changed("serve") && serve == "" {
				serve = cfg.Viewer.Bind
			}
			location := args[0]
			if watch && source.IsRemote(location) {
				return errors.New("--watch only works with local files")
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, duration)
				defer cancel()
			}
			runCtx, fail := context.WithCancelCause(runCtx)
			defer fail(nil)

			loop := player.NewEventLoop()
			var sink player.SceneSink = adapters.NewLogSink(logger)
			if serve != "" {
				viewer := adapters.NewViewer(logger)
				addr, err := serveViewer(runCtx, serve, viewer, logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "streaming frames on ws://%s/ws\n", addr)
				sink = viewer
			}

			p := player.New(playerOptions(cfg, loop, sink, newProgressSink(os.Stderr, logger), logger))
			p.RegisterFrameChangeListener(func(frame int) {
				sink.Render()
			})
			p.RegisterPlayPauseListener(func(playing bool) {
				logger.Info("play state changed", "playing", playing, "frame", p.Frame())
			})

			src := source.Auto{HTTP: source.NewHTTP(cfg.HTTPTimeout(), cfg.Source.UserAgent)}
			loop.Post(func() {
				if err := p.SetSpeed(speed); err != nil {
					fail(err)
					return
				}
				awaitLoad(p.Fetch(runCtx, src, location), logger, fail)
			})
			if watch {
				go func() {
					if err := watchRecording(runCtx, location, loop, p, logger); err != nil {
						fail(err)
					}
				}()
			}

			err = loop.Run(runCtx)
			if cause := context.Cause(runCtx); cause != nil && !errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
				return cause
			}
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&speed, "speed", 1, "Playback speed multiplier")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	cmd.Flags().StringVar(&serve, "serve", "", "Stream frames to websocket viewers on this address (--serve= uses viewer.bind)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the recording when the file changes")
	return cmd
}

func playerOptions(cfg *config.Config, sched player.Scheduler, sink player.SceneSink, progress player.ProgressSink, logger *slog.Logger) player.Options {
	settle := cfg.SettleDelay()
	if settle == 0 {
		settle = -1
	}
	return player.Options{
		Scheduler:      sched,
		Sink:           sink,
		Progress:       progress,
		Logger:         logger,
		MillisPerFrame: cfg.MillisPerFrame(),
		ChunkBudget:    cfg.ChunkBudget(),
		SettleDelay:    settle,
		MinSpeed:       cfg.Playback.MinSpeed,
		MaxSpeed:       cfg.Playback.MaxSpeed,
		Autoplay:       cfg.Playback.Autoplay,
	}
}

// awaitLoad logs the outcome of a load without blocking the loop. A failed
// first load ends the command.
func awaitLoad(res <-chan player.LoadResult, logger *slog.Logger, fail context.CancelCauseFunc) {
	go func() {
		r := <-res
		switch {
		case errors.Is(r.Err, player.ErrSuperseded), errors.Is(r.Err, player.ErrLoopClosed):
		case r.Err != nil:
			fail(r.Err)
		default:
			logger.Info("recording ready", "status", r.Status.String(), "frames", r.Frames)
		}
	}()
}

func serveViewer(ctx context.Context, addr string, viewer *adapters.Viewer, logger *slog.Logger) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", viewer)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("viewer server", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return ln.Addr().String(), nil
}

// watchRecording reloads path whenever it is written. Identical content is
// recognised by the player and not re-indexed.
func watchRecording(ctx context.Context, path string, loop *player.EventLoop, p *player.Player, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	// Watch the directory: editors and build tools often replace the file.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var pending *time.Timer
	reload := func() {
		data, err := os.ReadFile(abs)
		if err != nil {
			logger.Warn("reload recording", "path", abs, "error", err)
			return
		}
		loop.Post(func() {
			res := p.Load(data)
			go func() {
				var r player.LoadResult
				select {
				case r = <-res:
				case <-loop.Done():
					return
				}
				if r.Err != nil {
					if !errors.Is(r.Err, player.ErrSuperseded) {
						logger.Warn("reload rejected, keeping current recording", "error", r.Err)
					}
					return
				}
				logger.Info("recording reloaded", "status", r.Status.String(), "frames", r.Frames)
			}()
		})
	}

	for {
		select {
		case <-ctx.Done():
			if pending != nil {
				pending.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(watchDebounce, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}
