package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reallyoldfogie/scene-replay-go/adapters"
	"github.com/reallyoldfogie/scene-replay-go/replay/recorder"
)

// The record command accepts a single TCP connection carrying uncompressed
// go-mc packets and writes them into a recording. With --upstream it sits
// between a client and a server instead, forwarding both directions and
// recording what the server sends.
func newRecordCommand(ctx *commandContext) *cobra.Command {
	var listen, upstream, out string
	var fps float64

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a live packet stream into a recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", ln.Addr())
			conn, err := acceptOne(runCtx, ln)
			if err != nil {
				return err
			}
			defer conn.Close()

			rec, err := recorder.NewFile(out)
			if err != nil {
				return fmt.Errorf("create recording: %w", err)
			}
			capture := &adapters.Capture{Recorder: rec, FPS: fps, Logger: logger.With("component", "capture")}

			var stream io.Reader = conn
			if upstream != "" {
				up, err := net.Dial("tcp", upstream)
				if err != nil {
					_ = rec.Close()
					return fmt.Errorf("dial upstream: %w", err)
				}
				defer up.Close()
				stream = proxy(runCtx, conn, up, logger)
			}
			go func() {
				<-runCtx.Done()
				_ = conn.Close()
			}()

			runErr := capture.Run(runCtx, stream)
			if err := rec.Close(); err != nil {
				return fmt.Errorf("close recording: %w", err)
			}
			if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, net.ErrClosed) {
				return runErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d frames, %d packets)\n", out, rec.Frames(), capture.Packets())
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:7491", "Address to accept the packet stream on")
	cmd.Flags().StringVar(&upstream, "upstream", "", "Proxy to this server and record its packets")
	cmd.Flags().StringVarP(&out, "out", "o", "capture.rec", "Output recording path")
	cmd.Flags().Float64Var(&fps, "fps", 50, "Frame rate used to group packets into frames")
	return cmd
}

// acceptOne waits for a single connection and closes the listener.
func acceptOne(ctx context.Context, ln net.Listener) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	conn, err := ln.Accept()
	_ = ln.Close()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	return conn, nil
}

// proxy forwards client and server traffic and returns a reader that sees a
// copy of everything the server sends.
func proxy(ctx context.Context, client, server net.Conn, logger *slog.Logger) io.Reader {
	pr, pw := io.Pipe()
	go func() {
		_, _ = io.Copy(server, client)
		closeWrite(server)
	}()
	go func() {
		defer closeWrite(client)
		err := forwardWithTee(server, client, pw)
		if err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
			logger.Warn("forward", "error", err)
		}
		_ = pw.Close()
	}()
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	return pr
}

// forwardWithTee copies src to dst and mirrors the bytes into tee. A failing
// tee is dropped without interrupting the forward.
func forwardWithTee(src io.Reader, dst, tee io.Writer) error {
	buf := make([]byte, 32<<10)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return err
			}
			if tee != nil {
				if _, err := tee.Write(buf[:n]); err != nil {
					tee = nil
				}
			}
		}
		if rerr != nil {
			return rerr
		}
	}
}

func closeWrite(c net.Conn) {
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
}
