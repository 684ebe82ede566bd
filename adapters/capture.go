package adapters

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/reallyoldfogie/scene-replay-go/replay/recorder"
)

// Capture records a live stream of uncompressed go-mc packets. Each packet
// becomes one command in the frame its arrival time falls into at FPS, and
// frames that receive nothing are written empty so playback keeps the
// original timing.
type Capture struct {
	Recorder *recorder.Recorder
	FPS      float64
	Now      func() time.Time
	Logger   *slog.Logger

	start   time.Time
	frame   int
	packets int
}

// Run reads packets from r until EOF, ctx ends or the stream stops parsing.
// A clean EOF is not an error. The last frame is always written; closing the
// recorder is left to the caller.
func (c *Capture) Run(ctx context.Context, r io.Reader) error {
	if !(c.FPS > 0) {
		return fmt.Errorf("capture: fps %v must be positive", c.FPS)
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}
	c.start = now()
	c.frame = 0
	c.packets = 0
	c.Recorder.SetFramesPerSecond(c.FPS)

	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return c.finish(err)
		}
		p, err := readPacket(br)
		if errors.Is(err, io.EOF) {
			return c.finish(nil)
		}
		if err != nil {
			return c.finish(fmt.Errorf("capture: packet %d: %w", c.packets, err))
		}
		if err := c.advance(now()); err != nil {
			return err
		}
		c.Recorder.Record(PacketCommand(p))
		c.packets++
	}
}

// maxCapturePacket caps a single packet frame.
const maxCapturePacket = 8 << 20

// readPacket reads [varint length][varint id][data]. io.EOF means the stream
// ended between packets; a packet cut short is io.ErrUnexpectedEOF.
func readPacket(br *bufio.Reader) (pk.Packet, error) {
	var length pk.VarInt
	if _, err := length.ReadFrom(br); err != nil {
		return pk.Packet{}, err
	}
	if length < 1 || length > maxCapturePacket {
		return pk.Packet{}, fmt.Errorf("invalid frame length %d", length)
	}
	frame := make([]byte, length)
	if _, err := io.ReadFull(br, frame); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return pk.Packet{}, err
	}
	r := bytes.NewReader(frame)
	var id pk.VarInt
	if _, err := id.ReadFrom(r); err != nil {
		return pk.Packet{}, fmt.Errorf("packet id: %w", io.ErrUnexpectedEOF)
	}
	return pk.Packet{ID: int32(id), Data: frame[len(frame)-r.Len():]}, nil
}

// Packets returns how many packets were recorded by the last Run.
func (c *Capture) Packets() int { return c.packets }

func (c *Capture) advance(t time.Time) error {
	period := time.Duration(float64(time.Second) / c.FPS)
	target := int(t.Sub(c.start) / period)
	for c.frame < target {
		if err := c.Recorder.EndFrame(); err != nil {
			return err
		}
		c.frame++
	}
	return nil
}

func (c *Capture) finish(cause error) error {
	err := cause
	if ferr := c.Recorder.EndFrame(); ferr != nil && err == nil {
		err = ferr
	}
	if c.Logger != nil {
		c.Logger.Info("capture finished", "packets", c.packets, "frames", c.Recorder.Frames())
	}
	return err
}
