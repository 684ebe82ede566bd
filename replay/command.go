package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	pk "github.com/Tnze/go-mc/net/packet"
)

// CommandKind tags a scene command. Only KindSetFramesPerSecond is
// interpreted by playback; every other kind is forwarded untouched.
type CommandKind int32

// KindSetFramesPerSecond changes the base tempo of the recording.
const KindSetFramesPerSecond CommandKind = 0x01

// Command is one scene mutation carried inside a frame payload.
//
// On the wire a command is [varint kind][varint len][len bytes body].
type Command struct {
	Kind CommandKind
	Body []byte
}

// SetFramesPerSecond builds the tempo control command.
func SetFramesPerSecond(fps float64) Command {
	var buf bytes.Buffer
	_, _ = pk.Double(fps).WriteTo(&buf)
	return Command{Kind: KindSetFramesPerSecond, Body: buf.Bytes()}
}

// FramesPerSecond returns the tempo carried by a set-frame-rate command.
// ok is false for any other kind or for a body that is not a positive
// finite float64.
func (c Command) FramesPerSecond() (fps float64, ok bool) {
	if c.Kind != KindSetFramesPerSecond {
		return 0, false
	}
	v, err := readFramesPerSecond(c.Body)
	if err != nil {
		return 0, false
	}
	return v, true
}

func readFramesPerSecond(body []byte) (float64, error) {
	if len(body) != 8 {
		return 0, fmt.Errorf("frame rate body is %d bytes, want 8", len(body))
	}
	var d pk.Double
	if _, err := d.ReadFrom(bytes.NewReader(body)); err != nil {
		return 0, err
	}
	v := float64(d)
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("frame rate %v is not a positive finite number", v)
	}
	return v, nil
}

// AppendCommands encodes cmds as a frame payload and appends it to dst.
func AppendCommands(dst []byte, cmds ...Command) []byte {
	buf := bytes.NewBuffer(dst)
	for _, c := range cmds {
		_, _ = pk.VarInt(c.Kind).WriteTo(buf)
		_, _ = pk.ByteArray(c.Body).WriteTo(buf)
	}
	return buf.Bytes()
}

// EncodeCommands returns the frame payload for cmds.
func EncodeCommands(cmds ...Command) []byte {
	return AppendCommands(nil, cmds...)
}

// DecodeCommands parses a frame payload into its commands in wire order.
// Bodies alias payload. Errors are *DecodeError with Frame set to -1.
func DecodeCommands(payload []byte) ([]Command, error) {
	return decodeFrame(-1, payload)
}

// DecodeFrame is DecodeCommands with the frame number recorded in errors.
func DecodeFrame(frame int, payload []byte) ([]Command, error) {
	return decodeFrame(frame, payload)
}

func decodeFrame(frame int, payload []byte) ([]Command, error) {
	r := bytes.NewReader(payload)
	var cmds []Command
	for r.Len() > 0 {
		start := len(payload) - r.Len()
		fail := func(err error) ([]Command, error) {
			return nil, &DecodeError{Frame: frame, Offset: start, Err: err}
		}

		var kind pk.VarInt
		if _, err := kind.ReadFrom(r); err != nil {
			return fail(fmt.Errorf("read command kind: %w", eofAsUnexpected(err)))
		}
		var n pk.VarInt
		if _, err := n.ReadFrom(r); err != nil {
			return fail(fmt.Errorf("read body length: %w", eofAsUnexpected(err)))
		}
		if n < 0 || int(n) > r.Len() {
			return fail(fmt.Errorf("body length %d exceeds remaining %d bytes", n, r.Len()))
		}
		off := len(payload) - r.Len()
		body := payload[off : off+int(n) : off+int(n)]
		if _, err := r.Seek(int64(n), io.SeekCurrent); err != nil {
			return fail(err)
		}

		c := Command{Kind: CommandKind(kind), Body: body}
		if c.Kind == KindSetFramesPerSecond {
			if _, err := readFramesPerSecond(c.Body); err != nil {
				return fail(err)
			}
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}

func eofAsUnexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
