// Package adapters connects recordings to the outside world. The sinks here
// feed played frames to go-mc packet handlers or websocket viewers, and
// Capture records a live go-mc packet stream.
package adapters

import (
	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/reallyoldfogie/scene-replay-go/replay"
)

// PacketSink forwards every applied command as a go-mc packet whose ID is
// the command kind and whose data is the command body. Render calls the
// optional flush hook.
type PacketSink struct {
	Handle func(pk.Packet) error
	Flush  func()
}

// Apply copies the body since the player hands out slices of the recording.
func (s PacketSink) Apply(cmd replay.Command) error {
	if s.Handle == nil {
		return nil
	}
	return s.Handle(CommandPacket(cmd))
}

// Render signals the end of a frame.
func (s PacketSink) Render() {
	if s.Flush != nil {
		s.Flush()
	}
}

// CommandPacket converts a command into a packet.
func CommandPacket(cmd replay.Command) pk.Packet {
	data := make([]byte, len(cmd.Body))
	copy(data, cmd.Body)
	return pk.Packet{ID: int32(cmd.Kind), Data: data}
}

// PacketCommand converts a packet back into a command.
func PacketCommand(p pk.Packet) replay.Command {
	body := make([]byte, len(p.Data))
	copy(body, p.Data)
	return replay.Command{Kind: replay.CommandKind(p.ID), Body: body}
}
