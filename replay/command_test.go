package replay

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodePreservesOrder(t *testing.T) {
	cmds := []Command{
		{Kind: 7, Body: []byte{1, 2, 3}},
		SetFramesPerSecond(50),
		{Kind: 300, Body: nil},
		{Kind: 7, Body: bytes.Repeat([]byte{0xAB}, 200)},
	}
	got, err := DecodeCommands(EncodeCommands(cmds...))
	if err != nil {
		t.Fatalf("DecodeCommands: %v", err)
	}
	if len(got) != len(cmds) {
		t.Fatalf("decoded %d commands, want %d", len(got), len(cmds))
	}
	for i := range cmds {
		if got[i].Kind != cmds[i].Kind || !bytes.Equal(got[i].Body, cmds[i].Body) {
			t.Fatalf("command %d: got kind %d body %x, want kind %d body %x",
				i, got[i].Kind, got[i].Body, cmds[i].Kind, cmds[i].Body)
		}
	}
}

func TestSetFramesPerSecondIsTenBytes(t *testing.T) {
	payload := EncodeCommands(SetFramesPerSecond(50))
	if len(payload) != 10 {
		t.Fatalf("frame rate command encodes to %d bytes, want 10", len(payload))
	}
	cmds, err := DecodeCommands(payload)
	if err != nil {
		t.Fatalf("DecodeCommands: %v", err)
	}
	fps, ok := cmds[0].FramesPerSecond()
	if !ok || fps != 50 {
		t.Fatalf("FramesPerSecond = %v, %v; want 50, true", fps, ok)
	}
}

func TestFramesPerSecondIgnoresOtherKinds(t *testing.T) {
	c := Command{Kind: 2, Body: SetFramesPerSecond(30).Body}
	if _, ok := c.FramesPerSecond(); ok {
		t.Fatal("expected non-tempo kind to report ok=false")
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	cmds, err := DecodeCommands(nil)
	if err != nil {
		t.Fatalf("DecodeCommands(nil): %v", err)
	}
	if len(cmds) != 0 {
		t.Fatalf("expected no commands, got %d", len(cmds))
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := EncodeCommands(Command{Kind: 4, Body: []byte{9}})
	badFPS := EncodeCommands(Command{Kind: KindSetFramesPerSecond, Body: []byte{1, 2, 3}})
	negFPS := EncodeCommands(Command{Kind: KindSetFramesPerSecond, Body: SetFramesPerSecond(-5).Body})

	tests := []struct {
		name    string
		payload []byte
		offset  int
	}{
		{"truncated kind varint", []byte{0x80}, 0},
		{"missing body length", []byte{0x04}, 0},
		{"body overruns payload", []byte{0x04, 0x09, 0x01}, 0},
		{"second command truncated", append(append([]byte{}, valid...), 0x05, 0x02, 0x01), len(valid)},
		{"short frame rate body", badFPS, 0},
		{"negative frame rate", negFPS, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(3, tt.payload)
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if de.Frame != 3 || de.Offset != tt.offset {
				t.Fatalf("error at frame %d offset %d, want frame 3 offset %d", de.Frame, de.Offset, tt.offset)
			}
		})
	}
}
