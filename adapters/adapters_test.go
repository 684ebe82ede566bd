package adapters

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/gorilla/websocket"

	"github.com/reallyoldfogie/scene-replay-go/replay"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPacketSink(t *testing.T) {
	var got []pk.Packet
	flushed := 0
	sink := PacketSink{
		Handle: func(p pk.Packet) error {
			got = append(got, p)
			return nil
		},
		Flush: func() { flushed++ },
	}
	body := []byte{1, 2, 3}
	if err := sink.Apply(replay.Command{Kind: 0x26, Body: body}); err != nil {
		t.Fatal(err)
	}
	body[0] = 9
	sink.Render()

	if len(got) != 1 || got[0].ID != 0x26 || !bytes.Equal(got[0].Data, []byte{1, 2, 3}) {
		t.Fatalf("packets %+v", got)
	}
	if flushed != 1 {
		t.Fatalf("flushed %d times", flushed)
	}
	back := PacketCommand(got[0])
	if back.Kind != 0x26 || !bytes.Equal(back.Body, got[0].Data) {
		t.Fatalf("PacketCommand = %+v", back)
	}

	wantErr := errors.New("closed")
	failing := PacketSink{Handle: func(pk.Packet) error { return wantErr }}
	if err := failing.Apply(replay.Command{Kind: 1}); !errors.Is(err, wantErr) {
		t.Fatalf("Apply error = %v", err)
	}
	(PacketSink{}).Render()
}

func TestLogSinkCounts(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	_ = sink.Apply(replay.Command{Kind: 3, Body: []byte{1}})
	_ = sink.Apply(replay.Command{Kind: 4})
	sink.Render()
	if sink.Commands() != 2 || sink.Renders() != 1 {
		t.Fatalf("commands %d renders %d", sink.Commands(), sink.Renders())
	}
	if !strings.Contains(buf.String(), "component=scene") {
		t.Fatalf("log output missing component: %q", buf.String())
	}
}

func TestViewerBroadcastsRenderedFrames(t *testing.T) {
	v := NewViewer(discardLogger())
	srv := httptest.NewServer(v)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for v.Viewers() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("viewer never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_ = v.Apply(replay.Command{Kind: 7, Body: []byte("abc")})
	_ = v.Apply(replay.Command{Kind: 8})
	v.Render()
	v.Render()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	mt, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != websocket.BinaryMessage {
		t.Fatalf("message type %d, want binary", mt)
	}
	cmds, err := replay.DecodeCommands(msg)
	if err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if len(cmds) != 2 || cmds[0].Kind != 7 || string(cmds[0].Body) != "abc" || cmds[1].Kind != 8 {
		t.Fatalf("broadcast commands %+v", cmds)
	}

	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if len(msg) != 0 {
		t.Fatalf("second frame has %d bytes, want empty", len(msg))
	}
	if v.Rendered() != 2 {
		t.Fatalf("Rendered = %d, want 2", v.Rendered())
	}

	conn.Close()
	deadline = time.Now().Add(5 * time.Second)
	for v.Viewers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("viewer never dropped")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
