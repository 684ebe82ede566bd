package adapters

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reallyoldfogie/scene-replay-go/replay"
)

const viewerWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 << 10,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Viewer is a scene sink for remote renderers. Commands applied between two
// Render calls are re-encoded as one frame payload and broadcast as a single
// binary websocket message to every connected client. Late joiners only see
// frames rendered after they connect.
type Viewer struct {
	log *slog.Logger

	mu      sync.Mutex
	pending []replay.Command
	clients map[*websocket.Conn]struct{}
	sent    int
}

// NewViewer returns a Viewer with no clients.
func NewViewer(logger *slog.Logger) *Viewer {
	return &Viewer{
		log:     logger.With("component", "viewer"),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the connection until the
// client goes away.
func (v *Viewer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		v.log.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	v.mu.Lock()
	v.clients[conn] = struct{}{}
	count := len(v.clients)
	v.mu.Unlock()
	v.log.Info("viewer connected", "remote", r.RemoteAddr, "viewers", count)

	// Drain control frames; viewers never send data.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	v.drop(conn)
}

func (v *Viewer) drop(conn *websocket.Conn) {
	v.mu.Lock()
	_, ok := v.clients[conn]
	delete(v.clients, conn)
	count := len(v.clients)
	v.mu.Unlock()
	_ = conn.Close()
	if ok {
		v.log.Info("viewer disconnected", "viewers", count)
	}
}

// Apply buffers cmd for the next broadcast.
func (v *Viewer) Apply(cmd replay.Command) error {
	v.mu.Lock()
	v.pending = append(v.pending, cmd)
	v.mu.Unlock()
	return nil
}

// Render broadcasts the buffered commands. An empty batch is still sent so
// viewers can count frames.
func (v *Viewer) Render() {
	v.mu.Lock()
	defer v.mu.Unlock()
	payload := replay.EncodeCommands(v.pending...)
	v.pending = v.pending[:0]
	v.sent++

	for conn := range v.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(viewerWriteTimeout))
		if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			v.log.Warn("broadcast write failed", "error", err)
			delete(v.clients, conn)
			_ = conn.Close()
		}
	}
}

// Viewers returns the number of connected clients.
func (v *Viewer) Viewers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.clients)
}

// Rendered returns how many frames were broadcast.
func (v *Viewer) Rendered() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sent
}
