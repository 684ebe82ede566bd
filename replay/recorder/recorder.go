// Package recorder provides a simple, thread-safe helper that groups scene
// commands into frames and streams them into a replay.Writer. Call Record for
// each command of the current simulation step and EndFrame once the step is
// complete.
package recorder

import (
	"sync"

	"github.com/reallyoldfogie/scene-replay-go/replay"
)

// Recorder buffers the commands of the frame being built.
type Recorder struct {
	w       *replay.Writer
	mu      sync.Mutex
	pending []replay.Command
	fps     float64
	closed  bool
}

// New creates a Recorder writing frames to w.
func New(w *replay.Writer) *Recorder {
	return &Recorder{w: w}
}

// NewFile creates and owns a recording file at path.
// Use Close() when finished.
func NewFile(path string) (*Recorder, error) {
	w, err := replay.Create(path)
	if err != nil {
		return nil, err
	}
	return &Recorder{w: w}, nil
}

// Record appends cmd to the current frame. The body is copied since callers
// may reuse buffers.
func (r *Recorder) Record(cmd replay.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	body := make([]byte, len(cmd.Body))
	copy(body, cmd.Body)
	r.pending = append(r.pending, replay.Command{Kind: cmd.Kind, Body: body})
}

// SetFramesPerSecond records a tempo change at the start of the current
// frame. Repeating the current tempo records nothing.
func (r *Recorder) SetFramesPerSecond(fps float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || fps == r.fps {
		return
	}
	r.fps = fps
	r.pending = append([]replay.Command{replay.SetFramesPerSecond(fps)}, r.pending...)
}

// EndFrame writes the buffered commands as one frame, which may be empty.
func (r *Recorder) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	err := r.w.WriteFrame(r.pending...)
	r.pending = r.pending[:0]
	return err
}

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Frames()
}

// Close flushes a non-empty pending frame and finalizes the writer.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if len(r.pending) > 0 {
		if err := r.w.WriteFrame(r.pending...); err != nil {
			_ = r.w.Close()
			return err
		}
		r.pending = nil
	}
	return r.w.Close()
}
