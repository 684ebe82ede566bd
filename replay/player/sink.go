package player

import (
	"context"

	"github.com/reallyoldfogie/scene-replay-go/replay"
)

// SceneSink consumes decoded commands. Apply is called once per
// non-tempo command, in frame order. The player never calls Render; hosts
// call it when they want the applied state drawn, typically from the frame
// change listener.
//
// Sinks must not call back into the Player while applying a command.
type SceneSink interface {
	Apply(cmd replay.Command) error
	Render()
}

// ProgressSink receives cosmetic loading feedback. Nothing in playback
// depends on it.
type ProgressSink interface {
	LoadProgress(fraction float64)
	LoadTypeChanged(label string)
	HideLoadingBar()
}

// ByteSource fetches raw recording bytes. progress may be nil; total is -1
// when unknown.
type ByteSource interface {
	Fetch(ctx context.Context, url string, progress func(loaded, total int64)) ([]byte, error)
}

type nopSink struct{}

func (nopSink) Apply(replay.Command) error { return nil }
func (nopSink) Render()                    {}

type nopProgress struct{}

func (nopProgress) LoadProgress(float64)   {}
func (nopProgress) LoadTypeChanged(string) {}
func (nopProgress) HideLoadingBar()        {}
