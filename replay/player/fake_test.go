package player

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/reallyoldfogie/scene-replay-go/replay"
)

// manualScheduler runs tasks only when the test advances its clock.
type manualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []manualTask
}

type manualTask struct {
	due time.Time
	seq int
	fn  func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Unix(1_700_000_000, 0)}
}

func (s *manualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *manualScheduler) Post(fn func()) { s.After(0, fn) }

func (s *manualScheduler) Done() <-chan struct{} { return nil }

func (s *manualScheduler) After(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.tasks = append(s.tasks, manualTask{due: s.now.Add(d), seq: s.seq, fn: fn})
}

func (s *manualScheduler) popDue(limit time.Time) (manualTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(s.tasks, func(i, j int) bool {
		if !s.tasks[i].due.Equal(s.tasks[j].due) {
			return s.tasks[i].due.Before(s.tasks[j].due)
		}
		return s.tasks[i].seq < s.tasks[j].seq
	})
	if len(s.tasks) == 0 || s.tasks[0].due.After(limit) {
		return manualTask{}, false
	}
	t := s.tasks[0]
	s.tasks = s.tasks[1:]
	if t.due.After(s.now) {
		s.now = t.due
	}
	return t, true
}

// Advance runs every task due within d, in due order, then sets the clock
// to the end of the window.
func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	limit := s.now.Add(d)
	s.mu.Unlock()
	for {
		t, ok := s.popDue(limit)
		if !ok {
			break
		}
		t.fn()
	}
	s.mu.Lock()
	s.now = limit
	s.mu.Unlock()
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

type recordingSink struct {
	applied []replay.Command
	renders int
}

func (s *recordingSink) Apply(c replay.Command) error {
	s.applied = append(s.applied, c)
	return nil
}

func (s *recordingSink) Render() { s.renders++ }

func (s *recordingSink) kinds() []replay.CommandKind {
	out := make([]replay.CommandKind, len(s.applied))
	for i, c := range s.applied {
		out[i] = c.Kind
	}
	return out
}

type progressEvent struct {
	kind  string
	value float64
	label string
}

type recordingProgress struct {
	mu     sync.Mutex
	events []progressEvent
}

func (p *recordingProgress) LoadProgress(f float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, progressEvent{kind: "progress", value: f})
}

func (p *recordingProgress) LoadTypeChanged(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, progressEvent{kind: "label", label: label})
}

func (p *recordingProgress) HideLoadingBar() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, progressEvent{kind: "hide"})
}

func (p *recordingProgress) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.kind
		if e.kind == "label" {
			out[i] += ":" + e.label
		}
	}
	return out
}

type byteSourceFunc func(ctx context.Context, url string, progress func(loaded, total int64)) ([]byte, error)

func (f byteSourceFunc) Fetch(ctx context.Context, url string, progress func(loaded, total int64)) ([]byte, error) {
	return f(ctx, url, progress)
}

func buildRecording(t *testing.T, frames ...[]replay.Command) []byte {
	t.Helper()
	var payloads [][]byte
	for _, cmds := range frames {
		payloads = append(payloads, replay.EncodeCommands(cmds...))
	}
	return rawRecording(t, payloads...)
}

func rawRecording(t *testing.T, payloads ...[]byte) []byte {
	t.Helper()
	var out []byte
	for _, p := range payloads {
		n := len(p)
		out = append(out, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
		out = append(out, p...)
	}
	return out
}

func cmd(kind replay.CommandKind, body ...byte) replay.Command {
	return replay.Command{Kind: kind, Body: body}
}

// waitResult drives sched until ch delivers or the deadline passes.
func waitResult(t *testing.T, sched *manualScheduler, ch <-chan LoadResult) LoadResult {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case r := <-ch:
			return r
		default:
		}
		sched.Advance(0)
		select {
		case r := <-ch:
			return r
		case <-time.After(time.Millisecond):
		}
	}
	t.Fatal("timed out waiting for load result")
	return LoadResult{}
}

func receive(t *testing.T, ch <-chan LoadResult) LoadResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	default:
		t.Fatal("load result not delivered")
		return LoadResult{}
	}
}
