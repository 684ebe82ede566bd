package player

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Scheduler runs tasks one at a time on a single logical thread. Tasks
// posted or scheduled from any goroutine run in order on that thread; the
// Player and everything it calls only ever execute inside such tasks.
type Scheduler interface {
	Now() time.Time
	Post(task func())
	After(d time.Duration, task func())
	// Done is closed once the scheduler has stopped running tasks. A nil
	// channel means it never stops.
	Done() <-chan struct{}
}

// ErrLoopClosed is returned by Do once the loop has stopped, and delivered
// to loads the stopped loop can no longer finish.
var ErrLoopClosed = errors.New("player: event loop closed")

// EventLoop is the production Scheduler: a FIFO task queue drained by Run.
type EventLoop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

// NewEventLoop returns an idle loop. Nothing runs until Run is called.
func NewEventLoop() *EventLoop {
	return &EventLoop{wake: make(chan struct{}, 1), done: make(chan struct{})}
}

// Done is closed when Run returns.
func (l *EventLoop) Done() <-chan struct{} { return l.done }

// Now returns the wall-clock time.
func (l *EventLoop) Now() time.Time { return time.Now() }

// Post enqueues task. Tasks posted after the loop stopped are dropped.
func (l *EventLoop) Post(task func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// After enqueues task once d has elapsed.
func (l *EventLoop) After(d time.Duration, task func()) {
	if d <= 0 {
		l.Post(task)
		return
	}
	time.AfterFunc(d, func() { l.Post(task) })
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a task running on the same loop.
func (l *EventLoop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrLoopClosed
	}
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx is cancelled, then drops pending tasks and
// returns ctx.Err().
func (l *EventLoop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		wasClosed := l.closed
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		if !wasClosed {
			close(l.done)
		}
	}()
	for {
		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			task, ok := l.pop()
			if !ok {
				break
			}
			task()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *EventLoop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}
