package player

import (
	"fmt"
	"math"
	"time"
)

// Mode is the playback clock state.
type Mode int

const (
	Stopped Mode = iota
	Playing
	Scrubbing
)

func (m Mode) String() string {
	switch m {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Scrubbing:
		return "scrubbing"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// State is a snapshot of the clock.
type State struct {
	Mode               Mode
	BaseMillisPerFrame float64
	Speed              float64
	StartWall          time.Time
	StartFrame         int
	CurrentFrame       int // last applied, -1 for none
	ScrubFrame         int
	FrameCount         int
	Generation         uint64
}

// Clock maps wall-clock time and a speed multiplier to a frame number.
//
// While playing the target is
//
//	(startFrame + round(elapsed / (baseMillisPerFrame / speed))) mod frameCount
//
// and every tempo or speed change re-anchors startFrame and startWall at the
// frame showing at that instant, so progression stays continuous.
//
// The clock also owns the tick generation: every loop started by the player
// captures Arm's token and stops as soon as Live reports it stale.
type Clock struct {
	mode       Mode
	baseMs     float64
	speed      float64
	startWall  time.Time
	startFrame int
	current    int
	scrub      int
	frames     int
	generation uint64
}

// NewClock returns a stopped clock with nothing applied.
func NewClock(baseMillisPerFrame float64) *Clock {
	if !validPositive(baseMillisPerFrame) {
		baseMillisPerFrame = DefaultMillisPerFrame
	}
	return &Clock{baseMs: baseMillisPerFrame, speed: 1, current: -1}
}

// Mode returns the current state.
func (c *Clock) Mode() Mode { return c.mode }

// Speed returns the speed multiplier.
func (c *Clock) Speed() float64 { return c.speed }

// BaseMillisPerFrame returns the recording's tempo at 1x.
func (c *Clock) BaseMillisPerFrame() float64 { return c.baseMs }

// MillisPerFrame returns the effective frame period.
func (c *Clock) MillisPerFrame() float64 { return c.baseMs / c.speed }

// Interval is MillisPerFrame as a duration, never less than a millisecond.
func (c *Clock) Interval() time.Duration {
	d := time.Duration(c.MillisPerFrame() * float64(time.Millisecond))
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// SetFrameCount tells the clock how many frames the recording has.
func (c *Clock) SetFrameCount(n int) {
	if n < 0 {
		n = 0
	}
	c.frames = n
}

// FrameCount returns the value last passed to SetFrameCount.
func (c *Clock) FrameCount() int { return c.frames }

// Current returns the last applied frame, -1 if none.
func (c *Clock) Current() int { return c.current }

// MarkApplied records n as the last applied frame.
func (c *Clock) MarkApplied(n int) { c.current = n }

// ResetApplied forgets the last applied frame.
func (c *Clock) ResetApplied() { c.current = -1 }

// Play moves stopped to playing, anchored at the last applied frame.
// It reports whether the mode changed.
func (c *Clock) Play(now time.Time) bool {
	if c.mode != Stopped {
		return false
	}
	c.mode = Playing
	c.startFrame = max(c.current, 0)
	c.startWall = now
	return true
}

// Pause moves playing to stopped.
func (c *Clock) Pause() bool {
	if c.mode != Playing {
		return false
	}
	c.mode = Stopped
	return true
}

// BeginScrub enters scrubbing from any state and reports whether the clock
// was playing.
func (c *Clock) BeginScrub() (wasPlaying bool) {
	wasPlaying = c.mode == Playing
	if c.mode != Scrubbing {
		c.scrub = max(c.current, 0)
	}
	c.mode = Scrubbing
	return wasPlaying
}

// EndScrub moves scrubbing to stopped. Resuming is the caller's call.
func (c *Clock) EndScrub() bool {
	if c.mode != Scrubbing {
		return false
	}
	c.mode = Stopped
	return true
}

// Stop forces the stopped state.
func (c *Clock) Stop() { c.mode = Stopped }

// SetScrubFrame sets the frame selected while scrubbing.
func (c *Clock) SetScrubFrame(n int) { c.scrub = n }

// ScrubFrame returns the scrub position.
func (c *Clock) ScrubFrame() int { return c.scrub }

// SetSpeed changes the multiplier without a jump in the computed frame.
func (c *Clock) SetSpeed(multiplier float64, now time.Time) error {
	if !validPositive(multiplier) {
		return fmt.Errorf("player: speed %v must be a positive finite number", multiplier)
	}
	c.Reanchor(now)
	c.speed = multiplier
	return nil
}

// SetBaseTempo changes the 1x frame period, re-anchoring like SetSpeed.
func (c *Clock) SetBaseTempo(millisPerFrame float64, now time.Time) error {
	if !validPositive(millisPerFrame) {
		return fmt.Errorf("player: frame period %vms must be a positive finite number", millisPerFrame)
	}
	if millisPerFrame == c.baseMs {
		return nil
	}
	c.Reanchor(now)
	c.baseMs = millisPerFrame
	return nil
}

// Reanchor restarts elapsed-time counting from the frame showing at now.
func (c *Clock) Reanchor(now time.Time) {
	if f, ok := c.FrameAt(now); ok {
		c.startFrame = f
	} else {
		c.startFrame = max(c.current, 0)
	}
	c.startWall = now
}

// FrameAt returns the time-based frame at now. Outside playback it is the
// last applied frame. ok is false when there are no frames.
func (c *Clock) FrameAt(now time.Time) (int, bool) {
	if c.frames <= 0 {
		return 0, false
	}
	if c.mode != Playing {
		return max(c.current, 0), true
	}
	elapsed := float64(now.Sub(c.startWall)) / float64(time.Millisecond)
	advance := int(math.Round(elapsed / c.MillisPerFrame()))
	f := (c.startFrame + advance) % c.frames
	if f < 0 {
		f += c.frames
	}
	return f, true
}

// Target returns the frame the player should show at now. Scrubbing wins
// over elapsed time; a stopped clock has no target.
func (c *Clock) Target(now time.Time) (int, bool) {
	if c.frames <= 0 {
		return 0, false
	}
	switch c.mode {
	case Scrubbing:
		return min(max(c.scrub, 0), c.frames-1), true
	case Playing:
		return c.FrameAt(now)
	default:
		return 0, false
	}
}

// Arm starts a new tick generation and returns its token. Ticks holding an
// older token are stale.
func (c *Clock) Arm() uint64 {
	c.generation++
	return c.generation
}

// Live reports whether token belongs to the current generation.
func (c *Clock) Live(token uint64) bool { return token == c.generation }

// State returns a copy of the clock's fields.
func (c *Clock) State() State {
	return State{
		Mode:               c.mode,
		BaseMillisPerFrame: c.baseMs,
		Speed:              c.speed,
		StartWall:          c.startWall,
		StartFrame:         c.startFrame,
		CurrentFrame:       c.current,
		ScrubFrame:         c.scrub,
		FrameCount:         c.frames,
		Generation:         c.generation,
	}
}

func validPositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
