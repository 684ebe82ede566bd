package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/reallyoldfogie/scene-replay-go/replay"
)

// Playback defaults.
const (
	DefaultMillisPerFrame = 20.0
	DefaultSettleDelay    = 100 * time.Millisecond
	DefaultMinSpeed       = 0.01
	DefaultMaxSpeed       = 1.5
)

// Loading labels passed to ProgressSink.LoadTypeChanged.
const (
	LabelLoading  = "loading"
	LabelIndexing = "indexing"
)

var (
	// ErrSuperseded is delivered to a load replaced by a newer distinct load.
	ErrSuperseded = errors.New("player: load superseded")
	// ErrDisposed is returned by operations on a disposed player.
	ErrDisposed = errors.New("player: disposed")
	// ErrNoRecording is returned when a frame is requested before any load committed.
	ErrNoRecording = errors.New("player: no recording loaded")
)

// Options configures a Player. Zero numeric fields take the package defaults.
type Options struct {
	Scheduler Scheduler
	Sink      SceneSink
	Progress  ProgressSink
	Logger    *slog.Logger

	MillisPerFrame float64       // tempo until the recording sets one
	ChunkBudget    time.Duration // per indexing step
	SettleDelay    time.Duration // between indexing and the first frame; negative for none
	MinSpeed       float64
	MaxSpeed       float64
	Autoplay       bool // start playing once a new recording is ready
}

// LoadResult is delivered once per Load or Fetch. A result carrying Err
// always has Status replay.Failed.
type LoadResult struct {
	Status replay.LoadStatus
	Frames int
	Hash   string
	Err    error
}

// Player is the playback controller. It ties the clock to the store, applies
// frames to the scene sink and reports frame and play state changes.
//
// A Player is single threaded: every method must run on its Scheduler's
// thread (use EventLoop.Do from other goroutines).
type Player struct {
	opts    Options
	sched   Scheduler
	sink    SceneSink
	prog    ProgressSink
	log     *slog.Logger
	session uuid.UUID

	store *replay.Store
	clock *Clock

	onFrame func(int)
	onPlay  func(bool)

	loadGen     uint64
	stopPull    func()
	pendingDone chan LoadResult
	disposed    bool
}

// New returns a Player with nothing loaded.
func New(opts Options) *Player {
	if opts.Scheduler == nil {
		opts.Scheduler = NewEventLoop()
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	if opts.Progress == nil {
		opts.Progress = nopProgress{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if !validPositive(opts.MillisPerFrame) {
		opts.MillisPerFrame = DefaultMillisPerFrame
	}
	if opts.ChunkBudget <= 0 {
		opts.ChunkBudget = replay.DefaultChunkBudget
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	} else if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if !validPositive(opts.MinSpeed) {
		opts.MinSpeed = DefaultMinSpeed
	}
	if !validPositive(opts.MaxSpeed) || opts.MaxSpeed < opts.MinSpeed {
		opts.MaxSpeed = math.Max(DefaultMaxSpeed, opts.MinSpeed)
	}

	session := uuid.New()
	p := &Player{
		opts:    opts,
		sched:   opts.Scheduler,
		sink:    opts.Sink,
		prog:    opts.Progress,
		session: session,
		log:     opts.Logger.With("component", "player", "session", session.String()),
		store:   replay.NewStore(),
		clock:   NewClock(opts.MillisPerFrame),
	}
	p.store.SetClock(p.sched.Now)
	return p
}

// Session identifies this player in logs.
func (p *Player) Session() uuid.UUID { return p.session }

// Load replaces the recording with data unless it is byte-identical to the
// current one. Indexing runs in scheduled chunks; the result arrives on the
// returned channel once the recording is ready (or unchanged, or failed).
func (p *Player) Load(data []byte) <-chan LoadResult {
	done := make(chan LoadResult, 1)
	if p.disposed {
		done <- LoadResult{Err: ErrDisposed}
		return done
	}

	ix, status := p.store.Begin(data)
	if status == replay.Unchanged {
		p.log.Debug("recording unchanged, skipping index", "hash", short(p.store.Hash()))
		p.sched.After(p.opts.SettleDelay, func() {
			p.prog.HideLoadingBar()
			done <- LoadResult{Status: replay.Unchanged, Frames: p.store.FrameCount(), Hash: p.store.Hash()}
		})
		return done
	}

	p.cancelLoad()
	p.loadGen++
	gen := p.loadGen
	p.pendingDone = done
	p.prog.LoadTypeChanged(LabelIndexing)
	p.log.Info("indexing recording", "bytes", len(data))

	next, stop := iter.Pull2(ix.Chunks(p.opts.ChunkBudget))
	p.stopPull = stop

	var step func()
	step = func() {
		if gen != p.loadGen {
			return
		}
		c, err, ok := next()
		if err != nil || !ok {
			p.finishPull()
			p.store.Abandon(ix)
			p.prog.HideLoadingBar()
			if err == nil {
				err = errors.New("player: indexing ended early")
			}
			p.log.Error("recording rejected", "error", err)
			p.deliver(LoadResult{Status: replay.Failed, Err: err})
			return
		}
		p.prog.LoadProgress(c.Progress)
		if !c.Done {
			p.sched.Post(step)
			return
		}
		p.finishPull()
		if err := p.store.Commit(ix); err != nil {
			p.prog.HideLoadingBar()
			p.deliver(LoadResult{Status: replay.Failed, Err: err})
			return
		}
		resume := p.resetSession()
		p.log.Info("recording indexed", "frames", p.store.FrameCount(), "hash", short(p.store.Hash()))
		p.sched.After(p.opts.SettleDelay, func() {
			if gen != p.loadGen || p.disposed {
				return
			}
			p.ready(resume)
			p.deliver(LoadResult{Status: replay.Replaced, Frames: p.store.FrameCount(), Hash: p.store.Hash()})
		})
	}
	p.sched.Post(step)
	return done
}

// Fetch loads a recording from src. The download runs off the scheduler
// thread; failures leave the current recording untouched. If the scheduler
// stops before the load completes the result carries ErrLoopClosed.
func (p *Player) Fetch(ctx context.Context, src ByteSource, url string) <-chan LoadResult {
	done := make(chan LoadResult, 1)
	if p.disposed {
		done <- LoadResult{Err: ErrDisposed}
		return done
	}
	p.prog.LoadTypeChanged(LabelLoading)
	p.prog.LoadProgress(0)

	go func() {
		data, err := src.Fetch(ctx, url, func(loaded, total int64) {
			if total <= 0 {
				return
			}
			frac := float64(loaded) / float64(total)
			p.sched.Post(func() { p.prog.LoadProgress(frac) })
		})
		var inner <-chan LoadResult
		posted := make(chan struct{})
		p.sched.Post(func() {
			defer close(posted)
			if err != nil {
				var le *replay.LoadError
				if !errors.As(err, &le) {
					err = &replay.LoadError{URL: url, Err: err}
				}
				p.prog.HideLoadingBar()
				p.log.Error("fetch recording", "url", url, "error", err)
				done <- LoadResult{Err: err}
				return
			}
			inner = p.Load(data)
		})
		select {
		case <-posted:
		case <-p.sched.Done():
			select {
			case <-posted:
			default:
				done <- LoadResult{Err: ErrLoopClosed}
				return
			}
		}
		if inner == nil {
			return
		}
		select {
		case r := <-inner:
			done <- r
		case <-p.sched.Done():
			select {
			case r := <-inner:
				done <- r
			default:
				done <- LoadResult{Err: ErrLoopClosed}
			}
		}
	}()
	return done
}

func (p *Player) deliver(r LoadResult) {
	if p.pendingDone != nil {
		p.pendingDone <- r
		p.pendingDone = nil
	}
}

func (p *Player) finishPull() {
	if p.stopPull != nil {
		p.stopPull()
		p.stopPull = nil
	}
}

func (p *Player) cancelLoad() {
	p.finishPull()
	if p.pendingDone != nil {
		p.deliver(LoadResult{Err: ErrSuperseded})
	}
}

// resetSession points the clock at the newly committed recording. Playback
// is held until the first frame has been applied; the return value says
// whether it should resume.
func (p *Player) resetSession() (resume bool) {
	resume = p.clock.Mode() == Playing
	p.clock.Stop()
	p.clock.Arm()
	p.clock.ResetApplied()
	p.clock.SetScrubFrame(0)
	p.clock.SetFrameCount(p.store.FrameCount())
	return resume
}

func (p *Player) ready(resume bool) {
	p.prog.HideLoadingBar()
	p.prog.LoadTypeChanged(LabelLoading)
	if n, applied, err := p.applyFrame(0); err != nil {
		p.log.Warn("apply first frame", "error", err)
	} else if applied {
		p.notifyFrame(n)
	}
	switch {
	case resume:
		if p.clock.Play(p.sched.Now()) {
			p.startLoop()
		}
	case p.opts.Autoplay && !p.Playing():
		p.Play()
	}
}

// Play starts playback from the last applied frame.
func (p *Player) Play() bool {
	if p.disposed || p.store.FrameCount() == 0 {
		return false
	}
	if !p.clock.Play(p.sched.Now()) {
		return false
	}
	p.notifyPlay(true)
	p.startLoop()
	return true
}

// Pause stops playback; the running loop ends on its next tick.
func (p *Player) Pause() bool {
	if !p.clock.Pause() {
		return false
	}
	p.notifyPlay(false)
	return true
}

// TogglePlay flips between playing and paused.
func (p *Player) TogglePlay() {
	if p.Playing() {
		p.Pause()
		return
	}
	p.Play()
}

// SetPlaying plays or pauses; it does nothing before a recording is loaded.
func (p *Player) SetPlaying(playing bool) {
	if !p.store.Loaded() || playing == p.Playing() {
		return
	}
	p.TogglePlay()
}

// Playing reports whether time-based playback is running.
func (p *Player) Playing() bool { return p.clock.Mode() == Playing }

// Scrubbing reports whether a scrub is in progress.
func (p *Player) Scrubbing() bool { return p.clock.Mode() == Scrubbing }

// BeginScrub hands frame selection to ScrubToFrame/ScrubToFraction until
// EndScrub. Playback pauses; it is not resumed automatically.
func (p *Player) BeginScrub() {
	if p.disposed || !p.store.Loaded() {
		return
	}
	if p.clock.BeginScrub() {
		p.notifyPlay(false)
	}
	p.startLoop()
}

// ScrubToFrame moves the scrub position, clamped to the recording.
func (p *Player) ScrubToFrame(n int) {
	count := p.store.FrameCount()
	if count == 0 {
		return
	}
	p.clock.SetScrubFrame(min(max(n, 0), count-1))
}

// ScrubToFraction moves the scrub position to fraction of the recording.
func (p *Player) ScrubToFraction(fraction float64) {
	if math.IsNaN(fraction) {
		return
	}
	fraction = math.Min(math.Max(fraction, 0), 1)
	p.ScrubToFrame(int(math.Round(float64(p.store.FrameCount()) * fraction)))
}

// EndScrub stops scrubbing and leaves the player stopped.
func (p *Player) EndScrub() { p.clock.EndScrub() }

// SetSpeed sets the playback multiplier, clamped to the configured range.
func (p *Player) SetSpeed(multiplier float64) error {
	if !validPositive(multiplier) {
		return fmt.Errorf("player: speed %v must be a positive finite number", multiplier)
	}
	multiplier = math.Min(math.Max(multiplier, p.opts.MinSpeed), p.opts.MaxSpeed)
	return p.clock.SetSpeed(multiplier, p.sched.Now())
}

// Speed returns the playback multiplier.
func (p *Player) Speed() float64 { return p.clock.Speed() }

// MillisPerFrame returns the effective frame period.
func (p *Player) MillisPerFrame() float64 { return p.clock.MillisPerFrame() }

// Frame returns the last applied frame, -1 if none.
func (p *Player) Frame() int { return p.clock.Current() }

// FrameCount returns the number of frames in the loaded recording.
func (p *Player) FrameCount() int { return p.store.FrameCount() }

// Hash returns the content hash of the loaded recording.
func (p *Player) Hash() string { return p.store.Hash() }

// State returns a snapshot of the playback clock.
func (p *Player) State() State { return p.clock.State() }

// RegisterFrameChangeListener replaces the frame listener; nil removes it.
// It fires after each frame the player applies on its own (ticks and the
// first frame of a new recording), never for SetFrame.
func (p *Player) RegisterFrameChangeListener(fn func(frame int)) { p.onFrame = fn }

// RegisterPlayPauseListener replaces the play state listener; nil removes it.
func (p *Player) RegisterPlayPauseListener(fn func(playing bool)) { p.onPlay = fn }

// SetFrame applies frame n now. Requesting the frame already applied does
// nothing. See applyFrame for the wraparound rule.
func (p *Player) SetFrame(n int) error {
	_, _, err := p.applyFrame(n)
	return err
}

// applyFrame decodes frame n and dispatches its commands. It returns the
// frame served and whether its commands were dispatched; a request that
// resolves to the frame already applied dispatches nothing.
//
// Going backwards is a loop restart: the applied-frame memory is cleared and
// a request for frame 0 is served with frame 1. Frame 0 usually creates the
// whole scene and is by far the most expensive frame, so loops trade its
// fidelity for a smooth restart.
func (p *Player) applyFrame(n int) (int, bool, error) {
	if p.disposed {
		return -1, false, ErrDisposed
	}
	if !p.store.Loaded() {
		return -1, false, ErrNoRecording
	}
	last := p.clock.Current()
	wrapped := n < last
	if wrapped && n == 0 && p.store.FrameCount() > 1 {
		n = 1
	}
	if n == last {
		return n, false, nil
	}
	payload, err := p.store.FrameBytes(n)
	if err != nil {
		return -1, false, err
	}
	if wrapped {
		p.clock.ResetApplied()
	}

	cmds, err := replay.DecodeFrame(n, payload)
	if err != nil {
		p.clock.MarkApplied(n)
		p.log.Warn("skipping undecodable frame", "frame", n, "error", err)
		return n, false, err
	}

	now := p.sched.Now()
	for _, c := range cmds {
		if fps, ok := c.FramesPerSecond(); ok {
			if err := p.clock.SetBaseTempo(1000.0/fps, now); err != nil {
				p.log.Warn("ignoring frame rate", "frame", n, "fps", fps, "error", err)
			} else {
				p.log.Debug("frame rate", "frame", n, "fps", fps)
			}
			continue
		}
		if err := p.sink.Apply(c); err != nil {
			p.log.Warn("scene rejected command", "frame", n, "kind", int32(c.Kind), "error", err)
		}
	}
	p.clock.MarkApplied(n)
	return n, true, nil
}

// startLoop arms a new generation and schedules its first tick. Any loop
// already running sees a stale token on its next tick and stops.
func (p *Player) startLoop() {
	token := p.clock.Arm()
	p.sched.Post(func() { p.tick(token) })
}

func (p *Player) tick(token uint64) {
	if p.disposed || !p.clock.Live(token) {
		return
	}
	target, ok := p.clock.Target(p.sched.Now())
	if !ok {
		return
	}
	if target != p.clock.Current() {
		if n, applied, err := p.applyFrame(target); err == nil && applied {
			p.notifyFrame(n)
		}
	}
	p.sched.After(p.clock.Interval(), func() { p.tick(token) })
}

// notifyFrame runs after the frame's state is committed so a listener that
// queries the player sees the new frame.
func (p *Player) notifyFrame(n int) {
	if p.onFrame != nil {
		p.onFrame(n)
	}
}

func (p *Player) notifyPlay(playing bool) {
	if p.onPlay != nil {
		p.onPlay(playing)
	}
}

// Dispose stops playback, abandons any load and drops the recording.
func (p *Player) Dispose() {
	if p.disposed {
		return
	}
	p.clock.Stop()
	p.clock.Arm()
	p.finishPull()
	p.deliver(LoadResult{Err: ErrDisposed})
	p.loadGen++
	p.store.Reset()
	p.clock.SetFrameCount(0)
	p.clock.ResetApplied()
	p.onFrame = nil
	p.onPlay = nil
	p.disposed = true
	p.log.Debug("player disposed")
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
