package cinder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Request is the caller's activation contract. Active turning true starts a
// playback over Target; turning false cancels it. OnComplete is invoked
// exactly once per playback, including after cancellation or failure.
type Request struct {
	Active     bool
	Target     Region
	OnComplete func()
}

// Frame describes one rendered frame, passed to Options.OnFrame.
type Frame struct {
	Index    int
	Elapsed  time.Duration
	Progress float64
	Surface  Surface
}

// Options configures an Effect. Device, Capturer and Scheduler are required.
type Options struct {
	Config    Config
	Device    Device
	Capturer  Capturer
	Scheduler Scheduler
	// Overlay, if set, receives the session surface while it plays.
	Overlay Overlay
	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
	// OnFrame is called after every rendered frame.
	OnFrame func(Frame)
	// OnState is called after every state change.
	OnState func(State)
}

type closeReason uint8

const (
	reasonFinished closeReason = iota
	reasonCancelled
	reasonCaptureFailed
	reasonSetupFailed
	reasonRenderFailed
)

var reasonNames = [...]string{"finished", "cancelled", "capture failed", "setup failed", "render failed"}

func (r closeReason) String() string { return reasonNames[r] }

// Effect is the burn transition's Timeline Driver. It walks one playback at
// a time through Idle → Capturing → Playing → Lingering → Closed. All methods
// and callbacks run on the Scheduler's goroutine; only the capture itself
// runs elsewhere.
//
// An Effect does not queue overlapping activations: Activate returns ErrBusy
// while a playback is in flight. Guarding a region against several Effects
// is up to the caller.
type Effect struct {
	cfg      Config
	dev      Device
	capturer Capturer
	sched    Scheduler
	overlay  Overlay
	log      *zap.Logger
	onFrame  func(Frame)
	onState  func(State)

	state      State
	active     bool // last Request.Active seen by Sync
	gen        uint64
	id         uuid.UUID
	target     Region
	onComplete func()

	cancelCapture context.CancelFunc
	session       *Session
	attached      bool
	timeline      *Timeline
	handle        FrameHandle
	stats         playbackStats
	started       time.Time
}

// NewEffect validates opts and returns an idle Effect.
func NewEffect(opts Options) (*Effect, error) {
	if opts.Device == nil {
		return nil, errors.New("cinder: Options.Device is required")
	}
	if opts.Capturer == nil {
		return nil, errors.New("cinder: Options.Capturer is required")
	}
	if opts.Scheduler == nil {
		return nil, errors.New("cinder: Options.Scheduler is required")
	}
	cfg, err := opts.Config.validate()
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Effect{
		cfg:      cfg,
		dev:      opts.Device,
		capturer: opts.Capturer,
		sched:    opts.Scheduler,
		overlay:  opts.Overlay,
		log:      log,
		onFrame:  opts.OnFrame,
		onState:  opts.OnState,
	}, nil
}

// State returns the current state.
func (e *Effect) State() State { return e.state }

// PlaybackID identifies the current or last playback in logs.
func (e *Effect) PlaybackID() uuid.UUID { return e.id }

// Config returns the validated configuration.
func (e *Effect) Config() Config { return e.cfg }

// Running reports whether a playback is in flight.
func (e *Effect) Running() bool {
	return e.state == StateCapturing || e.state == StatePlaying || e.state == StateLingering
}

// Sync applies a Request. A false→true edge of Active activates, a
// true→false edge deactivates; repeating the same value does nothing, so
// Sync can be called every frame with the caller's current request.
func (e *Effect) Sync(req Request) error {
	was := e.active
	e.active = req.Active
	switch {
	case req.Active && !was:
		if err := e.Activate(req.Target, req.OnComplete); err != nil {
			e.active = false
			return err
		}
	case !req.Active && was:
		e.Deactivate()
	}
	return nil
}

// Activate starts a playback over target. onComplete may be nil. The capture
// runs on its own goroutine; everything after it runs on the scheduler.
func (e *Effect) Activate(target Region, onComplete func()) error {
	if e.Running() {
		return ErrBusy
	}
	if target == nil {
		return errors.New("cinder: nil target")
	}

	e.gen++
	e.id = uuid.New()
	e.target = target
	e.onComplete = onComplete
	e.session = nil
	e.attached = false
	e.timeline = nil
	e.handle = 0
	e.stats = playbackStats{}
	e.started = time.Now()
	e.setState(StateCapturing)

	e.log.Debug("activate",
		zap.Stringer("playback", e.id),
		zap.Stringer("bounds", target.Bounds()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	e.cancelCapture = cancel
	gen := e.gen
	opts := CaptureOptions{Background: e.cfg.Background, Scale: e.cfg.CaptureScale}
	go func() {
		bmp, err := e.capturer.Capture(ctx, target, opts)
		e.sched.Post(func() { e.captured(gen, bmp, err) })
	}()
	return nil
}

// Deactivate cancels the playback in flight, skipping any remaining frames
// and the linger. It is a no-op when nothing is running.
func (e *Effect) Deactivate() {
	if !e.Running() {
		return
	}
	e.close(reasonCancelled, nil)
}

// captured resumes the playback once the capture goroutine reports back.
// Results from a cancelled or superseded capture are dropped.
func (e *Effect) captured(gen uint64, bmp *Bitmap, err error) {
	if gen != e.gen || e.state != StateCapturing {
		return
	}
	e.cancelCapture = nil
	e.stats.captureTime = time.Since(e.started)

	if err == nil && bmp.Empty() {
		err = ErrEmptyRegion
	}
	if err != nil {
		var ce *CaptureError
		if !errors.As(err, &ce) {
			err = &CaptureError{Err: err}
		}
		e.close(reasonCaptureFailed, err)
		return
	}

	setupStart := time.Now()
	b := e.target.Bounds()
	sess, err := OpenSession(e.dev, bmp, b.Dx(), b.Dy(), e.cfg.Background)
	if err != nil {
		e.close(reasonSetupFailed, err)
		return
	}
	e.session = sess
	if e.overlay != nil {
		if err := e.overlay.Attach(sess.Surface(), b); err != nil {
			e.close(reasonSetupFailed, &SetupError{Stage: "attach", Err: err})
			return
		}
		e.attached = true
	}
	e.stats.setupTime = time.Since(setupStart)

	e.target.SetVisible(false)
	e.timeline = NewTimeline(e.sched.Now(), e.cfg.Duration, e.cfg.Linger, e.cfg.Easing)
	e.setState(StatePlaying)
	e.frame(e.sched.Now())
}

// frame renders one frame and schedules the next, or starts the linger once
// the front has reached the top.
func (e *Effect) frame(now time.Time) {
	e.handle = 0
	if e.state != StatePlaying {
		return
	}

	elapsed := e.timeline.Elapsed(now)
	progress := e.timeline.Progress(now)

	start := time.Now()
	if err := e.session.Render(elapsed.Seconds(), progress); err != nil {
		e.close(reasonRenderFailed, err)
		return
	}
	took := time.Since(start)
	index := e.stats.frames
	e.stats.addFrame(took)
	debugLogFrame(e.log, index, elapsed, progress, took)
	if e.onFrame != nil {
		e.onFrame(Frame{Index: index, Elapsed: elapsed, Progress: progress, Surface: e.session.Surface()})
		if e.state != StatePlaying {
			return
		}
	}

	if progress < 1 {
		e.handle = e.sched.RequestFrame(e.frame)
		return
	}
	e.setState(StateLingering)
	if e.cfg.Linger <= 0 {
		e.close(reasonFinished, nil)
		return
	}
	e.handle = e.sched.AfterFunc(e.cfg.Linger, func(time.Time) {
		e.handle = 0
		e.close(reasonFinished, nil)
	})
}

// close is the single exit path. It cancels the pending frame and capture,
// shows the target again, detaches and releases the session, then delivers
// completion.
func (e *Effect) close(reason closeReason, err error) {
	if !e.Running() {
		return
	}
	if e.handle != 0 {
		e.sched.Cancel(e.handle)
		e.handle = 0
	}
	if e.cancelCapture != nil {
		e.cancelCapture()
		e.cancelCapture = nil
	}

	e.target.SetVisible(true)
	if e.session != nil {
		if e.attached {
			e.overlay.Detach(e.session.Surface())
			e.attached = false
		}
		e.session.Close()
	}
	e.setState(StateClosed)

	fields := []zap.Field{
		zap.Stringer("playback", e.id),
		zap.Stringer("reason", reason),
		zap.Duration("elapsed", time.Since(e.started)),
		zap.Object("stats", e.stats),
	}
	switch {
	case err != nil:
		e.log.Error("burn aborted", append(fields, zap.Error(err))...)
	case reason == reasonCancelled:
		e.log.Debug("burn cancelled", fields...)
	default:
		e.log.Info("burn complete", fields...)
	}

	cb := e.onComplete
	e.onComplete = nil
	if cb != nil {
		cb()
	}
}

func (e *Effect) setState(s State) {
	e.state = s
	if e.onState != nil {
		e.onState(s)
	}
}
