package cinder

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// --- fakes ---

// fakeDevice records draws and counts live handles without shading.
type fakeDevice struct {
	live        int
	draws       []Uniforms
	failProgram bool
	failDraw    bool
}

type fakeHandle struct {
	dev      *fakeDevice
	w, h     int
	disposed bool
}

func (h *fakeHandle) Size() (int, int) { return h.w, h.h }

func (h *fakeHandle) Dispose() {
	if !h.disposed {
		h.disposed = true
		h.dev.live--
	}
}

func (d *fakeDevice) handle(w, h int) *fakeHandle {
	d.live++
	return &fakeHandle{dev: d, w: w, h: h}
}

func (d *fakeDevice) DeviceScaleFactor() float64 { return 2 }

func (d *fakeDevice) NewSurface(w, h int) (Surface, error) { return d.handle(w, h), nil }

func (d *fakeDevice) NewTexture(b *Bitmap) (Texture, error) {
	return d.handle(b.Width(), b.Height()), nil
}

func (d *fakeDevice) NewMesh([]ebiten.Vertex, []uint32) (Mesh, error) { return d.handle(0, 0), nil }

func (d *fakeDevice) NewProgram() (Program, error) {
	if d.failProgram {
		return nil, errInjected
	}
	return d.handle(0, 0), nil
}

func (d *fakeDevice) Draw(dst Surface, p Program, m Mesh, tex Texture, u Uniforms) error {
	for _, h := range []any{dst, p, m, tex} {
		if h.(*fakeHandle).disposed {
			return errors.New("draw into disposed handle")
		}
	}
	if d.failDraw {
		return errInjected
	}
	d.draws = append(d.draws, u)
	return nil
}

// fakeCapturer returns a blank bitmap, an error, or blocks until cancelled.
type fakeCapturer struct {
	err     error
	block   bool
	started chan struct{}

	mu    sync.Mutex
	calls int
}

func (c *fakeCapturer) Capture(ctx context.Context, r Region, opts CaptureOptions) (*Bitmap, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.block {
		<-ctx.Done()
		return nil, &CaptureError{Err: ctx.Err()}
	}
	if c.err != nil {
		return nil, c.err
	}
	w, h := scaledSize(r.Bounds(), opts.Scale)
	return bitmapFromNRGBA(make([]byte, 4*w*h), w, h), nil
}

func (c *fakeCapturer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeOverlay struct {
	err      error
	attached map[Surface]image.Rectangle
	attaches int
	detaches int
}

func (o *fakeOverlay) Attach(s Surface, b image.Rectangle) error {
	if o.err != nil {
		return o.err
	}
	if o.attached == nil {
		o.attached = map[Surface]image.Rectangle{}
	}
	o.attached[s] = b
	o.attaches++
	return nil
}

func (o *fakeOverlay) Detach(s Surface) {
	delete(o.attached, s)
	o.detaches++
}

// --- harness ---

const frameStep = 16 * time.Millisecond

type harness struct {
	t       *testing.T
	clock   *ManualClock
	loop    *Loop
	dev     *fakeDevice
	cap     *fakeCapturer
	overlay *fakeOverlay
	target  *Target
	fx      *Effect
	logs    *observer.ObservedLogs

	states       []State
	frames       []Frame
	hiddenFrames int
	completions  int
	completedAt  time.Time
}

func newHarness(t *testing.T, cfg Config, capturer *fakeCapturer) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{
		t:       t,
		clock:   NewManualClock(epoch),
		dev:     &fakeDevice{},
		cap:     capturer,
		overlay: &fakeOverlay{},
		target:  NewTarget(image.Rect(50, 40, 350, 240), nil),
		logs:    logs,
	}
	h.loop = NewLoop(h.clock)
	fx, err := NewEffect(Options{
		Config:    cfg,
		Device:    h.dev,
		Capturer:  capturer,
		Scheduler: h.loop,
		Overlay:   h.overlay,
		Logger:    zap.New(core),
		OnState:   func(s State) { h.states = append(h.states, s) },
		OnFrame: func(f Frame) {
			h.frames = append(h.frames, f)
			if !h.target.Visible() {
				h.hiddenFrames++
			}
		},
	})
	require.NoError(t, err)
	h.fx = fx
	return h
}

func (h *harness) activate() {
	h.t.Helper()
	require.NoError(h.t, h.fx.Activate(h.target, func() {
		h.completions++
		h.completedAt = h.clock.Now()
	}))
}

// awaitCapture blocks until the capture goroutine posts back, then ticks.
func (h *harness) awaitCapture() {
	h.t.Helper()
	select {
	case <-h.loop.Wake():
	case <-time.After(5 * time.Second):
		h.t.Fatal("capture never posted back")
	}
	h.loop.Tick()
}

func (h *harness) step() {
	h.clock.Advance(frameStep)
	h.loop.Tick()
}

func (h *harness) runUntilComplete() {
	h.t.Helper()
	want := h.completions + 1
	for i := 0; i < 10000 && h.completions < want; i++ {
		h.step()
	}
	require.Equal(h.t, want, h.completions, "playback never completed")
}

// assertClean checks the guarantees every exit path shares.
func (h *harness) assertClean() {
	h.t.Helper()
	assert.Equal(h.t, 1, h.completions, "OnComplete calls")
	assert.True(h.t, h.target.Visible(), "target restored")
	assert.Equal(h.t, 0, h.dev.live, "residual device handles")
	assert.Empty(h.t, h.overlay.attached, "surface still attached")
	assert.Equal(h.t, 0, h.loop.Pending(), "scheduled callbacks left behind")
	assert.Equal(h.t, StateClosed, h.fx.State())
}

// --- scenarios ---

func TestEffectNaturalPlayback(t *testing.T) {
	h := newHarness(t, DefaultConfig(), &fakeCapturer{})
	h.activate()
	assert.Equal(t, StateCapturing, h.fx.State())
	assert.True(t, h.target.Visible(), "target stays visible while capturing")

	h.awaitCapture()
	require.Equal(t, StatePlaying, h.fx.State())
	require.Len(t, h.frames, 1, "first frame renders as soon as the session opens")
	assert.Equal(t, 0.0, h.frames[0].Progress)

	h.runUntilComplete()
	for i := 0; i < 60; i++ {
		h.step()
	}

	assert.Equal(t, 1, h.cap.Calls())
	if diff := cmp.Diff([]State{StateCapturing, StatePlaying, StateLingering, StateClosed}, h.states); diff != "" {
		t.Errorf("state sequence (-want +got):\n%s", diff)
	}

	full := 0
	for i, f := range h.frames {
		if i > 0 && f.Progress < h.frames[i-1].Progress {
			t.Fatalf("progress went backwards at frame %d: %v < %v", i, f.Progress, h.frames[i-1].Progress)
		}
		if f.Progress == 1 {
			full++
		}
	}
	assert.Equal(t, 1, full, "exactly one render at progress 1")
	last := h.frames[len(h.frames)-1]
	assert.Equal(t, 1.0, last.Progress, "progress 1 is the last render")
	assert.GreaterOrEqual(t, last.Elapsed, DefaultDuration)
	assert.Len(t, h.dev.draws, len(h.frames))
	assert.Equal(t, len(h.frames), h.hiddenFrames, "target hidden during every frame")

	lastFrameAt := epoch.Add(last.Elapsed)
	linger := h.completedAt.Sub(lastFrameAt)
	assert.GreaterOrEqual(t, linger, DefaultLinger)
	assert.Less(t, linger, DefaultLinger+frameStep)

	assert.Equal(t, 1, h.overlay.attaches)
	assert.Equal(t, 1, h.overlay.detaches)
	h.assertClean()

	entries := h.logs.FilterMessage("burn complete").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, h.fx.PlaybackID().String(), entries[0].ContextMap()["playback"])
}

func TestEffectSessionGeometry(t *testing.T) {
	h := newHarness(t, DefaultConfig(), &fakeCapturer{})
	h.activate()
	h.awaitCapture()

	require.Len(t, h.overlay.attached, 1)
	for s, b := range h.overlay.attached {
		w, hh := s.Size()
		assert.Equal(t, 600, w, "300 DIPs at scale 2")
		assert.Equal(t, 400, hh, "200 DIPs at scale 2")
		assert.Equal(t, h.target.Bounds(), b)
	}
	h.fx.Deactivate()
	h.assertClean()
}

func TestEffectDeactivateMidPlay(t *testing.T) {
	h := newHarness(t, DefaultConfig(), &fakeCapturer{})
	h.activate()
	h.awaitCapture()
	for i := 0; i < 20; i++ {
		h.step()
	}
	require.Equal(t, StatePlaying, h.fx.State())
	assert.False(t, h.target.Visible())
	drawn := len(h.frames)

	h.fx.Deactivate()
	h.fx.Deactivate()
	for i := 0; i < 200; i++ {
		h.step()
	}

	assert.Len(t, h.frames, drawn, "no frames after deactivation")
	if diff := cmp.Diff([]State{StateCapturing, StatePlaying, StateClosed}, h.states); diff != "" {
		t.Errorf("state sequence (-want +got):\n%s", diff)
	}
	h.assertClean()
	assert.Equal(t, 1, h.logs.FilterMessage("burn cancelled").Len())
}

func TestEffectDeactivateWhileLingering(t *testing.T) {
	h := newHarness(t, DefaultConfig(), &fakeCapturer{})
	h.activate()
	h.awaitCapture()
	for h.fx.State() == StatePlaying {
		h.step()
	}
	require.Equal(t, StateLingering, h.fx.State())
	h.fx.Deactivate()
	for i := 0; i < 60; i++ {
		h.step()
	}
	h.assertClean()
}

func TestEffectCaptureFailure(t *testing.T) {
	h := newHarness(t, DefaultConfig(), &fakeCapturer{err: errors.New("boom")})
	h.activate()
	h.awaitCapture()

	assert.Empty(t, h.frames)
	if diff := cmp.Diff([]State{StateCapturing, StateClosed}, h.states); diff != "" {
		t.Errorf("state sequence (-want +got):\n%s", diff)
	}
	h.assertClean()

	entries := h.logs.FilterMessage("burn aborted").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Contains(t, entries[0].ContextMap()["error"], "capture: boom")
}

func TestEffectSetupFailure(t *testing.T) {
	h := newHarness(t, DefaultConfig(), &fakeCapturer{})
	h.dev.failProgram = true
	h.activate()
	h.awaitCapture()

	assert.Empty(t, h.frames)
	h.assertClean()
	entries := h.logs.FilterMessage("burn aborted").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "setup program")
}

func TestEffectAttachFailure(t *testing.T) {
	h := newHarness(t, DefaultConfig(), &fakeCapturer{})
	h.overlay.err = errors.New("no container")
	h.activate()
	h.awaitCapture()

	assert.Empty(t, h.frames)
	h.assertClean()
	assert.Equal(t, 0, h.overlay.detaches)
}

func TestEffectRenderFailure(t *testing.T) {
	h := newHarness(t, DefaultConfig(), &fakeCapturer{})
	h.dev.failDraw = true
	h.activate()
	h.awaitCapture()

	assert.Empty(t, h.frames)
	h.assertClean()
	assert.Equal(t, 1, h.logs.FilterMessage("burn aborted").Len())
}

func TestEffectDeactivateBeforeCaptureResolves(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	capturer := &fakeCapturer{block: true, started: make(chan struct{}, 1)}
	h := newHarness(t, DefaultConfig(), capturer)
	h.activate()
	<-capturer.started

	h.clock.Advance(100 * time.Millisecond)
	h.loop.Tick()
	require.Equal(t, StateCapturing, h.fx.State())

	h.fx.Deactivate()
	assert.Equal(t, 1, h.completions)

	// The cancelled capture still reports back; its result is dropped.
	h.awaitCapture()
	for i := 0; i < 10; i++ {
		h.step()
	}

	assert.Empty(t, h.frames)
	assert.Empty(t, h.dev.draws)
	assert.Equal(t, 1, capturer.Calls())
	h.assertClean()
}

func TestEffectZeroLinger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Linger = 0
	h := newHarness(t, cfg, &fakeCapturer{})
	h.activate()
	h.awaitCapture()
	h.runUntilComplete()

	last := h.frames[len(h.frames)-1]
	assert.Equal(t, 1.0, last.Progress)
	assert.Equal(t, epoch.Add(last.Elapsed), h.completedAt)
	h.assertClean()
}

func TestEffectBusy(t *testing.T) {
	h := newHarness(t, DefaultConfig(), &fakeCapturer{})
	h.activate()
	assert.ErrorIs(t, h.fx.Activate(h.target, nil), ErrBusy)
	h.awaitCapture()
	assert.ErrorIs(t, h.fx.Activate(h.target, nil), ErrBusy)
	h.fx.Deactivate()
	h.assertClean()
}

func TestEffectReactivateAfterClose(t *testing.T) {
	h := newHarness(t, DefaultConfig(), &fakeCapturer{})
	h.activate()
	h.awaitCapture()
	h.runUntilComplete()
	first := h.fx.PlaybackID()

	h.activate()
	h.awaitCapture()
	h.runUntilComplete()

	assert.NotEqual(t, first, h.fx.PlaybackID())
	assert.Equal(t, 2, h.completions)
	assert.Equal(t, 2, h.cap.Calls())
	assert.Equal(t, 0, h.dev.live)
}

func TestEffectSync(t *testing.T) {
	h := newHarness(t, DefaultConfig(), &fakeCapturer{})
	done := 0
	req := Request{Active: true, Target: h.target, OnComplete: func() { done++ }}

	require.NoError(t, h.fx.Sync(req))
	require.NoError(t, h.fx.Sync(req), "repeating an active request is a no-op")
	h.awaitCapture()
	h.step()
	assert.Equal(t, StatePlaying, h.fx.State())

	req.Active = false
	require.NoError(t, h.fx.Sync(req))
	require.NoError(t, h.fx.Sync(req))
	assert.Equal(t, 1, done)
	assert.Equal(t, StateClosed, h.fx.State())
	assert.True(t, h.target.Visible())
	assert.Equal(t, 1, h.cap.Calls())
}

func TestEffectSyncStaysClosedWhileActive(t *testing.T) {
	h := newHarness(t, DefaultConfig(), &fakeCapturer{})
	done := 0
	req := Request{Active: true, Target: h.target, OnComplete: func() { done++ }}
	require.NoError(t, h.fx.Sync(req))
	h.awaitCapture()
	for i := 0; i < 500 && done == 0; i++ {
		h.step()
		require.NoError(t, h.fx.Sync(req))
	}
	require.Equal(t, 1, done)
	// The caller has not lowered Active yet; the effect must not restart.
	require.NoError(t, h.fx.Sync(req))
	assert.Equal(t, StateClosed, h.fx.State())
	assert.Equal(t, 1, h.cap.Calls())
}

func TestEffectActivateNilTarget(t *testing.T) {
	h := newHarness(t, DefaultConfig(), &fakeCapturer{})
	assert.Error(t, h.fx.Activate(nil, nil))
	assert.Error(t, h.fx.Sync(Request{Active: true}))
	assert.Equal(t, StateIdle, h.fx.State())
	h.fx.Deactivate()
	assert.Equal(t, StateIdle, h.fx.State())
}

func TestNewEffectValidation(t *testing.T) {
	loop := NewLoop(nil)
	dev := &fakeDevice{}
	capturer := &fakeCapturer{}
	tests := []struct {
		name string
		opts Options
	}{
		{"no device", Options{Capturer: capturer, Scheduler: loop}},
		{"no capturer", Options{Device: dev, Scheduler: loop}},
		{"no scheduler", Options{Device: dev, Capturer: capturer}},
		{"negative duration", Options{Device: dev, Capturer: capturer, Scheduler: loop, Config: Config{Duration: -time.Second}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx, err := NewEffect(tt.opts)
			assert.Error(t, err)
			assert.Nil(t, fx)
		})
	}

	fx, err := NewEffect(Options{Device: dev, Capturer: capturer, Scheduler: loop})
	require.NoError(t, err)
	assert.Equal(t, DefaultDuration, fx.Config().Duration)
	assert.Equal(t, StateIdle, fx.State())
}

func TestEffectOnSoftDevice(t *testing.T) {
	// End to end on the CPU rasteriser with a small region.
	clock := NewManualClock(epoch)
	loop := NewLoop(clock)
	dev := NewSoftDevice(1)
	src := gradientBitmap(40, 30).Image()
	cfg := DefaultConfig()
	cfg.CaptureScale = 1

	var frames int
	fx, err := NewEffect(Options{
		Config:    cfg,
		Device:    dev,
		Capturer:  &ImageCapturer{Source: src},
		Scheduler: loop,
		OnFrame: func(f Frame) {
			frames++
			_, err := SurfaceImage(f.Surface)
			assert.NoError(t, err)
		},
	})
	require.NoError(t, err)

	done := false
	target := NewTarget(image.Rect(4, 4, 20, 16), nil)
	require.NoError(t, fx.Activate(target, func() { done = true }))
	select {
	case <-loop.Wake():
	case <-time.After(5 * time.Second):
		t.Fatal("capture never posted back")
	}
	for i := 0; i < 1000 && !done; i++ {
		loop.Tick()
		clock.Advance(100 * time.Millisecond)
	}
	require.True(t, done)
	assert.Equal(t, 0, dev.Live())
	assert.Equal(t, frames, dev.Draws())
	assert.True(t, target.Visible())
}
