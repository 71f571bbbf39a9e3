package cinder

import (
	"sync"
	"time"
)

// FrameHandle identifies a scheduled callback. The zero handle is never
// issued, so it can stand for "nothing scheduled".
type FrameHandle uint64

// Scheduler is the cooperative frame clock the Timeline Driver runs on.
// RequestFrame, AfterFunc and Cancel must be called from the render
// goroutine; Post may be called from anywhere.
type Scheduler interface {
	Now() time.Time
	// RequestFrame runs fn on the next tick (the next display refresh).
	RequestFrame(fn func(now time.Time)) FrameHandle
	// AfterFunc runs fn on the first tick at or after now+d.
	AfterFunc(d time.Duration, fn func(now time.Time)) FrameHandle
	// Cancel drops a scheduled callback. Unknown or spent handles are ignored.
	Cancel(h FrameHandle)
	// Post queues fn to run at the start of the next tick.
	Post(fn func())
}

type scheduled struct {
	id  FrameHandle
	due time.Time // zero for frame requests
	fn  func(now time.Time)
}

// Loop is a single-threaded Scheduler driven by Tick. Call Tick once per
// display refresh, typically from ebiten.Game.Update; every callback runs
// inside Tick on the caller's goroutine.
type Loop struct {
	clock Clock

	mu     sync.Mutex
	posted []func()
	wake   chan struct{}

	nextID FrameHandle
	frames []scheduled
	timers []scheduled
	runBuf []scheduled
}

// NewLoop creates a loop reading time from clock (SystemClock if nil).
func NewLoop(clock Clock) *Loop {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Loop{clock: clock, wake: make(chan struct{}, 1)}
}

// Now returns the loop clock's time.
func (l *Loop) Now() time.Time { return l.clock.Now() }

// RequestFrame schedules fn for the next Tick. A frame requested from inside
// a frame callback runs on the following Tick, never the current one.
func (l *Loop) RequestFrame(fn func(now time.Time)) FrameHandle {
	l.nextID++
	l.frames = append(l.frames, scheduled{id: l.nextID, fn: fn})
	return l.nextID
}

// AfterFunc schedules fn for the first Tick at or after Now()+d.
func (l *Loop) AfterFunc(d time.Duration, fn func(now time.Time)) FrameHandle {
	l.nextID++
	l.timers = append(l.timers, scheduled{id: l.nextID, due: l.clock.Now().Add(d), fn: fn})
	return l.nextID
}

// Cancel removes a pending frame or timer.
func (l *Loop) Cancel(h FrameHandle) {
	if h == 0 {
		return
	}
	l.frames = removeScheduled(l.frames, h)
	l.timers = removeScheduled(l.timers, h)
	for i := range l.runBuf {
		if l.runBuf[i].id == h {
			l.runBuf[i].fn = nil
		}
	}
}

func removeScheduled(list []scheduled, h FrameHandle) []scheduled {
	for i := range list {
		if list[i].id == h {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Post queues fn for the next Tick. Safe from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wake is signalled whenever Post queues work. Offline drivers that do not
// tick at a fixed rate can block on it.
func (l *Loop) Wake() <-chan struct{} { return l.wake }

// Pending reports the number of scheduled frames and timers.
func (l *Loop) Pending() int { return len(l.frames) + len(l.timers) }

// Tick runs posted functions, then the frames requested before this tick
// started, then due timers. A callback cancelled by an earlier callback in the same
// tick does not run. Tick returns how many callbacks ran.
func (l *Loop) Tick() int {
	ran := 0
	now := l.clock.Now()

	// Frames requested by posted functions wait for the next Tick.
	l.runBuf = append(l.runBuf[:0], l.frames...)
	l.frames = l.frames[:0]

	l.mu.Lock()
	posted := l.posted
	l.posted = nil
	l.mu.Unlock()
	for _, fn := range posted {
		fn()
		ran++
	}

	for i := range l.runBuf {
		fn := l.runBuf[i].fn
		if fn == nil {
			continue
		}
		l.runBuf[i].fn = nil
		fn(now)
		ran++
	}
	l.runBuf = l.runBuf[:0]

	// Timers are re-checked after each callback since one may cancel another.
	for {
		idx := -1
		for i := range l.timers {
			if !l.timers[i].due.After(now) {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		s := l.timers[idx]
		l.timers = append(l.timers[:idx], l.timers[idx+1:]...)
		s.fn(now)
		ran++
	}
	return ran
}

// Update ticks the loop. It matches the ebiten.Game Update signature so a
// host can forward to it directly.
func (l *Loop) Update() error {
	l.Tick()
	return nil
}
