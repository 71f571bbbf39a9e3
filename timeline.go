package cinder

import (
	"math"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Timeline maps wall-clock time to burn progress for one playback. Progress
// runs 0→1 over Duration through a gween tween (linear unless another easing
// is given), then holds at exactly 1. The playback is terminal once Linger
// has also passed.
type Timeline struct {
	Start    time.Time
	Duration time.Duration
	Linger   time.Duration

	tween *gween.Tween
}

// NewTimeline starts a timeline at start. A nil easing means ease.Linear.
func NewTimeline(start time.Time, duration, linger time.Duration, easing ease.TweenFunc) *Timeline {
	if easing == nil {
		easing = ease.Linear
	}
	return &Timeline{
		Start:    start,
		Duration: duration,
		Linger:   linger,
		tween:    gween.New(0, 1, float32(duration.Seconds()), easing),
	}
}

// Elapsed returns the time since Start, never negative.
func (tl *Timeline) Elapsed(now time.Time) time.Duration {
	if e := now.Sub(tl.Start); e > 0 {
		return e
	}
	return 0
}

// Progress returns the burn progress at now, clamped to [0, 1]. It is exactly
// 1 once Duration has elapsed.
func (tl *Timeline) Progress(now time.Time) float64 {
	e := tl.Elapsed(now)
	if e >= tl.Duration {
		return 1
	}
	// The tween runs in float32 and can reach its end a few nanoseconds
	// early; exactly 1 is kept for e >= Duration.
	v, _ := tl.tween.Set(float32(e.Seconds()))
	return math.Min(clamp01(float64(v)), math.Nextafter(1, 0))
}

// Burned reports whether the front has reached the top.
func (tl *Timeline) Burned(now time.Time) bool {
	return tl.Elapsed(now) >= tl.Duration
}

// Terminal reports whether both the burn and the linger are over.
func (tl *Timeline) Terminal(now time.Time) bool {
	return tl.Elapsed(now) >= tl.Duration+tl.Linger
}
