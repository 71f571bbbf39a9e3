package cinder

import (
	"testing"
	"time"

	"github.com/tanema/gween/ease"
)

func TestTimelineProgressMonotonic(t *testing.T) {
	tl := NewTimeline(epoch, DefaultDuration, DefaultLinger, nil)
	prev := -1.0
	for ms := 0; ms <= 3000; ms += 7 {
		p := tl.Progress(epoch.Add(time.Duration(ms) * time.Millisecond))
		if p < prev {
			t.Fatalf("progress went backwards at %dms: %v < %v", ms, p, prev)
		}
		if p < 0 || p > 1 {
			t.Fatalf("progress %v at %dms out of [0,1]", p, ms)
		}
		prev = p
	}
}

func TestTimelineExactlyOneAtDuration(t *testing.T) {
	tl := NewTimeline(epoch, DefaultDuration, DefaultLinger, nil)
	if p := tl.Progress(epoch.Add(DefaultDuration - time.Nanosecond)); p >= 1 {
		t.Errorf("progress just before the end = %v, want < 1", p)
	}
	if p := tl.Progress(epoch.Add(2199999912 * time.Nanosecond)); p >= 1 {
		t.Errorf("progress 88ns before the end = %v, want < 1", p)
	}
	for _, d := range []time.Duration{DefaultDuration, DefaultDuration + time.Millisecond, time.Hour} {
		if p := tl.Progress(epoch.Add(d)); p != 1 {
			t.Errorf("progress at %v = %v, want exactly 1", d, p)
		}
	}
}

func TestTimelineLinear(t *testing.T) {
	tl := NewTimeline(epoch, DefaultDuration, DefaultLinger, nil)
	tests := []struct {
		at   time.Duration
		want float64
	}{
		{-time.Second, 0},
		{0, 0},
		{550 * time.Millisecond, 0.25},
		{1100 * time.Millisecond, 0.5},
		{1650 * time.Millisecond, 0.75},
	}
	for _, tt := range tests {
		if got := tl.Progress(epoch.Add(tt.at)); !approxEqual(got, tt.want, 1e-6) {
			t.Errorf("Progress(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestTimelineEasing(t *testing.T) {
	tl := NewTimeline(epoch, DefaultDuration, DefaultLinger, ease.InQuad)
	if got := tl.Progress(epoch.Add(1100 * time.Millisecond)); !approxEqual(got, 0.25, 1e-6) {
		t.Errorf("InQuad midpoint = %v, want 0.25", got)
	}
}

func TestTimelineTerminal(t *testing.T) {
	tl := NewTimeline(epoch, DefaultDuration, DefaultLinger, nil)
	tests := []struct {
		at               time.Duration
		burned, terminal bool
	}{
		{0, false, false},
		{2199 * time.Millisecond, false, false},
		{2200 * time.Millisecond, true, false},
		{2599 * time.Millisecond, true, false},
		{2600 * time.Millisecond, true, true},
	}
	for _, tt := range tests {
		now := epoch.Add(tt.at)
		if got := tl.Burned(now); got != tt.burned {
			t.Errorf("Burned(%v) = %v, want %v", tt.at, got, tt.burned)
		}
		if got := tl.Terminal(now); got != tt.terminal {
			t.Errorf("Terminal(%v) = %v, want %v", tt.at, got, tt.terminal)
		}
	}
}

func TestTimelineElapsedNeverNegative(t *testing.T) {
	tl := NewTimeline(epoch, DefaultDuration, DefaultLinger, nil)
	if e := tl.Elapsed(epoch.Add(-time.Minute)); e != 0 {
		t.Errorf("Elapsed before start = %v, want 0", e)
	}
}
