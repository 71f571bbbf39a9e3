package cinder

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/tanema/gween/ease"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// BackgroundColor is the tone burned-out areas cool towards (#1D1616). It is
// also the fill behind the captured content and the overlay backdrop.
var BackgroundColor = Color{R: 0.114, G: 0.086, B: 0.086, A: 1}

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA" (the leading '#' is optional).
func ParseHexColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 && len(h) != 8 {
		return Color{}, fmt.Errorf("parse color %q: want 6 or 8 hex digits", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	if len(h) == 6 {
		v = v<<8 | 0xff
	}
	return Color{
		R: float64(v>>24&0xff) / 255,
		G: float64(v>>16&0xff) / 255,
		B: float64(v>>8&0xff) / 255,
		A: float64(v&0xff) / 255,
	}, nil
}

// NRGBA converts c to a straight-alpha 8-bit color, clamping each channel.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{
		R: uint8(clamp01(c.R)*255 + 0.5),
		G: uint8(clamp01(c.G)*255 + 0.5),
		B: uint8(clamp01(c.B)*255 + 0.5),
		A: uint8(clamp01(c.A)*255 + 0.5),
	}
}

// premultiplied converts c to a premultiplied 8-bit color for image.Fill.
func (c Color) premultiplied() color.RGBA {
	a := clamp01(c.A)
	return color.RGBA{
		R: uint8(clamp01(c.R)*a*255 + 0.5),
		G: uint8(clamp01(c.G)*a*255 + 0.5),
		B: uint8(clamp01(c.B)*a*255 + 0.5),
		A: uint8(a*255 + 0.5),
	}
}

// clamp01 clamps v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Playback timing and capture defaults.
const (
	DefaultDuration     = 2200 * time.Millisecond
	DefaultLinger       = 400 * time.Millisecond
	DefaultCaptureScale = 2.0
)

// Config controls one playback. Zero fields other than Linger take their
// DefaultConfig values; a zero Linger tears down right after the last frame.
type Config struct {
	// Duration is the wall-clock time for the burn front to cross the region.
	Duration time.Duration
	// Linger holds the fully burned frame on screen before teardown.
	Linger time.Duration
	// CaptureScale is the supersampling factor applied when capturing.
	CaptureScale float64
	// Background is the tone behind captured content and under the ash.
	Background Color
	// Easing maps elapsed time to burn progress. Nil means ease.Linear.
	// Non-monotonic easings make the front move backwards.
	Easing ease.TweenFunc
}

// DefaultConfig returns the standard 2.2s burn with a 0.4s linger.
func DefaultConfig() Config {
	return Config{
		Duration:     DefaultDuration,
		Linger:       DefaultLinger,
		CaptureScale: DefaultCaptureScale,
		Background:   BackgroundColor,
		Easing:       ease.Linear,
	}
}

// validate fills unset fields with defaults and rejects negative durations.
func (c Config) validate() (Config, error) {
	d := DefaultConfig()
	if c.Duration < 0 || c.Linger < 0 {
		return c, fmt.Errorf("cinder: negative duration (%v) or linger (%v)", c.Duration, c.Linger)
	}
	if c.Duration == 0 {
		c.Duration = d.Duration
	}
	if c.CaptureScale <= 0 {
		c.CaptureScale = d.CaptureScale
	}
	if c.Background == (Color{}) {
		c.Background = d.Background
	}
	if c.Easing == nil {
		c.Easing = d.Easing
	}
	return c, nil
}

// State is a Timeline Driver state.
type State uint8

const (
	StateIdle      State = iota // not yet activated
	StateCapturing              // waiting for the capture to resolve
	StatePlaying                // rendering one frame per display refresh
	StateLingering              // holding the final frame
	StateClosed                 // resources released, completion delivered
)

var stateNames = [...]string{"idle", "capturing", "playing", "lingering", "closed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}
