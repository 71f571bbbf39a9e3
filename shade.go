package cinder

import "math"

// Combustion shading constants, shared with burnShaderSrc. The band edges are
// distances from the burn front in UV units and are paced against
// DefaultDuration; changing one without the other changes how the fire reads.
const (
	frontNoiseScale = 14.0 // horizontal frequency of the front's wobble
	frontNoiseSpeed = 1.8
	frontNoiseAmp   = 0.07

	ashEdge    = -0.04 // d below this is consumed
	flameEdge  = 0.13  // d below this (and above ashEdge) is on fire
	heatEdge   = 0.26  // d below this (and above flameEdge) shimmers
	ashFadeFar = -0.35 // ash has fully cooled into the background here
	bandBlend  = 0.015 // half-width of the cross-fade around each edge

	emberThreshold = 0.68
	emberReach     = 0.05 // embers only appear below this d
	glowCenter     = -0.01
	glowFalloff    = 28.0
	glowStrength   = 0.45
)

// Fire ramp stops: near-black, deep red, orange, pale yellow.
var fireStops = [4]Color{
	{0.07, 0.02, 0.0, 1},
	{0.85, 0.15, 0.0, 1},
	{1.0, 0.45, 0.05, 1},
	{1.0, 0.92, 0.3, 1},
}

// Band identifies which shading rule a pixel falls under.
type Band uint8

const (
	BandAsh   Band = iota // already consumed
	BandFlame             // active flame
	BandHeat              // pre-heat haze ahead of the flame
	BandClear             // untouched source
)

// BandAt classifies a signed distance d from the burn front.
func BandAt(d float64) Band {
	switch {
	case d < ashEdge:
		return BandAsh
	case d < flameEdge:
		return BandFlame
	case d < heatEdge:
		return BandHeat
	default:
		return BandClear
	}
}

// Sampler looks up the captured image. u runs left to right and v bottom to
// top, both in [0, 1]; coordinates outside are clamped to the edge.
type Sampler interface {
	Sample(u, v float64) Color
}

// FrontEdge returns the burn front's height at column u.
func FrontEdge(u, elapsed, progress float64) float64 {
	return progress + FractalNoise(u*frontNoiseScale, elapsed*frontNoiseSpeed)*frontNoiseAmp
}

// Shade computes the final color of the pixel at (u, v) after elapsed seconds
// with the front at progress. bg is the tone the ash fades to. The result is
// opaque with every channel in [0, 1].
func Shade(src Sampler, u, v, elapsed, progress float64, bg Color) Color {
	d := v - FrontEdge(u, elapsed, progress)

	var c Color
	switch {
	case d < ashEdge-bandBlend:
		c = ashColor(u, v, d, elapsed, bg)
	case d < ashEdge+bandBlend:
		c = mixColor(ashColor(u, v, d, elapsed, bg), flameColor(src, u, v, d, elapsed),
			smoothstep(ashEdge-bandBlend, ashEdge+bandBlend, d))
	case d < flameEdge-bandBlend:
		c = flameColor(src, u, v, d, elapsed)
	case d < flameEdge+bandBlend:
		c = mixColor(flameColor(src, u, v, d, elapsed), heatColor(src, u, v, d, elapsed),
			smoothstep(flameEdge-bandBlend, flameEdge+bandBlend, d))
	case d < heatEdge-bandBlend:
		c = heatColor(src, u, v, d, elapsed)
	case d < heatEdge+bandBlend:
		c = mixColor(heatColor(src, u, v, d, elapsed), src.Sample(u, v),
			smoothstep(heatEdge-bandBlend, heatEdge+bandBlend, d))
	default:
		c = src.Sample(u, v)
	}
	return Color{clamp01(c.R), clamp01(c.G), clamp01(c.B), 1}
}

// ashColor is nearly black charcoal with faint red turbulence, cooling into
// bg as the front moves away.
func ashColor(u, v, d, t float64, bg Color) Color {
	char := FractalNoise(u*28+t*0.4, v*28+t*0.4) * 0.1
	ash := Color{0.025 + char, 0.01, 0, 1}
	fade := smoothstep(ashEdge, ashFadeFar, d)
	return mixColor(ash, bg, fade)
}

// flameColor renders the active band: flickering distortion of the source,
// noise-driven intensity, embers, the fire ramp over a scorched copy, and a
// glow peaking at the front.
func flameColor(src Sampler, u, v, d, t float64) Color {
	// Flicker: scroll turbulence upward and sideways through the flame.
	fu := u + FractalNoise(v*7-t*2.5, t*0.8)*0.04
	fv := v - t*0.4

	proximity := 1 - smoothstep(ashEdge, flameEdge, d)
	intensity := proximity * FractalNoise(fu*9, fv*22)

	ember := FractalNoise(u*38-t*1.8, v*38-t*1.8)
	if ember > emberThreshold && d < emberReach {
		intensity = math.Max(intensity, 0.95)
	}
	fire := fireRamp(intensity)

	orig := src.Sample(u+(fu-u)*proximity, v)
	cFade := smoothstep(ashEdge, 0.06, d)
	tint := mixColor(Color{0.7, 0.35, 0.2, 1}, Color{1, 1, 1, 1}, cFade)
	k := 0.25 + cFade*0.75
	scorched := Color{orig.R * tint.R * k, orig.G * tint.G * k, orig.B * tint.B * k, 1}
	c := mixColor(scorched, fire, intensity*0.85)

	glow := math.Exp(-math.Abs(d-glowCenter)*glowFalloff) * glowStrength
	c.R += 1.0 * glow
	c.G += 0.55 * glow
	c.B += 0.15 * glow
	return c
}

// heatColor displaces the source by turbulence and warms it, both scaled by
// how close the flame is.
func heatColor(src Sampler, u, v, d, t float64) Color {
	heat := clamp01((heatEdge - d) / heatEdge)
	warp := FractalNoise(u*7, v*7-t*1.8) * heat * 0.025
	w := src.Sample(u+warp, v+warp*0.5)
	warm := Color{w.R, w.G * 0.88, w.B * 0.65, w.A}
	return mixColor(w, warm, heat*0.25)
}

// fireRamp maps intensity through four stops at 0, 0.33, 0.66 and 1.
func fireRamp(t float64) Color {
	t = clamp01(t)
	switch {
	case t < 0.33:
		return mixColor(fireStops[0], fireStops[1], t/0.33)
	case t < 0.66:
		return mixColor(fireStops[1], fireStops[2], (t-0.33)/0.33)
	default:
		return mixColor(fireStops[2], fireStops[3], (t-0.66)/0.34)
	}
}

func mixColor(a, b Color, t float64) Color {
	return Color{
		R: mix(a.R, b.R, t),
		G: mix(a.G, b.G, t),
		B: mix(a.B, b.B, t),
		A: mix(a.A, b.A, t),
	}
}
