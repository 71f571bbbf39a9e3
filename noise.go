package cinder

import "math"

// Noise kernel. These are the CPU twins of the hash/valueNoise/fractalNoise
// functions in burnShaderSrc and must stay numerically identical to them.

const fractalOctaves = 5

// Hash returns a pseudo-random value in [0, 1) for the point (x, y). It has
// no state: the same input always yields the same output.
func Hash(x, y float64) float64 {
	return fract(math.Sin(x*127.1+y*311.7) * 43758.5453)
}

// ValueNoise bilinearly interpolates Hash at the four lattice points around
// (x, y). The fractional part is eased with 3t²−2t³ on both axes, which hides
// the lattice. The result lies in [0, 1].
func ValueNoise(x, y float64) float64 {
	ix, iy := math.Floor(x), math.Floor(y)
	fx, fy := x-ix, y-iy
	fx = fx * fx * (3 - 2*fx)
	fy = fy * fy * (3 - 2*fy)

	a := Hash(ix, iy)
	b := Hash(ix+1, iy)
	c := Hash(ix, iy+1)
	d := Hash(ix+1, iy+1)
	return mix(mix(a, b, fx), mix(c, d, fx), fy)
}

// FractalNoise sums five octaves of ValueNoise, doubling the frequency and
// halving the amplitude (starting at 0.5) each octave. The result lies in
// [0, 0.96875].
func FractalNoise(x, y float64) float64 {
	v := 0.0
	amp := 0.5
	for i := 0; i < fractalOctaves; i++ {
		v += amp * ValueNoise(x, y)
		x *= 2
		y *= 2
		amp *= 0.5
	}
	return v
}

// fract returns the GLSL-style fractional part x - floor(x), always in [0, 1).
func fract(x float64) float64 {
	f := x - math.Floor(x)
	if f >= 1 {
		// x - floor(x) rounds up to 1 for tiny negative x.
		return 0
	}
	return f
}

func mix(a, b, t float64) float64 {
	return a + (b-a)*t
}

// smoothstep is GLSL smoothstep. Reversed edges (e0 > e1) give the mirrored
// curve, which the ash fade relies on.
func smoothstep(e0, e1, x float64) float64 {
	t := clamp01((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}
