package cinder

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// burnShaderSrc is the combustion shading program. It mirrors Shade, Hash,
// ValueNoise and FractalNoise; the constants must match shade.go.
//
// Texture coordinates arrive in source pixels (//kage:unit pixels) and are
// normalised with v = 0 at the bottom. Source sampling is bilinear and
// clamped to the edge, since imageSrc0At is nearest-neighbour.
const burnShaderSrc = `//kage:unit pixels
package main

const FrontNoiseScale = 14.0
const FrontNoiseSpeed = 1.8
const FrontNoiseAmp = 0.07
const AshEdge = -0.04
const FlameEdge = 0.13
const HeatEdge = 0.26
const AshFadeFar = -0.35
const BandBlend = 0.015
const EmberThreshold = 0.68
const EmberReach = 0.05
const GlowCenter = -0.01
const GlowFalloff = 28.0
const GlowStrength = 0.45

var Time float
var Progress float
var Background vec3

func hash(p vec2) float {
	return fract(sin(dot(p, vec2(127.1, 311.7))) * 43758.5453)
}

func valueNoise(p vec2) float {
	i := floor(p)
	f := p - i
	f = f * f * (3.0 - 2.0*f)
	a := hash(i)
	b := hash(i + vec2(1, 0))
	c := hash(i + vec2(0, 1))
	d := hash(i + vec2(1, 1))
	return mix(mix(a, b, f.x), mix(c, d, f.x), f.y)
}

func fractalNoise(p vec2) float {
	v := 0.0
	amp := 0.5
	q := p
	for i := 0; i < 5; i++ {
		v += amp * valueNoise(q)
		q *= 2.0
		amp *= 0.5
	}
	return v
}

func sampleSource(uv vec2) vec3 {
	size := imageSrc0Size()
	origin := imageSrc0Origin()
	p := clamp(vec2(uv.x, 1.0-uv.y), vec2(0), vec2(1))*size - 0.5
	p = clamp(p, vec2(0), size-1.0)
	i := floor(p)
	f := p - i
	j := min(i+1.0, size-1.0)
	a := imageSrc0UnsafeAt(origin + i + 0.5)
	b := imageSrc0UnsafeAt(origin + vec2(j.x, i.y) + 0.5)
	c := imageSrc0UnsafeAt(origin + vec2(i.x, j.y) + 0.5)
	d := imageSrc0UnsafeAt(origin + j + 0.5)
	s := mix(mix(a, b, f.x), mix(c, d, f.x), f.y)
	if s.a > 0 {
		return s.rgb / s.a
	}
	return s.rgb
}

func fireRamp(t float) vec3 {
	c1 := vec3(0.07, 0.02, 0.0)
	c2 := vec3(0.85, 0.15, 0.0)
	c3 := vec3(1.0, 0.45, 0.05)
	c4 := vec3(1.0, 0.92, 0.3)
	x := clamp(t, 0, 1)
	if x < 0.33 {
		return mix(c1, c2, x/0.33)
	}
	if x < 0.66 {
		return mix(c2, c3, (x-0.33)/0.33)
	}
	return mix(c3, c4, (x-0.66)/0.34)
}

func ashColor(uv vec2, d float) vec3 {
	charred := fractalNoise(uv*28.0+Time*0.4) * 0.1
	ash := vec3(0.025+charred, 0.01, 0.0)
	fade := 1.0 - smoothstep(AshFadeFar, AshEdge, d)
	return mix(ash, Background, fade)
}

func flameColor(uv vec2, d float) vec3 {
	fuv := vec2(
		uv.x+fractalNoise(vec2(uv.y*7.0-Time*2.5, Time*0.8))*0.04,
		uv.y-Time*0.4,
	)
	proximity := 1.0 - smoothstep(AshEdge, FlameEdge, d)
	intensity := proximity * fractalNoise(fuv*vec2(9.0, 22.0))

	ember := fractalNoise(uv*38.0 - Time*1.8)
	if ember > EmberThreshold && d < EmberReach {
		intensity = max(intensity, 0.95)
	}
	fire := fireRamp(intensity)

	orig := sampleSource(vec2(uv.x+(fuv.x-uv.x)*proximity, uv.y))
	cFade := smoothstep(AshEdge, 0.06, d)
	scorched := orig * mix(vec3(0.7, 0.35, 0.2), vec3(1.0), cFade) * (0.25 + cFade*0.75)
	c := mix(scorched, fire, intensity*0.85)

	glow := exp(-abs(d-GlowCenter)*GlowFalloff) * GlowStrength
	return c + vec3(1.0, 0.55, 0.15)*glow
}

func heatColor(uv vec2, d float) vec3 {
	heat := clamp((HeatEdge-d)/HeatEdge, 0, 1)
	warp := fractalNoise(vec2(uv.x*7.0, uv.y*7.0-Time*1.8)) * heat * 0.025
	w := sampleSource(vec2(uv.x+warp, uv.y+warp*0.5))
	return mix(w, w*vec3(1.0, 0.88, 0.65), heat*0.25)
}

func Fragment(dstPos vec4, srcPos vec2, color vec4) vec4 {
	st := (srcPos - imageSrc0Origin()) / imageSrc0Size()
	uv := vec2(st.x, 1.0-st.y)

	edge := Progress + fractalNoise(vec2(uv.x*FrontNoiseScale, Time*FrontNoiseSpeed))*FrontNoiseAmp
	d := uv.y - edge

	var c vec3
	if d < AshEdge-BandBlend {
		c = ashColor(uv, d)
	} else if d < AshEdge+BandBlend {
		c = mix(ashColor(uv, d), flameColor(uv, d), smoothstep(AshEdge-BandBlend, AshEdge+BandBlend, d))
	} else if d < FlameEdge-BandBlend {
		c = flameColor(uv, d)
	} else if d < FlameEdge+BandBlend {
		c = mix(flameColor(uv, d), heatColor(uv, d), smoothstep(FlameEdge-BandBlend, FlameEdge+BandBlend, d))
	} else if d < HeatEdge-BandBlend {
		c = heatColor(uv, d)
	} else if d < HeatEdge+BandBlend {
		c = mix(heatColor(uv, d), sampleSource(uv), smoothstep(HeatEdge-BandBlend, HeatEdge+BandBlend, d))
	} else {
		c = sampleSource(uv)
	}
	return vec4(clamp(c, vec3(0), vec3(1)), 1)
}
`

// compileBurnShader compiles burnShaderSrc. Each session compiles its own
// program and deallocates it on close.
func compileBurnShader() (*ebiten.Shader, error) {
	s, err := ebiten.NewShader([]byte(burnShaderSrc))
	if err != nil {
		return nil, fmt.Errorf("compile burn shader: %w", err)
	}
	return s, nil
}
