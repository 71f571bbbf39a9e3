package cinder

import (
	"image"
	"image/draw"
	"math"
)

// Bitmap is an immutable snapshot of a captured region: straight-alpha RGBA
// pixels, row-major from the top-left. Construct with NewBitmap; the pixel
// buffer is never modified afterwards.
type Bitmap struct {
	pix  []byte
	w, h int
}

// NewBitmap copies img into a new Bitmap. The copy is taken so later changes
// to img do not leak into a playback.
func NewBitmap(img image.Image) *Bitmap {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Bitmap{pix: dst.Pix, w: b.Dx(), h: b.Dy()}
}

// bitmapFromNRGBA adopts pix without copying. Callers must not retain pix.
func bitmapFromNRGBA(pix []byte, w, h int) *Bitmap {
	return &Bitmap{pix: pix, w: w, h: h}
}

// Width returns the width in pixels.
func (b *Bitmap) Width() int { return b.w }

// Height returns the height in pixels.
func (b *Bitmap) Height() int { return b.h }

// Empty reports whether the bitmap has no pixels.
func (b *Bitmap) Empty() bool { return b == nil || b.w <= 0 || b.h <= 0 }

// Image returns a copy of the pixels as an *image.NRGBA.
func (b *Bitmap) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.w, b.h))
	copy(img.Pix, b.pix)
	return img
}

// premultipliedPix returns the pixels premultiplied by alpha, the layout
// Ebitengine's WritePixels expects.
func (b *Bitmap) premultipliedPix() []byte {
	out := make([]byte, len(b.pix))
	for i := 0; i < len(b.pix); i += 4 {
		a := uint32(b.pix[i+3])
		out[i] = byte((uint32(b.pix[i])*a + 127) / 255)
		out[i+1] = byte((uint32(b.pix[i+1])*a + 127) / 255)
		out[i+2] = byte((uint32(b.pix[i+2])*a + 127) / 255)
		out[i+3] = byte(a)
	}
	return out
}

// texel returns the pixel at (x, y), clamped to the bitmap edge.
func (b *Bitmap) texel(x, y int) Color {
	x = min(max(x, 0), b.w-1)
	y = min(max(y, 0), b.h-1)
	i := (y*b.w + x) * 4
	return Color{
		R: float64(b.pix[i]) / 255,
		G: float64(b.pix[i+1]) / 255,
		B: float64(b.pix[i+2]) / 255,
		A: float64(b.pix[i+3]) / 255,
	}
}

// Sample bilinearly filters the bitmap at (u, v) with v = 0 at the bottom
// row, matching texture coordinates in the shading program. Coordinates
// outside [0, 1] clamp to the edge.
func (b *Bitmap) Sample(u, v float64) Color {
	if b.Empty() {
		return Color{}
	}
	px := clampf(u, 0, 1)*float64(b.w) - 0.5
	py := (1-clampf(v, 0, 1))*float64(b.h) - 0.5
	x0, y0 := math.Floor(px), math.Floor(py)
	fx, fy := px-x0, py-y0
	ix, iy := int(x0), int(y0)

	top := mixColor(b.texel(ix, iy), b.texel(ix+1, iy), fx)
	bottom := mixColor(b.texel(ix, iy+1), b.texel(ix+1, iy+1), fx)
	return mixColor(top, bottom, fy)
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
