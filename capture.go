package cinder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	xdraw "golang.org/x/image/draw"
)

// CaptureOptions controls how a region is snapshotted.
type CaptureOptions struct {
	// Background fills pixels the region's content leaves transparent.
	Background Color
	// Scale is the supersampling factor; the bitmap is Bounds() * Scale.
	Scale float64
}

// Capturer snapshots a region into a Bitmap. Capture is called on its own
// goroutine and may block until the host has rendered the region. It must
// return promptly once ctx is cancelled. Failures are *CaptureError.
type Capturer interface {
	Capture(ctx context.Context, r Region, opts CaptureOptions) (*Bitmap, error)
}

// scaledSize returns the bitmap size for bounds b at the given scale.
func scaledSize(b image.Rectangle, scale float64) (w, h int) {
	if scale <= 0 {
		scale = DefaultCaptureScale
	}
	return int(math.Round(float64(b.Dx()) * scale)), int(math.Round(float64(b.Dy()) * scale))
}

// --- ImageCapturer ---

// ImageCapturer captures regions out of a still image whose pixels are in
// the same layout coordinates as the regions. The crop is resampled with
// Catmull-Rom, so a Scale of 2 yields a smooth, twice-as-dense bitmap.
type ImageCapturer struct {
	Source image.Image
}

// Capture crops r from Source over the background and rescales it.
func (c *ImageCapturer) Capture(ctx context.Context, r Region, opts CaptureOptions) (*Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CaptureError{Err: err}
	}
	if c.Source == nil {
		return nil, &CaptureError{Err: errors.New("no source image")}
	}
	b := r.Bounds()
	if b.Empty() {
		return nil, &CaptureError{Err: ErrEmptyRegion}
	}
	w, h := scaledSize(b, opts.Scale)
	if w <= 0 || h <= 0 {
		return nil, &CaptureError{Err: ErrEmptyRegion}
	}
	sub := b.Intersect(c.Source.Bounds())
	if sub.Empty() {
		return nil, &CaptureError{Err: fmt.Errorf("region %v lies outside source %v", b, c.Source.Bounds())}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(opts.Background.NRGBA()), image.Point{}, xdraw.Src)

	sx := float64(w) / float64(b.Dx())
	sy := float64(h) / float64(b.Dy())
	dr := image.Rect(
		int(math.Round(float64(sub.Min.X-b.Min.X)*sx)),
		int(math.Round(float64(sub.Min.Y-b.Min.Y)*sy)),
		int(math.Round(float64(sub.Max.X-b.Min.X)*sx)),
		int(math.Round(float64(sub.Max.Y-b.Min.Y)*sy)),
	)
	xdraw.CatmullRom.Scale(dst, dr, c.Source, sub, xdraw.Over, nil)
	return bitmapFromNRGBA(dst.Pix, w, h), nil
}

// --- ScreenCapturer ---

// Poster runs fn on the render goroutine. *Loop implements it.
type Poster interface {
	Post(fn func())
}

// ScreenCapturer repaints Painter regions into an offscreen Ebitengine image
// on the render goroutine and reads the pixels back. Capture blocks until the
// next Loop.Tick has run the job.
type ScreenCapturer struct {
	Loop Poster
}

type captureResult struct {
	bmp *Bitmap
	err error
}

// Capture schedules the repaint and waits for it or for ctx.
func (c *ScreenCapturer) Capture(ctx context.Context, r Region, opts CaptureOptions) (*Bitmap, error) {
	p, ok := r.(Painter)
	if !ok {
		return nil, &CaptureError{Err: fmt.Errorf("region %T does not implement Painter", r)}
	}
	b := r.Bounds()
	if b.Empty() {
		return nil, &CaptureError{Err: ErrEmptyRegion}
	}
	w, h := scaledSize(b, opts.Scale)
	if w <= 0 || h <= 0 {
		return nil, &CaptureError{Err: ErrEmptyRegion}
	}

	done := make(chan captureResult, 1)
	c.Loop.Post(func() {
		if err := ctx.Err(); err != nil {
			done <- captureResult{err: err}
			return
		}
		bmp, err := paintRegion(p, b, w, h, opts.Background)
		done <- captureResult{bmp: bmp, err: err}
	})

	select {
	case res := <-done:
		if res.err != nil {
			return nil, &CaptureError{Err: res.err}
		}
		return res.bmp, nil
	case <-ctx.Done():
		return nil, &CaptureError{Err: ctx.Err()}
	}
}

// paintRegion renders p into a w×h image and reads it back. A panic inside
// Paint is reported as an error.
func paintRegion(p Painter, b image.Rectangle, w, h int, bg Color) (bmp *Bitmap, err error) {
	img := ebiten.NewImage(w, h)
	defer img.Deallocate()
	defer func() {
		if r := recover(); r != nil {
			bmp, err = nil, fmt.Errorf("paint: %v", r)
		}
	}()

	img.Fill(bg.premultiplied())
	var geo ebiten.GeoM
	geo.Translate(-float64(b.Min.X), -float64(b.Min.Y))
	geo.Scale(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	p.Paint(img, geo)

	pix := make([]byte, 4*w*h)
	img.ReadPixels(pix)
	unpremultiply(pix)
	return bitmapFromNRGBA(pix, w, h), nil
}

// unpremultiply converts premultiplied RGBA bytes to straight alpha in place.
func unpremultiply(pix []byte) {
	for i := 0; i < len(pix); i += 4 {
		a := int(pix[i+3])
		if a == 0 || a == 255 {
			continue
		}
		pix[i] = uint8(min(int(pix[i])*255/a, 255))
		pix[i+1] = uint8(min(int(pix[i+1])*255/a, 255))
		pix[i+2] = uint8(min(int(pix[i+2])*255/a, 255))
	}
}
