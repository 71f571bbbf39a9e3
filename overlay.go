package cinder

import (
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// Overlay is the host container a session's surface is attached to while it
// plays. bounds is in layout pixels; the surface is scaled to fit it.
type Overlay interface {
	Attach(s Surface, bounds image.Rectangle) error
	Detach(s Surface)
}

type layerEntry struct {
	surface Surface
	bounds  image.Rectangle
	upload  *ebiten.Image // staging image for CPU surfaces
}

// Layer is an Ebitengine Overlay. Draw it after the rest of the screen:
// each attached surface is drawn over a fill of Background covering its
// bounds, so nothing under the region shows through while it burns.
type Layer struct {
	// Background fills the attached bounds before the surface is drawn.
	Background Color
	// Scale maps layout pixels to screen pixels. Zero means 1.
	Scale float64

	entries []layerEntry
	op      ebiten.DrawImageOptions
}

// NewLayer creates a Layer with the default background.
func NewLayer() *Layer {
	return &Layer{Background: BackgroundColor}
}

// Attach adds s to the layer. Attaching the same surface twice moves it.
func (l *Layer) Attach(s Surface, bounds image.Rectangle) error {
	switch s.(type) {
	case *ebitenImage, *softSurface:
	default:
		return fmt.Errorf("layer: unsupported surface %T", s)
	}
	if bounds.Empty() {
		return fmt.Errorf("layer: empty bounds %v", bounds)
	}
	for i := range l.entries {
		if l.entries[i].surface == s {
			l.entries[i].bounds = bounds
			return nil
		}
	}
	l.entries = append(l.entries, layerEntry{surface: s, bounds: bounds})
	return nil
}

// Detach removes s. Unknown surfaces are ignored.
func (l *Layer) Detach(s Surface) {
	for i := range l.entries {
		if l.entries[i].surface != s {
			continue
		}
		if up := l.entries[i].upload; up != nil {
			up.Deallocate()
		}
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
		return
	}
}

// Len returns the number of attached surfaces.
func (l *Layer) Len() int { return len(l.entries) }

// Draw composites every attached surface onto screen.
func (l *Layer) Draw(screen *ebiten.Image) {
	scale := l.Scale
	if scale <= 0 {
		scale = 1
	}
	for i := range l.entries {
		e := &l.entries[i]
		img := l.surfaceImage(e)
		if img == nil {
			continue
		}
		r := image.Rect(
			int(float64(e.bounds.Min.X)*scale), int(float64(e.bounds.Min.Y)*scale),
			int(float64(e.bounds.Max.X)*scale), int(float64(e.bounds.Max.Y)*scale),
		)
		screen.SubImage(r).(*ebiten.Image).Fill(l.Background.premultiplied())

		sw, sh := img.Bounds().Dx(), img.Bounds().Dy()
		l.op.GeoM.Reset()
		l.op.GeoM.Scale(float64(r.Dx())/float64(sw), float64(r.Dy())/float64(sh))
		l.op.GeoM.Translate(float64(r.Min.X), float64(r.Min.Y))
		l.op.Filter = ebiten.FilterLinear
		screen.DrawImage(img, &l.op)
	}
}

// surfaceImage returns a drawable image for the entry, uploading CPU
// surfaces into a staging image.
func (l *Layer) surfaceImage(e *layerEntry) *ebiten.Image {
	switch s := e.surface.(type) {
	case *ebitenImage:
		return s.img
	case *softSurface:
		if s.img == nil {
			return nil
		}
		w, h := s.img.Rect.Dx(), s.img.Rect.Dy()
		if e.upload == nil || e.upload.Bounds().Dx() != w || e.upload.Bounds().Dy() != h {
			if e.upload != nil {
				e.upload.Deallocate()
			}
			e.upload = ebiten.NewImage(w, h)
		}
		pix := make([]byte, len(s.img.Pix))
		copy(pix, s.img.Pix)
		premultiply(pix)
		e.upload.WritePixels(pix)
		return e.upload
	}
	return nil
}

// premultiply converts straight-alpha RGBA bytes to premultiplied in place.
func premultiply(pix []byte) {
	for i := 0; i < len(pix); i += 4 {
		a := uint32(pix[i+3])
		if a == 255 {
			continue
		}
		pix[i] = byte((uint32(pix[i])*a + 127) / 255)
		pix[i+1] = byte((uint32(pix[i+1])*a + 127) / 255)
		pix[i+2] = byte((uint32(pix[i+2])*a + 127) / 255)
	}
}
