package cinder

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// Region is an on-screen rectangle the effect burns. The host keeps drawing
// the region's content while Visible reports true; the effect hides it for
// the lifetime of a render session and always shows it again afterwards.
type Region interface {
	// Bounds is the region in layout (device-independent) pixels.
	Bounds() image.Rectangle
	SetVisible(visible bool)
	Visible() bool
}

// Painter is implemented by regions that can repaint their own content. geo
// maps layout pixels to the destination, including the capture scale and the
// offset that moves Bounds().Min to the origin.
type Painter interface {
	Paint(dst *ebiten.Image, geo ebiten.GeoM)
}

// Target is a basic Region: a rectangle plus a visibility flag. The zero
// value is visible. Set PaintFunc to make it capturable by ScreenCapturer.
type Target struct {
	Rect      image.Rectangle
	PaintFunc func(dst *ebiten.Image, geo ebiten.GeoM)
	hidden    bool
}

// NewTarget creates a visible Target covering r.
func NewTarget(r image.Rectangle, paint func(dst *ebiten.Image, geo ebiten.GeoM)) *Target {
	return &Target{Rect: r, PaintFunc: paint}
}

// Bounds returns t.Rect.
func (t *Target) Bounds() image.Rectangle { return t.Rect }

// SetVisible shows or hides the target's content.
func (t *Target) SetVisible(visible bool) { t.hidden = !visible }

// Visible reports whether the host should draw the target's content.
func (t *Target) Visible() bool { return !t.hidden }

// Paint calls PaintFunc if set.
func (t *Target) Paint(dst *ebiten.Image, geo ebiten.GeoM) {
	if t.PaintFunc != nil {
		t.PaintFunc(dst, geo)
	}
}
