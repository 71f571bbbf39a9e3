package cinder

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// HUD prints the frame rate and an Effect's playback state in the top-left
// corner. The text is refreshed about twice a second.
type HUD struct {
	fx   *Effect
	img  *ebiten.Image
	last time.Time
	now  func() time.Time
}

// NewHUD creates a HUD reporting on fx, which may be nil.
func NewHUD(fx *Effect) *HUD {
	return &HUD{fx: fx, now: time.Now}
}

// Draw renders the HUD onto screen.
func (h *HUD) Draw(screen *ebiten.Image) {
	if h.img == nil {
		// 120x48 fits three lines of debug text.
		h.img = ebiten.NewImage(120, 48)
	}
	if now := h.now(); h.last.IsZero() || now.Sub(h.last) >= 500*time.Millisecond {
		h.last = now
		h.img.Clear()
		h.img.Fill(color.RGBA{0, 0, 0, 128})
		ebitenutil.DebugPrint(h.img, h.text())
	}
	screen.DrawImage(h.img, nil)
}

func (h *HUD) text() string {
	s := fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS())
	if h.fx != nil {
		s += "\nburn: " + h.fx.State().String()
	}
	return s
}
