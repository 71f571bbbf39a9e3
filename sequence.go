package cinder

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"os"
	"path/filepath"
	"time"

	xdraw "golang.org/x/image/draw"
)

// Sequence collects rendered frames into numbered PNG files, an animated
// GIF, or both. Frames are added in order; Close writes the GIF.
type Sequence struct {
	// Dir receives frame_0000.png, frame_0001.png, ... when non-empty.
	Dir string
	// GIFPath receives the animation when non-empty.
	GIFPath string

	frames int
	anim   gif.GIF
}

// NewSequence prepares the output directory.
func NewSequence(dir, gifPath string) (*Sequence, error) {
	if dir == "" && gifPath == "" {
		return nil, fmt.Errorf("sequence: no output")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sequence: mkdir %s: %w", dir, err)
		}
	}
	return &Sequence{Dir: dir, GIFPath: gifPath}, nil
}

// Frames returns how many frames have been added.
func (s *Sequence) Frames() int { return s.frames }

// Add appends a frame shown for delay (GIF delays have 10ms resolution).
func (s *Sequence) Add(img image.Image, delay time.Duration) error {
	if s.Dir != "" {
		path := filepath.Join(s.Dir, fmt.Sprintf("frame_%04d.png", s.frames))
		if err := WritePNG(path, img); err != nil {
			return err
		}
	}
	if s.GIFPath != "" {
		s.anim.Image = append(s.anim.Image, quantize(img))
		s.anim.Delay = append(s.anim.Delay, max(int(delay/(10*time.Millisecond)), 1))
	}
	s.frames++
	return nil
}

// Close writes the GIF, if one was requested.
func (s *Sequence) Close() error {
	if s.GIFPath == "" || len(s.anim.Image) == 0 {
		return nil
	}
	f, err := os.Create(s.GIFPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.GIFPath, err)
	}
	if err := gif.EncodeAll(f, &s.anim); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", s.GIFPath, err)
	}
	return f.Close()
}

// quantize maps img onto the Plan 9 palette with Floyd-Steinberg dithering.
func quantize(img image.Image) *image.Paletted {
	b := img.Bounds()
	p := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette.Plan9)
	xdraw.FloydSteinberg.Draw(p, p.Bounds(), img, b.Min)
	return p
}
