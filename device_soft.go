package cinder

import (
	"errors"
	"fmt"
	"image"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"
)

// SoftDevice runs the combustion shading on the CPU with Shade. It needs no
// graphics context, so it serves offline rendering and tests. Rows are shaded
// in parallel; everything else must be called from one goroutine.
type SoftDevice struct {
	// Scale is the reported device scale factor. Zero means 1.
	Scale float64
	// Workers bounds the number of rows shaded at once. Zero means GOMAXPROCS.
	Workers int

	live  atomic.Int64
	draws atomic.Int64
}

// NewSoftDevice returns a SoftDevice with the given scale factor.
func NewSoftDevice(scale float64) *SoftDevice {
	return &SoftDevice{Scale: scale}
}

// DeviceScaleFactor returns Scale, or 1 if unset.
func (d *SoftDevice) DeviceScaleFactor() float64 {
	if d.Scale > 0 {
		return d.Scale
	}
	return 1
}

// Live returns how many surfaces, textures, meshes and programs have been
// created and not yet disposed.
func (d *SoftDevice) Live() int { return int(d.live.Load()) }

// Draws returns the number of Draw calls.
func (d *SoftDevice) Draws() int { return int(d.draws.Load()) }

// NewSurface allocates a transparent w×h image.
func (d *SoftDevice) NewSurface(w, h int) (Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("surface size %dx%d", w, h)
	}
	d.live.Add(1)
	return &softSurface{dev: d, img: image.NewNRGBA(image.Rect(0, 0, w, h))}, nil
}

// NewTexture wraps b; bitmaps are immutable so no copy is made.
func (d *SoftDevice) NewTexture(b *Bitmap) (Texture, error) {
	if b.Empty() {
		return nil, errors.New("empty bitmap")
	}
	d.live.Add(1)
	return &softTexture{dev: d, bmp: b}, nil
}

// NewMesh records the destination bounds of the geometry. The soft
// rasteriser only fills axis-aligned quads, which is all a session draws.
func (d *SoftDevice) NewMesh(vertices []ebiten.Vertex, indices []uint32) (Mesh, error) {
	if len(vertices) == 0 || len(indices)%3 != 0 {
		return nil, fmt.Errorf("bad mesh: %d vertices, %d indices", len(vertices), len(indices))
	}
	minX, minY, maxX, maxY := meshBounds(vertices)
	d.live.Add(1)
	return &softMesh{dev: d, minX: minX, minY: minY, maxX: maxX, maxY: maxY}, nil
}

// NewProgram returns the CPU shading program.
func (d *SoftDevice) NewProgram() (Program, error) {
	d.live.Add(1)
	return &softProgram{dev: d}, nil
}

// Draw shades every pixel of dst covered by m.
func (d *SoftDevice) Draw(dst Surface, p Program, m Mesh, tex Texture, u Uniforms) error {
	s, ok := dst.(*softSurface)
	if !ok || s.img == nil {
		return fmt.Errorf("draw: surface %T is not a soft surface", dst)
	}
	t, ok := tex.(*softTexture)
	if !ok || t.bmp == nil {
		return fmt.Errorf("draw: texture %T is not a soft texture", tex)
	}
	if sp, ok := p.(*softProgram); !ok || sp.disposed {
		return fmt.Errorf("draw: program %T is not a soft program", p)
	}
	sm, ok := m.(*softMesh)
	if !ok || sm.disposed {
		return fmt.Errorf("draw: mesh %T is not a soft mesh", m)
	}
	d.draws.Add(1)

	img := s.img
	bw, bh := sm.maxX-sm.minX, sm.maxY-sm.minY
	if bw <= 0 || bh <= 0 {
		return nil
	}
	b := img.Bounds()
	x0 := max(int(math.Floor(sm.minX)), b.Min.X)
	x1 := min(int(math.Ceil(sm.maxX)), b.Max.X)
	y0 := max(int(math.Floor(sm.minY)), b.Min.Y)
	y1 := min(int(math.Ceil(sm.maxY)), b.Max.Y)

	clear(img.Pix)

	var g errgroup.Group
	workers := d.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for y := y0; y < y1; y++ {
		g.Go(func() error {
			row := img.Pix[img.PixOffset(x0, y):]
			v := 1 - (float64(y)+0.5-sm.minY)/bh
			for x := x0; x < x1; x++ {
				uu := (float64(x) + 0.5 - sm.minX) / bw
				c := Shade(t.bmp, uu, v, u.Time, u.Progress, u.Background).NRGBA()
				i := (x - x0) * 4
				row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
			}
			return nil
		})
	}
	return g.Wait()
}

type softSurface struct {
	dev *SoftDevice
	img *image.NRGBA
}

func (s *softSurface) Size() (int, int) {
	if s.img == nil {
		return 0, 0
	}
	return s.img.Rect.Dx(), s.img.Rect.Dy()
}

func (s *softSurface) Dispose() {
	if s.img != nil {
		s.img = nil
		s.dev.live.Add(-1)
	}
}

// Image returns the surface pixels, or nil once disposed.
func (s *softSurface) Image() *image.NRGBA { return s.img }

type softTexture struct {
	dev *SoftDevice
	bmp *Bitmap
}

func (t *softTexture) Size() (int, int) {
	if t.bmp == nil {
		return 0, 0
	}
	return t.bmp.Width(), t.bmp.Height()
}

func (t *softTexture) Dispose() {
	if t.bmp != nil {
		t.bmp = nil
		t.dev.live.Add(-1)
	}
}

type softMesh struct {
	dev                    *SoftDevice
	minX, minY, maxX, maxY float64
	disposed               bool
}

func (m *softMesh) Dispose() {
	if !m.disposed {
		m.disposed = true
		m.dev.live.Add(-1)
	}
}

type softProgram struct {
	dev      *SoftDevice
	disposed bool
}

func (p *softProgram) Dispose() {
	if !p.disposed {
		p.disposed = true
		p.dev.live.Add(-1)
	}
}

// SurfaceImage returns the pixels of a surface created by SoftDevice or
// EbitenDevice as an image. Ebitengine surfaces are read back, so call it
// from the game goroutine.
func SurfaceImage(s Surface) (image.Image, error) {
	switch s := s.(type) {
	case *softSurface:
		if s.img == nil {
			return nil, errors.New("surface disposed")
		}
		out := image.NewNRGBA(s.img.Rect)
		copy(out.Pix, s.img.Pix)
		return out, nil
	case *ebitenImage:
		if s.img == nil {
			return nil, errors.New("surface disposed")
		}
		pix := make([]byte, 4*s.w*s.h)
		s.img.ReadPixels(pix)
		unpremultiply(pix)
		return &image.NRGBA{Pix: pix, Stride: 4 * s.w, Rect: image.Rect(0, 0, s.w, s.h)}, nil
	default:
		return nil, fmt.Errorf("unsupported surface %T", s)
	}
}
