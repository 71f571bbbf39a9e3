package cinder

import (
	"errors"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// EbitenDevice renders sessions on the GPU through Ebitengine. Its methods
// must be called from the game goroutine (Update or Draw).
type EbitenDevice struct {
	// Scale overrides the monitor's device scale factor when positive.
	Scale float64
}

// DeviceScaleFactor returns Scale, or the current monitor's scale factor.
func (d *EbitenDevice) DeviceScaleFactor() float64 {
	if d.Scale > 0 {
		return d.Scale
	}
	if m := ebiten.Monitor(); m != nil {
		return m.DeviceScaleFactor()
	}
	return 1
}

// NewSurface allocates an offscreen image.
func (d *EbitenDevice) NewSurface(w, h int) (Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("surface size %dx%d", w, h)
	}
	return &ebitenImage{img: ebiten.NewImage(w, h), w: w, h: h}, nil
}

// NewTexture uploads b.
func (d *EbitenDevice) NewTexture(b *Bitmap) (Texture, error) {
	if b.Empty() {
		return nil, errors.New("empty bitmap")
	}
	img := ebiten.NewImage(b.Width(), b.Height())
	img.WritePixels(b.premultipliedPix())
	return &ebitenImage{img: img, w: b.Width(), h: b.Height()}, nil
}

// NewMesh keeps copies of the geometry for DrawTrianglesShader32.
func (d *EbitenDevice) NewMesh(vertices []ebiten.Vertex, indices []uint32) (Mesh, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}
	return &ebitenMesh{
		verts: append([]ebiten.Vertex(nil), vertices...),
		inds:  append([]uint32(nil), indices...),
	}, nil
}

// NewProgram compiles the burn shader.
func (d *EbitenDevice) NewProgram() (Program, error) {
	s, err := compileBurnShader()
	if err != nil {
		return nil, err
	}
	p := &ebitenProgram{
		shader:   s,
		uniforms: make(map[string]any, 3),
	}
	p.bgSlice = p.bgF32[:]
	p.uniforms["Background"] = p.bgSlice
	return p, nil
}

// Draw shades m into dst with tex as source image 0.
func (d *EbitenDevice) Draw(dst Surface, p Program, m Mesh, tex Texture, u Uniforms) error {
	di, ok := dst.(*ebitenImage)
	if !ok || di.img == nil {
		return fmt.Errorf("draw: surface %T is not an Ebitengine surface", dst)
	}
	ti, ok := tex.(*ebitenImage)
	if !ok || ti.img == nil {
		return fmt.Errorf("draw: texture %T is not an Ebitengine texture", tex)
	}
	ep, ok := p.(*ebitenProgram)
	if !ok || ep.shader == nil {
		return fmt.Errorf("draw: program %T is not an Ebitengine program", p)
	}
	em, ok := m.(*ebitenMesh)
	if !ok || em.verts == nil {
		return fmt.Errorf("draw: mesh %T is not an Ebitengine mesh", m)
	}

	ep.uniforms["Time"] = float32(u.Time)
	ep.uniforms["Progress"] = float32(u.Progress)
	ep.bgF32 = [3]float32{float32(u.Background.R), float32(u.Background.G), float32(u.Background.B)}
	ep.op.Images[0] = ti.img
	ep.op.Uniforms = ep.uniforms
	di.img.Clear()
	di.img.DrawTrianglesShader32(em.verts, em.inds, ep.shader, &ep.op)
	return nil
}

// ebitenImage is both a Surface and a Texture.
type ebitenImage struct {
	img  *ebiten.Image
	w, h int
}

func (i *ebitenImage) Size() (int, int) { return i.w, i.h }

func (i *ebitenImage) Dispose() {
	if i.img != nil {
		i.img.Deallocate()
		i.img = nil
	}
}

// Image returns the underlying image, or nil once disposed.
func (i *ebitenImage) Image() *ebiten.Image { return i.img }

type ebitenMesh struct {
	verts []ebiten.Vertex
	inds  []uint32
}

func (m *ebitenMesh) Dispose() {
	m.verts = nil
	m.inds = nil
}

type ebitenProgram struct {
	shader   *ebiten.Shader
	uniforms map[string]any
	bgF32    [3]float32 // persistent buffer behind the Background uniform
	bgSlice  []float32
	op       ebiten.DrawTrianglesShaderOptions
}

func (p *ebitenProgram) Dispose() {
	if p.shader != nil {
		p.shader.Deallocate()
		p.shader = nil
	}
	p.op.Images[0] = nil
}
