package cinder

import (
	"errors"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// Session owns the GPU-side objects of one playback: the surface, an
// orthographic camera, the textured quad, the shading program and the
// texture. Everything is created by OpenSession and released together by
// Close. A Session is not safe for concurrent use.
type Session struct {
	dev     Device
	surface Surface
	texture Texture
	mesh    Mesh
	program Program
	camera  *Camera

	bg       Color
	uniforms Uniforms
	draws    int
	closed   bool
}

// OpenSession allocates a session showing bmp over a width×height DIP
// rectangle at the device's pixel density. On failure every object already
// acquired is released and a *SetupError naming the failed stage is
// returned.
func OpenSession(dev Device, bmp *Bitmap, width, height int, bg Color) (*Session, error) {
	if width <= 0 || height <= 0 {
		return nil, &SetupError{Stage: "surface", Err: ErrEmptyRegion}
	}
	if bmp.Empty() {
		return nil, &SetupError{Stage: "texture", Err: errors.New("empty bitmap")}
	}

	scale := dev.DeviceScaleFactor()
	if scale <= 0 {
		scale = 1
	}
	s := &Session{dev: dev, bg: bg}

	var err error
	sw := int(math.Ceil(float64(width) * scale))
	sh := int(math.Ceil(float64(height) * scale))
	if s.surface, err = dev.NewSurface(sw, sh); err != nil {
		s.Close()
		return nil, &SetupError{Stage: "surface", Err: err}
	}
	if s.texture, err = dev.NewTexture(bmp); err != nil {
		s.Close()
		return nil, &SetupError{Stage: "texture", Err: err}
	}

	s.camera = NewOrthoCamera(float64(width), float64(height), scale)
	s.camera.Width, s.camera.Height = float64(sw), float64(sh)
	plane := planeVertices(float64(width), float64(height), bmp.Width(), bmp.Height())
	verts := make([]ebiten.Vertex, len(plane))
	projectVertices(plane, verts, s.camera.computeViewMatrix())
	if s.mesh, err = dev.NewMesh(verts, quadIndices); err != nil {
		s.Close()
		return nil, &SetupError{Stage: "mesh", Err: err}
	}

	if s.program, err = dev.NewProgram(); err != nil {
		s.Close()
		return nil, &SetupError{Stage: "program", Err: err}
	}

	s.uniforms = Uniforms{Background: bg}
	return s, nil
}

// Render draws one frame: elapsed seconds since playback start and the burn
// progress. It issues exactly one draw call.
func (s *Session) Render(elapsed, progress float64) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.uniforms = Uniforms{Time: elapsed, Progress: clamp01(progress), Background: s.bg}
	s.draws++
	return s.dev.Draw(s.surface, s.program, s.mesh, s.texture, s.uniforms)
}

// Close releases the mesh, program, texture and surface. It is safe to call
// more than once and on a partially opened session.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.mesh != nil {
		s.mesh.Dispose()
		s.mesh = nil
	}
	if s.program != nil {
		s.program.Dispose()
		s.program = nil
	}
	if s.texture != nil {
		s.texture.Dispose()
		s.texture = nil
	}
	if s.surface != nil {
		s.surface.Dispose()
		s.surface = nil
	}
}

// Surface returns the render target, or nil once closed.
func (s *Session) Surface() Surface { return s.surface }

// Camera returns the session camera.
func (s *Session) Camera() *Camera { return s.camera }

// Uniforms returns the inputs of the last Render.
func (s *Session) Uniforms() Uniforms { return s.uniforms }

// Draws returns how many frames have been rendered.
func (s *Session) Draws() int { return s.draws }

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed }
