package cinder

import "github.com/hajimehoshi/ebiten/v2"

// Device creates and draws the GPU-side objects of a render session. Every
// object it returns must be released with Dispose; Dispose is idempotent.
//
// EbitenDevice renders on the GPU through Ebitengine; SoftDevice runs the
// same shading on the CPU.
type Device interface {
	// DeviceScaleFactor is the current pixel density (device pixels per DIP).
	DeviceScaleFactor() float64
	// NewSurface allocates a w×h device-pixel render target.
	NewSurface(w, h int) (Surface, error)
	// NewTexture uploads a bitmap.
	NewTexture(b *Bitmap) (Texture, error)
	// NewMesh stores triangle geometry. SrcX/SrcY are texture pixels.
	NewMesh(vertices []ebiten.Vertex, indices []uint32) (Mesh, error)
	// NewProgram compiles the combustion shading program.
	NewProgram() (Program, error)
	// Draw shades mesh into dst with tex bound as source image 0.
	Draw(dst Surface, p Program, m Mesh, tex Texture, u Uniforms) error
}

// Surface is a render target. Its size is in device pixels.
type Surface interface {
	Size() (w, h int)
	Dispose()
}

// Texture is an uploaded bitmap.
type Texture interface {
	Size() (w, h int)
	Dispose()
}

// Mesh is uploaded geometry.
type Mesh interface {
	Dispose()
}

// Program is a compiled shading program.
type Program interface {
	Dispose()
}

// Uniforms are the per-frame inputs of the shading program.
type Uniforms struct {
	// Time is seconds since playback start.
	Time float64
	// Progress is the burn progress in [0, 1].
	Progress float64
	// Background is the tone the ash cools into.
	Background Color
}
