package cinder

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// quadIndices are the two triangles of a quad whose vertices run
// top-left, top-right, bottom-right, bottom-left.
var quadIndices = []uint32{0, 1, 2, 0, 2, 3}

// planeVertices returns a w×h plane centred on the origin in world space
// (Y up), textured with the full texW×texH texture, top-left first.
func planeVertices(w, h float64, texW, texH int) []ebiten.Vertex {
	hw, hh := w/2, h/2
	tw, th := float32(texW), float32(texH)
	return []ebiten.Vertex{
		{DstX: float32(-hw), DstY: float32(hh), SrcX: 0, SrcY: 0},
		{DstX: float32(hw), DstY: float32(hh), SrcX: tw, SrcY: 0},
		{DstX: float32(hw), DstY: float32(-hh), SrcX: tw, SrcY: th},
		{DstX: float32(-hw), DstY: float32(-hh), SrcX: 0, SrcY: th},
	}
}

// projectVertices applies an affine transform to src, writing into dst.
// dst must be at least len(src) long. Vertex colors are set to opaque white;
// the shading program ignores them.
//
// Matrix layout: [0]=a, [1]=b, [2]=c, [3]=d, [4]=tx, [5]=ty
// newX = a*x + c*y + tx, newY = b*x + d*y + ty
func projectVertices(src, dst []ebiten.Vertex, transform [6]float64) {
	a, b, c, d, tx, ty := transform[0], transform[1], transform[2], transform[3], transform[4], transform[5]
	for i := range src {
		s := &src[i]
		ox := float64(s.DstX)
		oy := float64(s.DstY)
		dst[i] = ebiten.Vertex{
			DstX:   float32(a*ox + c*oy + tx),
			DstY:   float32(b*ox + d*oy + ty),
			SrcX:   s.SrcX,
			SrcY:   s.SrcY,
			ColorR: 1,
			ColorG: 1,
			ColorB: 1,
			ColorA: 1,
		}
	}
}

// meshBounds returns the axis-aligned bounds of the vertices' destination
// positions as (minX, minY, maxX, maxY).
func meshBounds(verts []ebiten.Vertex) (minX, minY, maxX, maxY float64) {
	if len(verts) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for i := range verts {
		x, y := float64(verts[i].DstX), float64(verts[i].DstY)
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	return minX, minY, maxX, maxY
}
