package cinder

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func TestPlaneVerticesProjectToViewport(t *testing.T) {
	cam := NewOrthoCamera(300, 200, 2)
	plane := planeVertices(300, 200, 600, 400)
	dst := make([]ebiten.Vertex, len(plane))
	projectVertices(plane, dst, cam.computeViewMatrix())

	want := []struct{ dx, dy, sx, sy float32 }{
		{0, 0, 0, 0},
		{600, 0, 600, 0},
		{600, 400, 600, 400},
		{0, 400, 0, 400},
	}
	for i, w := range want {
		v := dst[i]
		if !approxEqual(float64(v.DstX), float64(w.dx), 1e-3) || !approxEqual(float64(v.DstY), float64(w.dy), 1e-3) {
			t.Errorf("vertex %d dst = (%v,%v), want (%v,%v)", i, v.DstX, v.DstY, w.dx, w.dy)
		}
		if v.SrcX != w.sx || v.SrcY != w.sy {
			t.Errorf("vertex %d src = (%v,%v), want (%v,%v)", i, v.SrcX, v.SrcY, w.sx, w.sy)
		}
		if v.ColorR != 1 || v.ColorG != 1 || v.ColorB != 1 || v.ColorA != 1 {
			t.Errorf("vertex %d color = (%v,%v,%v,%v), want white", i, v.ColorR, v.ColorG, v.ColorB, v.ColorA)
		}
	}
}

func TestProjectVerticesIdentity(t *testing.T) {
	src := []ebiten.Vertex{
		{DstX: 10, DstY: 20, SrcX: 1, SrcY: 2},
		{DstX: 30, DstY: 40, SrcX: 3, SrcY: 4},
	}
	dst := make([]ebiten.Vertex, 2)
	projectVertices(src, dst, identityTransform)
	for i := range src {
		if dst[i].DstX != src[i].DstX || dst[i].DstY != src[i].DstY {
			t.Errorf("vertex %d moved: %v -> %v", i, src[i], dst[i])
		}
	}
}

func TestProjectVerticesTranslateScale(t *testing.T) {
	src := []ebiten.Vertex{{DstX: 1, DstY: 1}}
	dst := make([]ebiten.Vertex, 1)
	projectVertices(src, dst, [6]float64{2, 0, 0, 3, 10, 20})
	if dst[0].DstX != 12 || dst[0].DstY != 23 {
		t.Errorf("got (%v,%v), want (12,23)", dst[0].DstX, dst[0].DstY)
	}
}

func TestMeshBounds(t *testing.T) {
	verts := []ebiten.Vertex{{DstX: 5, DstY: -2}, {DstX: -1, DstY: 7}, {DstX: 3, DstY: 3}}
	minX, minY, maxX, maxY := meshBounds(verts)
	if minX != -1 || minY != -2 || maxX != 5 || maxY != 7 {
		t.Errorf("bounds = (%v,%v,%v,%v), want (-1,-2,5,7)", minX, minY, maxX, maxY)
	}
	if a, b, c, d := meshBounds(nil); a != 0 || b != 0 || c != 0 || d != 0 {
		t.Error("empty bounds should be zero")
	}
}

func TestQuadIndices(t *testing.T) {
	if len(quadIndices) != 6 {
		t.Fatalf("len = %d, want 6", len(quadIndices))
	}
	for _, i := range quadIndices {
		if i > 3 {
			t.Errorf("index %d out of range", i)
		}
	}
}
