package cinder

// Camera is an orthographic camera. It frames the world rectangle
// [Left, Right] × [Bottom, Top] (Y up) onto a viewport of Width × Height
// device pixels (Y down). There is no perspective, so a quad in the framed
// plane lands on the viewport without warping.
type Camera struct {
	Left, Right float64
	Bottom, Top float64
	// Width and Height are the viewport size in device pixels.
	Width, Height float64

	viewMatrix    [6]float64
	invViewMatrix [6]float64
	dirty         bool
}

// NewOrthoCamera frames a w×h DIP rectangle centred on the origin onto a
// viewport scaled by the pixel density.
func NewOrthoCamera(w, h, scale float64) *Camera {
	return &Camera{
		Left:   -w / 2,
		Right:  w / 2,
		Bottom: -h / 2,
		Top:    h / 2,
		Width:  w * scale,
		Height: h * scale,
		dirty:  true,
	}
}

// MarkDirty forces a recomputation of the view matrix.
func (c *Camera) MarkDirty() {
	c.dirty = true
}

// computeViewMatrix recomputes the cached world→viewport matrix if dirty.
//
//	sx = (x - Left) * Width / (Right - Left)
//	sy = (Top - y) * Height / (Top - Bottom)
func (c *Camera) computeViewMatrix() [6]float64 {
	if !c.dirty {
		return c.viewMatrix
	}
	c.dirty = false

	kx := c.Width / (c.Right - c.Left)
	ky := c.Height / (c.Top - c.Bottom)
	c.viewMatrix = [6]float64{kx, 0, 0, -ky, -c.Left * kx, c.Top * ky}
	c.invViewMatrix = invertAffine(c.viewMatrix)
	return c.viewMatrix
}

// WorldToScreen converts world coordinates to viewport pixels.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	c.computeViewMatrix()
	sx, sy = transformPoint(c.viewMatrix, wx, wy)
	return
}

// ScreenToWorld converts viewport pixels to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	c.computeViewMatrix()
	wx, wy = transformPoint(c.invViewMatrix, sx, sy)
	return
}

var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// invertAffine returns the inverse of an affine matrix, or identity if the
// matrix is singular.
//
// Matrix layout: [0]=a, [1]=b, [2]=c, [3]=d, [4]=tx, [5]=ty
// x' = a*x + c*y + tx, y' = b*x + d*y + ty
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityTransform
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return [6]float64{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}
