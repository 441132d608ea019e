package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is an orthographic view of the scene. With no rotation it looks
// along +Y, so X runs right and Z runs up the screen.
type Camera struct {
	Center     mgl64.Vec3
	Yaw, Pitch float64
	Zoom       float64
	// Scale is dots per world unit at Zoom 1.
	Scale float64
}

func NewCamera() *Camera {
	return &Camera{Zoom: 1, Scale: 1}
}

func (c *Camera) RotateYaw(a float64)   { c.Yaw += a }
func (c *Camera) RotatePitch(a float64) { c.Pitch = mgl64.Clamp(c.Pitch+a, -math.Pi/2, math.Pi/2) }
func (c *Camera) ZoomIn()               { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()              { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Fit centres the camera on points and picks a scale that shows all of them
// on a canvas of w by h dots with a small margin.
func (c *Camera) Fit(points []mgl64.Vec3, w, h int) {
	if len(points) == 0 {
		return
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], p[k])
			hi[k] = math.Max(hi[k], p[k])
		}
	}
	c.Center = lo.Add(hi).Mul(0.5)
	extent := hi.Sub(lo)
	span := math.Max(extent.Len(), 1)
	c.Scale = 0.9 * math.Min(float64(w), float64(h)) / span
}

func (c *Camera) rotation() mgl64.Mat3 {
	return mgl64.Rotate3DX(c.Pitch).Mul3(mgl64.Rotate3DZ(c.Yaw))
}

// Project maps p to canvas dots, reporting whether it lands on the canvas.
func (c *Camera) Project(p mgl64.Vec3, w, h int) (Dot, bool) {
	v := c.rotation().Mul3x1(p.Sub(c.Center)).Mul(c.Scale * c.Zoom)
	d := Dot{X: int(math.Round(v.X())) + w/2, Y: int(math.Round(-v.Z())) + h/2}
	return d, d.X >= 0 && d.X < w && d.Y >= 0 && d.Y < h
}

// ProjectAll maps a chain of points to dots.
func (c *Camera) ProjectAll(points []mgl64.Vec3, w, h int) []Dot {
	out := make([]Dot, len(points))
	for i, p := range points {
		out[i], _ = c.Project(p, w, h)
	}
	return out
}
