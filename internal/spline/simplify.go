package spline

import "github.com/go-gl/mathgl/mgl64"

// Simplify reduces a polyline with Ramer-Douglas-Peucker. The first and last
// points are always kept.
func Simplify(points []mgl64.Vec3, tolerance float64) []mgl64.Vec3 {
	if len(points) < 3 {
		out := make([]mgl64.Vec3, len(points))
		copy(out, points)
		return out
	}
	keep := make([]bool, len(points))
	keep[0] = true
	keep[len(points)-1] = true
	simplifyRange(points, 0, len(points)-1, tolerance*tolerance, keep)

	out := make([]mgl64.Vec3, 0, len(points))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}

func simplifyRange(points []mgl64.Vec3, first, last int, tolSq float64, keep []bool) {
	if last-first < 2 {
		return
	}
	maxDist := -1.0
	index := -1
	for i := first + 1; i < last; i++ {
		d := distSqToSegment(points[i], points[first], points[last])
		if d > maxDist {
			maxDist = d
			index = i
		}
	}
	if maxDist <= tolSq {
		return
	}
	keep[index] = true
	simplifyRange(points, first, index, tolSq, keep)
	simplifyRange(points, index, last, tolSq, keep)
}

func distSqToSegment(p, a, b mgl64.Vec3) float64 {
	ab := b.Sub(a)
	lenSq := ab.LenSqr()
	if lenSq == 0 {
		return p.Sub(a).LenSqr()
	}
	t := p.Sub(a).Dot(ab) / lenSq
	t = clamp01(t)
	return p.Sub(a.Add(ab.Mul(t))).LenSqr()
}
