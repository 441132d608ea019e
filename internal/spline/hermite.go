package spline

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Span is one cubic Hermite piece between two control points. Tangents are
// derivatives with respect to the [0,1] parameter.
type Span struct {
	P0, T0 mgl64.Vec3
	P1, T1 mgl64.Vec3
	Linear bool
}

// NewSpan builds a span, falling back to a straight line when the leave
// tangent is zero.
func NewSpan(p0, t0, p1, t1 mgl64.Vec3) Span {
	return Span{P0: p0, T0: t0, P1: p1, T1: t1, Linear: t0.LenSqr() == 0}
}

// Eval returns the position at parameter t, clamped to [0,1].
func (s Span) Eval(t float64) mgl64.Vec3 {
	t = clamp01(t)
	if s.Linear {
		return s.P0.Add(s.P1.Sub(s.P0).Mul(t))
	}
	return Hermite(s.P0, s.T0, s.P1, s.T1, t)
}

// Derivative returns d/dt of the span at t.
func (s Span) Derivative(t float64) mgl64.Vec3 {
	t = clamp01(t)
	if s.Linear {
		return s.P1.Sub(s.P0)
	}
	return HermiteDerivative(s.P0, s.T0, s.P1, s.T1, t)
}

// Length is the arc length from parameter 0 to t.
func (s Span) Length(t float64) float64 {
	t = clamp01(t)
	if s.Linear {
		return s.P1.Sub(s.P0).Len() * t
	}
	return SegmentLength(s.P0, s.T0, s.P1, s.T1, t)
}

// Hermite evaluates the cubic Hermite basis.
func Hermite(p0, t0, p1, t1 mgl64.Vec3, t float64) mgl64.Vec3 {
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return p0.Mul(h00).Add(t0.Mul(h10)).Add(p1.Mul(h01)).Add(t1.Mul(h11))
}

func HermiteDerivative(p0, t0, p1, t1 mgl64.Vec3, t float64) mgl64.Vec3 {
	c1, c2, c3 := derivativeCoefficients(p0, t0, p1, t1)
	return c1.Mul(t).Add(c2).Mul(t).Add(c3)
}

func derivativeCoefficients(p0, t0, p1, t1 mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, mgl64.Vec3) {
	c1 := p0.Sub(p1).Mul(2).Add(t0).Add(t1).Mul(3)
	c2 := p1.Sub(p0).Mul(6).Sub(t0.Mul(4)).Sub(t1.Mul(2))
	return c1, c2, t0
}

// 5-point Legendre-Gauss abscissae and weights on [-1,1].
var legendreGauss = [5]struct{ x, w float64 }{
	{0.0, 0.5688889},
	{-0.5384693, 0.47862867},
	{0.5384693, 0.47862867},
	{-0.90617985, 0.23692688},
	{0.90617985, 0.23692688},
}

// SegmentLength integrates |dP/dt| over [0,param] with Legendre-Gauss
// quadrature.
func SegmentLength(p0, t0, p1, t1 mgl64.Vec3, param float64) float64 {
	c1, c2, c3 := derivativeCoefficients(p0, t0, p1, t1)
	half := param * 0.5
	length := 0.0
	for _, lg := range legendreGauss {
		alpha := half * (1 + lg.x)
		d := c1.Mul(alpha).Add(c2).Mul(alpha).Add(c3)
		length += d.Len() * lg.w
	}
	return length * half
}

func clamp01(t float64) float64 {
	return math.Max(0, math.Min(1, t))
}
