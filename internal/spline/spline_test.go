package spline

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHermiteEndpoints(t *testing.T) {
	p0 := mgl64.Vec3{0, 0, 0}
	p1 := mgl64.Vec3{100, 50, -20}
	t0 := mgl64.Vec3{30, 0, 0}
	t1 := mgl64.Vec3{0, 30, 0}

	assert.Equal(t, p0, Hermite(p0, t0, p1, t1, 0))
	assert.True(t, p1.ApproxEqual(Hermite(p0, t0, p1, t1, 1)))
	assert.Equal(t, t0, HermiteDerivative(p0, t0, p1, t1, 0))
	assert.True(t, t1.ApproxEqualThreshold(HermiteDerivative(p0, t0, p1, t1, 1), 1e-9))
}

func TestSegmentLengthStraight(t *testing.T) {
	tests := []struct {
		name  string
		span  Span
		want  float64
		param float64
	}{
		{"linear", NewSpan(mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{1000, 0, 0}, mgl64.Vec3{}), 1000, 1},
		{"linear half", NewSpan(mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{1000, 0, 0}, mgl64.Vec3{}), 500, 0.5},
		{"hermite chord tangents", NewSpan(mgl64.Vec3{}, mgl64.Vec3{300, 0, 0}, mgl64.Vec3{300, 0, 0}, mgl64.Vec3{300, 0, 0}), 300, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.span.Length(tt.param), 1e-3)
		})
	}
}

func TestSegmentLengthCurved(t *testing.T) {
	// Quarter-circle-ish arc, radius 100. Arc length ~157.
	span := NewSpan(mgl64.Vec3{100, 0, 0}, mgl64.Vec3{0, 157, 0}, mgl64.Vec3{0, 100, 0}, mgl64.Vec3{-157, 0, 0})
	l := span.Length(1)
	assert.Greater(t, l, mgl64.Vec3{100, -100, 0}.Len())
	assert.InDelta(t, math.Pi*50, l, 5)
}

func TestReparamTable(t *testing.T) {
	span := NewSpan(mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{0, 0, 200}, mgl64.Vec3{})
	table := NewReparamTable(span, DefaultReparamSteps)

	require.InDelta(t, 200, table.Length(), 1e-9)
	assert.Equal(t, 0.0, table.Param(-5))
	assert.Equal(t, 1.0, table.Param(500))
	assert.InDelta(t, 0.25, table.Param(50), 1e-9)
	assert.InDelta(t, 0.5, table.Param(100), 1e-9)
}

func TestReparamTableMonotonic(t *testing.T) {
	span := NewSpan(mgl64.Vec3{}, mgl64.Vec3{400, 0, 0}, mgl64.Vec3{100, 0, 0}, mgl64.Vec3{0, 0, -400})
	table := NewReparamTable(span, DefaultReparamSteps)

	prev := -1.0
	for d := 0.0; d <= table.Length(); d += table.Length() / 37 {
		p := table.Param(d)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
}

func TestSimplify(t *testing.T) {
	points := []mgl64.Vec3{
		{0, 0, 0},
		{1, 0, 0.01},
		{2, 0, -0.01},
		{3, 0, 0},
		{3, 0, 5},
		{3, 0, 10},
	}

	out := Simplify(points, 0.1)
	require.Len(t, out, 3)
	assert.Equal(t, points[0], out[0])
	assert.Equal(t, points[3], out[1])
	assert.Equal(t, points[5], out[2])
}

func TestSimplifyShortInput(t *testing.T) {
	pts := []mgl64.Vec3{{1, 2, 3}, {4, 5, 6}}
	out := Simplify(pts, 10)
	assert.Equal(t, pts, out)

	out[0] = mgl64.Vec3{}
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, pts[0], "Simplify must not alias its input")
}
