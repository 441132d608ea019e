// Package guide is the authored curve a cable follows. Each pair of
// consecutive points defines one span, and each span becomes one simulation
// segment.
package guide

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/model"
	"github.com/san-kum/tether/internal/spline"
)

// Point is one control point. Slack and Linear describe the span that
// leaves this point.
type Point struct {
	Location    mgl64.Vec3
	Tangent     mgl64.Vec3
	AutoTangent bool
	Linear      bool
	Slack       float64
	FixedAnchor bool
	UseTangent  bool
}

// NewPoint returns a fixed anchor with an automatic tangent.
func NewPoint(loc mgl64.Vec3) Point {
	return Point{Location: loc, AutoTangent: true, FixedAnchor: true}
}

type Guide struct {
	points []Point
}

func New(points ...Point) *Guide {
	g := &Guide{points: make([]Point, len(points))}
	copy(g.points, points)
	return g
}

func (g *Guide) Clone() *Guide { return New(g.points...) }

func (g *Guide) NumPoints() int { return len(g.points) }

func (g *Guide) NumSegments() int {
	if len(g.points) < 2 {
		return 0
	}
	return len(g.points) - 1
}

func (g *Guide) Point(i int) Point { return g.points[i] }

func (g *Guide) Points() []Point {
	out := make([]Point, len(g.points))
	copy(out, g.points)
	return out
}

func (g *Guide) check(i int) error {
	if i < 0 || i >= len(g.points) {
		return fmt.Errorf("guide: point %d out of range [0,%d)", i, len(g.points))
	}
	return nil
}

// AddPoint inserts p before index i. An index equal to NumPoints appends.
func (g *Guide) AddPoint(i int, p Point) error {
	if i < 0 || i > len(g.points) {
		return fmt.Errorf("guide: insert index %d out of range [0,%d]", i, len(g.points))
	}
	g.points = append(g.points, Point{})
	copy(g.points[i+1:], g.points[i:])
	g.points[i] = p
	return nil
}

func (g *Guide) RemovePoint(i int) error {
	if err := g.check(i); err != nil {
		return err
	}
	g.points = append(g.points[:i], g.points[i+1:]...)
	return nil
}

func (g *Guide) SetLocation(i int, loc mgl64.Vec3) error {
	if err := g.check(i); err != nil {
		return err
	}
	g.points[i].Location = loc
	return nil
}

// SetTangent pins an explicit tangent at point i.
func (g *Guide) SetTangent(i int, t mgl64.Vec3) error {
	if err := g.check(i); err != nil {
		return err
	}
	g.points[i].Tangent = t
	g.points[i].AutoTangent = false
	return nil
}

// AddSlack changes the slack of span i, clamped so it never goes negative.
func (g *Guide) AddSlack(i int, delta float64) error {
	if i < 0 || i >= g.NumSegments() {
		return fmt.Errorf("guide: segment %d out of range [0,%d)", i, g.NumSegments())
	}
	g.points[i].Slack = math.Max(0, g.points[i].Slack+delta)
	return nil
}

func (g *Guide) SetPointOptions(i int, fixed, useTangent bool) error {
	if err := g.check(i); err != nil {
		return err
	}
	g.points[i].FixedAnchor = fixed
	g.points[i].UseTangent = useTangent
	return nil
}

func (g *Guide) SetLinear(i int, linear bool) error {
	if err := g.check(i); err != nil {
		return err
	}
	g.points[i].Linear = linear
	return nil
}

// Tangent is the explicit tangent, or a finite difference of the
// neighbouring points.
func (g *Guide) Tangent(i int) mgl64.Vec3 {
	p := g.points[i]
	if !p.AutoTangent {
		return p.Tangent
	}
	n := len(g.points)
	switch {
	case n < 2:
		return mgl64.Vec3{}
	case i == 0:
		return g.points[1].Location.Sub(p.Location)
	case i == n-1:
		return p.Location.Sub(g.points[n-2].Location)
	default:
		return g.points[i+1].Location.Sub(g.points[i-1].Location).Mul(0.5)
	}
}

// SegmentInfo is the boundary geometry of span i. Linear spans carry zero
// tangents.
func (g *Guide) SegmentInfo(i int) model.SegmentInfo {
	start, end := g.points[i], g.points[i+1]
	info := model.SegmentInfo{
		StartLocation: start.Location,
		EndLocation:   end.Location,
	}
	if !start.Linear {
		info.StartLeaveTangent = g.Tangent(i)
		info.EndArriveTangent = g.Tangent(i + 1)
	}
	return info
}

func (g *Guide) Span(i int) spline.Span { return g.SegmentInfo(i).Span() }

// SegmentLength is the curve length of span i.
func (g *Guide) SegmentLength(i int) float64 { return g.Span(i).Length(1) }

// RestLength is the curve length plus slack, never below
// model.MinSegmentLength.
func (g *Guide) RestLength(i int) float64 {
	return math.Max(g.SegmentLength(i)+g.points[i].Slack, model.MinSegmentLength)
}

// Length is the summed curve length of every span.
func (g *Guide) Length() float64 {
	total := 0.0
	for i := 0; i < g.NumSegments(); i++ {
		total += g.SegmentLength(i)
	}
	return total
}
