package model

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/spline"
)

// MinSegmentLength is the smallest rest length a segment may carry.
const MinSegmentLength = 0.01

// SegmentInfo is the boundary geometry of one guide span.
type SegmentInfo struct {
	StartLocation     mgl64.Vec3 `json:"start_location"`
	StartLeaveTangent mgl64.Vec3 `json:"start_leave_tangent"`
	EndLocation       mgl64.Vec3 `json:"end_location"`
	EndArriveTangent  mgl64.Vec3 `json:"end_arrive_tangent"`
}

// Equals compares locations within tol. Tangents are only compared at the
// ends that ask for it.
func (i SegmentInfo) Equals(o SegmentInfo, tol float64, startTangent, endTangent bool) bool {
	if !approxEqual(i.StartLocation, o.StartLocation, tol) || !approxEqual(i.EndLocation, o.EndLocation, tol) {
		return false
	}
	if startTangent && !approxEqual(i.StartLeaveTangent, o.StartLeaveTangent, tol) {
		return false
	}
	if endTangent && !approxEqual(i.EndArriveTangent, o.EndArriveTangent, tol) {
		return false
	}
	return true
}

func (i SegmentInfo) HasNaN() bool {
	return vecHasNaN(i.StartLocation) || vecHasNaN(i.StartLeaveTangent) ||
		vecHasNaN(i.EndLocation) || vecHasNaN(i.EndArriveTangent)
}

// Span is the curve the segment's particles are sampled from.
func (i SegmentInfo) Span() spline.Span {
	return spline.NewSpan(i.StartLocation, i.StartLeaveTangent, i.EndLocation, i.EndArriveTangent)
}

func approxEqual(a, b mgl64.Vec3, tol float64) bool {
	return math.Abs(a[0]-b[0]) <= tol && math.Abs(a[1]-b[1]) <= tol && math.Abs(a[2]-b[2]) <= tol
}

type SegmentState int

const (
	SegmentInvalid SegmentState = iota
	SegmentValid
)

func (s SegmentState) String() string {
	if s == SegmentValid {
		return "valid"
	}
	return "invalid"
}

// Segment is one guide span and the particle chain simulated for it.
type Segment struct {
	ID             int
	Info           SegmentInfo
	Length         float64
	Particles      []Particle
	SimulationTime float64
	state          SegmentState
}

// NewSegment returns an invalidated segment with the given id.
func NewSegment(id int) Segment {
	return Segment{ID: id, state: SegmentInvalid}
}

func (s *Segment) State() SegmentState { return s.state }
func (s *Segment) IsInvalidated() bool { return s.state == SegmentInvalid }
func (s *Segment) Invalidate()         { s.state = SegmentInvalid }
func (s *Segment) MarkValid()          { s.state = SegmentValid }

// HasParticles reports whether the segment has been built.
func (s *Segment) HasParticles() bool { return len(s.Particles) > 0 }

// First and Last return nil for an unbuilt segment.
func (s *Segment) First() *Particle {
	if len(s.Particles) == 0 {
		return nil
	}
	return &s.Particles[0]
}

func (s *Segment) Last() *Particle {
	if len(s.Particles) == 0 {
		return nil
	}
	return &s.Particles[len(s.Particles)-1]
}

// BuildParticles discards the current chain and resamples Info into evenly
// spaced particles. The count is derived from the larger of the rest length
// and the curve length so a slack-free span never starts stretched. No
// particles are built for a span whose ends coincide.
func (s *Segment) BuildParticles(spacing float64, startFixed, endFixed bool) {
	s.Particles = nil
	s.SimulationTime = 0
	if spacing <= 0 || approxEqual(s.Info.StartLocation, s.Info.EndLocation, 1e-4) {
		return
	}

	span := s.Info.Span()
	table := spline.NewReparamTable(span, spline.DefaultReparamSteps)
	curveLen := table.Length()
	n := int(math.Max(s.Length, curveLen)/spacing) + 1
	if n < 2 {
		n = 2
	}

	s.Particles = make([]Particle, n)
	for i := 0; i < n; i++ {
		var pos mgl64.Vec3
		switch i {
		case 0:
			pos = s.Info.StartLocation
		case n - 1:
			pos = s.Info.EndLocation
		default:
			alpha := float64(i) / float64(n-1)
			pos = span.Eval(table.Param(alpha * curveLen))
		}
		free := true
		if (i == 0 && startFixed) || (i == n-1 && endFixed) {
			free = false
		}
		s.Particles[i] = Particle{Free: free, Position: pos, PrevPosition: pos}
	}
}

// Clone returns a deep copy.
func (s *Segment) Clone() Segment {
	c := *s
	if s.Particles != nil {
		c.Particles = make([]Particle, len(s.Particles))
		copy(c.Particles, s.Particles)
	}
	return c
}
