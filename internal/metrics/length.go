package metrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/model"
	"github.com/san-kum/tether/internal/sim"
)

// Length is the polyline length of the latest state of every observed
// series.
type Length struct {
	name     string
	bySeries map[int]float64
}

func NewLength() *Length {
	return &Length{name: "length", bySeries: make(map[int]float64)}
}

func (l *Length) Name() string { return l.name }

func (l *Length) Observe(series model.Series, t float64) {
	l.bySeries[series.FirstSegmentID()] = polyline(series.ParticleLocations())
}

func (l *Length) Value() float64 {
	total := 0.0
	for _, v := range l.bySeries {
		total += v
	}
	return total
}

func (l *Length) Reset() { clear(l.bySeries) }

func polyline(points []mgl64.Vec3) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += points[i].Sub(points[i-1]).Len()
	}
	return total
}

// Sag is the deepest drop of any particle below the straight chord between
// the ends of its series, measured along Z.
type Sag struct {
	name     string
	bySeries map[int]float64
}

func NewSag() *Sag {
	return &Sag{name: "sag", bySeries: make(map[int]float64)}
}

func (s *Sag) Name() string { return s.name }

func (s *Sag) Observe(series model.Series, t float64) {
	s.bySeries[series.FirstSegmentID()] = chordDrop(series.ParticleLocations())
}

func (s *Sag) Value() float64 {
	worst := 0.0
	for _, v := range s.bySeries {
		worst = math.Max(worst, v)
	}
	return worst
}

func (s *Sag) Reset() { clear(s.bySeries) }

func chordDrop(points []mgl64.Vec3) float64 {
	if len(points) < 3 {
		return 0
	}
	a, b := points[0], points[len(points)-1]
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	worst := 0.0
	for _, p := range points[1 : len(points)-1] {
		s := 0.0
		if lenSq > 0 {
			s = mgl64.Clamp(p.Sub(a).Dot(ab)/lenSq, 0, 1)
		}
		chord := a.Add(ab.Mul(s))
		worst = math.Max(worst, chord.Z()-p.Z())
	}
	return worst
}

// Standard is the set of metrics reported for every run.
func Standard(substep float64) []sim.Metric {
	return []sim.Metric{NewLength(), NewSag(), NewStretch(), NewKineticEnergy(substep)}
}

// Evaluate measures a settled model as one series per fixed-anchor span set,
// the same way a run would have observed it last.
func Evaluate(m *model.Model, p *sim.Params) map[string]float64 {
	out := make(map[string]float64)
	ms := Standard(p.Options.Substep)
	for _, series := range p.SeriesToSimulate(m, false) {
		for _, mt := range ms {
			mt.Observe(series, series.SimulationTime())
		}
	}
	for _, mt := range ms {
		out[mt.Name()] = mt.Value()
	}
	return out
}
