package metrics

import (
	"math"

	"github.com/san-kum/tether/internal/model"
)

// Stretch is the largest ratio of particle distance to rest spacing seen in
// the latest substep of any series. A fully converged cable reads 1 or less.
type Stretch struct {
	name     string
	bySeries map[int]float64
}

func NewStretch() *Stretch {
	return &Stretch{
		name:     "stretch",
		bySeries: make(map[int]float64),
	}
}

func (s *Stretch) Name() string { return s.name }

func (s *Stretch) Observe(series model.Series, t float64) {
	worst := 0.0
	for i := 0; i < series.NumSegments(); i++ {
		seg := series.Segment(i)
		n := len(seg.Particles)
		if n < 2 || seg.Length <= 0 {
			continue
		}
		rest := seg.Length / float64(n-1)
		for j := 1; j < n; j++ {
			d := seg.Particles[j].Position.Sub(seg.Particles[j-1].Position).Len()
			worst = math.Max(worst, d/rest)
		}
	}
	s.bySeries[series.FirstSegmentID()] = worst
}

func (s *Stretch) Value() float64 {
	worst := 0.0
	for _, v := range s.bySeries {
		worst = math.Max(worst, v)
	}
	return worst
}

func (s *Stretch) Reset() {
	clear(s.bySeries)
}
