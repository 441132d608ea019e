package model

import "github.com/go-gl/mathgl/mgl64"

// Store is anything that can hand out a contiguous run of segments.
type Store interface {
	NumSegments() int
	Segment(i int) *Segment
}

// Proxy is a Store over segments owned by someone else.
type Proxy []*Segment

func (p Proxy) NumSegments() int       { return len(p) }
func (p Proxy) Segment(i int) *Segment { return p[i] }

// Series presents the segments of a Store as one particle chain. The shared
// particle at each join is counted once unless dup is requested.
type Series struct {
	Store
}

func NewSeries(s Store) Series { return Series{Store: s} }

func (s Series) Empty() bool { return s.Store == nil || s.NumSegments() == 0 }

func (s Series) NumParticles(dup bool) int {
	if s.Empty() {
		return 0
	}
	count := 0
	for i := 0; i < s.NumSegments(); i++ {
		n := len(s.Segment(i).Particles)
		if n == 0 {
			continue
		}
		if count > 0 && !dup {
			count += n - 1
		} else {
			count += n
		}
	}
	return count
}

// NumParticleSegments is the number of particle-to-particle links.
func (s Series) NumParticleSegments() int {
	n := s.NumParticles(false)
	if n == 0 {
		return 0
	}
	return n - 1
}

func (s Series) HasAnyParticles() bool { return s.NumParticles(false) > 0 }

// Particle returns the de-duplicated particle at idx, or nil when idx is out
// of range. A join particle resolves to the earlier segment's copy.
func (s Series) Particle(idx int) *Particle {
	seg, local := s.locate(idx)
	if seg < 0 {
		return nil
	}
	return &s.Segment(seg).Particles[local]
}

// SegmentIndexOfParticle returns the series-local index of the segment that
// owns the de-duplicated particle idx, or -1.
func (s Series) SegmentIndexOfParticle(idx int) int {
	seg, _ := s.locate(idx)
	return seg
}

func (s Series) locate(idx int) (int, int) {
	if idx < 0 || s.Empty() {
		return -1, -1
	}
	cur := 0
	for i := 0; i < s.NumSegments(); i++ {
		n := len(s.Segment(i).Particles)
		if n == 0 {
			continue
		}
		if cur == 0 {
			if idx < n {
				return i, idx
			}
			cur = n
			continue
		}
		if idx < cur+n-1 {
			return i, idx - cur + 1
		}
		cur += n - 1
	}
	return -1, -1
}

// Particles returns pointers to the de-duplicated chain in index order.
func (s Series) Particles() []*Particle {
	out := make([]*Particle, 0, s.NumParticles(false))
	for i := 0; i < s.NumSegments(); i++ {
		seg := s.Segment(i)
		start := 0
		if len(out) > 0 {
			start = 1
		}
		for j := start; j < len(seg.Particles); j++ {
			out = append(out, &seg.Particles[j])
		}
	}
	return out
}

// StartingParticleIndex is the de-duplicated index of the first particle of
// the segment at series index k.
func (s Series) StartingParticleIndex(k int) int {
	idx := 0
	for i := 0; i < k && i < s.NumSegments(); i++ {
		n := len(s.Segment(i).Particles)
		if n > 0 {
			idx += n - 1
		}
	}
	return idx
}

func (s Series) FirstSegmentID() int {
	if s.Empty() {
		return -1
	}
	return s.Segment(0).ID
}

func (s Series) LastSegmentID() int {
	if s.Empty() {
		return -1
	}
	return s.Segment(s.NumSegments() - 1).ID
}

// IndexOfSegmentID maps a segment id to its index in the series, or -1.
func (s Series) IndexOfSegmentID(id int) int {
	if s.Empty() {
		return -1
	}
	idx := id - s.FirstSegmentID()
	if idx < 0 || idx >= s.NumSegments() {
		return -1
	}
	return idx
}

func (s Series) SegmentIDs() []int {
	if s.Empty() {
		return nil
	}
	ids := make([]int, s.NumSegments())
	for i := range ids {
		ids[i] = s.Segment(i).ID
	}
	return ids
}

// Info spans from the first segment's start to the last segment's end.
func (s Series) Info() SegmentInfo {
	if s.Empty() {
		return SegmentInfo{}
	}
	first := s.Segment(0).Info
	last := s.Segment(s.NumSegments() - 1).Info
	return SegmentInfo{
		StartLocation:     first.StartLocation,
		StartLeaveTangent: first.StartLeaveTangent,
		EndLocation:       last.EndLocation,
		EndArriveTangent:  last.EndArriveTangent,
	}
}

func (s Series) Length() float64 {
	total := 0.0
	for i := 0; i < s.NumSegments(); i++ {
		total += s.Segment(i).Length
	}
	return total
}

// SimulationTime is the first segment's simulated time.
func (s Series) SimulationTime() float64 {
	if s.Empty() {
		return 0
	}
	return s.Segment(0).SimulationTime
}

func (s Series) AddSimulationTime(dt float64) {
	for i := 0; i < s.NumSegments(); i++ {
		s.Segment(i).SimulationTime += dt
	}
}

// IsValid reports whether every segment has a positive rest length.
func (s Series) IsValid() bool {
	for i := 0; i < s.NumSegments(); i++ {
		if s.Segment(i).Length <= 0 {
			return false
		}
	}
	return true
}

// SynchronizeConnectingParticles copies each segment's last particle onto
// the next segment's first.
func (s Series) SynchronizeConnectingParticles() {
	for i := 1; i < s.NumSegments(); i++ {
		prev := s.Segment(i - 1)
		cur := s.Segment(i)
		if !prev.HasParticles() || !cur.HasParticles() {
			continue
		}
		cur.Particles[0] = *prev.Last()
	}
}

func (s Series) ParticleLocations() []mgl64.Vec3 {
	particles := s.Particles()
	out := make([]mgl64.Vec3, len(particles))
	for i, p := range particles {
		out[i] = p.Position
	}
	return out
}
