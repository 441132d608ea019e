package model

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Model is the root aggregate of one cable. BaseTransform records the frame
// the model was last simulated in.
type Model struct {
	BaseTransform mgl64.Mat4
	Segments      []Segment
}

func New() *Model {
	return &Model{BaseTransform: mgl64.Ident4()}
}

func (m *Model) NumSegments() int       { return len(m.Segments) }
func (m *Model) Segment(i int) *Segment { return &m.Segments[i] }

// Series views the whole model.
func (m *Model) Series() Series { return NewSeries(m) }

// SeriesUpTo views segments [0, lastID].
func (m *Model) SeriesUpTo(lastID int) Series {
	if lastID >= len(m.Segments) {
		lastID = len(m.Segments) - 1
	}
	if lastID < 0 {
		return NewSeries(Proxy{})
	}
	proxy := make(Proxy, 0, lastID+1)
	for i := 0; i <= lastID; i++ {
		proxy = append(proxy, &m.Segments[i])
	}
	return NewSeries(proxy)
}

// Range views segments [first, last].
func (m *Model) Range(first, last int) Series {
	if first < 0 || last < first {
		return NewSeries(Proxy{})
	}
	proxy := make(Proxy, 0, last-first+1)
	for i := first; i <= last && i < len(m.Segments); i++ {
		proxy = append(proxy, &m.Segments[i])
	}
	return NewSeries(proxy)
}

// UpdateNumSegments grows or truncates the segment list. New segments start
// invalidated. It reports whether the count changed.
func (m *Model) UpdateNumSegments(n int) bool {
	if n < 0 {
		n = 0
	}
	cur := len(m.Segments)
	switch {
	case n > cur:
		for i := cur; i < n; i++ {
			m.Segments = append(m.Segments, NewSegment(i))
		}
	case n < cur:
		m.Segments = m.Segments[:n]
	default:
		return false
	}
	return true
}

// RemoveSegment deletes the segment at idx and renumbers the rest.
func (m *Model) RemoveSegment(idx int) {
	if idx < 0 || idx >= len(m.Segments) {
		return
	}
	m.Segments = append(m.Segments[:idx], m.Segments[idx+1:]...)
	m.UpdateSegmentIDs()
}

// InsertSegment adds an invalidated segment at idx and renumbers the rest.
func (m *Model) InsertSegment(idx int) {
	if idx < 0 {
		idx = 0
	}
	if idx > len(m.Segments) {
		idx = len(m.Segments)
	}
	m.Segments = append(m.Segments, Segment{})
	copy(m.Segments[idx+1:], m.Segments[idx:])
	m.Segments[idx] = NewSegment(idx)
	m.UpdateSegmentIDs()
}

func (m *Model) UpdateSegmentIDs() {
	for i := range m.Segments {
		m.Segments[i].ID = i
	}
}

// IsValid reports whether every segment id matches its index.
func (m *Model) IsValid() bool {
	for i := range m.Segments {
		if m.Segments[i].ID != i {
			return false
		}
	}
	return true
}

func (m *Model) InvalidatedSegments() []int {
	var ids []int
	for i := range m.Segments {
		if m.Segments[i].IsInvalidated() {
			ids = append(ids, i)
		}
	}
	return ids
}

func (m *Model) HasInvalidatedSegments() bool {
	for i := range m.Segments {
		if m.Segments[i].IsInvalidated() {
			return true
		}
	}
	return false
}

func (m *Model) InvalidateAll() {
	for i := range m.Segments {
		m.Segments[i].Invalidate()
	}
}

// AssignParticleIDs numbers particles by their de-duplicated index. The two
// copies of a join particle share an id.
func (m *Model) AssignParticleIDs() {
	next := 0
	for i := range m.Segments {
		seg := &m.Segments[i]
		if len(seg.Particles) == 0 {
			continue
		}
		base := next
		if next > 0 {
			base = next - 1
		}
		for j := range seg.Particles {
			seg.Particles[j].ID = base + j
		}
		next = base + len(seg.Particles)
	}
}

// ParticleLocations returns the de-duplicated chain positions.
func (m *Model) ParticleLocations() []mgl64.Vec3 {
	return m.Series().ParticleLocations()
}

func (m *Model) NumParticles() int { return m.Series().NumParticles(false) }

// Length is the summed rest length of all segments.
func (m *Model) Length() float64 {
	return m.Series().Length()
}

// Clone returns a deep copy that shares no particle storage with m.
func (m *Model) Clone() *Model {
	c := &Model{BaseTransform: m.BaseTransform}
	if m.Segments != nil {
		c.Segments = make([]Segment, len(m.Segments))
		for i := range m.Segments {
			c.Segments[i] = m.Segments[i].Clone()
		}
	}
	return c
}

// Hash digests every particle's flags and exact positions. Two models with
// bit-identical particle state hash equal.
func (m *Model) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	writeFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	for i := range m.Segments {
		seg := &m.Segments[i]
		binary.LittleEndian.PutUint64(buf[:], uint64(seg.ID))
		h.Write(buf[:])
		for _, p := range seg.Particles {
			if p.Free {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
			for _, c := range p.Position {
				writeFloat(c)
			}
			for _, c := range p.PrevPosition {
				writeFloat(c)
			}
		}
	}
	return h.Sum64()
}
