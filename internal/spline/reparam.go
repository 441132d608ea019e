package spline

import "sort"

// DefaultReparamSteps is the number of table entries per span.
const DefaultReparamSteps = 10

// ReparamTable maps arc length back to the span parameter.
type ReparamTable struct {
	params []float64
	dists  []float64
}

func NewReparamTable(s Span, steps int) *ReparamTable {
	if steps < 1 {
		steps = DefaultReparamSteps
	}
	r := &ReparamTable{
		params: make([]float64, steps+1),
		dists:  make([]float64, steps+1),
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		r.params[i] = t
		r.dists[i] = s.Length(t)
	}
	return r
}

func (r *ReparamTable) Length() float64 {
	return r.dists[len(r.dists)-1]
}

// Param returns the parameter at arc length dist, interpolating linearly
// between table entries.
func (r *ReparamTable) Param(dist float64) float64 {
	last := len(r.dists) - 1
	if dist <= 0 || r.dists[last] == 0 {
		return 0
	}
	if dist >= r.dists[last] {
		return 1
	}
	i := sort.SearchFloat64s(r.dists, dist)
	if i == 0 {
		return 0
	}
	if r.dists[i] == dist {
		return r.params[i]
	}
	d0, d1 := r.dists[i-1], r.dists[i]
	if d1 == d0 {
		return r.params[i]
	}
	alpha := (dist - d0) / (d1 - d0)
	return r.params[i-1] + alpha*(r.params[i]-r.params[i-1])
}
