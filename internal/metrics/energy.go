package metrics

import (
	"github.com/san-kum/tether/internal/model"
)

// KineticEnergy is the summed squared particle speed of the latest substep of
// every observed series, with unit particle mass. Speed is recovered from the
// Verlet pair as |pos-prev|/dt.
type KineticEnergy struct {
	name     string
	dt       float64
	bySeries map[int]float64
}

func NewKineticEnergy(dt float64) *KineticEnergy {
	return &KineticEnergy{
		name:     "kinetic_energy",
		dt:       dt,
		bySeries: make(map[int]float64),
	}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(series model.Series, t float64) {
	if e.dt <= 0 {
		return
	}
	sum := 0.0
	for _, p := range series.Particles() {
		d := p.Position.Sub(p.PrevPosition)
		sum += d.Dot(d)
	}
	e.bySeries[series.FirstSegmentID()] = sum / (e.dt * e.dt)
}

func (e *KineticEnergy) Value() float64 {
	total := 0.0
	for _, v := range e.bySeries {
		total += v
	}
	return total
}

func (e *KineticEnergy) Reset() {
	clear(e.bySeries)
}
