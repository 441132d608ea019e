package model

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Particle is a point mass. Fixed particles are kinematic anchors.
type Particle struct {
	ID           int
	Free         bool
	Position     mgl64.Vec3
	PrevPosition mgl64.Vec3
}

// Velocity is the implied per-substep velocity.
func (p *Particle) Velocity() mgl64.Vec3 {
	return p.Position.Sub(p.PrevPosition)
}

func (p *Particle) HasNaN() bool {
	return vecHasNaN(p.Position) || vecHasNaN(p.PrevPosition)
}

func vecHasNaN(v mgl64.Vec3) bool {
	return math.IsNaN(v[0]) || math.IsNaN(v[1]) || math.IsNaN(v[2])
}

func vecIsFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// IsFinite reports whether both positions hold only finite components.
func (p *Particle) IsFinite() bool {
	return vecIsFinite(p.Position) && vecIsFinite(p.PrevPosition)
}
