package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/model"
)

const minConstraintDistance = 1e-4

// Solver relaxes the structural and stiffness distance constraints of a
// series.
type Solver struct {
	Iterations int
	Stiffness  bool
	Points     func(i int) PointOptions
}

func NewSolver(p *Params) *Solver {
	return &Solver{
		Iterations: p.Options.Iterations,
		Stiffness:  p.Options.Stiffness,
		Points:     p.Point,
	}
}

// Solve runs the configured number of passes over the series. When an end
// of the series pins its tangent, a fixed synthetic particle one spacing
// beyond that end takes part in the constraints and is discarded afterwards.
func (s *Solver) Solve(series model.Series, forceMultiplier float64) error {
	links := series.NumParticleSegments()
	if links == 0 {
		return nil
	}
	spacing := series.Length() / float64(links)
	if !(spacing > minConstraintDistance) {
		return fmt.Errorf("%w: spacing %g", ErrDegenerateConstraint, spacing)
	}

	particles := series.Particles()
	info := series.Info()
	chain := make([]*model.Particle, 0, len(particles)+2)

	if s.point(series.FirstSegmentID()).FixesTangent() {
		dir := direction(info.StartLeaveTangent, info.EndLocation.Sub(info.StartLocation))
		pos := particles[0].Position.Sub(dir.Mul(spacing))
		chain = append(chain, &model.Particle{ID: -1, Position: pos, PrevPosition: pos})
	}
	chain = append(chain, particles...)
	if s.point(series.LastSegmentID() + 1).FixesTangent() {
		dir := direction(info.EndArriveTangent, info.EndLocation.Sub(info.StartLocation))
		last := particles[len(particles)-1]
		pos := last.Position.Add(dir.Mul(spacing))
		chain = append(chain, &model.Particle{ID: -1, Position: pos, PrevPosition: pos})
	}

	for iter := 0; iter < s.Iterations; iter++ {
		for i := 0; i+1 < len(chain); i++ {
			if err := SolveDistance(chain[i], chain[i+1], spacing, forceMultiplier); err != nil {
				return fmt.Errorf("pair %d: %w", i, err)
			}
		}
		if !s.Stiffness {
			continue
		}
		for i := 0; i+2 < len(chain); i++ {
			if err := SolveDistance(chain[i], chain[i+2], 2*spacing, forceMultiplier); err != nil {
				return fmt.Errorf("stiffness pair %d: %w", i, err)
			}
		}
	}
	return nil
}

func (s *Solver) point(i int) PointOptions {
	if s.Points == nil {
		return DefaultPointOptions()
	}
	return s.Points(i)
}

// direction normalises t, falling back to the chord for linear spans.
func direction(t, chord mgl64.Vec3) mgl64.Vec3 {
	if t.LenSqr() > 0 {
		return t.Normalize()
	}
	if chord.LenSqr() > 0 {
		return chord.Normalize()
	}
	return mgl64.Vec3{1, 0, 0}
}

// SolveDistance moves a and b toward distance d. Fixed particles never
// move; a single free particle takes the full correction.
func SolveDistance(a, b *model.Particle, d, forceMultiplier float64) error {
	if !(d > minConstraintDistance) {
		return fmt.Errorf("%w: target distance %g", ErrDegenerateConstraint, d)
	}
	delta := b.Position.Sub(a.Position)
	dist := delta.Len()
	if dist == 0 {
		return fmt.Errorf("%w: particles %d and %d coincide", ErrDegenerateConstraint, a.ID, b.ID)
	}
	errFactor := (dist - d) / dist
	if errFactor == 1 {
		return fmt.Errorf("%w: singular error factor", ErrDegenerateConstraint)
	}

	switch {
	case a.Free && b.Free:
		corr := delta.Mul(errFactor * 0.5 * forceMultiplier)
		a.Position = a.Position.Add(corr)
		b.Position = b.Position.Sub(corr)
	case a.Free:
		a.Position = a.Position.Add(delta.Mul(errFactor * forceMultiplier))
	case b.Free:
		b.Position = b.Position.Sub(delta.Mul(errFactor * forceMultiplier))
	}
	if a.HasNaN() || b.HasNaN() {
		return fmt.Errorf("%w: after constraint between %d and %d", ErrNaNPosition, a.ID, b.ID)
	}
	if !a.IsFinite() || !b.IsFinite() {
		return fmt.Errorf("%w: after constraint between %d and %d", ErrInfinitePosition, a.ID, b.ID)
	}
	return nil
}
