package integrators

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/model"
)

var (
	// ErrNaNPosition indicates a particle position that is not a number.
	ErrNaNPosition = errors.New("integrators: particle position is NaN")

	// ErrInfinitePosition indicates a particle position that overflowed.
	ErrInfinitePosition = errors.New("integrators: particle position is infinite")

	// ErrCoincidentParticles indicates two adjacent particles at the exact
	// same position, which would make their distance constraint singular.
	ErrCoincidentParticles = errors.New("integrators: adjacent particles are coincident")
)

// ParticleError names the particle that broke an integration precondition.
type ParticleError struct {
	Index   int
	ID      int
	Wrapped error
}

func (e *ParticleError) Error() string {
	return fmt.Sprintf("particle %d (id %d): %v", e.Index, e.ID, e.Wrapped)
}

func (e *ParticleError) Unwrap() error { return e.Wrapped }

// checkFinite reports the first non-finite coordinate of p as NaN or
// infinite.
func checkFinite(i int, p *model.Particle) error {
	switch {
	case p.HasNaN():
		return &ParticleError{Index: i, ID: p.ID, Wrapped: ErrNaNPosition}
	case !p.IsFinite():
		return &ParticleError{Index: i, ID: p.ID, Wrapped: ErrInfinitePosition}
	}
	return nil
}

// Verlet is a position Verlet integrator with quadratic drag. Velocity is
// implied by the previous position, so a substep never stores it.
type Verlet struct {
	Force mgl64.Vec3
	Drag  float64
}

func NewVerlet(force mgl64.Vec3, drag float64) *Verlet {
	return &Verlet{Force: force, Drag: drag}
}

// Integrate advances every free particle of the series by one substep, in
// index order. Fixed particles are left exactly where they are.
func (v *Verlet) Integrate(series model.Series, dt float64) error {
	accel := v.Force.Mul(dt * dt)
	particles := series.Particles()

	for i, p := range particles {
		if err := checkFinite(i, p); err != nil {
			return err
		}
		if !p.Free {
			continue
		}

		vel := p.Position.Sub(p.PrevPosition)
		if v.Drag > 0 {
			if speedSq := vel.LenSqr(); speedSq > 0 {
				vel = vel.Sub(vel.Normalize().Mul(0.5 * speedSq * v.Drag))
			}
		}

		p.PrevPosition = p.Position
		p.Position = p.Position.Add(vel).Add(accel)

		if err := checkFinite(i, p); err != nil {
			return err
		}
		if i > 0 && p.Position == particles[i-1].Position {
			return &ParticleError{Index: i, ID: p.ID, Wrapped: ErrCoincidentParticles}
		}
	}
	return nil
}
