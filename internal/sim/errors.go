package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/tether/internal/integrators"
)

var (
	// ErrNaNPosition indicates a particle position that is not a number.
	ErrNaNPosition = integrators.ErrNaNPosition

	// ErrInfinitePosition indicates a particle position that overflowed.
	ErrInfinitePosition = integrators.ErrInfinitePosition

	// ErrCoincidentParticles indicates adjacent particles at the same point.
	ErrCoincidentParticles = integrators.ErrCoincidentParticles

	// ErrDegenerateConstraint indicates a distance constraint with a zero
	// target, coincident particles or a singular error factor.
	ErrDegenerateConstraint = errors.New("sim: degenerate distance constraint")

	// ErrInvalidModel indicates a segment id/index mismatch or a series with
	// a non-positive rest length.
	ErrInvalidModel = errors.New("sim: invalid model")

	// ErrNoPhysicsScene indicates self-collision was requested without a
	// body provider.
	ErrNoPhysicsScene = errors.New("sim: self-collision requires a physics scene")

	// ErrResourceMismatch indicates fewer proxy bodies than particles.
	ErrResourceMismatch = errors.New("sim: proxy bodies do not cover the simulated particles")

	// ErrInvalidOptions indicates options that cannot drive a run.
	ErrInvalidOptions = errors.New("sim: invalid options")
)

// SimulationError wraps an error with the substep it happened in.
type SimulationError struct {
	Substep   int
	Time      float64
	SegmentID int
	Wrapped   error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("substep %d (t=%.4f, segment %d): %v", e.Substep, e.Time, e.SegmentID, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
