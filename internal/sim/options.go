package sim

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultSimulationDuration    = 5.0
	DefaultSubstep               = 0.003
	DefaultIterations            = 4
	DefaultDrag                  = 0.03
	DefaultCollisionProfile      = "PhysicsActor"
	DefaultFriction              = 0.2
	DefaultEaseIn                = 2.5
	DefaultCollisionWidthScale   = 1.0
	DefaultParticleDistanceScale = 1.0
)

// DefaultGravity is in centimetres per second squared, Z up.
var DefaultGravity = mgl64.Vec3{0, 0, -980}

// Options configure how a cable is simulated.
type Options struct {
	SimulationDuration    float64    `yaml:"simulation_duration" json:"simulation_duration"`
	Substep               float64    `yaml:"substep" json:"substep"`
	Stiffness             bool       `yaml:"stiffness" json:"stiffness"`
	Iterations            int        `yaml:"iterations" json:"iterations"`
	Drag                  float64    `yaml:"drag" json:"drag"`
	EnableCollision       bool       `yaml:"collision" json:"collision"`
	EnableSelfCollision   bool       `yaml:"self_collision" json:"self_collision"`
	CollisionProfile      string     `yaml:"collision_profile" json:"collision_profile"`
	CollisionWidthScale   float64    `yaml:"collision_width_scale" json:"collision_width_scale"`
	Friction              float64    `yaml:"friction" json:"friction"`
	ParticleDistanceScale float64    `yaml:"particle_distance_scale" json:"particle_distance_scale"`
	EaseIn                float64    `yaml:"ease_in" json:"ease_in"`
	TruncateHits          bool       `yaml:"truncate_hits" json:"truncate_hits"`
	Gravity               mgl64.Vec3 `yaml:"gravity,flow" json:"gravity"`
}

func DefaultOptions() Options {
	return Options{
		SimulationDuration:    DefaultSimulationDuration,
		Substep:               DefaultSubstep,
		Stiffness:             true,
		Iterations:            DefaultIterations,
		Drag:                  DefaultDrag,
		EnableCollision:       true,
		EnableSelfCollision:   true,
		CollisionProfile:      DefaultCollisionProfile,
		CollisionWidthScale:   DefaultCollisionWidthScale,
		Friction:              DefaultFriction,
		ParticleDistanceScale: DefaultParticleDistanceScale,
		EaseIn:                DefaultEaseIn,
		TruncateHits:          true,
		Gravity:               DefaultGravity,
	}
}

func (o Options) Validate() error {
	if !(o.Substep > 0) || math.IsInf(o.Substep, 0) {
		return fmt.Errorf("%w: substep must be positive, got %f", ErrInvalidOptions, o.Substep)
	}
	if o.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be at least 1, got %d", ErrInvalidOptions, o.Iterations)
	}
	if o.SimulationDuration < 0 || math.IsNaN(o.SimulationDuration) {
		return fmt.Errorf("%w: simulation duration must not be negative, got %f", ErrInvalidOptions, o.SimulationDuration)
	}
	if o.Drag < 0 {
		return fmt.Errorf("%w: drag must not be negative, got %f", ErrInvalidOptions, o.Drag)
	}
	if !(o.ParticleDistanceScale > 0) || !(o.CollisionWidthScale > 0) {
		return fmt.Errorf("%w: width and distance scales must be positive", ErrInvalidOptions)
	}
	return nil
}

// UsesSelfCollision reports whether proxy bodies are needed.
func (o Options) UsesSelfCollision() bool {
	return o.EnableCollision && o.EnableSelfCollision
}

// PointOptions configure one guide point.
type PointOptions struct {
	FixedAnchor bool `yaml:"fixed" json:"fixed"`
	UseTangent  bool `yaml:"use_tangent" json:"use_tangent"`
}

func DefaultPointOptions() PointOptions {
	return PointOptions{FixedAnchor: true}
}

// FixesTangent reports whether the solver should pin the cable direction at
// this point.
func (p PointOptions) FixesTangent() bool {
	return p.FixedAnchor && p.UseTangent
}
