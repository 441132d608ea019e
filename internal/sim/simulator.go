package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/tether/internal/integrators"
	"github.com/san-kum/tether/internal/model"
)

// Simulator drives the substep loop for one set of Params.
type Simulator struct {
	params     *Params
	integrator *integrators.Verlet
	solver     *Solver
	metrics    []Metric
	observers  []Observer
}

func New(params *Params) *Simulator {
	return &Simulator{
		params:     params,
		integrator: integrators.NewVerlet(params.Force, params.Options.Drag),
		solver:     NewSolver(params),
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run simulates m in place for duration seconds, or until every flagged
// series reaches the configured simulation duration when duration <= 0.
// Series are advanced one after another. Cancelling ctx stops the loop
// before the next substep and returns a partial result with Cancelled set
// and a nil error.
func (s *Simulator) Run(ctx context.Context, m *model.Model, duration float64) (*Result, error) {
	p := s.params
	if err := p.Options.Validate(); err != nil {
		return nil, err
	}
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: segment ids do not match their indices", ErrInvalidModel)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: duration %f", ErrInvalidOptions, duration)
	}

	seriesList := p.SeriesToSimulate(m, true)
	result := &Result{Metrics: make(map[string]float64)}
	for _, series := range seriesList {
		if series.HasAnyParticles() && !series.IsValid() {
			return nil, fmt.Errorf("%w: series starting at segment %d has a non-positive length", ErrInvalidModel, series.FirstSegmentID())
		}
		result.SimulatedSegments = append(result.SimulatedSegments, series.SegmentIDs()...)
	}
	if p.UsesSelfCollision() && p.Bodies == nil {
		return nil, ErrNoPhysicsScene
	}
	if p.Options.EnableCollision && p.World == nil {
		p.Logger.V(1).Info("collision enabled without a world, skipping collision", "cable", p.Name)
	}

	for _, mt := range s.metrics {
		mt.Reset()
	}

	m.BaseTransform = p.BaseTransform
	collider := NewCollider(p, result)
	substep := p.Options.Substep
	entire := duration <= 0
	remainder := duration
	current := 0

	p.Logger.V(1).Info("begin simulation", "cable", p.Name, "series", len(seriesList),
		"duration", duration, "substep", substep, "hash", m.Hash())

	for entire || remainder >= substep {
		select {
		case <-ctx.Done():
			result.Cancelled = true
			s.finish(seriesList, result, duration, remainder)
			p.Logger.V(1).Info("simulation cancelled", "cable", p.Name, "simulated", result.SimulatedTime)
			return result, nil
		default:
		}

		if current >= len(seriesList) {
			break
		}
		series := seriesList[current]
		if series.SimulationTime()+substep > p.Options.SimulationDuration {
			current++
			continue
		}

		if err := s.substep(m, series, collider, result.Substeps); err != nil {
			return result, &SimulationError{
				Substep:   result.Substeps,
				Time:      series.SimulationTime(),
				SegmentID: series.FirstSegmentID(),
				Wrapped:   err,
			}
		}
		remainder -= substep
		result.Substeps++
	}

	s.finish(seriesList, result, duration, remainder)
	for _, mt := range s.metrics {
		result.Metrics[mt.Name()] = mt.Value()
	}
	p.Logger.V(1).Info("end simulation", "cable", p.Name, "substeps", result.Substeps,
		"hits", result.CollisionHits, "hash", m.Hash())
	return result, nil
}

func (s *Simulator) finish(seriesList []model.Series, result *Result, duration, remainder float64) {
	for _, series := range seriesList {
		series.SynchronizeConnectingParticles()
	}
	result.RemainderTime = remainder
	result.SimulatedTime = duration - remainder
}

func (s *Simulator) substep(m *model.Model, series model.Series, collider *Collider, n int) error {
	p := s.params
	substep := p.Options.Substep

	if series.HasAnyParticles() {
		forceMultiplier := 1.0
		if p.Options.EaseIn > 0 {
			forceMultiplier = math.Min(series.SimulationTime()/p.Options.EaseIn, 1)
		}
		if p.Logger.V(2).Enabled() {
			p.Logger.V(2).Info("substep", "n", n, "segment", series.FirstSegmentID(),
				"time", series.SimulationTime(), "forceMultiplier", forceMultiplier)
		}

		if err := s.integrator.Integrate(series, substep); err != nil {
			return fmt.Errorf("integrate: %w", err)
		}
		if err := s.solver.Solve(series, forceMultiplier); err != nil {
			return fmt.Errorf("solve: %w", err)
		}
		if p.Options.EnableCollision {
			collider.Collide(m, series, forceMultiplier)
		}
		if p.UsesSelfCollision() {
			if err := p.Bodies.Update(m, series); err != nil {
				return err
			}
		}
	}

	series.AddSimulationTime(substep)

	t := series.SimulationTime()
	for _, mt := range s.metrics {
		mt.Observe(series, t)
	}
	for _, obs := range s.observers {
		obs.OnSubstep(series, t)
	}
	return nil
}
