package tether

import (
	"github.com/san-kum/tether/internal/sim"
)

// State is where a cable's orchestrator is in its job lifecycle.
type State int

const (
	Idle State = iota
	// Running means one worker is simulating a private copy of the model.
	Running
	// RunningWithPendingRebuild means a request arrived while a worker was
	// in flight. Another run starts as soon as the worker is drained.
	RunningWithPendingRebuild
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case RunningWithPendingRebuild:
		return "running (rebuild pending)"
	default:
		return "unknown"
	}
}

// Event is published after every completed simulation of a cable.
type Event struct {
	Cable             string
	SimulatedSegments []int
	SimulatedTime     float64
	RemainderTime     float64
	HitComponents     []sim.ComponentID
	CollisionHits     int
	Realtime          bool
}

func newEvent(cable string, r *sim.Result, realtime bool) Event {
	e := Event{
		Cable:         cable,
		SimulatedTime: r.SimulatedTime,
		RemainderTime: r.RemainderTime,
		CollisionHits: r.CollisionHits,
		Realtime:      realtime,
	}
	e.SimulatedSegments = append(e.SimulatedSegments, r.SimulatedSegments...)
	e.HitComponents = append(e.HitComponents, r.HitComponents...)
	return e
}
