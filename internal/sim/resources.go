package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/model"
)

// Resources owns the proxy bodies of one run. Init and Release belong to
// the orchestrating goroutine; a worker only calls Update.
type Resources struct {
	provider BodyProvider
	bodies   []BodyHandle
}

func NewResources(provider BodyProvider) *Resources {
	return &Resources{provider: provider}
}

func (r *Resources) NumBodies() int { return len(r.bodies) }

// Init creates one proxy sphere per particle of segments [0, lastSegmentID]
// of m. Nothing past lastSegmentID gets a body, so a sweep can never hit
// geometry that has not been simulated yet.
func (r *Resources) Init(m *model.Model, lastSegmentID int, def BodyDef) error {
	if r.provider == nil {
		return ErrNoPhysicsScene
	}
	r.Release()

	series := m.SeriesUpTo(lastSegmentID)
	for i, p := range series.Particles() {
		d := def
		d.Item = i
		h, err := r.provider.CreateStaticBody(d, mgl64.Translate3D(p.Position[0], p.Position[1], p.Position[2]))
		if err != nil {
			r.Release()
			return fmt.Errorf("create body %d: %w", i, err)
		}
		r.bodies = append(r.bodies, h)
	}
	return nil
}

// Update moves the bodies of the simulating series and everything before
// it to the current particle positions.
func (r *Resources) Update(m *model.Model, series model.Series) error {
	if r == nil || r.provider == nil {
		return nil
	}
	proxy := m.SeriesUpTo(series.LastSegmentID())
	first := proxy.StartingParticleIndex(proxy.IndexOfSegmentID(series.FirstSegmentID()))
	particles := proxy.Particles()
	if len(particles) > len(r.bodies) {
		return fmt.Errorf("%w: %d particles, %d bodies", ErrResourceMismatch, len(particles), len(r.bodies))
	}
	for i := first; i < len(particles); i++ {
		pos := particles[i].Position
		r.provider.SetTransform(r.bodies[i], mgl64.Translate3D(pos[0], pos[1], pos[2]))
	}
	return nil
}

// Release destroys every body. It is safe to call more than once.
func (r *Resources) Release() {
	if r == nil {
		return
	}
	for _, h := range r.bodies {
		r.provider.DestroyBody(h)
	}
	r.bodies = nil
}
