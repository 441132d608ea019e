package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr"
	"github.com/san-kum/tether/internal/model"
)

// Params is everything one run needs besides the model. It must not be
// mutated while a run is in flight.
type Params struct {
	Name    string
	Options Options

	// Points has one entry per guide point (segments + 1).
	Points   []PointOptions
	simulate []bool

	Force          mgl64.Vec3
	CollisionWidth float64
	BaseTransform  mgl64.Mat4

	World         World
	Bodies        *Resources
	SelfComponent ComponentID
	Ignore        IgnoreList

	Logger logr.Logger
}

// NewParams sizes the per-point and per-segment tables for numSegments and
// flags every segment for simulation.
func NewParams(opts Options, numSegments int, cableWidth float64) *Params {
	p := &Params{
		Options:        opts,
		Force:          opts.Gravity,
		CollisionWidth: cableWidth * opts.CollisionWidthScale,
		BaseTransform:  mgl64.Ident4(),
		Logger:         logr.Discard(),
	}
	p.Points = make([]PointOptions, numSegments+1)
	for i := range p.Points {
		p.Points[i] = DefaultPointOptions()
	}
	p.simulate = make([]bool, numSegments)
	p.SimulateAll()
	return p
}

// Spacing is the desired distance between particles when building.
func (p *Params) Spacing() float64 {
	return p.CollisionWidth * p.Options.ParticleDistanceScale
}

// Point returns the options for guide point i, or the defaults when i is
// out of range.
func (p *Params) Point(i int) PointOptions {
	if i < 0 || i >= len(p.Points) {
		return DefaultPointOptions()
	}
	return p.Points[i]
}

// ShouldSimulateSegment defaults to true for unknown segments.
func (p *Params) ShouldSimulateSegment(i int) bool {
	if i < 0 || i >= len(p.simulate) {
		return true
	}
	return p.simulate[i]
}

func (p *Params) SimulateAll() {
	for i := range p.simulate {
		p.simulate[i] = true
	}
}

// SetSegmentsToSimulate flags exactly the given segment ids.
func (p *Params) SetSegmentsToSimulate(ids []int) {
	for i := range p.simulate {
		p.simulate[i] = false
	}
	for _, id := range ids {
		if id >= 0 && id < len(p.simulate) {
			p.simulate[id] = true
		}
	}
}

// UsesSelfCollision reports whether this run collides against its own proxy
// bodies. It needs both the options and a world to query.
func (p *Params) UsesSelfCollision() bool {
	return p.Options.UsesSelfCollision() && p.World != nil
}

// SeriesToSimulate splits the model into independent series at every fixed
// anchor. A series is kept when at least one of its segments is flagged for
// simulation and, unless includeEmpty is set, has particles.
func (p *Params) SeriesToSimulate(m *model.Model, includeEmpty bool) []model.Series {
	var out []model.Series
	var cur model.Proxy
	flush := func() {
		if len(cur) == 0 {
			return
		}
		for _, seg := range cur {
			if p.ShouldSimulateSegment(seg.ID) && (includeEmpty || seg.HasParticles()) {
				out = append(out, model.NewSeries(cur))
				break
			}
		}
		cur = nil
	}
	for i := range m.Segments {
		if i == 0 || p.Point(i).FixedAnchor {
			flush()
		}
		cur = append(cur, &m.Segments[i])
	}
	flush()
	return out
}
