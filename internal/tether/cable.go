package tether

import (
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/san-kum/tether/internal/guide"
	"github.com/san-kum/tether/internal/metrics"
	"github.com/san-kum/tether/internal/model"
	"github.com/san-kum/tether/internal/physics"
	"github.com/san-kum/tether/internal/sim"
)

// ErrNoSegments is returned by operations that need at least one span.
var ErrNoSegments = errors.New("tether: guide has no segments")

// DefaultWidth is the cable width used when Config.Width is not positive.
const DefaultWidth = 10.0

// infoTolerance is how far a guide span may drift before its segment is
// rebuilt.
const infoTolerance = 1e-4

type Config struct {
	// Name identifies the cable. A random one is generated when empty.
	Name    string
	Width   float64
	Options sim.Options
	// Created orders cables in a scene. Defaults to time.Now.
	Created time.Time
	// World is optional. Without it the cable never collides.
	World  *physics.World
	Logger logr.Logger
}

// Cable owns the authoritative model of one simulated cable and the guide it
// follows. It must only be used from one goroutine; the worker it starts
// touches nothing but a private copy of the model.
type Cable struct {
	name    string
	created time.Time
	width   float64
	opts    sim.Options
	log     logr.Logger

	world         *physics.World
	actor         sim.ActorID
	selfComponent sim.ComponentID
	published     sim.ComponentID
	ignore        sim.IgnoreList

	guide           *guide.Guide
	guideReplaced   bool
	pendingRemovals []int

	model  *model.Model
	state  State
	locked bool
	job    *job

	realtime          bool
	realtimeRemainder float64

	subscribers []func(Event)
}

// New creates a cable following g. Nothing is simulated until the first
// rebuild request.
func New(g *guide.Guide, cfg Config) *Cable {
	if cfg.Name == "" {
		cfg.Name = "cable-" + uuid.NewString()
	}
	if cfg.Created.IsZero() {
		cfg.Created = time.Now()
	}
	if !(cfg.Width > 0) {
		cfg.Width = DefaultWidth
	}
	if cfg.Options == (sim.Options{}) {
		cfg.Options = sim.DefaultOptions()
	}

	c := &Cable{
		name:    cfg.Name,
		created: cfg.Created,
		width:   cfg.Width,
		opts:    cfg.Options,
		log:     cfg.Logger.WithValues("cable", cfg.Name),
		world:   cfg.World,
		guide:   g.Clone(),
		model:   model.New(),
	}
	if c.world != nil {
		c.selfComponent = c.world.NewComponentID()
	}
	c.model.UpdateNumSegments(c.guide.NumSegments())
	return c
}

func (c *Cable) Name() string         { return c.name }
func (c *Cable) Created() time.Time   { return c.created }
func (c *Cable) Width() float64       { return c.width }
func (c *Cable) Options() sim.Options { return c.opts }
func (c *Cable) State() State         { return c.state }
func (c *Cable) IsRunning() bool      { return c.job != nil }
func (c *Cable) Locked() bool         { return c.locked }
func (c *Cable) Realtime() bool       { return c.realtime }

// Guide returns a copy of the guide.
func (c *Cable) Guide() *guide.Guide { return c.guide.Clone() }

// Model returns a deep copy of the active model.
func (c *Cable) Model() *model.Model { return c.model.Clone() }

// ParticleLocations is the de-duplicated chain of the active model.
func (c *Cable) ParticleLocations() []mgl64.Vec3 { return c.model.ParticleLocations() }

// Length is the summed rest length of every segment.
func (c *Cable) Length() float64 { return c.model.Length() }

// Metrics measures the published model with the standard metric set.
func (c *Cable) Metrics() map[string]float64 {
	return metrics.Evaluate(c.model, c.params(c.model))
}

// Subscribe registers fn to receive every completion event.
func (c *Cable) Subscribe(fn func(Event)) {
	c.subscribers = append(c.subscribers, fn)
}

// Lock freezes the cable. Rebuild and simulation requests are ignored until
// Unlock.
func (c *Cable) Lock()   { c.locked = true }
func (c *Cable) Unlock() { c.locked = false }

// SetOptions replaces the simulation options and invalidates everything.
func (c *Cable) SetOptions(opts sim.Options) {
	c.opts = opts
	c.model.InvalidateAll()
}

func (c *Cable) collisionWidth() float64 {
	return c.width * c.opts.CollisionWidthScale
}

func (c *Cable) point(i int) sim.PointOptions {
	if i < 0 || i >= c.guide.NumPoints() {
		return sim.DefaultPointOptions()
	}
	p := c.guide.Point(i)
	return sim.PointOptions{FixedAnchor: p.FixedAnchor, UseTangent: p.UseTangent}
}

// params builds the run parameters for m with every segment flagged.
func (c *Cable) params(m *model.Model) *sim.Params {
	p := sim.NewParams(c.opts, m.NumSegments(), c.width)
	p.Name = c.name
	p.Logger = c.log
	for i := range p.Points {
		p.Points[i] = c.point(i)
	}
	p.SelfComponent = c.selfComponent
	p.Ignore = sim.IgnoreList{
		Components: append([]sim.ComponentID(nil), c.ignore.Components...),
		Actors:     append([]sim.ActorID(nil), c.ignore.Actors...),
	}
	if c.actor != 0 {
		p.Ignore.Actors = append(p.Ignore.Actors, c.actor)
	}
	// The published chain is the previous settle of this same cable.
	if c.published != 0 {
		p.Ignore.Components = append(p.Ignore.Components, c.published)
	}
	if c.world != nil {
		p.World = c.world
	}
	return p
}

// resources creates the proxy bodies for a run over m, or returns nil when
// the run does not self-collide.
func (c *Cable) resources(m *model.Model, p *sim.Params) (*sim.Resources, error) {
	if !p.UsesSelfCollision() {
		return nil, nil
	}
	series := p.SeriesToSimulate(m, true)
	if len(series) == 0 {
		return nil, nil
	}
	last := series[len(series)-1].LastSegmentID()

	res := sim.NewResources(c.world)
	def := sim.BodyDef{
		Radius:  0.5 * p.CollisionWidth,
		Owner:   c.selfComponent,
		Profile: c.opts.CollisionProfile,
	}
	if err := res.Init(m, last, def); err != nil {
		return nil, err
	}
	return res, nil
}

// publish makes the settled cable collidable for cables simulated later.
func (c *Cable) publish() {
	if c.world == nil || c.model.NumParticles() == 0 {
		return
	}
	c.published = c.world.PublishCable(c.published, c.model.ParticleLocations(), 0.5*c.collisionWidth(),
		physics.ColliderOptions{Actor: c.actor})
}

func (c *Cable) notify(e Event) {
	for _, fn := range c.subscribers {
		fn(e)
	}
}

// Release removes everything the cable put into its world.
func (c *Cable) Release() {
	c.Cancel()
	if c.world != nil && c.published != 0 {
		c.world.Remove(c.published)
		c.published = 0
	}
}
