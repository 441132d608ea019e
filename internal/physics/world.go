package physics

import (
	"fmt"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/sim"
)

// ColliderOptions describe how a collider takes part in queries.
type ColliderOptions struct {
	Actor sim.ActorID
	// Profiles lists the query profiles this collider answers. Empty means
	// every profile.
	Profiles []string
	Trigger  bool
}

func (o ColliderOptions) responds(profile string) bool {
	return len(o.Profiles) == 0 || slices.Contains(o.Profiles, profile)
}

type collider struct {
	id    sim.ComponentID
	opts  ColliderOptions
	shape shape
}

type body struct {
	def      sim.BodyDef
	position mgl64.Vec3
}

// World is an in-process collision scene. It is safe for concurrent use:
// sweeps of several workers may run while bodies are created or moved.
type World struct {
	mu        sync.RWMutex
	nextID    sim.ComponentID
	colliders map[sim.ComponentID]*collider
	nextBody  sim.BodyHandle
	bodies    map[sim.BodyHandle]*body
	cables    map[sim.ComponentID]*cableCollider
}

func NewWorld() *World {
	return &World{
		colliders: make(map[sim.ComponentID]*collider),
		bodies:    make(map[sim.BodyHandle]*body),
		cables:    make(map[sim.ComponentID]*cableCollider),
	}
}

// NewComponentID reserves an id without adding a collider, for owners of
// proxy bodies.
func (w *World) NewComponentID() sim.ComponentID {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	return w.nextID
}

func (w *World) add(s shape, opts ColliderOptions) sim.ComponentID {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	w.colliders[w.nextID] = &collider{id: w.nextID, opts: opts, shape: s}
	return w.nextID
}

func (w *World) AddPlane(p Plane, opts ColliderOptions) sim.ComponentID   { return w.add(p, opts) }
func (w *World) AddSphere(s Sphere, opts ColliderOptions) sim.ComponentID { return w.add(s, opts) }
func (w *World) AddBox(b Box, opts ColliderOptions) sim.ComponentID       { return w.add(b, opts) }

// Remove drops a collider or published cable. It reports whether id existed.
func (w *World) Remove(id sim.ComponentID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.colliders[id]; ok {
		delete(w.colliders, id)
		return true
	}
	if _, ok := w.cables[id]; ok {
		delete(w.cables, id)
		return true
	}
	return false
}

func (w *World) NumColliders() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.colliders) + len(w.cables)
}

// SweepSphere reports every collider, proxy body and published cable the
// sphere touches moving from from to to. The order of the hits is not
// defined.
func (w *World) SweepSphere(radius float64, from, to mgl64.Vec3, profile string, ignore sim.IgnoreList) []sim.Hit {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var hits []sim.Hit
	emit := func(c contact, component sim.ComponentID, item int, opts ColliderOptions) {
		h := sim.Hit{
			Location:         c.location,
			Normal:           c.normal,
			ImpactPoint:      c.impact,
			PenetrationDepth: c.depth,
			StartPenetrating: c.penetrating,
			Component:        component,
			Item:             item,
			Actor:            opts.Actor,
			Trigger:          opts.Trigger,
		}
		if !ignore.Ignores(h) {
			hits = append(hits, h)
		}
	}

	for _, c := range w.colliders {
		if !c.opts.responds(profile) {
			continue
		}
		if ct, ok := c.shape.sweep(radius, from, to); ok {
			emit(ct, c.id, -1, c.opts)
		}
	}

	for _, b := range w.bodies {
		if b.def.Profile != "" && b.def.Profile != profile {
			continue
		}
		s := Sphere{Center: b.position, Radius: b.def.Radius}
		if ct, ok := s.sweep(radius, from, to); ok {
			emit(ct, b.def.Owner, b.def.Item, ColliderOptions{})
		}
	}

	for id, cc := range w.cables {
		if !cc.opts.responds(profile) {
			continue
		}
		for i, p := range cc.points {
			s := Sphere{Center: p, Radius: cc.radius}
			if ct, ok := s.sweep(radius, from, to); ok {
				emit(ct, id, i, cc.opts)
			}
		}
	}
	return hits
}

// CreateStaticBody adds a proxy sphere at the translation of transform.
func (w *World) CreateStaticBody(def sim.BodyDef, transform mgl64.Mat4) (sim.BodyHandle, error) {
	if !(def.Radius > 0) {
		return 0, fmt.Errorf("physics: body radius must be positive, got %f", def.Radius)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextBody++
	w.bodies[w.nextBody] = &body{def: def, position: transform.Col(3).Vec3()}
	return w.nextBody, nil
}

func (w *World) SetTransform(h sim.BodyHandle, transform mgl64.Mat4) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.bodies[h]; ok {
		b.position = transform.Col(3).Vec3()
	}
}

func (w *World) DestroyBody(h sim.BodyHandle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.bodies, h)
}

func (w *World) NumBodies() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.bodies)
}
