package tether

import (
	"context"
	"hash/fnv"
	"slices"
	"time"

	"github.com/go-logr/logr"
	"github.com/san-kum/tether/internal/guide"
	"github.com/san-kum/tether/internal/physics"
	"github.com/san-kum/tether/internal/sim"
)

// OrderKey decides which of two cables is simulated first. Older cables go
// first; cables created at the same instant are ordered by name hash.
type OrderKey struct {
	Created  time.Time
	NameHash uint32
}

func (k OrderKey) Before(o OrderKey) bool {
	if !k.Created.Equal(o.Created) {
		return k.Created.Before(o.Created)
	}
	return k.NameHash < o.NameHash
}

func nameHash(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32()
}

func (c *Cable) OrderKey() OrderKey {
	return OrderKey{Created: c.created, NameHash: nameHash(c.name)}
}

// ShouldSimulateBefore reports whether c settles before other, so other
// collides with c but not the other way round.
func (c *Cable) ShouldSimulateBefore(other *Cable) bool {
	return c.OrderKey().Before(other.OrderKey())
}

// Scene is a set of cables sharing one world.
type Scene struct {
	world  *physics.World
	cables []*Cable
	log    logr.Logger
}

func NewScene(world *physics.World, logger logr.Logger) *Scene {
	if world == nil {
		world = physics.NewWorld()
	}
	return &Scene{world: world, log: logger}
}

func (s *Scene) World() *physics.World { return s.world }

func (s *Scene) Cables() []*Cable { return slices.Clone(s.cables) }

// Add creates a cable in the scene's world.
func (s *Scene) Add(g *guide.Guide, cfg Config) *Cable {
	cfg.World = s.world
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = s.log
	}
	c := New(g, cfg)
	c.actor = sim.ActorID(len(s.cables) + 1)
	s.cables = append(s.cables, c)
	s.refreshIgnores()
	return c
}

// Cable looks a cable up by name.
func (s *Scene) Cable(name string) (*Cable, bool) {
	for _, c := range s.cables {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Ordered returns the cables in simulation order.
func (s *Scene) Ordered() []*Cable {
	out := slices.Clone(s.cables)
	slices.SortStableFunc(out, func(a, b *Cable) int {
		switch {
		case a.ShouldSimulateBefore(b):
			return -1
		case b.ShouldSimulateBefore(a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// refreshIgnores makes every cable ignore the cables that settle after it,
// and the proxy bodies of every other cable.
func (s *Scene) refreshIgnores() {
	for _, c := range s.cables {
		var ignore sim.IgnoreList
		for _, other := range s.cables {
			if other == c {
				continue
			}
			ignore.Components = append(ignore.Components, other.selfComponent)
			if c.ShouldSimulateBefore(other) {
				ignore.Actors = append(ignore.Actors, other.actor)
			}
		}
		c.ignore = ignore
	}
}

// SimulateAll resimulates every cable from scratch in order, each one
// settling before the next starts so later cables rest on earlier ones.
func (s *Scene) SimulateAll(ctx context.Context, sync bool) error {
	for _, c := range s.Ordered() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.log.V(1).Info("simulating cable", "cable", c.name, "sync", sync)
		if err := c.InvalidateAndResimulate(sync); err != nil {
			return err
		}
		if err := c.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Release cancels every worker and removes the cables from the world.
func (s *Scene) Release() {
	for _, c := range s.cables {
		c.Release()
	}
}
