package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/model"
)

const minFriction = 1e-4

// selfNeighbourhood is how many cable indices either side of a particle are
// never treated as a self-collision.
const selfNeighbourhood = 2

// Collider sweeps free particles against the world and resolves the chosen
// hit for each one.
type Collider struct {
	params *Params
	result *Result
}

func NewCollider(p *Params, result *Result) *Collider {
	return &Collider{params: p, result: result}
}

// Collide processes the particles of one series in index order. m is the
// whole model the series belongs to, needed to resolve self-collision items.
func (c *Collider) Collide(m *model.Model, series model.Series, forceMultiplier float64) {
	p := c.params
	if p.World == nil {
		return
	}

	whole := m.Series()
	start := whole.StartingParticleIndex(series.FirstSegmentID())
	radius := 0.5 * p.CollisionWidth

	segmentOf := func(item int) int {
		idx := whole.SegmentIndexOfParticle(item)
		if idx < 0 {
			return -1
		}
		return m.Segments[idx].ID
	}

	for idx, particle := range series.Particles() {
		if !particle.Free {
			continue
		}
		hits := p.World.SweepSphere(radius, particle.PrevPosition, particle.Position, p.Options.CollisionProfile, p.Ignore)
		if len(hits) == 0 {
			continue
		}

		cableIndex := start + idx
		ownSegment := series.Segment(series.SegmentIndexOfParticle(idx)).ID
		best := SelectHit(hits, particle.PrevPosition, cableIndex, ownSegment, p.SelfComponent, segmentOf)
		if best < 0 {
			continue
		}
		hit := hits[best]
		if p.Options.TruncateHits {
			hit = TruncateHit(hit)
		}
		if p.Logger.V(2).Enabled() {
			p.Logger.V(2).Info("resolved hit", "particle", particle.ID, "component", hit.Component, "item", hit.Item, "penetrating", hit.StartPenetrating)
		}
		c.resolve(whole, particle, ownSegment, hit, segmentOf, forceMultiplier)
	}
}

func (c *Collider) resolve(whole model.Series, particle *model.Particle, ownSegment int, hit Hit, segmentOf func(int) int, forceMultiplier float64) {
	c.result.addHitComponent(hit.Component)
	c.result.CollisionHits++

	if hit.StartPenetrating {
		particle.Position = particle.Position.Add(hit.Normal.Mul(hit.PenetrationDepth * forceMultiplier))
	} else {
		particle.Position = hit.Location
	}

	if c.params.SelfComponent != 0 && hit.Component == c.params.SelfComponent && hit.Item >= 0 {
		other := whole.Particle(hit.Item)
		if other != nil && segmentOf(hit.Item) == ownSegment {
			// Two-way, zero restitution.
			rel := particle.Velocity().Sub(other.Velocity())
			van := rel.Dot(hit.Normal)
			if van > 0 {
				return
			}
			half := hit.Normal.Mul(van * 0.5)
			particle.PrevPosition = particle.PrevPosition.Add(half)
			other.PrevPosition = other.PrevPosition.Sub(half)
			return
		}
	}

	vel := particle.Velocity()
	van := vel.Dot(hit.Normal)
	particle.PrevPosition = particle.PrevPosition.Add(hit.Normal.Mul(van))

	if f := c.params.Options.Friction; f > minFriction {
		planar := vel.Sub(hit.Normal.Mul(van))
		particle.PrevPosition = particle.PrevPosition.Add(planar.Mul(f))
	}
}

// SelectHit picks the hit a particle should respond to, or -1. Triggers are
// ignored, as are hits on the cable's own bodies that are too close in the
// chain or belong to a later segment. The closest impact to prev wins, and
// exact ties fall back to a total order on the hit itself so the choice does
// not depend on the order hits were reported in.
func SelectHit(hits []Hit, prev mgl64.Vec3, cableIndex, ownSegment int, self ComponentID, segmentOf func(item int) int) int {
	best := -1
	bestDist := math.Inf(1)
	for i := range hits {
		h := &hits[i]
		if h.Trigger {
			continue
		}
		if self != 0 && h.Component == self {
			if h.Item < 0 {
				continue
			}
			if h.Item >= cableIndex-selfNeighbourhood && h.Item <= cableIndex+selfNeighbourhood {
				continue
			}
			if segmentOf != nil && segmentOf(h.Item) > ownSegment {
				continue
			}
		}
		d := h.ImpactPoint.Sub(prev).LenSqr()
		if best < 0 || d < bestDist || (d == bestDist && hitLess(*h, hits[best])) {
			best = i
			bestDist = d
		}
	}
	return best
}

func hitLess(a, b Hit) bool {
	if a.Component != b.Component {
		return a.Component < b.Component
	}
	if a.Item != b.Item {
		return a.Item < b.Item
	}
	if c := compareVec(a.Location, b.Location); c != 0 {
		return c < 0
	}
	if c := compareVec(a.Normal, b.Normal); c != 0 {
		return c < 0
	}
	if a.PenetrationDepth != b.PenetrationDepth {
		return a.PenetrationDepth < b.PenetrationDepth
	}
	if a.StartPenetrating != b.StartPenetrating {
		return !a.StartPenetrating
	}
	return a.Actor < b.Actor
}

func compareVec(a, b mgl64.Vec3) int {
	for i := 0; i < 3; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// TruncateHit drops everything past the first decimal of the normal,
// location and penetration depth. Backend float noise below that level made
// otherwise identical runs diverge.
func TruncateHit(h Hit) Hit {
	h.Normal = truncVec(h.Normal)
	h.Location = truncVec(h.Location)
	h.PenetrationDepth = truncOneDecimal(h.PenetrationDepth)
	return h
}

func truncOneDecimal(v float64) float64 {
	return math.Trunc(v*10) / 10
}

func truncVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{truncOneDecimal(v[0]), truncOneDecimal(v[1]), truncOneDecimal(v[2])}
}
