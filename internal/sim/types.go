package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/model"
)

// ComponentID identifies a collidable component in the world. Zero means
// none.
type ComponentID uint64

// ActorID identifies the owner of one or more components. Zero means none.
type ActorID uint64

// Hit is one result of a swept-sphere query.
type Hit struct {
	Location         mgl64.Vec3
	Normal           mgl64.Vec3
	ImpactPoint      mgl64.Vec3
	PenetrationDepth float64
	StartPenetrating bool
	Component        ComponentID
	Item             int
	Actor            ActorID
	Trigger          bool
}

// IgnoreList names what a sweep must not report.
type IgnoreList struct {
	Components []ComponentID
	Actors     []ActorID
}

func (l IgnoreList) Ignores(h Hit) bool {
	for _, c := range l.Components {
		if c == h.Component {
			return true
		}
	}
	for _, a := range l.Actors {
		if a != 0 && a == h.Actor {
			return true
		}
	}
	return false
}

// World answers swept-sphere queries. Hits may come back in any order.
type World interface {
	SweepSphere(radius float64, from, to mgl64.Vec3, profile string, ignore IgnoreList) []Hit
}

type BodyHandle uint64

// BodyDef describes a self-collision proxy sphere. Item is the particle's
// de-duplicated index in the cable.
type BodyDef struct {
	Radius  float64
	Owner   ComponentID
	Item    int
	Profile string
}

// BodyProvider creates and moves the proxy bodies used for self-collision.
type BodyProvider interface {
	CreateStaticBody(def BodyDef, transform mgl64.Mat4) (BodyHandle, error)
	SetTransform(h BodyHandle, transform mgl64.Mat4)
	DestroyBody(h BodyHandle)
}

type Metric interface {
	Name() string
	Observe(series model.Series, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnSubstep(series model.Series, t float64)
}

// Result summarises one run. SimulatedTime can exceed the requested
// duration when the run was asked to simulate entirely.
type Result struct {
	SimulatedSegments []int
	SimulatedTime     float64
	RemainderTime     float64
	HitComponents     []ComponentID
	CollisionHits     int
	Substeps          int
	Cancelled         bool
	Metrics           map[string]float64
}

func (r *Result) addHitComponent(c ComponentID) {
	for _, existing := range r.HitComponents {
		if existing == c {
			return
		}
	}
	r.HitComponents = append(r.HitComponents, c)
}
