package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// contact is the geometric part of a sweep result.
type contact struct {
	t           float64
	location    mgl64.Vec3
	normal      mgl64.Vec3
	impact      mgl64.Vec3
	depth       float64
	penetrating bool
}

type shape interface {
	sweep(radius float64, from, to mgl64.Vec3) (contact, bool)
}

var up = mgl64.Vec3{0, 0, 1}

// Plane is an infinite half-space. Everything behind Normal is solid.
type Plane struct {
	Point  mgl64.Vec3
	Normal mgl64.Vec3
}

func (p Plane) sweep(radius float64, from, to mgl64.Vec3) (contact, bool) {
	n := p.Normal.Normalize()
	sdFrom := from.Sub(p.Point).Dot(n)
	if sdFrom < radius {
		return contact{
			location:    from,
			normal:      n,
			impact:      from.Sub(n.Mul(sdFrom)),
			depth:       radius - sdFrom,
			penetrating: true,
		}, true
	}
	sdTo := to.Sub(p.Point).Dot(n)
	if sdTo >= radius {
		return contact{}, false
	}
	t := (sdFrom - radius) / (sdFrom - sdTo)
	loc := from.Add(to.Sub(from).Mul(t))
	return contact{t: t, location: loc, normal: n, impact: loc.Sub(n.Mul(radius))}, true
}

type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

func (s Sphere) sweep(radius float64, from, to mgl64.Vec3) (contact, bool) {
	r := radius + s.Radius
	rel := from.Sub(s.Center)
	if dist := rel.Len(); dist < r {
		n := up
		if dist > 0 {
			n = rel.Mul(1 / dist)
		}
		return contact{
			location:    from,
			normal:      n,
			impact:      s.Center.Add(n.Mul(s.Radius)),
			depth:       r - dist,
			penetrating: true,
		}, true
	}

	d := to.Sub(from)
	a := d.Dot(d)
	if a == 0 {
		return contact{}, false
	}
	b := 2 * rel.Dot(d)
	c := rel.Dot(rel) - r*r
	disc := b*b - 4*a*c
	if disc < 0 {
		return contact{}, false
	}
	t := (-b - math.Sqrt(disc)) / (2 * a)
	if t < 0 || t > 1 {
		return contact{}, false
	}
	loc := from.Add(d.Mul(t))
	n := loc.Sub(s.Center).Normalize()
	return contact{t: t, location: loc, normal: n, impact: s.Center.Add(n.Mul(s.Radius))}, true
}

// Box is an axis-aligned box. Sweeps treat its rounded Minkowski corners as
// square, which only over-reports near edges.
type Box struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

func (b Box) closest(p mgl64.Vec3) mgl64.Vec3 {
	var q mgl64.Vec3
	for i := 0; i < 3; i++ {
		q[i] = math.Max(b.Min[i], math.Min(p[i], b.Max[i]))
	}
	return q
}

func (b Box) sweep(radius float64, from, to mgl64.Vec3) (contact, bool) {
	q := b.closest(from)
	rel := from.Sub(q)
	if dist := rel.Len(); dist < radius {
		if dist > 0 {
			n := rel.Mul(1 / dist)
			return contact{location: from, normal: n, impact: q, depth: radius - dist, penetrating: true}, true
		}
		n, depth := b.exit(from)
		return contact{location: from, normal: n, impact: from.Add(n.Mul(depth)), depth: depth + radius, penetrating: true}, true
	}

	d := to.Sub(from)
	tEnter, tExit := 0.0, 1.0
	var n mgl64.Vec3
	for i := 0; i < 3; i++ {
		lo, hi := b.Min[i]-radius, b.Max[i]+radius
		if d[i] == 0 {
			if from[i] < lo || from[i] > hi {
				return contact{}, false
			}
			continue
		}
		t0 := (lo - from[i]) / d[i]
		t1 := (hi - from[i]) / d[i]
		face := mgl64.Vec3{}
		face[i] = -1
		if t0 > t1 {
			t0, t1 = t1, t0
			face[i] = 1
		}
		if t0 > tEnter {
			tEnter = t0
			n = face
		}
		tExit = math.Min(tExit, t1)
		if tEnter > tExit {
			return contact{}, false
		}
	}
	if n == (mgl64.Vec3{}) {
		return contact{}, false
	}
	loc := from.Add(d.Mul(tEnter))
	return contact{t: tEnter, location: loc, normal: n, impact: b.closest(loc)}, true
}

// exit finds the face nearest to a point inside the box.
func (b Box) exit(p mgl64.Vec3) (mgl64.Vec3, float64) {
	best := math.Inf(1)
	var n mgl64.Vec3
	for i := 0; i < 3; i++ {
		if d := p[i] - b.Min[i]; d < best {
			best = d
			n = mgl64.Vec3{}
			n[i] = -1
		}
		if d := b.Max[i] - p[i]; d < best {
			best = d
			n = mgl64.Vec3{}
			n[i] = 1
		}
	}
	return n, best
}
