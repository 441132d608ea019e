package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/sim"
)

// cableCollider is the settled shape of a simulated cable, one sphere per
// particle. Hits report the particle index as the item.
type cableCollider struct {
	points []mgl64.Vec3
	radius float64
	opts   ColliderOptions
}

// PublishCable makes a settled cable collidable for cables simulated after
// it. Passing the id of an earlier publication replaces it in place; zero
// allocates a new id.
func (w *World) PublishCable(id sim.ComponentID, points []mgl64.Vec3, radius float64, opts ColliderOptions) sim.ComponentID {
	pts := make([]mgl64.Vec3, len(points))
	copy(pts, points)

	w.mu.Lock()
	defer w.mu.Unlock()
	if id == 0 {
		w.nextID++
		id = w.nextID
	}
	w.cables[id] = &cableCollider{points: pts, radius: radius, opts: opts}
	return id
}

// CablePoints returns a copy of a published cable's points.
func (w *World) CablePoints(id sim.ComponentID) ([]mgl64.Vec3, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cc, ok := w.cables[id]
	if !ok {
		return nil, false
	}
	out := make([]mgl64.Vec3, len(cc.points))
	copy(out, cc.points)
	return out, true
}
