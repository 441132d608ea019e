// Package physics provides the collision scene cables are simulated in.
//
// A [World] holds static colliders, the proxy spheres a cable uses for
// self-collision and the settled shapes of cables that were simulated
// earlier:
//
//   - [Plane]: infinite half-space
//   - [Sphere]: solid sphere
//   - [Box]: axis-aligned box
//
// It implements both [sim.World] and [sim.BodyProvider]:
//
//	world := physics.NewWorld()
//	world.AddPlane(physics.Plane{Normal: mgl64.Vec3{0, 0, 1}}, physics.ColliderOptions{})
//	params.World = world
//	params.Bodies = sim.NewResources(world)
//
// Sweeps return hits in no particular order; [sim.SelectHit] picks one
// deterministically.
package physics
