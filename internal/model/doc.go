// Package model holds the plain data a cable simulation works on.
//
// A cable is a [Model]: an ordered list of [Segment] values, one per span of
// the guide curve, each owning a chain of [Particle] values. Consecutive
// segments share their join point, so segment i's first particle is a copy
// of segment i-1's last particle.
//
// Algorithms never walk segments directly. They work on a [Series], a view
// over a contiguous run of segments that exposes the particles as one
// de-duplicated chain. A series can be backed by the model itself or by a
// [Proxy] that references segments owned elsewhere:
//
//	series := model.NewSeries(m)
//	for i := 0; i < series.NumParticles(false); i++ {
//		p := series.Particle(i)
//		...
//	}
//
// # Segment state
//
// Each segment is either [SegmentValid] or [SegmentInvalid]. An invalid
// segment has stale geometry and must be rebuilt with
// [Segment.BuildParticles] before it is simulated. State only changes
// through [Segment.Invalidate] and [Segment.MarkValid].
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent mutation. Background work
// should operate on a [Model.Clone].
package model
