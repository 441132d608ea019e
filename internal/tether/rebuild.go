package tether

import (
	"context"

	"github.com/san-kum/tether/internal/model"
	"github.com/san-kum/tether/internal/sim"
)

// UpdateAndRebuildModifiedSegments brings the model's segment list in line
// with the guide and invalidates every segment whose span changed. It is
// cheap to call when nothing changed. With simulate set, invalidated
// segments are resimulated asynchronously.
func (c *Cable) UpdateAndRebuildModifiedSegments(simulate bool) error {
	if c.locked {
		return nil
	}

	removed := len(c.pendingRemovals) > 0
	for _, idx := range c.pendingRemovals {
		if idx >= c.model.NumSegments() {
			c.model.RemoveSegment(idx - 1)
		} else {
			c.model.RemoveSegment(idx)
		}
	}
	c.pendingRemovals = nil
	c.model.UpdateSegmentIDs()

	if removed || c.guideReplaced {
		c.model.InvalidateAll()
	}
	c.guideReplaced = false

	resized := c.model.UpdateNumSegments(c.guide.NumSegments())

	if !removed {
		for i := range c.model.Segments {
			seg := &c.model.Segments[i]
			info := c.guide.SegmentInfo(i)
			if !seg.Info.Equals(info, infoTolerance, c.point(i).UseTangent, c.point(i+1).UseTangent) {
				c.log.V(2).Info("segment modified", "segment", i)
				seg.Invalidate()
			}
		}
	}

	if simulate && (resized || c.model.HasInvalidatedSegments()) {
		return c.ResimulateInvalidated(false)
	}
	return nil
}

// InvalidateAll marks every segment for rebuilding.
func (c *Cable) InvalidateAll() {
	c.model.InvalidateAll()
}

// InvalidateSegments marks the given segment indices for rebuilding.
func (c *Cable) InvalidateSegments(ids ...int) {
	for _, id := range ids {
		if id >= 0 && id < c.model.NumSegments() {
			c.model.Segments[id].Invalidate()
		}
	}
}

// InvalidateAndResimulate throws away all simulated state and starts over.
func (c *Cable) InvalidateAndResimulate(sync bool) error {
	c.model.InvalidateAll()
	if c.locked {
		return nil
	}
	if err := c.UpdateAndRebuildModifiedSegments(false); err != nil {
		return err
	}
	return c.ResimulateInvalidated(sync)
}

// ResimulateInvalidated rebuilds and simulates every series that contains
// an invalidated segment. Segments that are still valid keep their
// particles. A sync request cancels any running worker and simulates
// inline. An async request while a worker is running is deferred until that
// worker is drained.
func (c *Cable) ResimulateInvalidated(sync bool) error {
	if c.locked || !c.model.HasInvalidatedSegments() {
		return nil
	}

	c.refreshInvalidInfo(c.model)

	if c.realtime {
		c.resetInvalidated(c.model)
		for i := range c.model.Segments {
			c.model.Segments[i].MarkValid()
		}
		c.realtimeRemainder = 0
		return nil
	}

	if c.job != nil {
		if !sync {
			c.log.V(1).Info("simulation already running, deferring rebuild")
			c.state = RunningWithPendingRebuild
			return nil
		}
		c.Cancel()
	}

	working := c.model.Clone()
	c.resetInvalidated(working)
	if working.NumParticles() == 0 {
		return nil
	}

	invalid := c.model.InvalidatedSegments()
	for i := range c.model.Segments {
		c.model.Segments[i].MarkValid()
	}

	p := c.params(working)
	p.SetSegmentsToSimulate(invalid)
	res, err := c.resources(working, p)
	if err != nil {
		c.InvalidateSegments(invalid...)
		return err
	}
	p.Bodies = res

	c.log.V(1).Info("resimulating", "segments", invalid, "sync", sync, "hash", working.Hash())
	if sync {
		result, err := sim.New(p).Run(context.Background(), working, 0)
		return c.finish(jobResult{model: working, result: result, err: err}, invalid, res)
	}
	c.start(working, p, invalid)
	return nil
}

// refreshInvalidInfo copies the guide geometry and rest length into every
// invalidated segment of m.
func (c *Cable) refreshInvalidInfo(m *model.Model) {
	for i := range m.Segments {
		seg := &m.Segments[i]
		if !seg.IsInvalidated() || i >= c.guide.NumSegments() {
			continue
		}
		seg.Info = c.guide.SegmentInfo(i)
		seg.Length = c.guide.RestLength(i)
	}
}

// resetInvalidated rebuilds the particles of every series of m that holds
// an invalidated segment, then renumbers all particles.
func (c *Cable) resetInvalidated(m *model.Model) {
	p := c.params(m)
	spacing := p.Spacing()
	rebuilt := 0
	for _, series := range p.SeriesToSimulate(m, true) {
		dirty := false
		for i := 0; i < series.NumSegments(); i++ {
			if series.Segment(i).IsInvalidated() {
				dirty = true
				break
			}
		}
		if !dirty {
			continue
		}
		for i := 0; i < series.NumSegments(); i++ {
			seg := series.Segment(i)
			seg.BuildParticles(spacing, c.point(seg.ID).FixedAnchor, c.point(seg.ID+1).FixedAnchor)
			rebuilt++
		}
	}
	m.AssignParticleIDs()
	c.log.V(2).Info("rebuilt segments", "count", rebuilt, "particles", m.NumParticles())
}

// HandleSimulationComplete copies the simulated segments of a finished run
// back into the active model. Segments that were removed or invalidated
// while the run was in flight keep what they have.
func (c *Cable) HandleSimulationComplete(simulated *model.Model, result *sim.Result) {
	for _, id := range result.SimulatedSegments {
		if id < 0 || id >= c.model.NumSegments() || id >= simulated.NumSegments() {
			continue
		}
		dst := &c.model.Segments[id]
		if dst.IsInvalidated() {
			continue
		}
		src := simulated.Segments[id].Clone()
		dst.Particles = src.Particles
		dst.SimulationTime = src.SimulationTime
	}
	c.model.AssignParticleIDs()
	c.model.BaseTransform = simulated.BaseTransform
	c.publish()
}
