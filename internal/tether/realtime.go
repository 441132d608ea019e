package tether

import (
	"context"
	"math"

	"github.com/san-kum/tether/internal/sim"
)

// SetRealtime switches between realtime stepping with Tick and full
// background runs. Either way the cable starts over.
func (c *Cable) SetRealtime(on bool) error {
	if c.realtime == on {
		return nil
	}
	c.realtime = on
	if on {
		c.realtimeRemainder = 0
		c.Cancel()
	}
	return c.InvalidateAndResimulate(false)
}

// Tick advances a realtime cable by dt of wall time scaled by dilation. It
// simulates at least one substep once a substep's worth of time has built
// up, and never more than twice dt in one call so a slow cable catches up
// without stalling the caller. Realtime switches off once the last segment
// has simulated the full duration.
func (c *Cable) Tick(dt, dilation float64) error {
	if !c.realtime || c.locked || c.model.NumSegments() == 0 {
		return nil
	}

	last := c.model.Segments[c.model.NumSegments()-1].SimulationTime
	substep := c.opts.Substep
	if last+substep > c.opts.SimulationDuration {
		c.log.V(1).Info("realtime simulation reached its duration")
		return c.SetRealtime(false)
	}

	c.realtimeRemainder += dt * dilation
	if c.job != nil || c.realtimeRemainder < substep {
		return nil
	}

	step := math.Max(substep, math.Min(c.realtimeRemainder, 2*dt))
	p := c.params(c.model)
	res, err := c.resources(c.model, p)
	if err != nil {
		return err
	}
	p.Bodies = res
	result, err := sim.New(p).Run(context.Background(), c.model, step)
	res.Release()
	if err != nil {
		return err
	}

	c.realtimeRemainder -= result.SimulatedTime
	c.publish()
	c.notify(newEvent(c.name, result, true))
	return nil
}
