package tether

import (
	"context"

	"github.com/san-kum/tether/internal/model"
	"github.com/san-kum/tether/internal/sim"
)

type jobResult struct {
	model  *model.Model
	result *sim.Result
	err    error
}

// job is one background run. Only the owner goroutine reads done.
type job struct {
	cancel    context.CancelFunc
	done      chan jobResult
	segments  []int
	resources *sim.Resources
}

func (c *Cable) start(working *model.Model, p *sim.Params, segments []int) {
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		cancel:    cancel,
		done:      make(chan jobResult, 1),
		segments:  segments,
		resources: p.Bodies,
	}
	c.job = j
	c.state = Running

	go func() {
		result, err := sim.New(p).Run(ctx, working, 0)
		j.done <- jobResult{model: working, result: result, err: err}
	}()
}

// Poll drains a finished worker without blocking. It reports whether a
// result was handled.
func (c *Cable) Poll() (bool, error) {
	if c.job == nil {
		return false, nil
	}
	select {
	case r := <-c.job.done:
		return true, c.drain(r)
	default:
		return false, nil
	}
}

// Wait blocks until the cable is idle, draining every worker including the
// ones re-triggered by a completion.
func (c *Cable) Wait(ctx context.Context) error {
	for c.job != nil {
		select {
		case r := <-c.job.done:
			if err := c.drain(r); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (c *Cable) drain(r jobResult) error {
	j := c.job
	c.job = nil
	j.cancel()
	return c.finish(r, j.segments, j.resources)
}

// finish reconciles a finished run on the owner goroutine.
func (c *Cable) finish(r jobResult, segments []int, res *sim.Resources) error {
	res.Release()
	pending := c.state == RunningWithPendingRebuild
	c.state = Idle

	if r.err != nil {
		c.log.Error(r.err, "simulation failed", "segments", segments)
		c.InvalidateSegments(segments...)
		return r.err
	}

	c.HandleSimulationComplete(r.model, r.result)
	c.log.V(1).Info("simulation complete", "segments", r.result.SimulatedSegments,
		"substeps", r.result.Substeps, "hits", r.result.CollisionHits)
	c.notify(newEvent(c.name, r.result, false))

	if err := c.UpdateAndRebuildModifiedSegments(false); err != nil {
		return err
	}
	if pending || c.model.HasInvalidatedSegments() {
		return c.ResimulateInvalidated(false)
	}
	return nil
}

// Cancel stops a running worker and waits for it to return. The segments it
// was simulating are invalidated again so the next request redoes them.
func (c *Cable) Cancel() {
	if c.job == nil {
		return
	}
	j := c.job
	c.job = nil
	j.cancel()
	<-j.done
	j.resources.Release()
	c.state = Idle
	c.InvalidateSegments(j.segments...)
	c.log.V(1).Info("cancelled simulation", "segments", j.segments)
}
