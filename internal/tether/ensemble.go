package tether

import "github.com/san-kum/tether/internal/sim"

// Ensemble prepares runs independent full simulations of the current guide
// from a freshly built model. The runs share the cable's world, so they
// leave self collision out. The cable must not be edited while the
// ensemble runs.
func (c *Cable) Ensemble(runs int) *sim.Ensemble {
	base := c.model.Clone()
	base.UpdateNumSegments(c.guide.NumSegments())
	base.InvalidateAll()
	c.refreshInvalidInfo(base)
	c.resetInvalidated(base)

	return sim.NewEnsemble(base, runs, func(int) (*sim.Params, error) {
		p := c.params(base)
		p.Options.EnableSelfCollision = false
		return p, nil
	})
}
