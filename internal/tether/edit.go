package tether

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/guide"
)

// SetGuide replaces the guide. Every segment is rebuilt.
func (c *Cable) SetGuide(g *guide.Guide, simulate bool) error {
	c.guide = g.Clone()
	c.guideReplaced = true
	return c.UpdateAndRebuildModifiedSegments(simulate)
}

func (c *Cable) PointLocation(i int) mgl64.Vec3 {
	return c.guide.Point(i).Location
}

func (c *Cable) SetPointLocation(i int, loc mgl64.Vec3, simulate bool) error {
	if err := c.guide.SetLocation(i, loc); err != nil {
		return err
	}
	return c.UpdateAndRebuildModifiedSegments(simulate)
}

// AddPoint inserts p before index i and rebuilds what moved.
func (c *Cable) AddPoint(i int, p guide.Point, simulate bool) error {
	if err := c.guide.AddPoint(i, p); err != nil {
		return err
	}
	return c.UpdateAndRebuildModifiedSegments(simulate)
}

// RemovePoint drops point i. Removing the last point drops the last segment;
// any other point drops the segment leaving it.
func (c *Cable) RemovePoint(i int, simulate bool) error {
	if err := c.guide.RemovePoint(i); err != nil {
		return err
	}
	c.pendingRemovals = append(c.pendingRemovals, i)
	return c.UpdateAndRebuildModifiedSegments(simulate)
}

// AddSlack lengthens segment i by delta.
func (c *Cable) AddSlack(i int, delta float64, simulate bool) error {
	if i < 0 || i >= c.guide.NumSegments() {
		return ErrNoSegments
	}
	if err := c.guide.AddSlack(i, delta); err != nil {
		return err
	}
	c.InvalidateSegments(i)
	if !simulate {
		return nil
	}
	return c.ResimulateInvalidated(false)
}

// SetPointOptions changes how point i anchors the cable. Both neighbouring
// segments are rebuilt.
func (c *Cable) SetPointOptions(i int, fixed, useTangent, simulate bool) error {
	if err := c.guide.SetPointOptions(i, fixed, useTangent); err != nil {
		return err
	}
	c.InvalidateSegments(i-1, i)
	if !simulate {
		return nil
	}
	return c.ResimulateInvalidated(false)
}
