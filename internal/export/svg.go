package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jbeda/geom"
	"github.com/san-kum/tether/internal/spline"
	"github.com/san-kum/tether/internal/storage"
	"github.com/san-kum/tether/internal/tether"
)

// Chain is one cable to draw: its particle positions and the guide points
// it hangs from.
type Chain struct {
	Name    string
	Points  []mgl64.Vec3
	Anchors []mgl64.Vec3
}

type SVGOptions struct {
	Width, Height int
	Background    string
	Colors        []string
	// Margin is the fraction of the drawing's extent left blank on each side.
	Margin float64
	// Tolerance simplifies each chain before drawing. Zero keeps every
	// particle.
	Tolerance float64
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Width:      800,
		Height:     480,
		Background: "#0a0a0a",
		Colors:     []string{"#00ffff", "#ff00ff", "#feca57", "#00ff88", "#ff6b6b"},
		Margin:     0.1,
		Tolerance:  0.5,
	}
}

// ChainsFromScene reads the settled particles and guide points of every
// cable in simulation order.
func ChainsFromScene(scene *tether.Scene) []Chain {
	var out []Chain
	for _, c := range scene.Ordered() {
		g := c.Guide()
		ch := Chain{Name: c.Name(), Points: c.ParticleLocations()}
		for _, p := range g.Points() {
			ch.Anchors = append(ch.Anchors, p.Location)
		}
		out = append(out, ch)
	}
	return out
}

// ChainsFromRecords rebuilds chains from a stored particles file. The
// first and last particle of each chain stand in for its anchors.
func ChainsFromRecords(records []storage.ParticleRecord) []Chain {
	var out []Chain
	for _, name := range storage.Cables(records) {
		points := storage.Chain(records, name)
		ch := Chain{Name: name, Points: points}
		if len(points) > 0 {
			ch.Anchors = []mgl64.Vec3{points[0], points[len(points)-1]}
		}
		out = append(out, ch)
	}
	return out
}

// side looks along +Y with Z up. SVG y grows downwards.
func side(p mgl64.Vec3) geom.Coord {
	return geom.Coord{X: p.X(), Y: -p.Z()}
}

// Bounds is the side view extent of chains.
func Bounds(chains []Chain) (geom.Rect, bool) {
	var r geom.Rect
	found := false
	for _, ch := range chains {
		for _, pts := range [][]mgl64.Vec3{ch.Points, ch.Anchors} {
			for _, p := range pts {
				c := side(p)
				if !found {
					r = geom.Rect{Min: c, Max: c}
					found = true
					continue
				}
				r.ExpandToContainCoord(c)
			}
		}
	}
	return r, found
}

// SideView writes chains as an SVG drawing seen from the side.
func SideView(w io.Writer, chains []Chain, opts SVGOptions) error {
	bounds, ok := Bounds(chains)
	if !ok {
		return fmt.Errorf("export: nothing to draw")
	}
	pad := geom.Coord{X: max(bounds.Width(), 1) * opts.Margin, Y: max(bounds.Height(), 1) * opts.Margin}
	view := geom.Rect{Min: bounds.Min.Minus(pad), Max: bounds.Max.Plus(pad)}
	dot := 0.006 * max(view.Width(), view.Height())

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="%.2f %.2f %.2f %.2f" preserveAspectRatio="xMidYMid meet">
<rect x="%.2f" y="%.2f" width="100%%" height="100%%" fill="%s"/>
`, opts.Width, opts.Height, view.Min.X, view.Min.Y, view.Width(), view.Height(),
		view.Min.X, view.Min.Y, opts.Background)

	for i, ch := range chains {
		color := "#ffffff"
		if len(opts.Colors) > 0 {
			color = opts.Colors[i%len(opts.Colors)]
		}
		fmt.Fprintf(&sb, "<g id=%q>\n", ch.Name)
		points := ch.Points
		if opts.Tolerance > 0 {
			points = spline.Simplify(points, opts.Tolerance)
		}
		if len(points) > 1 {
			fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="%.2f" d="`, color, dot/2)
			for j, p := range points {
				c := side(p)
				if j == 0 {
					fmt.Fprintf(&sb, "M%.2f,%.2f", c.X, c.Y)
				} else {
					fmt.Fprintf(&sb, " L%.2f,%.2f", c.X, c.Y)
				}
			}
			sb.WriteString("\"/>\n")
		}
		for _, a := range ch.Anchors {
			c := side(a)
			fmt.Fprintf(&sb, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\" fill=\"%s\"/>\n", c.X, c.Y, dot, color)
		}
		sb.WriteString("</g>\n")
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
