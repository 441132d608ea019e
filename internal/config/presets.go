package config

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/sim"
)

func fixed(v bool) *bool { return &v }

func floor(z float64) PlaneConfig {
	return PlaneConfig{Point: mgl64.Vec3{0, 0, z}, Normal: mgl64.Vec3{0, 0, 1}}
}

// Presets build a fresh scene on every call so callers may edit the result.
var Presets = map[string]func() *Scene{
	"catenary": func() *Scene {
		return &Scene{
			Name:    "catenary",
			Options: sim.DefaultOptions(),
			Cables: []CableConfig{{
				Name: "span",
				Points: []PointConfig{
					{Location: mgl64.Vec3{0, 0, 0}, Slack: 150},
					{Location: mgl64.Vec3{600, 0, 0}},
				},
			}},
		}
	},
	"drape": func() *Scene {
		opts := sim.DefaultOptions()
		opts.EnableSelfCollision = false
		return &Scene{
			Name:    "drape",
			Options: opts,
			Cables: []CableConfig{{
				Name: "over-box",
				Points: []PointConfig{
					{Location: mgl64.Vec3{0, 0, 100}, Slack: 300},
					{Location: mgl64.Vec3{400, 0, 100}},
				},
			}},
			World: WorldConfig{
				Planes: []PlaneConfig{floor(-120)},
				Boxes:  []BoxConfig{{Min: mgl64.Vec3{150, -50, -120}, Max: mgl64.Vec3{250, 50, 20}}},
			},
		}
	},
	"bundle": func() *Scene {
		s := &Scene{
			Name:    "bundle",
			Options: sim.DefaultOptions(),
			World:   WorldConfig{Planes: []PlaneConfig{floor(-80)}},
		}
		for i, name := range []string{"red", "green", "blue"} {
			z := 30 * float64(i)
			s.Cables = append(s.Cables, CableConfig{
				Name: name,
				Points: []PointConfig{
					{Location: mgl64.Vec3{0, -40, z}, Slack: 120},
					{Location: mgl64.Vec3{500, 40, z}},
				},
			})
		}
		return s
	},
	"zigzag": func() *Scene {
		opts := sim.DefaultOptions()
		opts.EnableCollision = false
		return &Scene{
			Name:    "zigzag",
			Options: opts,
			Cables: []CableConfig{{
				Name: "waypoints",
				Points: []PointConfig{
					{Location: mgl64.Vec3{0, 0, 0}, Slack: 40},
					{Location: mgl64.Vec3{200, 0, 80}, Slack: 40, Fixed: fixed(false)},
					{Location: mgl64.Vec3{400, 0, 0}, Slack: 40, UseTangent: true},
					{Location: mgl64.Vec3{600, 0, 80}, Linear: true},
					{Location: mgl64.Vec3{800, 0, 80}},
				},
			}},
		}
	},
}

func GetPreset(name string) *Scene {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
