package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr"
	"github.com/san-kum/tether/internal/guide"
	"github.com/san-kum/tether/internal/physics"
	"github.com/san-kum/tether/internal/sim"
	"github.com/san-kum/tether/internal/tether"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWidth = tether.DefaultWidth
	DefaultName  = "scene"
)

var ErrInvalidScene = errors.New("config: invalid scene")

type Scene struct {
	Name    string        `yaml:"name"`
	Options sim.Options   `yaml:"options"`
	Cables  []CableConfig `yaml:"cables"`
	World   WorldConfig   `yaml:"world"`
}

type CableConfig struct {
	Name    string        `yaml:"name"`
	Width   float64       `yaml:"width,omitempty"`
	Created time.Time     `yaml:"created,omitempty"`
	Points  []PointConfig `yaml:"points"`
}

type PointConfig struct {
	Location mgl64.Vec3  `yaml:"location,flow"`
	Tangent  *mgl64.Vec3 `yaml:"tangent,omitempty,flow"`
	Linear   bool        `yaml:"linear,omitempty"`
	Slack    float64     `yaml:"slack,omitempty"`
	// Fixed defaults to true.
	Fixed      *bool `yaml:"fixed,omitempty"`
	UseTangent bool  `yaml:"use_tangent,omitempty"`
}

type WorldConfig struct {
	Planes  []PlaneConfig  `yaml:"planes,omitempty"`
	Spheres []SphereConfig `yaml:"spheres,omitempty"`
	Boxes   []BoxConfig    `yaml:"boxes,omitempty"`
}

type ColliderConfig struct {
	Profiles []string `yaml:"profiles,omitempty,flow"`
	Trigger  bool     `yaml:"trigger,omitempty"`
}

type PlaneConfig struct {
	Point          mgl64.Vec3 `yaml:"point,flow"`
	Normal         mgl64.Vec3 `yaml:"normal,flow"`
	ColliderConfig `yaml:",inline"`
}

type SphereConfig struct {
	Center         mgl64.Vec3 `yaml:"center,flow"`
	Radius         float64    `yaml:"radius"`
	ColliderConfig `yaml:",inline"`
}

type BoxConfig struct {
	Min            mgl64.Vec3 `yaml:"min,flow"`
	Max            mgl64.Vec3 `yaml:"max,flow"`
	ColliderConfig `yaml:",inline"`
}

func DefaultScene() *Scene {
	return &Scene{
		Name:    DefaultName,
		Options: sim.DefaultOptions(),
		Cables: []CableConfig{{
			Name:  "cable",
			Width: DefaultWidth,
			Points: []PointConfig{
				{Location: mgl64.Vec3{0, 0, 0}, Slack: 100},
				{Location: mgl64.Vec3{500, 0, 0}},
			},
		}},
	}
}

func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := DefaultScene()
	s.Cables = nil
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

func Save(path string, s *Scene) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Fixes returns the anchor flag, defaulting to true.
func (p PointConfig) Fixes() bool {
	return p.Fixed == nil || *p.Fixed
}

func (p PointConfig) point() guide.Point {
	gp := guide.NewPoint(p.Location)
	if p.Tangent != nil {
		gp.Tangent = *p.Tangent
		gp.AutoTangent = false
	}
	gp.Linear = p.Linear
	gp.Slack = p.Slack
	gp.FixedAnchor = p.Fixes()
	gp.UseTangent = p.UseTangent
	return gp
}

// Guide builds the guide of c.
func (c CableConfig) Guide() *guide.Guide {
	points := make([]guide.Point, len(c.Points))
	for i, p := range c.Points {
		points[i] = p.point()
	}
	return guide.New(points...)
}

func (s *Scene) Validate() error {
	if err := s.Options.Validate(); err != nil {
		return err
	}
	if len(s.Cables) == 0 {
		return fmt.Errorf("%w: no cables", ErrInvalidScene)
	}
	names := make(map[string]bool, len(s.Cables))
	for i, c := range s.Cables {
		if len(c.Points) < 2 {
			return fmt.Errorf("%w: cable %d needs at least two points, got %d", ErrInvalidScene, i, len(c.Points))
		}
		if c.Name != "" {
			if names[c.Name] {
				return fmt.Errorf("%w: duplicate cable name %q", ErrInvalidScene, c.Name)
			}
			names[c.Name] = true
		}
		if c.Width < 0 {
			return fmt.Errorf("%w: cable %d has negative width", ErrInvalidScene, i)
		}
	}
	for i, sp := range s.World.Spheres {
		if !(sp.Radius > 0) {
			return fmt.Errorf("%w: sphere %d needs a positive radius", ErrInvalidScene, i)
		}
	}
	for i, p := range s.World.Planes {
		if p.Normal.Len() == 0 {
			return fmt.Errorf("%w: plane %d has a zero normal", ErrInvalidScene, i)
		}
	}
	return nil
}

// Build creates the world and every cable of s. Cables without a creation
// time are ordered as they appear in the file.
func (s *Scene) Build(logger logr.Logger) (*tether.Scene, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	world := physics.NewWorld()
	for _, p := range s.World.Planes {
		world.AddPlane(physics.Plane{Point: p.Point, Normal: p.Normal.Normalize()}, p.options())
	}
	for _, sp := range s.World.Spheres {
		world.AddSphere(physics.Sphere{Center: sp.Center, Radius: sp.Radius}, sp.options())
	}
	for _, b := range s.World.Boxes {
		world.AddBox(physics.Box{Min: b.Min, Max: b.Max}, b.options())
	}

	scene := tether.NewScene(world, logger)
	base := time.Now()
	for i, c := range s.Cables {
		created := c.Created
		if created.IsZero() {
			created = base.Add(time.Duration(i) * time.Millisecond)
		}
		scene.Add(c.Guide(), tether.Config{
			Name:    c.Name,
			Width:   c.Width,
			Options: s.Options,
			Created: created,
		})
	}
	return scene, nil
}

func (c ColliderConfig) options() physics.ColliderOptions {
	return physics.ColliderOptions{Profiles: c.Profiles, Trigger: c.Trigger}
}
