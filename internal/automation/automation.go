package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr"
	"github.com/san-kum/tether/internal/config"
	"github.com/san-kum/tether/internal/guide"
	"github.com/san-kum/tether/internal/tether"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of guide edits applied to one scene.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Scene is a preset name or the path of a scene file.
	Scene string `yaml:"scene"`
	Steps []Step `yaml:"steps"`
}

// Step is a single edit. Which fields matter depends on Action.
type Step struct {
	Action     string      `yaml:"action"`
	Cable      string      `yaml:"cable,omitempty"`
	Point      int         `yaml:"point,omitempty"`
	Location   *mgl64.Vec3 `yaml:"location,omitempty,flow"`
	Offset     *mgl64.Vec3 `yaml:"offset,omitempty,flow"`
	Slack      float64     `yaml:"slack,omitempty"`
	Fixed      *bool       `yaml:"fixed,omitempty"`
	UseTangent bool        `yaml:"use_tangent,omitempty"`
	Sync       bool        `yaml:"sync,omitempty"`
}

const (
	ActionMove        = "move"
	ActionAddPoint    = "add_point"
	ActionRemovePoint = "remove_point"
	ActionSlack       = "slack"
	ActionAnchor      = "anchor"
	ActionLock        = "lock"
	ActionUnlock      = "unlock"
	ActionSimulate    = "simulate"
)

var ErrUnknownAction = errors.New("automation: unknown action")

// StepResult is what one step caused: the segments every completed run
// covered, per cable, and the cable metrics once it settled.
type StepResult struct {
	Step     int
	Action   string
	Segments map[string][]int
	Runs     int
	Metrics  map[string]map[string]float64
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &scenario, nil
}

// LoadScene resolves Scenario.Scene, trying presets first.
func (s *Scenario) LoadScene() (*config.Scene, error) {
	if s.Scene == "" {
		return config.DefaultScene(), nil
	}
	if p := config.GetPreset(s.Scene); p != nil {
		return p, nil
	}
	return config.Load(s.Scene)
}

// Run settles scene, then applies every step and waits for the resulting
// simulations before moving on.
func Run(ctx context.Context, scene *tether.Scene, scenario *Scenario, log logr.Logger) ([]StepResult, error) {
	var current *StepResult
	for _, c := range scene.Cables() {
		c.Subscribe(func(e tether.Event) {
			if current == nil {
				return
			}
			current.Runs++
			segs := append(current.Segments[e.Cable], e.SimulatedSegments...)
			slices.Sort(segs)
			current.Segments[e.Cable] = slices.Compact(segs)
		})
	}

	if err := scene.SimulateAll(ctx, true); err != nil {
		return nil, fmt.Errorf("initial simulation: %w", err)
	}

	results := make([]StepResult, 0, len(scenario.Steps))
	for i, step := range scenario.Steps {
		log.Info("running step", "step", i+1, "of", len(scenario.Steps), "action", step.Action, "cable", step.Cable)

		current = &StepResult{Step: i + 1, Action: step.Action, Segments: make(map[string][]int)}
		if err := apply(ctx, scene, step); err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		for _, c := range scene.Ordered() {
			if err := c.Wait(ctx); err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
		}

		current.Metrics = make(map[string]map[string]float64)
		for _, c := range scene.Ordered() {
			current.Metrics[c.Name()] = c.Metrics()
		}
		results = append(results, *current)
	}
	current = nil
	return results, nil
}

func cable(scene *tether.Scene, name string) (*tether.Cable, error) {
	if name == "" {
		cables := scene.Ordered()
		if len(cables) != 1 {
			return nil, fmt.Errorf("cable name required with %d cables", len(cables))
		}
		return cables[0], nil
	}
	c, ok := scene.Cable(name)
	if !ok {
		return nil, fmt.Errorf("unknown cable %q", name)
	}
	return c, nil
}

func apply(ctx context.Context, scene *tether.Scene, step Step) error {
	if step.Action == ActionSimulate && step.Cable == "" {
		return scene.SimulateAll(ctx, step.Sync)
	}

	c, err := cable(scene, step.Cable)
	if err != nil {
		return err
	}

	switch step.Action {
	case ActionMove:
		loc, err := target(c, step)
		if err != nil {
			return err
		}
		return c.SetPointLocation(step.Point, loc, true)
	case ActionAddPoint:
		if step.Location == nil {
			return fmt.Errorf("%s needs a location", step.Action)
		}
		p := guide.NewPoint(*step.Location)
		p.Slack = step.Slack
		if step.Fixed != nil {
			p.FixedAnchor = *step.Fixed
		}
		p.UseTangent = step.UseTangent
		return c.AddPoint(step.Point, p, true)
	case ActionRemovePoint:
		return c.RemovePoint(step.Point, true)
	case ActionSlack:
		return c.AddSlack(step.Point, step.Slack, true)
	case ActionAnchor:
		fixed := step.Fixed == nil || *step.Fixed
		return c.SetPointOptions(step.Point, fixed, step.UseTangent, true)
	case ActionLock:
		c.Lock()
		return nil
	case ActionUnlock:
		c.Unlock()
		return c.UpdateAndRebuildModifiedSegments(true)
	case ActionSimulate:
		return c.InvalidateAndResimulate(step.Sync)
	default:
		return fmt.Errorf("%w %q", ErrUnknownAction, step.Action)
	}
}

func target(c *tether.Cable, step Step) (mgl64.Vec3, error) {
	n := c.Guide().NumPoints()
	if step.Point < 0 || step.Point >= n {
		return mgl64.Vec3{}, fmt.Errorf("point %d out of range [0,%d)", step.Point, n)
	}
	switch {
	case step.Location != nil:
		return *step.Location, nil
	case step.Offset != nil:
		return c.PointLocation(step.Point).Add(*step.Offset), nil
	default:
		return mgl64.Vec3{}, fmt.Errorf("%s needs a location or an offset", step.Action)
	}
}

// SlackSweep settles a fresh copy of a scene for each slack value given to
// one segment.
type SlackSweep struct {
	Scene    *config.Scene
	Cable    string
	Segment  int
	SlackMin float64
	SlackMax float64
	NumSteps int
}

type SweepResult struct {
	Slack   float64
	Length  float64
	Sag     float64
	Stretch float64
}

func RunSweep(ctx context.Context, sweep *SlackSweep, log logr.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	results := make([]SweepResult, 0, sweep.NumSteps)
	step := (sweep.SlackMax - sweep.SlackMin) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		slack := sweep.SlackMin + float64(i)*step
		scene, err := sweep.Scene.Build(log)
		if err != nil {
			return nil, err
		}
		res, err := settleWithSlack(ctx, scene, sweep.Cable, sweep.Segment, slack)
		scene.Release()
		if err != nil {
			return nil, err
		}
		res.Slack = slack
		results = append(results, res)

		log.V(1).Info("sweep", "run", i+1, "of", sweep.NumSteps, "slack", slack, "sag", res.Sag)
	}
	return results, nil
}

func settleWithSlack(ctx context.Context, scene *tether.Scene, name string, seg int, slack float64) (SweepResult, error) {
	c, err := cable(scene, name)
	if err != nil {
		return SweepResult{}, err
	}
	g := c.Guide()
	if seg < 0 || seg >= g.NumSegments() {
		return SweepResult{}, tether.ErrNoSegments
	}
	if err := g.AddSlack(seg, slack-g.Point(seg).Slack); err != nil {
		return SweepResult{}, err
	}
	if err := c.SetGuide(g, false); err != nil {
		return SweepResult{}, err
	}
	if err := scene.SimulateAll(ctx, true); err != nil {
		return SweepResult{}, err
	}
	m := c.Metrics()
	return SweepResult{Length: m["length"], Sag: m["sag"], Stretch: m["stretch"]}, nil
}

// PerturbConfig drives a Monte Carlo run that jitters every guide point.
type PerturbConfig struct {
	Scene        *config.Scene
	Perturbation float64
	NumTrials    int
	// MaxStretch is the link stretch above which a trial counts as unstable.
	MaxStretch float64
	Seed       int64
}

type PerturbResult struct {
	Trial   int
	Stretch float64
	Stable  bool
}

func RunPerturb(ctx context.Context, cfg *PerturbConfig, log logr.Logger) ([]PerturbResult, error) {
	results := make([]PerturbResult, 0, cfg.NumTrials)

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	jitter := func() float64 { return (rng.Float64() - 0.5) * 2 * cfg.Perturbation }

	for trial := 0; trial < cfg.NumTrials; trial++ {
		s := *cfg.Scene
		s.Cables = make([]config.CableConfig, len(cfg.Scene.Cables))
		for i, cc := range cfg.Scene.Cables {
			cc.Points = slices.Clone(cc.Points)
			for j := range cc.Points {
				cc.Points[j].Location = cc.Points[j].Location.Add(mgl64.Vec3{jitter(), jitter(), jitter()})
			}
			s.Cables[i] = cc
		}

		scene, err := s.Build(log)
		if err != nil {
			return nil, err
		}
		err = scene.SimulateAll(ctx, true)
		worst := 0.0
		for _, c := range scene.Cables() {
			worst = max(worst, c.Metrics()["stretch"])
		}
		scene.Release()
		if err != nil {
			return nil, err
		}

		results = append(results, PerturbResult{
			Trial:   trial,
			Stretch: worst,
			Stable:  worst <= cfg.MaxStretch,
		})

		if (trial+1)%10 == 0 {
			log.Info("perturbation trials", "done", trial+1, "of", cfg.NumTrials)
		}
	}
	return results, nil
}
