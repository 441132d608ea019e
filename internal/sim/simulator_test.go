package sim

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/model"
)

// straightModel lays one segment from the origin along +X.
func straightModel(span, rest, spacing float64) *model.Model {
	m := model.New()
	m.UpdateNumSegments(1)
	seg := &m.Segments[0]
	seg.Info = model.SegmentInfo{
		StartLocation: mgl64.Vec3{0, 0, 0},
		EndLocation:   mgl64.Vec3{span, 0, 0},
	}
	seg.Length = rest
	seg.BuildParticles(spacing, true, true)
	m.AssignParticleIDs()
	return m
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.EnableCollision = false
	opts.EnableSelfCollision = false
	return opts
}

type countingObserver struct{ calls int }

func (o *countingObserver) OnSubstep(series model.Series, t float64) { o.calls++ }

// finiteObserver records every substep that left a particle with a NaN or
// infinite coordinate.
type finiteObserver struct {
	substeps int
	bad      []int
}

func (o *finiteObserver) OnSubstep(series model.Series, t float64) {
	o.substeps++
	for _, p := range series.Particles() {
		if !p.IsFinite() {
			o.bad = append(o.bad, o.substeps)
			return
		}
	}
}

// shuffledFloorWorld reports the same overlapping hits for every sweep
// that reaches the floor, in an order drawn from rng.
type shuffledFloorWorld struct {
	rng *rand.Rand
}

func (w *shuffledFloorWorld) SweepSphere(radius float64, from, to mgl64.Vec3, profile string, ignore IgnoreList) []Hit {
	if to[2]-radius >= 0 {
		return nil
	}
	impact := mgl64.Vec3{to[0], to[1], 0}
	rest := mgl64.Vec3{to[0], to[1], radius}
	hits := []Hit{
		// Tied at the same impact point.
		{Location: rest, Normal: mgl64.Vec3{0, 0, 1}, ImpactPoint: impact, Component: 5, Item: -1},
		{Location: rest.Add(mgl64.Vec3{0, 0.37, 0}), Normal: mgl64.Vec3{0, 0.6, 0.8}, ImpactPoint: impact, Component: 3, Item: -1},
		{Location: rest.Add(mgl64.Vec3{0.21, 0, 0}), Normal: mgl64.Vec3{0.6, 0, 0.8}, ImpactPoint: impact, Component: 3, Item: 2},
		// Farther away.
		{Location: rest.Sub(mgl64.Vec3{0, 0, 5}), Normal: mgl64.Vec3{0, 0, 1}, ImpactPoint: impact.Sub(mgl64.Vec3{0, 0, 5}), Component: 1, Item: -1},
		// Closer, but a trigger.
		{Location: rest.Add(mgl64.Vec3{0, 0, 5}), Normal: mgl64.Vec3{0, 0, 1}, ImpactPoint: impact.Add(mgl64.Vec3{0, 0, 5}), Component: 9, Item: -1, Trigger: true},
	}
	w.rng.Shuffle(len(hits), func(i, j int) { hits[i], hits[j] = hits[j], hits[i] })
	return hits
}

type planeWorld struct {
	z     float64
	calls int
}

func (w *planeWorld) SweepSphere(radius float64, from, to mgl64.Vec3, profile string, ignore IgnoreList) []Hit {
	w.calls++
	if to[2]-radius >= w.z {
		return nil
	}
	return []Hit{{
		Location:    mgl64.Vec3{to[0], to[1], w.z + radius},
		Normal:      mgl64.Vec3{0, 0, 1},
		ImpactPoint: mgl64.Vec3{to[0], to[1], w.z},
		Component:   7,
		Item:        -1,
	}}
}

type fakeProvider struct {
	created   int
	destroyed int
	moved     int
	fail      bool
}

func (f *fakeProvider) CreateStaticBody(def BodyDef, transform mgl64.Mat4) (BodyHandle, error) {
	if f.fail {
		return 0, errors.New("no room")
	}
	f.created++
	return BodyHandle(f.created), nil
}

func (f *fakeProvider) SetTransform(h BodyHandle, transform mgl64.Mat4) { f.moved++ }
func (f *fakeProvider) DestroyBody(h BodyHandle)                        { f.destroyed++ }

func polylineLength(points []mgl64.Vec3) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += points[i].Sub(points[i-1]).Len()
	}
	return total
}

func TestRunFullSimulationTime(t *testing.T) {
	m := straightModel(1000, 1200, 100)
	opts := testOptions()
	opts.SimulationDuration = opts.Substep

	p := NewParams(opts, 1, 100)
	result, err := New(p).Run(context.Background(), m, 0)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Substeps != 1 {
		t.Errorf("expected 1 substep, got %d", result.Substeps)
	}
	if result.SimulatedTime != opts.Substep {
		t.Errorf("expected simulated time %f, got %f", opts.Substep, result.SimulatedTime)
	}
	if len(result.SimulatedSegments) != 1 || result.SimulatedSegments[0] != 0 {
		t.Errorf("expected segment 0 simulated, got %v", result.SimulatedSegments)
	}
	if m.Segments[0].SimulationTime != opts.Substep {
		t.Errorf("segment time not advanced: %f", m.Segments[0].SimulationTime)
	}
}

func TestRunPartialDuration(t *testing.T) {
	tests := []struct {
		name     string
		substep  float64
		duration float64
		substeps int
	}{
		{"less than a substep", 0.003, 0.001, 0},
		{"three substeps", 0.003, 0.01, 3},
		{"two substeps", 0.0025, 0.006, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := straightModel(1000, 1000, 100)
			opts := testOptions()
			opts.Substep = tt.substep
			p := NewParams(opts, 1, 100)

			result, err := New(p).Run(context.Background(), m, tt.duration)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if result.Substeps != tt.substeps {
				t.Errorf("expected %d substeps, got %d", tt.substeps, result.Substeps)
			}
			want := float64(tt.substeps) * opts.Substep
			if math.Abs(result.SimulatedTime-want) > 1e-9 {
				t.Errorf("expected simulated time %f, got %f", want, result.SimulatedTime)
			}
			if math.Abs(result.SimulatedTime+result.RemainderTime-tt.duration) > 1e-12 {
				t.Errorf("simulated %f + remainder %f != %f", result.SimulatedTime, result.RemainderTime, tt.duration)
			}
		})
	}
}

func TestRunStraightSegmentStaysPut(t *testing.T) {
	m := straightModel(100, 100, 100)
	if got := m.NumParticles(); got != 2 {
		t.Fatalf("expected 2 particles, got %d", got)
	}
	before := m.ParticleLocations()

	opts := testOptions()
	opts.Gravity = mgl64.Vec3{}
	p := NewParams(opts, 1, 100)
	p.Force = mgl64.Vec3{}

	if _, err := New(p).Run(context.Background(), m, opts.Substep); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	after := m.ParticleLocations()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("particle %d moved from %v to %v", i, before[i], after[i])
		}
	}
}

func TestRunGravitySag(t *testing.T) {
	m := straightModel(1000, 1100, 100)
	opts := testOptions()
	opts.SimulationDuration = 2
	opts.EaseIn = 0
	p := NewParams(opts, 1, 100)

	result, err := New(p).Run(context.Background(), m, 0)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Substeps == 0 {
		t.Fatal("expected substeps to run")
	}

	locs := m.ParticleLocations()
	if locs[0] != (mgl64.Vec3{0, 0, 0}) || locs[len(locs)-1] != (mgl64.Vec3{1000, 0, 0}) {
		t.Errorf("fixed ends moved: %v, %v", locs[0], locs[len(locs)-1])
	}
	mid := locs[len(locs)/2]
	if mid[2] >= 0 {
		t.Errorf("expected cable to sag, midpoint z = %f", mid[2])
	}
	for i, l := range locs {
		if math.IsNaN(l[0]) || math.IsNaN(l[1]) || math.IsNaN(l[2]) {
			t.Fatalf("particle %d is NaN", i)
		}
	}
	if got := polylineLength(locs); math.Abs(got-1100)/1100 > 0.1 {
		t.Errorf("expected length within 10%% of 1100, got %f", got)
	}
}

func TestRunObserversAndMetrics(t *testing.T) {
	m := straightModel(1000, 1000, 100)
	opts := testOptions()
	obs := &countingObserver{}

	s := New(NewParams(opts, 1, 100))
	s.AddObserver(obs)
	result, err := s.Run(context.Background(), m, 0.03)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if obs.calls != result.Substeps {
		t.Errorf("expected %d observer calls, got %d", result.Substeps, obs.calls)
	}
}

func TestRunCancelled(t *testing.T) {
	m := straightModel(1000, 1000, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(NewParams(testOptions(), 1, 100)).Run(ctx, m, 0)
	if err != nil {
		t.Fatalf("cancelled run returned error: %v", err)
	}
	if !result.Cancelled {
		t.Error("expected Cancelled to be set")
	}
	if result.Substeps != 0 {
		t.Errorf("expected no substeps, got %d", result.Substeps)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(m *model.Model, p *Params)
		target error
	}{
		{
			name:   "zero substep",
			setup:  func(m *model.Model, p *Params) { p.Options.Substep = 0 },
			target: ErrInvalidOptions,
		},
		{
			name:   "no iterations",
			setup:  func(m *model.Model, p *Params) { p.Options.Iterations = 0 },
			target: ErrInvalidOptions,
		},
		{
			name:   "mismatched ids",
			setup:  func(m *model.Model, p *Params) { m.Segments[0].ID = 3 },
			target: ErrInvalidModel,
		},
		{
			name:   "zero rest length",
			setup:  func(m *model.Model, p *Params) { m.Segments[0].Length = 0 },
			target: ErrInvalidModel,
		},
		{
			name: "self collision without bodies",
			setup: func(m *model.Model, p *Params) {
				p.Options.EnableCollision = true
				p.Options.EnableSelfCollision = true
				p.World = &planeWorld{z: -1e6}
			},
			target: ErrNoPhysicsScene,
		},
		{
			name: "nan particle",
			setup: func(m *model.Model, p *Params) {
				m.Segments[0].Particles[3].Position[2] = math.NaN()
			},
			target: ErrNaNPosition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := straightModel(1000, 1000, 100)
			p := NewParams(testOptions(), 1, 100)
			tt.setup(m, p)

			_, err := New(p).Run(context.Background(), m, 0.03)
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestRunSimulationErrorCarriesSubstep(t *testing.T) {
	m := straightModel(1000, 1000, 100)
	m.Segments[0].Particles[2].Position[0] = math.NaN()

	_, err := New(NewParams(testOptions(), 1, 100)).Run(context.Background(), m, 0.03)
	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %v", err)
	}
	if simErr.Substep != 0 || simErr.SegmentID != 0 {
		t.Errorf("unexpected error context: %+v", simErr)
	}
}

func TestRunCollisionKeepsCableAbovePlane(t *testing.T) {
	m := straightModel(1000, 1500, 100)
	for i := range m.Segments[0].Particles {
		p := &m.Segments[0].Particles[i]
		p.Position[2] = 20
		p.PrevPosition[2] = 20
	}
	m.Segments[0].Info.StartLocation[2] = 20
	m.Segments[0].Info.EndLocation[2] = 20

	opts := testOptions()
	opts.EnableCollision = true
	opts.SimulationDuration = 1
	p := NewParams(opts, 1, 10)
	world := &planeWorld{z: 0}
	p.World = world

	result, err := New(p).Run(context.Background(), m, 0)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.CollisionHits == 0 {
		t.Fatal("expected the cable to reach the plane")
	}
	if len(result.HitComponents) != 1 || result.HitComponents[0] != 7 {
		t.Errorf("expected hit component 7, got %v", result.HitComponents)
	}
	radius := 0.5 * p.CollisionWidth
	for i, l := range m.ParticleLocations() {
		if l[2] < radius-1 {
			t.Errorf("particle %d sank to z=%f", i, l[2])
		}
	}
}

func raisedModel() *model.Model {
	m := straightModel(1000, 1500, 100)
	for i := range m.Segments[0].Particles {
		p := &m.Segments[0].Particles[i]
		p.Position[2] = 20
		p.PrevPosition[2] = 20
	}
	m.Segments[0].Info.StartLocation[2] = 20
	m.Segments[0].Info.EndLocation[2] = 20
	return m
}

func TestRunHitOrderDeterminism(t *testing.T) {
	opts := testOptions()
	opts.EnableCollision = true
	opts.TruncateHits = true
	opts.SimulationDuration = 1

	var want uint64
	for i, seed := range []int64{1, 2, 3, 42} {
		m := raisedModel()
		p := NewParams(opts, 1, 10)
		p.World = &shuffledFloorWorld{rng: rand.New(rand.NewSource(seed))}

		result, err := New(p).Run(context.Background(), m, 0)
		if err != nil {
			t.Fatalf("seed %d: run failed: %v", seed, err)
		}
		if result.CollisionHits == 0 {
			t.Fatalf("seed %d: expected the cable to reach the floor", seed)
		}
		for _, c := range result.HitComponents {
			if c != 3 {
				t.Errorf("seed %d: resolved against component %d, want only 3", seed, c)
			}
		}
		if i == 0 {
			want = m.Hash()
			continue
		}
		if got := m.Hash(); got != want {
			t.Errorf("seed %d: hash %x, want %x", seed, got, want)
		}
	}
}

func TestRunStaysFiniteEverySubstep(t *testing.T) {
	opts := testOptions()
	opts.EnableCollision = true
	opts.SimulationDuration = 1
	opts.EaseIn = 0
	p := NewParams(opts, 1, 10)
	p.World = &planeWorld{z: 0}

	obs := &finiteObserver{}
	s := New(p)
	s.AddObserver(obs)
	result, err := s.Run(context.Background(), raisedModel(), 0)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if obs.substeps != result.Substeps || obs.substeps == 0 {
		t.Fatalf("observed %d substeps, ran %d", obs.substeps, result.Substeps)
	}
	if len(obs.bad) > 0 {
		t.Errorf("non-finite particles after substeps %v", obs.bad)
	}
}

func TestRunSelfCollisionMovesBodies(t *testing.T) {
	m := straightModel(1000, 1000, 100)
	opts := testOptions()
	opts.EnableCollision = true
	opts.EnableSelfCollision = true

	p := NewParams(opts, 1, 10)
	p.World = &planeWorld{z: -1e6}
	provider := &fakeProvider{}
	p.Bodies = NewResources(provider)
	if err := p.Bodies.Init(m, 0, BodyDef{Radius: 5}); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	result, err := New(p).Run(context.Background(), m, 0.03)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := result.Substeps * m.NumParticles()
	if provider.moved != want {
		t.Errorf("expected %d transform updates, got %d", want, provider.moved)
	}
	p.Bodies.Release()
	if provider.destroyed != provider.created {
		t.Errorf("created %d bodies, destroyed %d", provider.created, provider.destroyed)
	}
}

func TestSeriesToSimulate(t *testing.T) {
	build := func() *model.Model {
		m := model.New()
		m.UpdateNumSegments(3)
		for i := range m.Segments {
			seg := &m.Segments[i]
			x := float64(i) * 100
			seg.Info = model.SegmentInfo{StartLocation: mgl64.Vec3{x, 0, 0}, EndLocation: mgl64.Vec3{x + 100, 0, 0}}
			seg.Length = 100
			seg.BuildParticles(50, true, true)
		}
		return m
	}

	tests := []struct {
		name         string
		fixed        []bool
		simulate     []int
		includeEmpty bool
		emptySegment int
		want         [][]int
	}{
		{"all fixed", []bool{true, true, true, true}, nil, true, -1, [][]int{{0}, {1}, {2}}},
		{"free middle point", []bool{true, false, true, true}, nil, true, -1, [][]int{{0, 1}, {2}}},
		{"all free", []bool{true, false, false, true}, nil, true, -1, [][]int{{0, 1, 2}}},
		{"flagged subset", []bool{true, false, true, true}, []int{2}, true, -1, [][]int{{2}}},
		{"flag pulls whole series", []bool{true, false, true, true}, []int{1}, true, -1, [][]int{{0, 1}}},
		{"empty excluded", []bool{true, true, true, true}, []int{2}, false, 2, nil},
		{"empty included", []bool{true, true, true, true}, []int{2}, true, 2, [][]int{{2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := build()
			if tt.emptySegment >= 0 {
				m.Segments[tt.emptySegment].Particles = nil
			}
			p := NewParams(testOptions(), 3, 10)
			for i, f := range tt.fixed {
				p.Points[i].FixedAnchor = f
			}
			if tt.simulate != nil {
				p.SetSegmentsToSimulate(tt.simulate)
			}

			got := p.SeriesToSimulate(m, tt.includeEmpty)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d series, got %d", len(tt.want), len(got))
			}
			for i, series := range got {
				ids := series.SegmentIDs()
				if len(ids) != len(tt.want[i]) {
					t.Fatalf("series %d: expected %v, got %v", i, tt.want[i], ids)
				}
				for j := range ids {
					if ids[j] != tt.want[i][j] {
						t.Errorf("series %d: expected %v, got %v", i, tt.want[i], ids)
					}
				}
			}
		})
	}
}

func TestEnsembleDeterministic(t *testing.T) {
	base := straightModel(1000, 1100, 100)
	ens := NewEnsemble(base, 4, func(run int) (*Params, error) {
		opts := testOptions()
		opts.SimulationDuration = 0.5
		return NewParams(opts, 1, 100), nil
	})

	runs, err := ens.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(runs) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(runs))
	}
	if !Deterministic(runs) {
		t.Error("expected identical runs")
	}
	if base.Segments[0].SimulationTime != 0 {
		t.Error("ensemble mutated the base model")
	}
}

func TestEnsemblePropagatesError(t *testing.T) {
	base := straightModel(1000, 1000, 100)
	ens := NewEnsemble(base, 3, func(run int) (*Params, error) {
		if run == 1 {
			return nil, ErrInvalidOptions
		}
		return NewParams(testOptions(), 1, 100), nil
	})
	if _, err := ens.Run(context.Background(), 0.01); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("expected ErrInvalidOptions, got %v", err)
	}
}
