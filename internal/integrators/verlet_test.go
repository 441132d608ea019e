package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/tether/internal/model"
)

func chain(free []bool, positions, prev []mgl64.Vec3) model.Series {
	seg := model.NewSegment(0)
	for i := range free {
		seg.Particles = append(seg.Particles, model.Particle{ID: i, Free: free[i], Position: positions[i], PrevPosition: prev[i]})
	}
	return model.NewSeries(model.Proxy{&seg})
}

func TestVerletStep(t *testing.T) {
	tests := []struct {
		name     string
		force    mgl64.Vec3
		drag     float64
		pos      mgl64.Vec3
		prev     mgl64.Vec3
		wantPos  mgl64.Vec3
		wantPrev mgl64.Vec3
	}{
		{
			name:     "at rest without force",
			pos:      mgl64.Vec3{1, 2, 3},
			prev:     mgl64.Vec3{1, 2, 3},
			wantPos:  mgl64.Vec3{1, 2, 3},
			wantPrev: mgl64.Vec3{1, 2, 3},
		},
		{
			name:     "inertia",
			pos:      mgl64.Vec3{1, 0, 0},
			prev:     mgl64.Vec3{0, 0, 0},
			wantPos:  mgl64.Vec3{2, 0, 0},
			wantPrev: mgl64.Vec3{1, 0, 0},
		},
		{
			name:     "gravity",
			force:    mgl64.Vec3{0, 0, -100},
			pos:      mgl64.Vec3{0, 0, 0},
			prev:     mgl64.Vec3{0, 0, 0},
			wantPos:  mgl64.Vec3{0, 0, -1},
			wantPrev: mgl64.Vec3{0, 0, 0},
		},
		{
			name:     "quadratic drag",
			drag:     0.5,
			pos:      mgl64.Vec3{2, 0, 0},
			prev:     mgl64.Vec3{0, 0, 0},
			wantPos:  mgl64.Vec3{3, 0, 0},
			wantPrev: mgl64.Vec3{2, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anchor := mgl64.Vec3{-10, 0, 0}
			series := chain([]bool{false, true}, []mgl64.Vec3{anchor, tt.pos}, []mgl64.Vec3{anchor, tt.prev})

			if err := NewVerlet(tt.force, tt.drag).Integrate(series, 0.1); err != nil {
				t.Fatalf("integrate failed: %v", err)
			}

			p := series.Particle(1)
			if !p.Position.ApproxEqualThreshold(tt.wantPos, 1e-12) {
				t.Errorf("position: expected %v, got %v", tt.wantPos, p.Position)
			}
			if p.PrevPosition != tt.wantPrev {
				t.Errorf("previous position: expected %v, got %v", tt.wantPrev, p.PrevPosition)
			}
			if a := series.Particle(0); a.Position != anchor || a.PrevPosition != anchor {
				t.Errorf("fixed particle moved to %v", a.Position)
			}
		})
	}
}

func TestVerletNaN(t *testing.T) {
	nan := mgl64.Vec3{math.NaN(), 0, 0}
	series := chain([]bool{true}, []mgl64.Vec3{nan}, []mgl64.Vec3{{}})

	err := NewVerlet(mgl64.Vec3{}, 0).Integrate(series, 0.1)
	if !errors.Is(err, ErrNaNPosition) {
		t.Fatalf("expected ErrNaNPosition, got %v", err)
	}
	var perr *ParticleError
	if !errors.As(err, &perr) || perr.Index != 0 {
		t.Errorf("expected particle error for index 0, got %v", err)
	}
}

func TestVerletInfinite(t *testing.T) {
	tests := []struct {
		name string
		pos  mgl64.Vec3
		prev mgl64.Vec3
	}{
		{"infinite on entry", mgl64.Vec3{math.Inf(1), 0, 0}, mgl64.Vec3{}},
		{"overflow during the step", mgl64.Vec3{1e308, 0, 0}, mgl64.Vec3{-1e308, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := chain([]bool{true}, []mgl64.Vec3{tt.pos}, []mgl64.Vec3{tt.prev})
			err := NewVerlet(mgl64.Vec3{}, 0).Integrate(series, 0.1)
			if !errors.Is(err, ErrInfinitePosition) {
				t.Fatalf("expected ErrInfinitePosition, got %v", err)
			}
		})
	}
}

func TestVerletCoincident(t *testing.T) {
	series := chain(
		[]bool{false, true},
		[]mgl64.Vec3{{0, 0, -1}, {0, 0, 0}},
		[]mgl64.Vec3{{0, 0, -1}, {0, 0, 1}},
	)

	err := NewVerlet(mgl64.Vec3{}, 0).Integrate(series, 0.1)
	if !errors.Is(err, ErrCoincidentParticles) {
		t.Fatalf("expected ErrCoincidentParticles, got %v", err)
	}
}
