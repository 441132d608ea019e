package sim

import (
	"context"

	"github.com/san-kum/tether/internal/model"
	"golang.org/x/sync/errgroup"
)

// Ensemble runs independent copies of one model in parallel. Each copy gets
// its own Params from the factory, so runs share nothing but the world.
type Ensemble struct {
	base    *model.Model
	numRuns int
	params  func(run int) (*Params, error)
}

func NewEnsemble(base *model.Model, numRuns int, params func(run int) (*Params, error)) *Ensemble {
	return &Ensemble{base: base, numRuns: numRuns, params: params}
}

// EnsembleRun is the outcome of one copy.
type EnsembleRun struct {
	Model  *model.Model
	Result *Result
	Hash   uint64
}

func (e *Ensemble) Run(ctx context.Context, duration float64) ([]EnsembleRun, error) {
	runs := make([]EnsembleRun, e.numRuns)
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			p, err := e.params(i)
			if err != nil {
				return err
			}
			m := e.base.Clone()
			res, err := New(p).Run(ctx, m, duration)
			if err != nil {
				return err
			}
			runs[i] = EnsembleRun{Model: m, Result: res, Hash: m.Hash()}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}

// Deterministic reports whether every run finished bit-identical.
func Deterministic(runs []EnsembleRun) bool {
	for i := 1; i < len(runs); i++ {
		if runs[i].Hash != runs[0].Hash {
			return false
		}
	}
	return true
}
