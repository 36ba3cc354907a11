package mads

import (
	"context"
	"sync"
	"testing"

	"github.com/rwcarlsen/madsgo/bbeval"
	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/cache"
	"github.com/rwcarlsen/madsgo/control"
	"github.com/rwcarlsen/madsgo/params"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

func sumSquares() bbeval.FuncEvaluator {
	return bbeval.FuncEvaluator{
		Types: func() bbo.TypeList { return bbo.TypeList{bbo.Obj} },
		Fn: func(x []float64) ([]float64, bool) {
			s := 0.0
			for _, v := range x {
				s += v * v
			}
			return []float64{s}, true
		},
	}
}

// runToCompletion starts nWorkers worker goroutines against ctl, runs a to
// completion on the calling goroutine, then shuts the workers down.
func runToCompletion(a *Algorithm, ctl *control.Controller, ev bbeval.Evaluator, nWorkers int) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctl.RunWorker(ctx, ev, scalarpt.PosInf())
		}()
	}
	a.RunToCompletion(ctx)
	cancel()
	wg.Wait()
}

func newTestAlgorithm(t *testing.T, p params.Params) (*Algorithm, *control.Controller) {
	t.Helper()
	ctl := control.NewController(cache.New(0))
	a := NewAlgorithm(p, ctl, sumSquares(), 1, nil)
	return a, ctl
}

func quadParams(n int) params.Params {
	p := params.NewDefault(n)
	x0 := make([]float64, n)
	for i := range x0 {
		x0[i] = 2
	}
	p.X0 = [][]float64{x0}
	p.LowerBound = make([]float64, n)
	p.UpperBound = make([]float64, n)
	for i := 0; i < n; i++ {
		p.LowerBound[i] = -10
		p.UpperBound[i] = 10
	}
	p.InitialFrameSize = make([]float64, n)
	for i := range p.InitialFrameSize {
		p.InitialFrameSize[i] = 1
	}
	p.MaxBBEval = 200
	return p
}

func TestAlgorithmImprovesOnSumSquares(t *testing.T) {
	p := quadParams(2)
	a, ctl := newTestAlgorithm(t, p)
	runToCompletion(a, ctl, sumSquares(), 2)

	best := a.Barrier.BestFeas()
	if best == nil {
		t.Fatal("expected a feasible incumbent after running")
	}
	f := best.F(a.ComputeType)
	if !f.IsDefined() || f.Value() >= 8 {
		t.Errorf("expected objective to improve below x0's value 8, got %v", f)
	}
}

func TestAlgorithmStopsAtMaxBBEval(t *testing.T) {
	p := quadParams(3)
	p.MaxBBEval = 20
	a, ctl := newTestAlgorithm(t, p)
	runToCompletion(a, ctl, sumSquares(), 1)

	mt := ctl.Thread(a.MainThread)
	if mt.Budgets.BBEval < p.MaxBBEval {
		t.Errorf("expected at least MaxBBEval evaluations to have run, got %d", mt.Budgets.BBEval)
	}
	if !a.StopReasons().ShouldStop() {
		t.Error("expected a stop reason to be latched")
	}
}

func TestAlgorithmX0FailWithNoStartingPoints(t *testing.T) {
	p := quadParams(2)
	p.X0 = nil
	a, ctl := newTestAlgorithm(t, p)
	a.Start()
	if !a.StopReasons().ShouldStop() {
		t.Error("expected X0_FAIL to be latched when no starting points are given")
	}
	_ = ctl
}

func TestMeshRefinesOnRepeatedFailure(t *testing.T) {
	p := quadParams(2)
	p.X0 = [][]float64{{0, 0}} // already at the optimum: every poll should fail
	a, ctl := newTestAlgorithm(t, p)
	before := a.Mesh.FrameSize()[0]
	runToCompletion(a, ctl, sumSquares(), 1)
	after := a.Mesh.FrameSize()[0]
	if after >= before {
		t.Errorf("expected frame size to shrink from repeated poll failure, got %v -> %v", before, after)
	}
}
