// Package mads implements the MADS algorithm core of spec §4.6: the
// mega-iteration/iteration state machine driving Update -> Search -> Poll
// -> ExtendedPoll against a granular mesh and progressive barrier, plus the
// poll-direction generation grounded on the teacher's optim/pattern
// Spanner family.
package mads

import (
	"context"
	"math/rand"

	"github.com/rwcarlsen/madsgo/barrier"
	"github.com/rwcarlsen/madsgo/bbeval"
	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/control"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/mesh"
	"github.com/rwcarlsen/madsgo/params"
	"github.com/rwcarlsen/madsgo/scalarpt"
	"github.com/rwcarlsen/madsgo/step"
	"github.com/rwcarlsen/madsgo/stopreason"
)

// Algorithm is the top-level MADS run: owns the mesh, barrier, and
// evaluator-control main-thread registration, and drives MegaIterations
// until a stop reason latches.
type Algorithm struct {
	*step.Base

	Params    params.Params
	Mesh      *mesh.Granular
	Barrier   *barrier.Progressive
	Ctl       *control.Controller
	MainThread int
	Evaluator bbeval.Evaluator

	ComputeType bbo.ComputeType
	rng         *rand.Rand
	randDirs    *randomN

	// IterationCount is the number of iterations run, for MAX_ITER.
	IterationCount int

	// Center is the current frame center (incumbent the current frame is
	// built around).
	Center *eval.Point

	// Searchers are additional pluggable search methods run before Poll
	// each iteration, in order; see search.go.
	Searchers []Searcher
}

// NewAlgorithm wires p's problem/run parameters into a fresh Mesh, Barrier,
// and evaluator-control main thread, grounded on the teacher's
// optim.Solver construction (mesh + objective + stop conditions assembled
// once up front).
func NewAlgorithm(p params.Params, ctl *control.Controller, ev bbeval.Evaluator, mainThreadID int, parent step.Step) *Algorithm {
	ct := bbo.ComputeType{EvalType: bbo.EvalBB, Kind: bbo.Standard, HNorm: p.HNorm}
	m := mesh.NewGranular(p.Dimension, p.InitialFrameSize, p.Granularity)
	m.AnisotropicMesh = p.AnisotropicMesh
	m.AnisotropyFactor = p.AnisotropyFactor
	if p.OrthoMeshRefineFreq > 0 {
		m.RefineFreq = p.OrthoMeshRefineFreq
	}
	b := barrier.New(ct, p.HMax0)

	a := &Algorithm{
		Params:      p,
		Mesh:        m,
		Barrier:     b,
		Ctl:         ctl,
		MainThread:  mainThreadID,
		Evaluator:   ev,
		ComputeType: ct,
		rng:         rand.New(rand.NewSource(p.Seed)),
		randDirs:    &randomN{},
	}
	a.Base = step.New("MADS", parent, a)

	mt := &control.MainThread{
		ID:            mainThreadID,
		Evaluator:     bbo.EvalBB,
		ComputeType:   ct,
		SortType:      p.EvalQueueSort,
		Opportunistic: p.OpportunisticEval,
		Barrier:       b,
		StopReasons:   a.StopReasons(),
		Budgets: control.Budgets{
			MaxBBEval:    p.MaxBBEval,
			MaxEval:      p.MaxEval,
			MaxBlockEval: p.MaxBlockEval,
			MaxModelEval: p.MaxModelEval,
			SubproblemMax: p.SubproblemMaxBBEval,
		},
	}
	ctl.Register(mt)
	a.Searchers = buildSearchers(p)
	return a
}

// buildSearchers assembles the Searcher pipeline from the RUN parameters
// that enable each method, in the fixed order spec §4.6 runs them:
// speculative first (cheapest, reuses the last success direction), then
// sampling-based methods, then model-based stubs last.
func buildSearchers(p params.Params) []Searcher {
	var out []Searcher
	if p.SpeculativeSearch {
		out = append(out, SpeculativeSearch{})
	}
	if p.LHSearch {
		out = append(out, &LHSearch{})
	}
	if p.NMSearch {
		out = append(out, NMSearch{})
	}
	if p.QuadModelSearch {
		out = append(out, QuadModelSearch{})
	}
	return out
}

func (a *Algorithm) mainThread() *control.MainThread { return a.Ctl.Thread(a.MainThread) }

// OverrideComputeKind swaps this algorithm's f/h rule after construction
// but before Start, propagating the change to its barrier and registered
// evaluator-control main thread. Used by phase-one and other sub-algorithm
// wrappers that need a different ComputeKind than the default Standard,
// grounded on bbo.ComputeType's struct-of-enums design (§9), which makes
// swapping the rule a plain field assignment rather than a type change.
func (a *Algorithm) OverrideComputeKind(k bbo.ComputeKind) {
	a.ComputeType.Kind = k
	a.Barrier.ComputeType = a.ComputeType
	if mt := a.mainThread(); mt != nil {
		mt.ComputeType = a.ComputeType
	}
}

// RestoreRNG rebuilds the algorithm's random source from a hot-restart
// seed/draw-count pair (hotrestart.State's RNGSeed/RNGCalls), re-drawing
// calls times to approximate where the original generator had gotten to.
// math/rand.Rand exposes no internal-state accessor, so this is a
// best-effort replay rather than an exact restore: a run resumed this way
// reaches the same region of the generator's sequence but not necessarily
// the exact draw, since Span/search code consumes draws via a mix of
// Float64/Intn/Perm rather than a single uniform call shape.
func (a *Algorithm) RestoreRNG(seed int64, calls int64) {
	a.rng = rand.New(rand.NewSource(seed))
	for i := int64(0); i < calls; i++ {
		a.rng.Float64()
	}
}

// StartImp implements step.Lifecycle: evaluates X0, seeding the barrier and
// the frame center, raising X0_FAIL if every starting point is unusable.
func (a *Algorithm) StartImp() {
	pts := make([]*eval.Point, 0, len(a.Params.X0))
	for _, x0 := range a.Params.X0 {
		p := eval.NewPoint(scalarpt.NewPoint(x0...))
		p.StepKind = eval.StepX0
		p.MainThread = a.MainThread
		pts = append(pts, p)
	}
	if len(pts) == 0 {
		a.StopReasons().Set(stopreason.X0Fail)
		return
	}

	a.Ctl.Enqueue(a.MainThread, pts, a.Params.EvalQueueSort, nil)
	evaluated := a.Ctl.StartEvaluation(a.MainThread)
	a.Stats().AddEvals(bbo.EvalBB, len(evaluated))

	a.Barrier.UpdateWithPoints(evaluated, a.Params.DMultiMADSOptimization, true)

	a.Center = a.Barrier.BestFeas()
	if a.Center == nil {
		a.Center = a.Barrier.BestInf()
	}
	if a.Center == nil {
		a.StopReasons().Set(stopreason.X0Fail)
		return
	}
}

// RunImp implements step.Lifecycle: runs MegaIterations until a stop reason
// latches, returning true if the run ended with any degree of success.
func (a *Algorithm) RunImp() bool {
	for !a.StopReasons().ShouldStop() {
		if a.Params.MaxIterations > 0 && a.IterationCount >= a.Params.MaxIterations {
			a.StopReasons().Set(stopreason.MaxIter)
			break
		}
		mi := NewMegaIteration(a)
		mi.Start()
		mi.Run()
		mi.End()
		a.IterationCount++

		if a.Params.StopIfFeasible && a.Barrier.BestFeas() != nil {
			a.StopReasons().Set(stopreason.StopOnFeas)
		}
		a.Mesh.CheckStopping(a.StopReasons())
	}
	return a.Barrier.BestFeas() != nil || a.Barrier.BestInf() != nil
}

// EndImp implements step.Lifecycle: nothing further to tear down, the
// barrier/mesh/cache already reflect the final state the caller reads.
func (a *Algorithm) EndImp() {}

// RunToCompletion drives the algorithm through Start/Run/End, grounded on
// the teacher's optim.Solver.Run outer loop, for callers that don't need to
// interleave other work between lifecycle stages. The ctx parameter is
// accepted for symmetry with the evaluator-facing APIs; cancellation is
// expected to be enforced by the caller's worker pool, not polled here.
func (a *Algorithm) RunToCompletion(ctx context.Context) {
	a.Start()
	if !a.StopReasons().ShouldStop() {
		ok := a.Base.Run()
		a.SetSuccess(successFromRun(ok))
	}
	a.End()
}

func successFromRun(ok bool) barrier.SuccessType {
	if ok {
		return barrier.FullSuccess
	}
	return barrier.Unsuccessful
}
