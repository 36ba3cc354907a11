// Package phaseone implements the two incumbent-seeding helpers of spec
// §4.7 that run a nested MADS sub-algorithm rather than pattern the main
// run itself: Wrapper, which hunts for a feasible starting point when every
// X0 violates the extreme-barrier constraints, and VNS, which shakes the
// frame center to escape a stalled neighborhood. Both are grounded on the
// teacher's pattern.WrapSearcher shape (run a sub-method, compare its
// result against the current point, report success), adapted from a single
// Method.Iterate call to a full nested mads.Algorithm run since phase one
// and VNS need their own mesh, barrier, and stop reasons rather than one
// iteration of the parent's.
package phaseone

import (
	"github.com/rwcarlsen/madsgo/barrier"
	"github.com/rwcarlsen/madsgo/bbeval"
	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/control"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/mads"
	"github.com/rwcarlsen/madsgo/step"
	"github.com/rwcarlsen/madsgo/stopreason"
)

// Wrapper runs a phase-one sub-search (spec §4.7): minimize the sum of
// extreme-barrier constraint violations from a given infeasible starting
// point until a feasible point is found or the sub-budget runs out, then
// imports every point the sub-search evaluated back into the parent's
// barrier so the parent can resume with a usable X0. Grounded on
// pattern.WrapSearcher.Search's "run sub-method, compare, report" shape,
// generalized to a full nested algorithm because phase one needs its own
// stop reasons (independent of the parent's, per §4.7) rather than a
// single Method.Iterate call.
type Wrapper struct {
	*step.Base

	Parent *mads.Algorithm
	Sub    *mads.Algorithm
}

// NewWrapper builds a phase-one sub-algorithm seeded at seedX0 (the X0
// point that failed the parent's extreme-barrier check), sharing the
// parent's evaluator and cache but running under its own stop reasons and
// a PhaseOne compute kind so f becomes the EB-violation measure rather
// than the real objective.
func NewWrapper(parent *mads.Algorithm, ctl *control.Controller, ev bbeval.Evaluator, subThreadID int, seedX0 []float64) *Wrapper {
	w := &Wrapper{Parent: parent}
	w.Base = step.New("PhaseOneWrapper", parent, w)
	w.SetReasons(stopreason.New())

	subParams := parent.Params
	subParams.X0 = [][]float64{seedX0}
	if parent.Params.SubproblemMaxBBEval > 0 {
		subParams.MaxBBEval = parent.Params.SubproblemMaxBBEval
	}
	// Phase one searches for feasibility only; the plug-in search methods
	// exist to refine the real objective and have nothing to contribute
	// here.
	subParams.SpeculativeSearch = false
	subParams.LHSearch = false
	subParams.NMSearch = false
	subParams.QuadModelSearch = false

	w.Sub = mads.NewAlgorithm(subParams, ctl, ev, subThreadID, w.Base)
	w.Sub.OverrideComputeKind(bbo.PhaseOne)
	w.Sub.RegisterCallback(step.IterationEnd, w.checkFeasible)
	return w
}

// ebSatisfied reports whether p has zero EB violation under the sub's
// phase-one compute type. Under PhaseOne, h is defined as always 0 (see
// bbo.H), so BestFeas() alone can't tell a true EB solution from an
// ordinary in-progress point; the real test is f (the EB-violation sum)
// hitting zero.
func ebSatisfied(sub *mads.Algorithm, p *eval.Point) bool {
	if p == nil {
		return false
	}
	f := p.F(sub.ComputeType)
	return f.IsDefined() && f.Value() <= 0
}

// checkFeasible is the IterationEnd callback that ends the sub-run as soon
// as a phase-one-feasible point (zero EB violation) turns up, rather than
// running it to its full budget.
func (w *Wrapper) checkFeasible(s step.Step, stop *bool) {
	if ebSatisfied(w.Sub, w.Sub.Barrier.BestFeas()) {
		w.Sub.StopReasons().Set(stopreason.PhaseOneCompleted)
	}
}

func (w *Wrapper) StartImp() {}

// RunImp drives the sub-algorithm through its own Start/Run/End (not
// mads.Algorithm.RunToCompletion, since the phase-one stop reasons are
// already set up via SetReasons above and RunToCompletion would be
// redundant), then reports success as whether a feasible point was found.
func (w *Wrapper) RunImp() bool {
	w.Sub.Start()
	if !w.Sub.StopReasons().ShouldStop() {
		w.Sub.Run()
	}
	w.Sub.End()
	return ebSatisfied(w.Sub, w.Sub.Barrier.BestFeas())
}

// EndImp imports every point the sub-search evaluated into the parent's
// barrier (they carry real blackbox outputs regardless of the ComputeKind
// they were explored under, so the parent can reclassify them under its
// own compute type for free) and, if phase one never found a feasible
// point, raises PONE_SEARCH_FAILED on the parent.
func (w *Wrapper) EndImp() {
	all := w.Sub.Ctl.Cache.All()
	if len(all) > 0 {
		w.Parent.Barrier.UpdateWithPoints(all, w.Parent.Params.DMultiMADSOptimization, true)
	}
	if !ebSatisfied(w.Sub, w.Sub.Barrier.BestFeas()) {
		w.Parent.StopReasons().Set(stopreason.PoneSearchFailed)
		w.SetSuccess(barrier.Unsuccessful)
		return
	}
	w.SetSuccess(barrier.FullSuccess)
}

// Run executes the wrapper's Start/Run/End and reports whether phase one
// found a feasible point.
func (w *Wrapper) Run() bool {
	w.Start()
	ok := w.Base.Run()
	w.End()
	return ok
}
