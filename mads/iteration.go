package mads

import (
	"github.com/rwcarlsen/madsgo/barrier"
	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
	"github.com/rwcarlsen/madsgo/step"
)

// Iteration runs one Search-then-Poll cycle against the algorithm's current
// frame center, per spec §4.6: Search methods run first and may make Poll
// unnecessary if one of them succeeds; Poll always follows a failed
// Search (or no configured Search methods); ExtendedPoll runs if the best
// result remains infeasible and close to the feasible boundary.
type Iteration struct {
	*step.Base

	algo *Algorithm
	mi   *MegaIteration

	center *eval.Point
}

// NewIteration builds an Iteration as mi's child step.
func NewIteration(a *Algorithm, mi *MegaIteration) *Iteration {
	it := &Iteration{algo: a, mi: mi}
	it.Base = step.New("Iteration", mi, it)
	return it
}

func (it *Iteration) StartImp() {
	it.center = it.algo.Center
}

// RunImp runs Search (if any succeeded, Poll is skipped per classic MADS
// opportunism across steps), then Poll, then ExtendedPoll, updating the
// mesh and incumbents from whichever trial points were evaluated.
func (it *Iteration) RunImp() bool {
	searched := it.runSearchers()
	if searched {
		return it.Success() > barrier.Unsuccessful
	}

	polled := it.runPoll()
	it.applyResult(polled)

	if it.Success() == barrier.Unsuccessful {
		it.runExtendedPoll()
	}

	return it.Success() > barrier.Unsuccessful
}

// EndImp fires the IterationEnd callback so wrappers (phase one, VNS) that
// registered on this algorithm can observe per-iteration progress and latch
// their own stop reason (e.g. PhaseOneCompleted) without polling.
func (it *Iteration) EndImp() {
	it.algo.RunCallback(step.IterationEnd, new(bool))
}

// runSearchers runs each configured Searcher in order, stopping at the
// first that reports success (classic MADS: a successful Search makes the
// subsequent Poll unnecessary for that iteration).
func (it *Iteration) runSearchers() bool {
	for _, s := range it.algo.Searchers {
		pts := s.Generate(it.algo, it.center)
		if len(pts) == 0 {
			continue
		}
		it.Stats().AddGenerated(bbo.EvalBB, len(pts))
		it.algo.Ctl.Enqueue(it.algo.MainThread, pts, it.algo.Params.EvalQueueSort, nil)
		evaluated := it.algo.Ctl.StartEvaluation(it.algo.MainThread)
		it.Stats().AddEvals(bbo.EvalBB, len(evaluated))
		it.applyResult(evaluated)
		if it.Success() > barrier.Unsuccessful {
			return true
		}
	}
	return false
}

// runPoll generates and evaluates the poll trial points around the
// current frame center, returning the evaluated points.
func (it *Iteration) runPoll() []*eval.Point {
	pts := pollDirections(it.algo.Params.DirectionType, it.algo.Params.Dimension, it.algo.Mesh,
		it.center.Coords, it.algo.Params.LowerBound, it.algo.Params.UpperBound, it.algo.rng, it.algo.randDirs)
	for _, p := range pts {
		p.MainThread = it.algo.MainThread
	}
	it.Stats().AddGenerated(bbo.EvalBB, len(pts))

	it.algo.Ctl.Enqueue(it.algo.MainThread, pts, it.algo.Params.EvalQueueSort, nil)
	evaluated := it.algo.Ctl.StartEvaluation(it.algo.MainThread)
	it.Stats().AddEvals(bbo.EvalBB, len(evaluated))
	return evaluated
}

// runExtendedPoll implements a reduced form of spec §4.7's extended poll:
// when the iteration's best new point is infeasible but close to the
// feasible boundary (h small relative to hMax), poll once more around it
// at the current (not enlarged) frame size to try to cross into
// feasibility, grounded on the teacher's pattern search re-polling a
// promising-but-unsuccessful trial at the same step size before refining.
func (it *Iteration) runExtendedPoll() {
	bestInf := it.algo.Barrier.BestInf()
	if bestInf == nil {
		return
	}
	h := bestInf.H(it.algo.ComputeType)
	hMax := it.algo.Barrier.HMax
	if !h.IsDefined() || !hMax.IsDefined() || hMax.Value() <= 0 {
		return
	}
	if h.Value() > 0.1*hMax.Value() {
		return // not close enough to the feasible boundary to bother
	}

	pts := pollDirections(it.algo.Params.DirectionType, it.algo.Params.Dimension, it.algo.Mesh,
		bestInf.Coords, it.algo.Params.LowerBound, it.algo.Params.UpperBound, it.algo.rng, it.algo.randDirs)
	for _, p := range pts {
		p.MainThread = it.algo.MainThread
		p.StepKind = eval.StepExtendedPoll
	}
	it.Stats().AddGenerated(bbo.EvalBB, len(pts))

	it.algo.Ctl.Enqueue(it.algo.MainThread, pts, it.algo.Params.EvalQueueSort, nil)
	evaluated := it.algo.Ctl.StartEvaluation(it.algo.MainThread)
	it.Stats().AddEvals(bbo.EvalBB, len(evaluated))
	it.applyResult(evaluated)
}

// applyResult classifies each newly evaluated point's success against the
// mega-iteration's reference incumbents, folds them into the barrier,
// advances the frame center on success, enlarges or refines the mesh, and
// records the last-success direction used by the DIR_LAST_SUCCESS queue
// sort policy.
func (it *Iteration) applyResult(pts []*eval.Point) {
	if len(pts) == 0 {
		return
	}

	best := it.Success()
	var bestPoint *eval.Point
	refFeas := it.algo.Barrier.RefBestFeas()
	refInf := it.algo.Barrier.RefBestInf()
	for _, p := range pts {
		var ref *eval.Point
		if p.IsFeasible(it.algo.ComputeType) {
			ref = refFeas
		} else {
			ref = refInf
		}
		s := barrier.ClassifySuccess(p, ref, it.algo.ComputeType, it.algo.Barrier.HMax)
		if s > best {
			best = s
			bestPoint = p
		}
	}
	it.SetSuccess(best)

	it.algo.Barrier.UpdateWithPoints(pts, it.algo.Params.DMultiMADSOptimization, true)

	mt := it.algo.mainThread()
	if bestPoint != nil {
		dir := scalarpt.FromPoints(it.center.Coords, bestPoint.Coords)
		if bestPoint.IsFeasible(it.algo.ComputeType) {
			if mt != nil {
				mt.LastSuccessDirFeas = dir
			}
		} else if mt != nil {
			mt.LastSuccessDirInf = dir
		}
	}

	switch best {
	case barrier.FullSuccess, barrier.PartialSuccess:
		var dirVals []float64
		if bestPoint != nil {
			dirVals = scalarpt.FromPoints(it.center.Coords, bestPoint.Coords).Values()
		}
		it.algo.Mesh.EnlargeOnSuccess(dirVals)
		if bestPoint != nil {
			it.algo.Center = bestPoint
			it.center = bestPoint
		}
	default:
		it.algo.Mesh.Refine()
	}
}
