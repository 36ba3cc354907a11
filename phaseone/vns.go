package phaseone

import (
	"math/rand"

	"github.com/rwcarlsen/madsgo/barrier"
	"github.com/rwcarlsen/madsgo/bbeval"
	"github.com/rwcarlsen/madsgo/control"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/mads"
	"github.com/rwcarlsen/madsgo/mesh"
	"github.com/rwcarlsen/madsgo/scalarpt"
	"github.com/rwcarlsen/madsgo/step"
	"github.com/rwcarlsen/madsgo/stopreason"
)

// VNS implements the variable-neighborhood-search shake of spec §4.7: when
// MADS stalls, displace the frame center by a random step scaled by a
// growing neighborhood radius, then run a nested MADS from the displaced
// point and import anything it finds back into the parent. Grounded on
// swarm.Particle.Move's velocity-then-position update, adapted from
// iterative velocity accumulation to a single shake displacement (VNS has
// no persistent velocity state, just a neighborhood radius that grows on
// repeated failure, tracked by the caller via the radius argument).
type VNS struct {
	*step.Base

	Parent *mads.Algorithm
	Sub    *mads.Algorithm
}

// NewVNS builds a shaken sub-algorithm. radius is the current
// neighborhood size as a fraction of the frame size (spec §4.7's VNS
// neighborhood parameter growing each time a shake fails to improve).
func NewVNS(parent *mads.Algorithm, ctl *control.Controller, ev bbeval.Evaluator, subThreadID int, radius float64, rng *rand.Rand) *VNS {
	v := &VNS{Parent: parent}
	v.Base = step.New("VNSShake", parent, v)
	v.SetReasons(stopreason.New())

	shake := shakePoint(parent, radius, rng)

	subParams := parent.Params
	subParams.X0 = [][]float64{shake}
	if parent.Params.SubproblemMaxBBEval > 0 {
		subParams.MaxBBEval = parent.Params.SubproblemMaxBBEval
	}

	v.Sub = mads.NewAlgorithm(subParams, ctl, ev, subThreadID, v.Base)
	return v
}

// shakePoint displaces the parent's frame center by a per-coordinate
// random offset in [-radius, radius] * frame size, the position-update half
// of Particle.Move with the velocity state replaced by a one-shot draw,
// then snaps to bounds the way every trial point in this module does.
func shakePoint(parent *mads.Algorithm, radius float64, rng *rand.Rand) []float64 {
	center := parent.Center.Coords.Values()
	fs := parent.Mesh.FrameSize()
	coords := make([]float64, len(center))
	for i := range coords {
		offset := (2*rng.Float64() - 1) * radius * fs[i]
		coords[i] = center[i] + offset
	}
	pt := scalarpt.NewPoint(coords...).SnapToBounds(parent.Params.LowerBound, parent.Params.UpperBound)
	vals := pt.Values()
	if len(parent.Params.LinearConstraintA) > 0 {
		if repaired, ok := mesh.ProjectLinear(vals, parent.Params.LinearConstraintA, parent.Params.LinearConstraintB); ok {
			vals = repaired
		}
	}
	return vals
}

func (v *VNS) StartImp() {}

// RunImp drives the shaken sub-algorithm through its own Start/Run/End.
func (v *VNS) RunImp() bool {
	v.Sub.Start()
	if !v.Sub.StopReasons().ShouldStop() {
		v.Sub.Run()
	}
	v.Sub.End()
	return v.Sub.Barrier.BestFeas() != nil || v.Sub.Barrier.BestInf() != nil
}

// EndImp imports the sub-run's evaluated points into the parent's barrier
// and classifies the sub-run's best point against the parent's pre-shake
// incumbents to decide whether the shake succeeded, advancing the parent's
// frame center on success the same way a normal poll success would.
func (v *VNS) EndImp() {
	all := v.Sub.Ctl.Cache.All()
	if len(all) == 0 {
		v.SetSuccess(barrier.Unsuccessful)
		return
	}
	refFeas, refInf := v.Parent.Barrier.BestFeas(), v.Parent.Barrier.BestInf()
	v.Parent.Barrier.UpdateWithPoints(all, v.Parent.Params.DMultiMADSOptimization, true)

	best := barrier.Unsuccessful
	var bestPoint *eval.Point
	for _, p := range all {
		ref := refInf
		if p.IsFeasible(v.Parent.ComputeType) {
			ref = refFeas
		}
		s := barrier.ClassifySuccess(p, ref, v.Parent.ComputeType, v.Parent.Barrier.HMax)
		if s > best {
			best = s
			bestPoint = p
		}
	}
	v.SetSuccess(best)
	if best > barrier.Unsuccessful && bestPoint != nil {
		v.Parent.Center = bestPoint
	}
}

// Run executes the shake's Start/Run/End and reports whether it improved
// on the parent's incumbents.
func (v *VNS) Run() bool {
	v.Start()
	v.Base.Run()
	v.End()
	return v.Success() > barrier.Unsuccessful
}
