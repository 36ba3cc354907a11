package mads

import (
	"github.com/rwcarlsen/madsgo/step"
)

// megaPhase is the MegaIteration state machine of spec §4.6.
type megaPhase int

const (
	phaseBeforeUpdate megaPhase = iota
	phaseGenerating
	phaseEvaluating
	phasePost
	phaseDone
)

// MegaIteration runs one Update/Search/Poll/ExtendedPoll cycle: snapshot
// the barrier's reference incumbents, run the configured search methods
// and a poll step, evaluate everything through the controller, then
// postprocess (mesh update, incumbent recording, callbacks).
type MegaIteration struct {
	*step.Base

	algo  *Algorithm
	phase megaPhase

	iter *Iteration
}

// NewMegaIteration builds a MegaIteration as a's child step.
func NewMegaIteration(a *Algorithm) *MegaIteration {
	mi := &MegaIteration{algo: a}
	mi.Base = step.New("MegaIteration", a, mi)
	return mi
}

func (mi *MegaIteration) StartImp() {
	mi.phase = phaseBeforeUpdate
	mi.algo.Barrier.SnapshotRefs()
	mi.algo.RunCallback(step.MegaIterationStart, new(bool))
}

func (mi *MegaIteration) RunImp() bool {
	mi.phase = phaseGenerating
	mi.iter = NewIteration(mi.algo, mi)
	mi.iter.Start()

	mi.phase = phaseEvaluating
	ok := mi.iter.Run()

	mi.phase = phasePost
	mi.iter.End()

	mi.phase = phaseDone
	return ok
}

func (mi *MegaIteration) EndImp() {
	var stop bool
	mi.algo.RunCallback(step.MegaIterationEnd, &stop)
}
