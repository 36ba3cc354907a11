package step

import (
	"testing"

	"github.com/rwcarlsen/madsgo/barrier"
	"github.com/rwcarlsen/madsgo/bbo"
)

// fakeStep is a minimal concrete step for exercising Base's bookkeeping.
type fakeStep struct {
	*Base
	started, ran, ended bool
	runResult           bool
}

func newFakeStep(name string, parent Step) *fakeStep {
	f := &fakeStep{}
	f.Base = New(name, parent, f)
	return f
}

func (f *fakeStep) StartImp()    { f.started = true }
func (f *fakeStep) RunImp() bool { f.ran = true; return f.runResult }
func (f *fakeStep) EndImp()      { f.ended = true }

func TestLifecycleCallsImp(t *testing.T) {
	root := newFakeStep("root", nil)
	root.Start()
	if !root.started {
		t.Fatal("Start did not call StartImp")
	}
	root.runResult = true
	if ok := root.Run(); !ok {
		t.Fatal("Run did not return RunImp's result")
	}
	if !root.ran {
		t.Fatal("Run did not call RunImp")
	}
	root.End()
	if !root.ended {
		t.Fatal("End did not call EndImp")
	}
}

func TestSuccessPropagatesToParent(t *testing.T) {
	parent := newFakeStep("parent", nil)
	parent.Start()
	child := newFakeStep("child", parent)
	child.Start()
	child.SetSuccess(barrier.FullSuccess)
	child.End()
	if parent.Success() != barrier.FullSuccess {
		t.Errorf("expected parent success FullSuccess, got %v", parent.Success())
	}
}

func TestSuccessNeverDowngradesParent(t *testing.T) {
	parent := newFakeStep("parent", nil)
	parent.Start()
	parent.SetSuccess(barrier.FullSuccess)
	child := newFakeStep("child", parent)
	child.Start()
	child.SetSuccess(barrier.PartialSuccess)
	child.End()
	if parent.Success() != barrier.FullSuccess {
		t.Errorf("child's lesser success downgraded parent: got %v", parent.Success())
	}
}

func TestStatsMergeIntoParent(t *testing.T) {
	parent := newFakeStep("parent", nil)
	parent.Start()
	child := newFakeStep("child", parent)
	child.Start()
	child.Stats().AddEvals(bbo.EvalBB, 3)
	child.End()
	if got := parent.Stats().TotalEvals(bbo.EvalBB); got != 3 {
		t.Errorf("expected parent total evals 3, got %d", got)
	}
}

func TestSharedStopReasonsBetweenParentAndChild(t *testing.T) {
	parent := newFakeStep("parent", nil)
	child := newFakeStep("child", parent)
	if parent.StopReasons() != child.StopReasons() {
		t.Fatal("expected child to share parent's stop-reasons object by default")
	}
}

func TestFindAncestorLocatesTypedParent(t *testing.T) {
	root := newFakeStep("root", nil)
	mid := newFakeStep("mid", root)
	leaf := newFakeStep("leaf", mid)

	var found *fakeStep
	got := FindAncestor(leaf, func(s Step) bool {
		f, ok := s.(*fakeStep)
		if ok && f.Name() == "root" {
			found = f
			return true
		}
		return false
	})
	if got == nil || found != root {
		t.Fatalf("expected to find root ancestor, got %v", got)
	}
}

func TestRunCallbackInvokesRegistered(t *testing.T) {
	root := newFakeStep("root", nil)
	calls := 0
	root.RegisterCallback(IterationEnd, func(s Step, stop *bool) { calls++ })
	var stop bool
	root.RunCallback(IterationEnd, &stop)
	if calls != 1 {
		t.Errorf("expected callback invoked once, got %d", calls)
	}
	if stop {
		t.Error("expected stop to remain false when callback doesn't request it")
	}
}

func TestRunCallbackUnregisteredIsNoop(t *testing.T) {
	root := newFakeStep("root", nil)
	var stop bool
	root.RunCallback(PostEvalUpdate, &stop)
	if stop {
		t.Error("expected no-op for unregistered callback type")
	}
}

func TestRunCallbackStopShortCircuits(t *testing.T) {
	root := newFakeStep("root", nil)
	calls := 0
	root.RegisterCallback(EvalStopCheck, func(s Step, stop *bool) {
		calls++
		*stop = true
	})
	root.RegisterCallback(EvalStopCheck, func(s Step, stop *bool) { calls++ })
	var stop bool
	root.RunCallback(EvalStopCheck, &stop)
	if calls != 1 {
		t.Errorf("expected short-circuit after first callback requests stop, got %d calls", calls)
	}
}
