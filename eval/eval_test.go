package eval

import (
	"testing"

	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

func TestTagImmutableOnceAssigned(t *testing.T) {
	p := NewPoint(scalarpt.NewPoint(1, 2))
	t1 := p.Tag()
	t2 := p.Tag()
	if t1 != t2 {
		t.Fatalf("tag changed across calls: %v vs %v", t1, t2)
	}
}

func TestCoordinatesImmutableAcrossRecordUpdates(t *testing.T) {
	p := NewPoint(scalarpt.NewPoint(1, 2))
	before := p.Coords.Clone()
	tl := bbo.TypeList{bbo.Obj}
	p.SetRecord(bbo.EvalBB, &Record{Output: bbo.NewOutput(tl, 4.0), Status: OK})
	if !p.Coords.Equal(before) {
		t.Fatal("coordinates changed after SetRecord")
	}
}

func TestStatsMergeIntoParent(t *testing.T) {
	parent := NewTrialPointStats()
	child := NewTrialPointStats()
	child.AddGenerated(bbo.EvalBB, 3)
	child.AddEvals(bbo.EvalBB, 2)

	child.MergeInto(parent)

	if got := parent.TotalGenerated(bbo.EvalBB); got != 3 {
		t.Errorf("parent total generated = %d, want 3", got)
	}
	if got := parent.CurrentEvals(bbo.EvalBB); got != 2 {
		t.Errorf("parent current evals = %d, want 2", got)
	}

	parent.ResetCurrent()
	if got := parent.CurrentGenerated(bbo.EvalBB); got != 0 {
		t.Errorf("expected current generated reset to 0, got %d", got)
	}
	if got := parent.TotalGenerated(bbo.EvalBB); got != 3 {
		t.Errorf("expected total generated to survive reset, got %d", got)
	}
}

func TestRecordFHCaching(t *testing.T) {
	tl := bbo.TypeList{bbo.Obj, bbo.PB}
	r := &Record{Output: bbo.NewOutput(tl, 2.0, 1.0), Status: OK}
	ct := bbo.Default()
	f1 := r.F(ct)
	f2 := r.F(ct)
	if f1.Value() != f2.Value() {
		t.Errorf("cached f differs across calls")
	}
}
