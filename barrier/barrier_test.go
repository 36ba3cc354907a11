package barrier

import (
	"testing"

	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

func mkPoint(ct bbo.ComputeType, f, h float64) *eval.Point {
	p := eval.NewPoint(scalarpt.NewPoint(f, h))
	tl := bbo.TypeList{bbo.Obj, bbo.PB}
	var pbVal float64
	if h > 0 {
		pbVal = h
	}
	rec := &eval.Record{Output: bbo.NewOutput(tl, f, pbVal), Status: eval.OK}
	p.SetRecord(ct.EvalType, rec)
	return p
}

func TestClassifySuccessFeasibleBeatsNil(t *testing.T) {
	ct := bbo.Default()
	p := mkPoint(ct, 1.0, 0)
	if got := ClassifySuccess(p, nil, ct, scalarpt.Of(1)); got != FullSuccess {
		t.Errorf("got %v, want FullSuccess", got)
	}
}

func TestClassifySuccessInfeasibleNeverBeatsFeasible(t *testing.T) {
	ct := bbo.Default()
	p := mkPoint(ct, 1.0, 0.5)
	r := mkPoint(ct, 2.0, 0)
	if got := ClassifySuccess(p, r, ct, scalarpt.Of(1)); got != Unsuccessful {
		t.Errorf("got %v, want Unsuccessful", got)
	}
}

func TestClassifySuccessDominanceFull(t *testing.T) {
	ct := bbo.Default()
	p := mkPoint(ct, 1.0, 0.1)
	r := mkPoint(ct, 2.0, 0.2)
	if got := ClassifySuccess(p, r, ct, scalarpt.Of(1)); got != FullSuccess {
		t.Errorf("got %v, want FullSuccess (p dominates r)", got)
	}
}

func TestClassifySuccessPartialTradeoff(t *testing.T) {
	ct := bbo.Default()
	p := mkPoint(ct, 1.0, 0.3) // better f, worse h
	r := mkPoint(ct, 2.0, 0.2)
	if got := ClassifySuccess(p, r, ct, scalarpt.Of(1)); got != PartialSuccess {
		t.Errorf("got %v, want PartialSuccess", got)
	}
}

func TestBarrierInvariantsAfterUpdate(t *testing.T) {
	ct := bbo.Default()
	b := New(ct, 1.0)
	pts := []*eval.Point{
		mkPoint(ct, 1.0, 0),
		mkPoint(ct, 2.0, 0.3),
		mkPoint(ct, 0.5, 0.8),
	}
	b.UpdateWithPoints(pts, true, true)

	for _, p := range b.Feas() {
		if p.H(ct).Value() != 0 {
			t.Errorf("X_feas member has nonzero h: %v", p.H(ct).Value())
		}
	}
	for _, p := range b.Inf() {
		h := p.H(ct).Value()
		if !(h > 0 && h <= b.HMax.Value()) {
			t.Errorf("X_inf member violates 0<h<=hMax: h=%v hMax=%v", h, b.HMax.Value())
		}
	}
}

func TestHMaxMonotoneNonIncreasing(t *testing.T) {
	ct := bbo.Default()
	b := New(ct, 10.0)
	b.UpdateWithPoints([]*eval.Point{mkPoint(ct, 1, 5), mkPoint(ct, 2, 3)}, true, true)
	h1 := b.HMax.Value()
	b.UpdateWithPoints([]*eval.Point{mkPoint(ct, 0.5, 1)}, true, true)
	h2 := b.HMax.Value()
	if h2 > h1 {
		t.Errorf("hMax increased: %v -> %v", h1, h2)
	}
}

func TestUpdateIdempotence(t *testing.T) {
	ct := bbo.Default()
	b1 := New(ct, 10.0)
	b2 := New(ct, 10.0)
	pts := []*eval.Point{mkPoint(ct, 1, 0), mkPoint(ct, 2, 0.5)}

	b1.UpdateWithPoints(pts, true, true)
	b1.UpdateWithPoints(pts, true, true)

	b2.UpdateWithPoints(pts, true, true)

	if b1.HMax.Value() != b2.HMax.Value() {
		t.Errorf("repeated update changed hMax: %v vs %v", b1.HMax.Value(), b2.HMax.Value())
	}
	if len(b1.Feas()) != len(b2.Feas()) || len(b1.Inf()) != len(b2.Inf()) {
		t.Errorf("repeated update changed front sizes")
	}
}

func TestEmptyInfLeavesHMaxUnchanged(t *testing.T) {
	ct := bbo.Default()
	b := New(ct, 5.0)
	b.UpdateWithPoints([]*eval.Point{mkPoint(ct, 1, 0)}, true, true)
	if b.HMax.Value() != 5.0 {
		t.Errorf("expected hMax unchanged with empty X_inf, got %v", b.HMax.Value())
	}
}
