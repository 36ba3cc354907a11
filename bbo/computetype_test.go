package bbo

import (
	"testing"

	"github.com/rwcarlsen/madsgo/scalarpt"
)

func types(n int, objAt int, pb, eb []int) TypeList {
	l := make(TypeList, n)
	for i := range l {
		l[i] = Stat
	}
	if objAt >= 0 {
		l[objAt] = Obj
	}
	for _, i := range pb {
		l[i] = PB
	}
	for _, i := range eb {
		l[i] = EB
	}
	return l
}

func TestStandardFH(t *testing.T) {
	tl := types(3, 0, []int{1}, nil)
	o := NewOutput(tl, 5.0, 2.0, 0)
	ct := Default()
	f := F(o, ct)
	h := H(o, ct)
	if f.Value() != 5.0 {
		t.Errorf("f = %v, want 5.0", f.Value())
	}
	if h.Value() != 2.0 {
		t.Errorf("h = %v, want 2.0", h.Value())
	}
}

func TestEBViolationCollapsesH(t *testing.T) {
	tl := types(3, 0, []int{1}, []int{2})
	o := NewOutput(tl, 5.0, -1.0, 0.5) // EB constraint value 0.5 > 0: violated
	ct := Default()
	h := H(o, ct)
	if !h.IsInf() {
		t.Errorf("expected h = +Inf on EB violation, got %v", h)
	}
}

func TestPhaseOneF(t *testing.T) {
	tl := types(2, -1, nil, []int{0, 1})
	tl[0] = EB
	tl[1] = EB
	o := NewOutput(tl, 2.0, 3.0)
	ct := ComputeType{Kind: PhaseOne, HNorm: L2}
	f := F(o, ct)
	if f.Value() <= 0 {
		t.Errorf("expected positive phase-one infeasibility measure, got %v", f.Value())
	}
}

func TestUserComputeType(t *testing.T) {
	tl := types(2, 0, []int{1}, nil)
	o := NewOutput(tl, 4.0, 1.0)
	ct := ComputeType{Kind: User, User: UserFuncs{
		F: func(o Output) scalarpt.Scalar { return F(o, Default()) },
		H: func(o Output) scalarpt.Scalar { return H(o, Default()) },
	}}
	f := F(o, ct)
	h := H(o, ct)
	if f.Value() != 4.0 {
		t.Errorf("user f = %v, want 4.0", f.Value())
	}
	if h.Value() != 1.0 {
		t.Errorf("user h = %v, want 1.0", h.Value())
	}
}
