package scalarpt

import (
	"math"
	"testing"
)

func TestUndefinedPropagation(t *testing.T) {
	u := Undefined()
	v := Of(3)
	if got := u.Add(v); got.IsDefined() {
		t.Errorf("Add with undefined operand should stay undefined, got %v", got)
	}
	if got := v.Mul(u); got.IsDefined() {
		t.Errorf("Mul with undefined operand should stay undefined, got %v", got)
	}
}

func TestEqualEps(t *testing.T) {
	a := Of(1.0)
	b := Of(1.0 + 1e-14)
	if !a.Equal(b) {
		t.Errorf("expected %v == %v within default eps", a, b)
	}
	c := Of(1.0 + 1e-6)
	if a.Equal(c) {
		t.Errorf("expected %v != %v within default eps", a, c)
	}
}

func TestInfComparisons(t *testing.T) {
	p := PosInf()
	n := NegInf()
	if !p.IsInf() || !n.IsInf() {
		t.Fatal("expected IsInf true for signed infinities")
	}
	if !n.Less(p) {
		t.Errorf("expected -Inf < +Inf")
	}
}

func TestNaNFoldsToUndefined(t *testing.T) {
	s := Of(math.NaN())
	if s.IsDefined() {
		t.Errorf("NaN should fold to undefined")
	}
}

func TestNbDecimals(t *testing.T) {
	cases := []struct {
		v    float64
		want int
	}{
		{1.0, 0},
		{1.5, 1},
		{0.125, 3},
	}
	for _, c := range cases {
		got := Of(c.v).NbDecimals()
		if got != c.want {
			t.Errorf("NbDecimals(%v) = %d, want %d", c.v, got, c.want)
		}
	}
}
