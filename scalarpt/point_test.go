package scalarpt

import "testing"

func TestSnapToBounds(t *testing.T) {
	p := NewPoint(-5, 12, 3)
	lb := []float64{0, 0, 0}
	ub := []float64{10, 10, 10}
	snapped := p.SnapToBounds(lb, ub)
	want := []float64{0, 10, 3}
	for i, w := range want {
		if snapped.Coords[i].Value() != w {
			t.Errorf("coord %d = %v, want %v", i, snapped.Coords[i].Value(), w)
		}
	}
}

func TestPointEqualEps(t *testing.T) {
	a := NewPoint(1, 2, 3)
	b := NewPoint(1, 2, 3+1e-14)
	if !a.Equal(b) {
		t.Errorf("expected points equal within default eps")
	}
}

func TestHashStableAndDistinct(t *testing.T) {
	a := NewPoint(1, 2, 3)
	b := a.Clone()
	if a.Hash() != b.Hash() {
		t.Errorf("expected equal points to hash identically")
	}
	c := NewPoint(1, 2, 4)
	if a.Hash() == c.Hash() {
		t.Errorf("expected different points to hash differently")
	}
}
