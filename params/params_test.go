package params

import "testing"

func TestNewDefaultIsValid(t *testing.T) {
	p := NewDefault(2)
	if err := p.Validate(); err != nil {
		t.Fatalf("default params should validate, got %v", err)
	}
}

func TestValidateRejectsBadDimension(t *testing.T) {
	p := NewDefault(0)
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for zero dimension")
	}
}

func TestValidateRejectsMismatchedX0(t *testing.T) {
	p := NewDefault(2)
	p.X0 = [][]float64{{1, 2, 3}}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for X0 with wrong dimension")
	}
}

func TestValidateRejectsInvertedBounds(t *testing.T) {
	p := NewDefault(1)
	p.LowerBound = []float64{5}
	p.UpperBound = []float64{-5}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for lower bound exceeding upper bound")
	}
}

func TestValidateRejectsMismatchedGranularity(t *testing.T) {
	p := NewDefault(3)
	p.Granularity = []float64{1, 1}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for mismatched granularity length")
	}
}
