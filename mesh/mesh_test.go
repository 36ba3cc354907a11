package mesh

import (
	"math"
	"testing"

	"github.com/rwcarlsen/madsgo/stopreason"
)

func TestNearestIsLatticeMultiple(t *testing.T) {
	m := NewGranular(2, []float64{1, 1}, nil)
	center := []float64{0, 0}
	point := []float64{0.37, -1.2}
	proj := m.Nearest(point, center)
	ds := m.MeshSize()
	for i := range proj {
		diff := proj[i] - center[i]
		ratio := diff / ds[i]
		if math.Abs(ratio-math.Round(ratio)) > 1e-9 {
			t.Errorf("coord %d: (x-c)=%v not a multiple of delta=%v", i, diff, ds[i])
		}
	}
}

func TestGranularityDividesResult(t *testing.T) {
	g := []float64{0.5, 0}
	m := NewGranular(2, []float64{1, 1}, g)
	center := []float64{0, 0}
	point := []float64{1.3, 2.7}
	proj := m.Nearest(point, center)
	ratio := proj[0] / 0.5
	if math.Abs(ratio-math.Round(ratio)) > 1e-9 {
		t.Errorf("expected coord 0 to be a multiple of granularity 0.5, got %v", proj[0])
	}
}

func TestMantissaStaysInCycle(t *testing.T) {
	m := NewGranular(1, []float64{1}, nil)
	for i := 0; i < 10; i++ {
		m.EnlargeOnSuccess([]float64{10})
		valid := m.a[0] == 1 || m.a[0] == 2 || m.a[0] == 5
		if !valid {
			t.Fatalf("mantissa left {1,2,5}: %v", m.a[0])
		}
	}
	for i := 0; i < 10; i++ {
		m.Refine()
		valid := m.a[0] == 1 || m.a[0] == 2 || m.a[0] == 5
		if !valid {
			t.Fatalf("mantissa left {1,2,5}: %v", m.a[0])
		}
	}
}

func TestRefineStrictlyReducesFrame(t *testing.T) {
	m := NewGranular(1, []float64{5}, nil)
	before := m.FrameSize()[0]
	m.Refine()
	after := m.FrameSize()[0]
	if !(after < before) {
		t.Errorf("expected refine to strictly reduce frame size, before=%v after=%v", before, after)
	}
}

func TestMeshPrecisionStop(t *testing.T) {
	m := NewGranular(1, []float64{1}, nil)
	m.PrecisionBound = 1e-3
	sr := stopreason.New()
	for i := 0; i < 200; i++ {
		m.Refine()
		m.CheckStopping(sr)
		if sr.ShouldStop() {
			break
		}
	}
	if !sr.ShouldStop() {
		t.Fatal("expected MESH_PREC_REACHED after enough refines")
	}
	if sr.Get() != stopreason.MeshPrecReached {
		t.Errorf("expected MeshPrecReached, got %v", sr.Get())
	}
}

func TestGranularMeshFloor(t *testing.T) {
	m := NewGranular(1, []float64{1}, []float64{1})
	sr := stopreason.New()
	for i := 0; i < 50; i++ {
		m.Refine()
	}
	m.CheckStopping(sr)
	if sr.Get() != stopreason.GranularMeshPrecReached && sr.Get() != stopreason.MeshPrecReached {
		t.Errorf("expected a mesh-stop reason once granular floor reached, got %v", sr.Get())
	}
}

func TestCoordinateSearchIsotropic(t *testing.T) {
	m := NewCoordinateSearch(3, 1, nil)
	m.EnlargeOnSuccess(nil)
	fs := m.FrameSize()
	for i := 1; i < len(fs); i++ {
		if fs[i] != fs[0] {
			t.Errorf("expected isotropic frame sizes, got %v", fs)
		}
	}
}
