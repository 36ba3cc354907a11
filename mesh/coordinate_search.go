package mesh

import (
	"math"

	"github.com/rwcarlsen/madsgo/stopreason"
)

// CoordinateSearch is the isotropic mesh variant of §4.2: a single scalar
// frame size multiplied by granularity, no mantissa cycle, every coordinate
// refines/enlarges uniformly. It mirrors the teacher's scalar-step InfMesh
// directly (one StepSize field) rather than Granular's per-coordinate
// mantissa/exponent state.
type CoordinateSearch struct {
	N        int
	Delta    float64
	g        []float64
	MinDelta float64
}

// NewCoordinateSearch builds an isotropic mesh for n dimensions.
func NewCoordinateSearch(n int, initialFrameSize float64, granularity []float64) *CoordinateSearch {
	g := make([]float64, n)
	if granularity != nil {
		copy(g, granularity)
	}
	if initialFrameSize <= 0 {
		initialFrameSize = 1
	}
	return &CoordinateSearch{N: n, Delta: initialFrameSize, g: g, MinDelta: 1e-13}
}

func (m *CoordinateSearch) FrameSize() []float64 {
	out := make([]float64, m.N)
	for i := range out {
		out[i] = m.Delta
		if m.g[i] > 0 {
			out[i] *= m.g[i]
		}
	}
	return out
}

// MeshSize is identical to FrameSize for the isotropic variant: there is no
// separate anisotropy ratio to track.
func (m *CoordinateSearch) MeshSize() []float64 { return m.FrameSize() }

func (m *CoordinateSearch) Nearest(point, center []float64) []float64 {
	out := make([]float64, m.N)
	for i := 0; i < m.N; i++ {
		diff := point[i] - center[i]
		out[i] = center[i] + roundToMultiple(diff, m.Delta, m.g[i])
	}
	return out
}

func (m *CoordinateSearch) EnlargeOnSuccess(dir []float64) bool {
	m.Delta *= 2
	return true
}

func (m *CoordinateSearch) Refine() {
	m.Delta *= 0.5
}

func (m *CoordinateSearch) CheckStopping(sr *stopreason.Reasons) {
	if m.Delta < m.MinDelta {
		sr.Set(stopreason.MeshPrecReached)
	}
	anyGranular := false
	for _, g := range m.g {
		if g > 0 {
			anyGranular = true
			break
		}
	}
	if anyGranular && m.Delta <= math.SmallestNonzeroFloat64 {
		sr.Set(stopreason.GranularMeshPrecReached)
	}
}
