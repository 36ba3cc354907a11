// Package mesh implements the granular mesh of spec §4.2: a per-coordinate
// integer lattice with mantissa/exponent frame sizes, anisotropic
// refinement/enlargement, and granularity constraints.
//
// The Mesh interface is a direct generalization of the teacher's
// optim.Mesh (Step()/Nearest()/SetStep()/SetOrigin()/Origin()), widened
// from a single scalar step to a per-coordinate frame size the way the
// spec's granular mesh requires.
package mesh

import (
	"math"

	"github.com/rwcarlsen/madsgo/stopreason"
)

// Mesh is implemented by Granular and CoordinateSearch.
type Mesh interface {
	// FrameSize returns the current per-coordinate frame size Delta.
	FrameSize() []float64
	// MeshSize returns the current per-coordinate mesh size delta.
	MeshSize() []float64
	// Nearest rounds point's offset from center onto the mesh grid and
	// adds center back, mirroring optim.Mesh.Nearest.
	Nearest(point, center []float64) []float64
	// EnlargeOnSuccess advances the frame on coordinates whose component of
	// dir is large enough to enlarge (or every coordinate, if anisotropic
	// meshing is off), returning true if anything changed.
	EnlargeOnSuccess(dir []float64) bool
	// Refine steps the frame backward on an unsuccessful iteration.
	Refine()
	// CheckStopping raises MESH_PREC_REACHED / GRANULAR_MESH_PREC_REACHED
	// on sr if applicable.
	CheckStopping(sr *stopreason.Reasons)
}

// mantissaCycle is the {1,2,5} cycle used for both enlarge and refine.
var mantissaCycle = [3]float64{1, 2, 5}

func mantissaIndex(a float64) int {
	for i, v := range mantissaCycle {
		if v == a {
			return i
		}
	}
	return 0
}

// Granular is the anisotropic, per-coordinate granular mesh of §4.2.
type Granular struct {
	N int

	// per-coordinate state
	b0 []float64 // initial frame exponent
	a  []float64 // current mantissa in {1,2,5}
	b  []float64 // current frame exponent
	g  []float64 // granularity (0 = continuous)

	AnisotropicMesh bool
	AnisotropyFactor float64
	RefineFreq       int // throttle: only every K-th Refine() call actually refines
	refineCount      int

	PrecisionBound float64 // max(Delta_i) below which MESH_PREC_REACHED fires
}

// NewGranular builds a mesh for n dimensions with the given initial frame
// size and granularity (granularity may be nil, meaning all-continuous).
func NewGranular(n int, initialFrameSize []float64, granularity []float64) *Granular {
	m := &Granular{
		N:                n,
		b0:               make([]float64, n),
		a:                make([]float64, n),
		b:                make([]float64, n),
		g:                make([]float64, n),
		AnisotropicMesh:  true,
		AnisotropyFactor: 0.1,
		RefineFreq:       1,
		PrecisionBound:   1e-13,
	}
	for i := 0; i < n; i++ {
		if granularity != nil {
			m.g[i] = granularity[i]
		}
		fs := 1.0
		if initialFrameSize != nil {
			fs = initialFrameSize[i]
		}
		a, b := decompose(fs)
		m.a[i] = a
		m.b[i] = b
		m.b0[i] = b
	}
	return m
}

// decompose takes b = floor(log10 v) and the mantissa a in {1,2,5} nearest
// to v/10^b, so a*10^b may lie above or below v (v <= 0 gives 1, 0).
func decompose(v float64) (a, b float64) {
	if v <= 0 {
		return 1, 0
	}
	exp := math.Floor(math.Log10(v))
	for {
		scaled := v / math.Pow(10, exp)
		best := mantissaCycle[0]
		bestDiff := math.Abs(scaled - best)
		for _, m := range mantissaCycle {
			if d := math.Abs(scaled - m); d < bestDiff {
				best = m
				bestDiff = d
			}
		}
		return best, exp
	}
}

func (m *Granular) delta(i int) float64 {
	g := m.g[i]
	base := math.Pow(10, m.b[i]-math.Abs(m.b[i]-m.b0[i]))
	if g > 0 {
		return g * math.Max(1, base)
	}
	return base
}

func (m *Granular) frame(i int) float64 {
	g := m.g[i]
	mult := 1.0
	if g > 0 {
		mult = g
	}
	return mult * m.a[i] * math.Pow(10, m.b[i])
}

// FrameSize returns Delta_i per coordinate.
func (m *Granular) FrameSize() []float64 {
	out := make([]float64, m.N)
	for i := range out {
		out[i] = m.frame(i)
	}
	return out
}

// MeshSize returns delta_i per coordinate.
func (m *Granular) MeshSize() []float64 {
	out := make([]float64, m.N)
	for i := range out {
		out[i] = m.delta(i)
	}
	return out
}

// State returns the raw per-coordinate mantissa/exponent/initial-exponent
// triples backing the mesh, for hot-restart serialization (§6) that needs
// to reproduce the mesh exactly rather than re-derive it from FrameSize
// alone, which would lose b0 and change future MeshSize/Rho values.
func (m *Granular) State() (a, b, b0 []float64) {
	return append([]float64(nil), m.a...), append([]float64(nil), m.b...), append([]float64(nil), m.b0...)
}

// RestoreState overwrites the mesh's mantissa/exponent/initial-exponent
// state, the inverse of State, for hot-restart load.
func (m *Granular) RestoreState(a, b, b0 []float64) {
	copy(m.a, a)
	copy(m.b, b)
	copy(m.b0, b0)
}

// Rho returns the anisotropy ratio Delta_i/delta_i per coordinate.
func (m *Granular) Rho() []float64 {
	out := make([]float64, m.N)
	fs, ds := m.FrameSize(), m.MeshSize()
	for i := range out {
		if ds[i] == 0 {
			out[i] = 0
			continue
		}
		out[i] = fs[i] / ds[i]
	}
	return out
}

// EnlargeOnSuccess implements §4.2's enlargeDeltaFrameSize.
func (m *Granular) EnlargeOnSuccess(dir []float64) bool {
	fs := m.FrameSize()
	enlarged := false
	for i := 0; i < m.N; i++ {
		doEnlarge := true
		if m.AnisotropicMesh && fs[i] != 0 {
			doEnlarge = math.Abs(dir[i]/fs[i]) >= m.AnisotropyFactor
		}
		if !doEnlarge {
			continue
		}
		idx := mantissaIndex(m.a[i])
		idx++
		if idx >= len(mantissaCycle) {
			idx = 0
			m.b[i]++
		}
		m.a[i] = mantissaCycle[idx]
		enlarged = true
	}
	return enlarged
}

// Refine implements §4.2's refineDeltaFrameSize, throttled by RefineFreq.
func (m *Granular) Refine() {
	m.refineCount++
	if m.RefineFreq > 1 && m.refineCount%m.RefineFreq != 0 {
		return
	}
	for i := 0; i < m.N; i++ {
		if m.g[i] > 0 && m.a[i] == 1 && m.b[i] == 0 {
			// can't refine further without violating granularity
			continue
		}
		idx := mantissaIndex(m.a[i])
		idx--
		if idx < 0 {
			idx = len(mantissaCycle) - 1
			m.b[i]--
		}
		m.a[i] = mantissaCycle[idx]
	}
}

// CheckStopping implements §4.2's checkMeshForStopping.
func (m *Granular) CheckStopping(sr *stopreason.Reasons) {
	fs := m.FrameSize()
	maxDelta := 0.0
	for _, d := range fs {
		if d > maxDelta {
			maxDelta = d
		}
	}
	if maxDelta < m.PrecisionBound {
		sr.Set(stopreason.MeshPrecReached)
	}

	allAtFloor := true
	anyGranular := false
	for i := 0; i < m.N; i++ {
		if m.g[i] <= 0 {
			continue
		}
		anyGranular = true
		if !(m.a[i] == 1 && m.b[i] == 0) {
			allAtFloor = false
		}
	}
	if anyGranular && allAtFloor {
		sr.Set(stopreason.GranularMeshPrecReached)
	}
}

// roundToMultiple rounds v to the nearest multiple of step (step > 0), and
// to the nearest multiple of g on top if g > 0.
func roundToMultiple(v, step, g float64) float64 {
	if step <= 0 {
		return v
	}
	r := math.Round(v/step) * step
	if g > 0 {
		r = math.Round(r/g) * g
	}
	return r
}

// Nearest implements §4.2's projectOnMesh: round (point-center) to the
// nearest multiple of delta, then add back center.
func (m *Granular) Nearest(point, center []float64) []float64 {
	ds := m.MeshSize()
	out := make([]float64, m.N)
	for i := 0; i < m.N; i++ {
		diff := point[i] - center[i]
		out[i] = center[i] + roundToMultiple(diff, ds[i], m.g[i])
	}
	return out
}

// ScaleAndProjectDirection implements §4.2's scaleAndProjectOnMesh: treats
// dir as already expressed in frame-size units and snaps it onto the mesh
// grid (used by Poll to build trial directions from +/-1 compass vectors).
func (m *Granular) ScaleAndProjectDirection(dir []float64) []float64 {
	fs := m.FrameSize()
	ds := m.MeshSize()
	out := make([]float64, m.N)
	for i := 0; i < m.N; i++ {
		scaled := dir[i] * fs[i]
		out[i] = roundToMultiple(scaled, ds[i], m.g[i])
	}
	return out
}
