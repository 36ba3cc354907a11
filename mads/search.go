package mads

import (
	"math/rand"

	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

// Searcher is a pluggable pre-poll search method of spec §4.6: given the
// current frame center, it proposes trial points that may succeed without
// needing a full Poll. Returning no points means "nothing to try this
// iteration" (e.g. SpeculativeSearch before any success has occurred yet).
type Searcher interface {
	Generate(a *Algorithm, center *eval.Point) []*eval.Point
}

func newSearchPoint(coords *scalarpt.Point, lb, ub []float64, center *eval.Point) *eval.Point {
	snapped := coords.SnapToBounds(lb, ub)
	ep := eval.NewPoint(snapped)
	ep.PointFrom = center.Coords
	ep.StepKind = eval.StepSearch
	ep.MainThread = center.MainThread
	return ep
}

// SpeculativeSearch extends the last successful poll direction by one more
// frame step before the next Poll runs, grounded on the teacher's
// pattern.go "try doubling the successful step before shrinking" dynamic
// step-growth idea, generalized to a per-coordinate frame.
type SpeculativeSearch struct{}

func (SpeculativeSearch) Generate(a *Algorithm, center *eval.Point) []*eval.Point {
	mt := a.mainThread()
	if mt == nil {
		return nil
	}
	dir := mt.LastSuccessDirFeas
	if dir == nil {
		dir = mt.LastSuccessDirInf
	}
	if dir == nil {
		return nil
	}
	scaled := a.Mesh.ScaleAndProjectDirection(dir.Values())
	centerVals := center.Coords.Values()
	coords := make([]float64, len(centerVals))
	for i := range coords {
		coords[i] = centerVals[i] + 2*scaled[i]
	}
	pt := scalarpt.NewPoint(coords...)
	return []*eval.Point{newSearchPoint(pt, a.Params.LowerBound, a.Params.UpperBound, center)}
}

// CoordinateSearch tries a single step along each coordinate axis in turn
// (the minimal "search" variant spec §4.6 calls for to demonstrate the
// plug-in point), grounded on mesh.CoordinateSearch's isotropic one-step-
// per-axis shape but run as a Search method against the Granular mesh's
// per-coordinate frame rather than as the mesh type itself.
type CoordinateSearch struct{}

func (CoordinateSearch) Generate(a *Algorithm, center *eval.Point) []*eval.Point {
	n := a.Params.Dimension
	centerVals := center.Coords.Values()
	fs := a.Mesh.FrameSize()
	pts := make([]*eval.Point, 0, n)
	for i := 0; i < n; i++ {
		coords := make([]float64, n)
		copy(coords, centerVals)
		coords[i] += fs[i]
		pt := scalarpt.NewPoint(coords...)
		pts = append(pts, newSearchPoint(pt, a.Params.LowerBound, a.Params.UpperBound, center))
	}
	return pts
}

// LHSearch draws a small batch of Latin-hypercube-sampled points spread
// over the whole variable-bounds box (the current frame does not narrow
// the sample), grounded on the teacher's
// optim/pop.go RandPop uniform-sampling shape, stratified per coordinate
// into N equal bins the way a Latin hypercube requires rather than pop.go's
// plain uniform draw.
type LHSearch struct {
	N   int
	rng *rand.Rand
}

func (s *LHSearch) Generate(a *Algorithm, center *eval.Point) []*eval.Point {
	n := a.Params.Dimension
	lb, ub := a.Params.LowerBound, a.Params.UpperBound
	if lb == nil || ub == nil {
		return nil // LHS needs finite bounds; unbounded problems skip this search
	}
	count := s.N
	if count <= 0 {
		count = n
	}
	rng := s.rng
	if rng == nil {
		rng = a.rng
	}

	// per-dimension stratified bin permutation, the defining property of a
	// Latin hypercube: each bin index 0..count-1 appears exactly once per
	// coordinate.
	perms := make([][]int, n)
	for i := 0; i < n; i++ {
		perms[i] = rng.Perm(count)
	}

	pts := make([]*eval.Point, 0, count)
	for k := 0; k < count; k++ {
		coords := make([]float64, n)
		for i := 0; i < n; i++ {
			lo, hi := lb[i], ub[i]
			binLo := lo + (hi-lo)*float64(perms[i][k])/float64(count)
			binHi := lo + (hi-lo)*float64(perms[i][k]+1)/float64(count)
			coords[i] = binLo + rng.Float64()*(binHi-binLo)
		}
		pt := scalarpt.NewPoint(coords...)
		pts = append(pts, newSearchPoint(pt, lb, ub, center))
	}
	return pts
}

// QuadModelSearch is the plug-in point spec §1 calls for ("a minimal ...
// quad-model-search stub to show the plug-in points") without implementing
// surrogate-model training, which is an explicit non-goal. A real
// implementation would fit a quadratic model to the cache's recent points
// and propose its minimizer as a trial point.
type QuadModelSearch struct{}

func (QuadModelSearch) Generate(a *Algorithm, center *eval.Point) []*eval.Point {
	return nil
}

// NMSearch is a stub for using a Nelder-Mead simplex as a search method;
// the full algorithm catalogue beyond MADS/phase-one/VNS is out of scope
// (§1), so this only reserves the plug-in point for RUN.NM_SEARCH.
type NMSearch struct{}

func (NMSearch) Generate(a *Algorithm, center *eval.Point) []*eval.Point {
	return nil
}
