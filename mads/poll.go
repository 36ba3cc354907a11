package mads

import (
	"math/rand"

	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/mesh"
	"github.com/rwcarlsen/madsgo/params"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

// pollDirections builds the full set of trial points for one poll step,
// grounded on the teacher's genPollPoints/pointFromDirec (pattern.go): a
// Spanner produces integer direction vectors, which are here scaled through
// the granular mesh's per-coordinate frame size (mesh.Granular's
// ScaleAndProjectDirection) instead of the teacher's single scalar
// m.Step() multiply, then added to the frame center and snapped to bounds.
func pollDirections(dt params.DirectionType, n int, m *mesh.Granular, center *scalarpt.Point, lb, ub []float64, rng *rand.Rand, rn *randomN) []*eval.Point {
	var sp spanner
	switch dt {
	case params.CompassNp1:
		sp = compassNp1{}
	case params.RandomN:
		if rn == nil {
			rn = &randomN{}
		}
		fs := m.FrameSize()
		maxFrame := 0.0
		for _, f := range fs {
			if f > maxFrame {
				maxFrame = f
			}
		}
		rn.updateFrame(maxFrame)
		sp = rn
	default:
		sp = compass2N{}
	}

	intDirs := sp.Span(n, rng)
	centerVals := center.Values()

	out := make([]*eval.Point, 0, len(intDirs))
	for _, id := range intDirs {
		dir := make([]float64, n)
		for i, v := range id {
			dir[i] = float64(v)
		}
		scaled := m.ScaleAndProjectDirection(dir)

		coords := make([]float64, n)
		for i := range coords {
			coords[i] = centerVals[i] + scaled[i]
		}
		pt := scalarpt.NewPoint(coords...).SnapToBounds(lb, ub)

		ep := eval.NewPoint(pt)
		ep.PointFrom = center
		ep.StepKind = eval.StepPoll
		ep.FrameSizeSnapshot = m.FrameSize()
		out = append(out, ep)
	}
	return out
}
