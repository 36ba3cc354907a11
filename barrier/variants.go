package barrier

import (
	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

// DMulti is the multi-objective barrier variant of §4.3: X_feas/X_inf
// fronts bounded by IncumbentSelectionThreshold. It embeds *Progressive and
// reuses its update machinery verbatim, only adding the front-size cap on
// top. Dominance is the base barrier's dominates(), which compares the
// scalar f and h; under DMultiCombineF, f is the first OBJ output only, so
// the fronts are non-dominated in (f, h), not under vector dominance on
// all objectives.
type DMulti struct {
	*Progressive
	IncumbentSelectionThreshold int
}

// NewDMulti builds a DMultiMADS barrier.
func NewDMulti(ct bbo.ComputeType, h0 float64, threshold int) *DMulti {
	return &DMulti{Progressive: New(ct, h0), IncumbentSelectionThreshold: threshold}
}

// UpdateWithPoints runs the base update then trims both fronts down to the
// selection threshold, keeping the threshold-many best-f entries (a simple,
// deterministic truncation consistent with the spec's tie-break-by-tag
// open question: ties fall back to insertion order since Go map/slice
// iteration here is already insertion-ordered).
func (d *DMulti) UpdateWithPoints(points []*eval.Point, keepAll, updateIncAndHMax bool) bool {
	changed := d.Progressive.UpdateWithPoints(points, keepAll, updateIncAndHMax)
	if d.IncumbentSelectionThreshold > 0 {
		d.mu.Lock()
		d.feas = truncateFront(d.feas, d.IncumbentSelectionThreshold, d.ComputeType)
		d.inf = truncateFront(d.inf, d.IncumbentSelectionThreshold, d.ComputeType)
		d.mu.Unlock()
	}
	return changed
}

func truncateFront(front []*eval.Point, max int, ct bbo.ComputeType) []*eval.Point {
	if len(front) <= max {
		return front
	}
	// stable selection of the max best-f entries, preserving relative order
	idx := make([]int, len(front))
	for i := range idx {
		idx[i] = i
	}
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && front[idx[j]].F(ct).Value() < front[idx[j-1]].F(ct).Value(); j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	keepSet := map[int]bool{}
	for _, i := range idx[:max] {
		keepSet[i] = true
	}
	out := make([]*eval.Point, 0, max)
	for i, p := range front {
		if keepSet[i] {
			out = append(out, p)
		}
	}
	return out
}

// Disco is the DiscoMADS barrier variant of §4.3: adds an exclusion radius
// so that a new point within ExclusionRadius of a previously revealed
// point triggers revealed-constraint recomputation (the RPB output type).
type Disco struct {
	*Progressive
	ExclusionRadius float64
	revealed        []*scalarpt.Point
}

// NewDisco builds a DiscoMADS barrier.
func NewDisco(ct bbo.ComputeType, h0, exclusionRadius float64) *Disco {
	return &Disco{Progressive: New(ct, h0), ExclusionRadius: exclusionRadius}
}

// CheckRevealing marks p.Revealing if p falls within ExclusionRadius of any
// previously revealed point, and otherwise records p as newly revealed
// when it carries a positive RPB output -- grounded on §4.3's "new point
// within eps of a previously revealed point triggers revealed-constraint
// recomputation".
func (d *Disco) CheckRevealing(p *eval.Point) bool {
	for _, r := range d.revealed {
		if l2Dist(p.Coords, r) <= d.ExclusionRadius {
			p.Revealing = true
			return true
		}
	}
	rec := p.Record(d.ComputeType.EvalType)
	if rec != nil {
		for _, v := range rec.Output.ByType(bbo.RPB) {
			if v.IsDefined() && v.Value() > 0 {
				d.revealed = append(d.revealed, p.Coords.Clone())
				break
			}
		}
	}
	return false
}

func l2Dist(a, b *scalarpt.Point) float64 {
	d := scalarpt.FromPoints(a, b)
	return d.NormL2()
}
