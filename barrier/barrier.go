// Package barrier implements the progressive barrier of spec §4.3: the
// dual-set incumbent store {X_feas, X_inf} plus hₘₐₓ, success
// classification, and the update protocol.
package barrier

import (
	"math"
	"sync"

	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

// SuccessType ranks how a candidate compares against a reference
// incumbent, ordered so that "bigger is better" comparisons (>=) in caller
// code read naturally, matching the success-monotonicity law of §8.
type SuccessType int

const (
	Unsuccessful SuccessType = iota
	PartialSuccess
	FullSuccess
)

// Progressive is the barrier of §4.3: two ordered collections of eval
// points plus hMax and the compute-type under which they were classified.
// refBestFeas/refBestInf are the previous-iteration incumbents held for
// success classification, per spec.
type Progressive struct {
	mu sync.Mutex

	ComputeType bbo.ComputeType
	HMax        scalarpt.Scalar

	feas []*eval.Point
	inf  []*eval.Point

	refBestFeas *eval.Point
	refBestInf  *eval.Point

	bestFeas *eval.Point
	bestInf  *eval.Point
}

// New builds a Progressive barrier with initial threshold h0 (must be > 0
// per the "hMax is strictly positive" invariant).
func New(ct bbo.ComputeType, h0 float64) *Progressive {
	if h0 <= 0 {
		h0 = math.Inf(1)
	}
	return &Progressive{ComputeType: ct, HMax: scalarpt.Of(h0)}
}

// BestFeas/BestInf return the current incumbents (nil if none).
func (b *Progressive) BestFeas() *eval.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestFeas
}
func (b *Progressive) BestInf() *eval.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestInf
}

// RefBestFeas/RefBestInf return the pre-iteration reference incumbents.
func (b *Progressive) RefBestFeas() *eval.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refBestFeas
}
func (b *Progressive) RefBestInf() *eval.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refBestInf
}

// SnapshotRefs captures the current incumbents as the reference point for
// the next success classification, called at the start of an Update step.
func (b *Progressive) SnapshotRefs() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refBestFeas = b.bestFeas
	b.refBestInf = b.bestInf
}

// Feas/Inf return copies of the current front lists.
func (b *Progressive) Feas() []*eval.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*eval.Point, len(b.feas))
	copy(out, b.feas)
	return out
}
func (b *Progressive) Inf() []*eval.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*eval.Point, len(b.inf))
	copy(out, b.inf)
	return out
}

// ClassifySuccess implements §4.3's success classification of candidate p
// against reference incumbent r under ct with current threshold hMax. r
// may be nil (no prior incumbent of the relevant feasibility class).
func ClassifySuccess(p, r *eval.Point, ct bbo.ComputeType, hMax scalarpt.Scalar) SuccessType {
	rec := p.Record(ct.EvalType)
	if rec == nil || !rec.IsUsable(ct) {
		return Unsuccessful
	}
	h := rec.H(ct)
	if !h.IsDefined() || h.IsInf() {
		return Unsuccessful
	}
	if hMax.IsDefined() && !hMax.IsInf() && h.Value() > hMax.Value() {
		return Unsuccessful
	}

	feasible := h.Value() == 0
	f := rec.F(ct)

	if feasible {
		if r == nil {
			return FullSuccess
		}
		rRec := r.Record(ct.EvalType)
		if rRec == nil || !rRec.IsUsable(ct) {
			return FullSuccess
		}
		rh := rRec.H(ct)
		if !(rh.IsDefined() && rh.Value() == 0) {
			return FullSuccess // r infeasible or unusable: any feasible p wins
		}
		rf := rRec.F(ct)
		if f.IsDefined() && rf.IsDefined() && f.Value() < rf.Value() {
			return FullSuccess
		}
		return Unsuccessful
	}

	// p infeasible (0 < h <= hMax)
	if r == nil {
		return PartialSuccess
	}
	rRec := r.Record(ct.EvalType)
	if rRec == nil || !rRec.IsUsable(ct) {
		return PartialSuccess
	}
	rh := rRec.H(ct)
	if rh.IsDefined() && rh.Value() == 0 {
		return Unsuccessful // infeasible never beats feasible
	}
	rf := rRec.F(ct)
	if !f.IsDefined() || !rf.IsDefined() || !rh.IsDefined() {
		return Unsuccessful
	}
	fv, rfv, hv, rhv := f.Value(), rf.Value(), h.Value(), rh.Value()
	switch {
	case fv <= rfv && hv <= rhv && (fv < rfv || hv < rhv):
		return FullSuccess
	case (fv < rfv && hv > rhv) || (hv < rhv && fv > rfv):
		return PartialSuccess
	default:
		return Unsuccessful
	}
}

// dominates reports whether a dominates b on (f,h): both <=, at least one
// strictly <.
func dominates(a, b *eval.Point, ct bbo.ComputeType) bool {
	ar := a.Record(ct.EvalType)
	br := b.Record(ct.EvalType)
	if ar == nil || br == nil || !ar.IsUsable(ct) || !br.IsUsable(ct) {
		return false
	}
	af, ah := ar.F(ct).Value(), ar.H(ct).Value()
	bf, bh := br.F(ct).Value(), br.H(ct).Value()
	return af <= bf && ah <= bh && (af < bf || ah < bh)
}

// UpdateWithPoints implements §4.3's update protocol. keepAll controls
// whether non-dominated feasible/infeasible points accumulate (true) or
// the single best replaces the front (false, classic single-incumbent
// MADS). updateIncAndHMax controls whether incumbents and hMax are
// recomputed from the resulting fronts. Returns true if incumbents or hMax
// changed.
func (b *Progressive) UpdateWithPoints(points []*eval.Point, keepAll, updateIncAndHMax bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	prevHMax := b.HMax
	prevBestFeas := b.bestFeas
	prevBestInf := b.bestInf

	for _, p := range points {
		rec := p.Record(b.ComputeType.EvalType)
		if rec == nil || !rec.IsUsable(b.ComputeType) {
			continue
		}
		h := rec.H(b.ComputeType)
		if !h.IsDefined() {
			continue
		}
		if h.Value() == 0 {
			b.insertFeasLocked(p, keepAll)
		} else if !h.IsInf() && (!b.HMax.IsDefined() || b.HMax.IsInf() || h.Value() <= b.HMax.Value()) {
			b.insertInfLocked(p, keepAll)
		}
	}

	if updateIncAndHMax {
		b.recomputeIncumbentsLocked()
		b.lowerHMaxLocked()
	}

	changed := !sameIncumbent(prevBestFeas, b.bestFeas) ||
		!sameIncumbent(prevBestInf, b.bestInf) ||
		!prevHMax.Equal(b.HMax)
	return changed
}

func sameIncumbent(a, b *eval.Point) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a == b || a.Coords.Equal(b.Coords)
}

// duplicateOf reports whether q is p itself, or a tie with p on (f,h) at
// the same coordinates. dominates requires a strict inequality in f or h,
// so two points on an equal-f plateau never dominate each other; without
// this check the insert loops below would re-append the same trial point
// on every repeated UpdateWithPoints call instead of recognizing it as
// already present.
func duplicateOf(q, p *eval.Point, ct bbo.ComputeType) bool {
	if q == p {
		return true
	}
	if !q.Coords.Equal(p.Coords) {
		return false
	}
	qr, pr := q.Record(ct.EvalType), p.Record(ct.EvalType)
	if qr == nil || pr == nil || !qr.IsUsable(ct) || !pr.IsUsable(ct) {
		return false
	}
	return qr.F(ct).Value() == pr.F(ct).Value() && qr.H(ct).Value() == pr.H(ct).Value()
}

func (b *Progressive) insertFeasLocked(p *eval.Point, keepAll bool) {
	for _, q := range b.feas {
		if duplicateOf(q, p, b.ComputeType) {
			return // already present, nothing to do
		}
		if dominates(q, p, b.ComputeType) {
			return // dominated by an existing entry, drop
		}
	}
	kept := b.feas[:0:0]
	for _, q := range b.feas {
		if !dominates(p, q, b.ComputeType) {
			kept = append(kept, q)
		}
	}
	b.feas = append(kept, p)
	if !keepAll && len(b.feas) > 1 {
		// single-incumbent mode: keep only the best (f,h) lexicographic
		best := b.feas[0]
		for _, q := range b.feas[1:] {
			if dominates(q, best, b.ComputeType) {
				best = q
			}
		}
		b.feas = []*eval.Point{best}
	}
}

func (b *Progressive) insertInfLocked(p *eval.Point, keepAll bool) {
	for _, q := range b.inf {
		if duplicateOf(q, p, b.ComputeType) {
			return
		}
		if dominates(q, p, b.ComputeType) {
			return
		}
	}
	kept := b.inf[:0:0]
	for _, q := range b.inf {
		if !dominates(p, q, b.ComputeType) {
			kept = append(kept, q)
		}
	}
	b.inf = append(kept, p)
	if !keepAll && len(b.inf) > 1 {
		// single-incumbent mode: keep only the best (f,h) lexicographic
		best := b.inf[0]
		for _, q := range b.inf[1:] {
			qf, bf := q.F(b.ComputeType).Value(), best.F(b.ComputeType).Value()
			if qf < bf || (qf == bf && q.H(b.ComputeType).Value() < best.H(b.ComputeType).Value()) {
				best = q
			}
		}
		b.inf = []*eval.Point{best}
	}
}

func (b *Progressive) recomputeIncumbentsLocked() {
	b.bestFeas = nil
	for _, p := range b.feas {
		if b.bestFeas == nil || p.F(b.ComputeType).Value() < b.bestFeas.F(b.ComputeType).Value() {
			b.bestFeas = p
		}
	}
	b.bestInf = nil
	for _, p := range b.inf {
		if b.bestInf == nil || dominates(p, b.bestInf, b.ComputeType) {
			b.bestInf = p
		}
	}
}

// lowerHMaxLocked implements "lower hMax to the next worst h in X_inf
// (never raise it); an empty X_inf leaves hMax unchanged."
func (b *Progressive) lowerHMaxLocked() {
	if len(b.inf) == 0 {
		return
	}
	worst := 0.0
	for _, p := range b.inf {
		h := p.H(b.ComputeType)
		if h.IsDefined() && h.Value() > worst {
			worst = h.Value()
		}
	}
	if !b.HMax.IsDefined() || b.HMax.IsInf() || worst < b.HMax.Value() {
		b.HMax = scalarpt.Of(worst)
	}
}
