package eval

import (
	"sync"
	"sync/atomic"

	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

// StepType identifies which kind of step generated a trial point, recorded
// on the point for diagnostics and for DIR_LAST_SUCCESS sorting.
type StepType int

const (
	StepUnknown StepType = iota
	StepX0
	StepSearch
	StepPoll
	StepExtendedPoll
	StepVNS
	StepPhaseOne
)

var tagCounter int64

// nextTag hands out process-wide monotonically increasing tags, mirroring
// the spec's "monotonically increasing integer tag (assigned on first
// update)" invariant.
func nextTag() int64 { return atomic.AddInt64(&tagCounter, 1) }

// ResetTagCounterForTest is exported only for test isolation (each test
// harness wants its own tag sequence per §9's "isolated context per test").
func ResetTagCounterForTest() { atomic.StoreInt64(&tagCounter, 0) }

// Point is a point plus up to one eval Record per bbo.EvalType, and the
// metadata described in spec §3: an immutable tag, producing
// algorithm/thread/step-type, a weak back-reference to the direction that
// produced it (pointFrom, always held in full-dimensional space), an
// optional mesh frame-size snapshot, and a DiscoMADS revealing flag.
type Point struct {
	mu sync.Mutex

	Coords *scalarpt.Point

	tag      int64
	tagSet   bool
	MainThread int
	StepKind StepType

	// PointFrom is the full-dimensional frame center this point was
	// generated from, nil for X0 points. Invariant: always full-dimensional
	// even when Coords is a fixed-variable subproblem point.
	PointFrom *scalarpt.Point

	// FrameSizeSnapshot is the mesh frame size in effect when this point
	// was generated, nil if not applicable.
	FrameSizeSnapshot []float64

	Revealing bool

	records map[bbo.EvalType]*Record
}

// NewPoint wraps coords as a fresh, untagged eval point.
func NewPoint(coords *scalarpt.Point) *Point {
	return &Point{Coords: coords, records: map[bbo.EvalType]*Record{}}
}

// Tag assigns (on first call) and returns the point's immutable tag.
func (p *Point) Tag() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.tagSet {
		p.tag = nextTag()
		p.tagSet = true
	}
	return p.tag
}

// HasTag reports whether Tag has already been assigned, without assigning
// one.
func (p *Point) HasTag() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tagSet
}

// Record returns the Record for et, or nil if none exists yet.
func (p *Point) Record(et bbo.EvalType) *Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.records[et]
}

// SetRecord installs (overwrites) the Record for et. Coordinates are never
// touched -- only eval records change, per the spec's point-immutability
// invariant.
func (p *Point) SetRecord(et bbo.EvalType, r *Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[et] = r
}

// EnsureRecord returns the existing Record for et or installs and returns a
// fresh NotStarted one.
func (p *Point) EnsureRecord(et bbo.EvalType) *Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.records[et]
	if !ok {
		r = &Record{Status: NotStarted}
		p.records[et] = r
	}
	return r
}

// F/H read through to the record for ct.EvalType, so the compute type
// decides which evaluator's value (BB, surrogate or model) is returned.
func (p *Point) F(ct bbo.ComputeType) scalarpt.Scalar {
	r := p.Record(ct.EvalType)
	if r == nil {
		return scalarpt.Undefined()
	}
	return r.F(ct)
}

func (p *Point) H(ct bbo.ComputeType) scalarpt.Scalar {
	r := p.Record(ct.EvalType)
	if r == nil {
		return scalarpt.Undefined()
	}
	return r.H(ct)
}

// IsFeasible reports whether the record for ct.EvalType is usable and
// feasible.
func (p *Point) IsFeasible(ct bbo.ComputeType) bool {
	r := p.Record(ct.EvalType)
	return r != nil && r.IsUsable(ct) && r.IsFeasible(ct)
}
