// Package eval implements the eval record and eval point of spec §3: one
// evaluation result (possibly per evalType) attached to an immutable point,
// plus per-iteration/per-run trial-point statistics.
package eval

import (
	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

// Status is the mechanical status of one evaluation attempt.
type Status int

const (
	NotStarted Status = iota
	InProgress
	OK
	Failed
	UserRejected
	Error
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case InProgress:
		return "IN_PROGRESS"
	case OK:
		return "OK"
	case Failed:
		return "FAILED"
	case UserRejected:
		return "USER_REJECTED"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Record is one evaluation result: the raw output, its mechanical status,
// the pre-eval status (set before the blackbox runs so a callback can skip
// it), and cached f/h keyed by the compute-type they were derived under.
type Record struct {
	Output        bbo.Output
	Status        Status
	PreEvalStatus Status
	Types         bbo.TypeList

	fhCache map[fhKey]fhVal
}

type fhKey struct {
	kind  bbo.ComputeKind
	hnorm bbo.HNormType
}

type fhVal struct {
	f, h scalarpt.Scalar
}

// F returns the objective under ct, computing and caching it on first use.
func (r *Record) F(ct bbo.ComputeType) scalarpt.Scalar {
	return r.fh(ct).f
}

// H returns the aggregate constraint violation under ct, computing and
// caching it on first use.
func (r *Record) H(ct bbo.ComputeType) scalarpt.Scalar {
	return r.fh(ct).h
}

func (r *Record) fh(ct bbo.ComputeType) fhVal {
	if ct.Kind == bbo.User {
		// USER closures are not safe to cache keyed only by kind/hnorm since
		// distinct USER closures would collide; always recompute.
		return fhVal{f: bbo.F(r.Output, ct), h: bbo.H(r.Output, ct)}
	}
	if r.fhCache == nil {
		r.fhCache = map[fhKey]fhVal{}
	}
	key := fhKey{kind: ct.Kind, hnorm: ct.HNorm}
	if v, ok := r.fhCache[key]; ok {
		return v
	}
	v := fhVal{f: bbo.F(r.Output, ct), h: bbo.H(r.Output, ct)}
	r.fhCache[key] = v
	return v
}

// IsFeasible reports h == 0 under ct.
func (r *Record) IsFeasible(ct bbo.ComputeType) bool {
	h := r.H(ct)
	return h.IsDefined() && !h.IsInf() && h.Value() == 0
}

// IsUsable reports whether this record can participate in barrier
// classification (mechanically OK and not producing an undefined f).
func (r *Record) IsUsable(ct bbo.ComputeType) bool {
	if r.Status != OK {
		return false
	}
	return r.F(ct).IsDefined()
}
