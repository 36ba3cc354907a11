package bbo

import (
	"math"

	"github.com/rwcarlsen/madsgo/scalarpt"
)

// EvalType is which evaluator produced an Output.
type EvalType int

const (
	EvalUndefined EvalType = iota
	EvalBB
	EvalModel
	EvalSurrogate
)

// ComputeKind selects the rule used to derive f and h from an Output.
type ComputeKind int

const (
	Standard ComputeKind = iota
	PhaseOne
	DMultiCombineF
	User
)

// HNormType selects the norm used to aggregate PB-constraint violations
// into a single scalar h.
type HNormType int

const (
	L1 HNormType = iota
	L2
	LInf
)

// UserFuncs lets ComputeKind == User callers supply closures over the raw
// output tuple, matching §3's "f and h are computed by user-supplied
// closures".
type UserFuncs struct {
	F func(Output) scalarpt.Scalar
	H func(Output) scalarpt.Scalar
}

// ComputeType is the value-typed {evalType, computeType, hNormType} triple
// from §3, plus optional USER closures. It is passed by value everywhere f
// and h are derived, per the design note in §9 favoring a struct-of-enums
// over virtual dispatch.
type ComputeType struct {
	EvalType EvalType
	Kind     ComputeKind
	HNorm    HNormType
	User     UserFuncs
}

// Default returns the STANDARD/BB/L2 compute-type used unless a run
// overrides it.
func Default() ComputeType {
	return ComputeType{EvalType: EvalBB, Kind: Standard, HNorm: L2}
}

func hnorm(vals []scalarpt.Scalar, kind HNormType) scalarpt.Scalar {
	allDefined := true
	for _, v := range vals {
		if !v.IsDefined() {
			allDefined = false
			break
		}
	}
	if !allDefined {
		return scalarpt.Undefined()
	}
	switch kind {
	case L1:
		tot := 0.0
		for _, v := range vals {
			tot += math.Max(0, v.Value())
		}
		return scalarpt.Of(tot)
	case LInf:
		mx := 0.0
		for _, v := range vals {
			if m := math.Max(0, v.Value()); m > mx {
				mx = m
			}
		}
		return scalarpt.Of(mx)
	default: // L2
		tot := 0.0
		for _, v := range vals {
			m := math.Max(0, v.Value())
			tot += m * m
		}
		return scalarpt.Of(math.Sqrt(tot))
	}
}

// F computes the objective value from a raw Output under ct.
func F(o Output, ct ComputeType) scalarpt.Scalar {
	if !o.EvalOk {
		return scalarpt.Undefined()
	}
	switch ct.Kind {
	case PhaseOne:
		return hnorm(o.EBConstraints(), ct.HNorm)
	case User:
		if ct.User.F == nil {
			return scalarpt.Undefined()
		}
		return ct.User.F(o)
	default: // Standard, DMultiCombineF falls back to the single objective here
		objs := o.Objectives()
		if len(objs) == 0 {
			return scalarpt.Undefined()
		}
		return objs[0]
	}
}

// H computes the aggregate constraint violation from a raw Output under
// ct. An EB violation collapses h to +Inf regardless of PB values, per §3.
func H(o Output, ct ComputeType) scalarpt.Scalar {
	if !o.EvalOk {
		return scalarpt.Undefined()
	}
	if ct.Kind == User {
		if ct.User.H == nil {
			return scalarpt.Undefined()
		}
		return ct.User.H(o)
	}
	if ct.Kind == PhaseOne {
		// Feasibility in phase one means f==0; h is not meaningful, treat
		// as always satisfied (0) so barrier logic based on h alone never
		// rejects phase-one points.
		return scalarpt.Of(0)
	}
	for _, v := range o.EBConstraints() {
		if !v.IsDefined() {
			return scalarpt.Undefined()
		}
		if v.Value() > 0 {
			return scalarpt.PosInf()
		}
	}
	return hnorm(o.PBConstraints(), ct.HNorm)
}
