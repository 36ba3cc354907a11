package bbo

import "github.com/rwcarlsen/madsgo/scalarpt"

// Output is the raw tuple of scalars a single blackbox evaluation returned,
// plus whether the evaluation itself succeeded mechanically (evalOk in the
// spec's terms -- separate from whether the *point* turned out feasible).
type Output struct {
	Values []scalarpt.Scalar
	EvalOk bool
	Types  TypeList
}

// NewOutput builds an Output from plain float64s, all successful.
func NewOutput(types TypeList, vals ...float64) Output {
	vs := make([]scalarpt.Scalar, len(vals))
	for i, v := range vals {
		vs[i] = scalarpt.Of(v)
	}
	return Output{Values: vs, EvalOk: true, Types: types}
}

// slice returns the values at the positions matching t.
func (o Output) slice(t OutputType) []scalarpt.Scalar {
	idx := o.Types.Indices(t)
	out := make([]scalarpt.Scalar, len(idx))
	for i, p := range idx {
		out[i] = o.Values[p]
	}
	return out
}

// Objectives returns the OBJ-typed values (usually exactly one).
func (o Output) Objectives() []scalarpt.Scalar { return o.slice(Obj) }

// Constraints returns every PB- or EB-typed value, PB first in tuple order
// then EB, matching how NOMAD groups constraints for h computation.
func (o Output) Constraints() []scalarpt.Scalar {
	pb := o.slice(PB)
	eb := o.slice(EB)
	return append(pb, eb...)
}

// PBConstraints returns only progressive-barrier constraint values.
func (o Output) PBConstraints() []scalarpt.Scalar { return o.slice(PB) }

// EBConstraints returns only extreme-barrier constraint values.
func (o Output) EBConstraints() []scalarpt.Scalar { return o.slice(EB) }

// ByType returns the values at the positions matching t; exported for
// USER compute-type closures that need arbitrary slices.
func (o Output) ByType(t OutputType) []scalarpt.Scalar { return o.slice(t) }
