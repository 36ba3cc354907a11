package scalarpt

import "math"

// Direction shares Point's storage but is semantically a displacement: it
// supports norms and a positive-spanning rank check instead of bounds
// snapping.
type Direction struct {
	Coords []Scalar
}

// NewDirection builds a Direction from plain float64 deltas.
func NewDirection(xs ...float64) *Direction {
	cs := make([]Scalar, len(xs))
	for i, x := range xs {
		cs[i] = Of(x)
	}
	return &Direction{Coords: cs}
}

// FromPoints returns the displacement to-from.
func FromPoints(from, to *Point) *Direction {
	d := &Direction{Coords: make([]Scalar, from.Len())}
	for i := range from.Coords {
		d.Coords[i] = to.Coords[i].Sub(from.Coords[i])
	}
	return d
}

func (d *Direction) Len() int { return len(d.Coords) }

func (d *Direction) Values() []float64 {
	out := make([]float64, len(d.Coords))
	for i, c := range d.Coords {
		out[i] = c.Value()
	}
	return out
}

// NormL1 returns the L1 norm.
func (d *Direction) NormL1() float64 {
	tot := 0.0
	for _, c := range d.Coords {
		tot += math.Abs(c.Value())
	}
	return tot
}

// NormL2 returns the L2 norm.
func (d *Direction) NormL2() float64 {
	tot := 0.0
	for _, c := range d.Coords {
		v := c.Value()
		tot += v * v
	}
	return math.Sqrt(tot)
}

// NormLInf returns the L-infinity norm.
func (d *Direction) NormLInf() float64 {
	mx := 0.0
	for _, c := range d.Coords {
		if v := math.Abs(c.Value()); v > mx {
			mx = v
		}
	}
	return mx
}

// Dot returns the inner product, used by the evaluator control's
// DIR_LAST_SUCCESS sort policy to rank trial points against the last
// successful direction.
func (d *Direction) Dot(o *Direction) float64 {
	tot := 0.0
	for i := range d.Coords {
		tot += d.Coords[i].Value() * o.Coords[i].Value()
	}
	return tot
}

// PositivelySpans is a coarse, allocation-light check of whether dirs
// positively span R^n: it requires at least n+1 directions whose sum is
// (near) zero in every coordinate. The rank of the stacked direction
// matrix is not checked. It is sufficient for asserting ORTHO-2n/Np1
// construction invariants in tests.
func PositivelySpans(dirs []*Direction, n int) bool {
	if len(dirs) < n+1 {
		return false
	}
	sum := make([]float64, n)
	for _, d := range dirs {
		for i, c := range d.Coords {
			sum[i] += c.Value()
		}
	}
	// A positively spanning compass-style set sums to (near) zero in every
	// coordinate once the "extra" closing direction is included.
	for _, s := range sum {
		if math.Abs(s) > 1e-6*float64(len(dirs)) {
			return false
		}
	}
	return true
}
