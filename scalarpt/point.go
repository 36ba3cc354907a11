package scalarpt

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"math"
)

// Point is an ordered, fixed-dimension sequence of scalars, mirroring the
// teacher's optim.Point (a []float64 plus a scalar Val) but generalized to
// per-coordinate definedness and carrying no objective value of its own --
// that lives on eval.Point once an evaluation exists.
type Point struct {
	Coords []Scalar
}

// NewPoint builds a Point from plain float64 coordinates.
func NewPoint(xs ...float64) *Point {
	cs := make([]Scalar, len(xs))
	for i, x := range xs {
		cs[i] = Of(x)
	}
	return &Point{Coords: cs}
}

// Len returns the dimension.
func (p *Point) Len() int { return len(p.Coords) }

// Values returns the plain float64 slice, which is only safe to use when
// every coordinate IsDefined.
func (p *Point) Values() []float64 {
	out := make([]float64, len(p.Coords))
	for i, c := range p.Coords {
		out[i] = c.Value()
	}
	return out
}

// IsComplete reports whether every coordinate is defined.
func (p *Point) IsComplete() bool {
	for _, c := range p.Coords {
		if !c.IsDefined() {
			return false
		}
	}
	return true
}

// Clone makes an independent copy.
func (p *Point) Clone() *Point {
	cs := make([]Scalar, len(p.Coords))
	copy(cs, p.Coords)
	return &Point{Coords: cs}
}

// EqualEps reports coordinate-wise equality within eps.
func (p *Point) EqualEps(o *Point, eps float64) bool {
	if p.Len() != o.Len() {
		return false
	}
	for i := range p.Coords {
		if !p.Coords[i].EqualEps(o.Coords[i], eps) {
			return false
		}
	}
	return true
}

// Equal uses DefaultEps.
func (p *Point) Equal(o *Point) bool { return p.EqualEps(o, DefaultEps) }

// SnapToBounds clips each coordinate into [lb[i], ub[i]], mirroring the
// teacher's BoxMesh.Nearest bound-sliding step.
func (p *Point) SnapToBounds(lb, ub []float64) *Point {
	out := p.Clone()
	for i, c := range out.Coords {
		if !c.IsDefined() {
			continue
		}
		v := c.Value()
		if lb != nil && v < lb[i] {
			v = lb[i]
		}
		if ub != nil && v > ub[i] {
			v = ub[i]
		}
		out.Coords[i] = Of(v)
	}
	return out
}

// Add returns coordinate-wise p+o.
func (p *Point) Add(o *Point) *Point {
	out := &Point{Coords: make([]Scalar, p.Len())}
	for i := range p.Coords {
		out.Coords[i] = p.Coords[i].Add(o.Coords[i])
	}
	return out
}

// Hash returns a stable digest of the point's coordinates, grounded on
// optim.Point.Hash's sha1-over-raw-bits approach. Callers needing
// tolerance-aware lookups should round coordinates before hashing (see
// cache.keyOf).
func (p *Point) Hash() [sha1.Size]byte {
	data := make([]byte, p.Len()*8)
	for i, c := range p.Coords {
		v := c.Value()
		binary.BigEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return sha1.Sum(data)
}

func (p *Point) String() string {
	return fmt.Sprintf("%v", p.Values())
}
