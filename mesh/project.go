package mesh

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ProjectLinear returns the nearest point to x0 (in Euclidean distance) that
// satisfies the linear inequality system Ax <= b, repeatedly projecting
// onto whichever violated constraint is farthest and accumulating the
// violated rows into a running equality system, grounded on the teacher's
// optim.Project/optim.OrthoProj pair (itself built on mat64.Solve/Inverse,
// here ported to gonum/v1/gonum/mat's Dense/Solve API). Used to repair VNS
// shake points that land outside a declared feasible polytope before they
// are ever handed to the evaluator, rather than discovering the violation
// only after a wasted blackbox call.
//
// A has one row per constraint and len(x0) columns; b has one row per
// constraint. If x0 already satisfies every row, x0 is returned unchanged.
// If the alternating projection fails to converge within a few rounds
// (the constraint set is inconsistent or degenerate), the best point found
// so far is returned along with ok=false.
func ProjectLinear(x0 []float64, A [][]float64, b []float64) (proj []float64, ok bool) {
	if len(A) == 0 {
		return x0, true
	}

	from := x0
	cur := append([]float64(nil), x0...)
	var badA, badB *mat.Dense
	fails := 0
	for round := 0; round < 2*len(A)+4; round++ {
		rowA, rowB, violated := mostViolated(cur, A, b)
		if !violated {
			return cur, true
		}

		if badA == nil {
			badA = mat.NewDense(1, len(x0), rowA)
			badB = mat.NewDense(1, 1, []float64{rowB})
		} else {
			badA = stackRows(badA, rowA)
			badB = stackRows(badB, []float64{rowB})
		}

		next, err := orthoProj(from, badA, badB)
		if err != nil {
			fails++
			from = cur
			badA, badB = nil, nil
			if fails >= 2 {
				return cur, false
			}
			continue
		}
		cur = next
	}
	return cur, false
}

// mostViolated returns the row of Ax<=b farthest (in orthogonal distance)
// from x0 among the rows x0 violates, or violated=false if none are.
func mostViolated(x0 []float64, A [][]float64, b []float64) (row []float64, rhs float64, violated bool) {
	const eps = 1e-9
	worst := -1
	farthest := 0.0
	for i, ai := range A {
		dot := 0.0
		for j, aij := range ai {
			dot += aij * x0[j]
		}
		diff := dot - b[i]
		if diff <= eps {
			continue
		}
		d := diff / l2norm(ai)
		if d > farthest {
			farthest = d
			worst = i
		}
	}
	if worst == -1 {
		return nil, 0, false
	}
	return A[worst], b[worst], true
}

// orthoProj computes the orthogonal projection of x0 onto the affine
// subspace Ax=b, i.e. the intersection of the hyperplanes making up A's
// rows. When A is square (or taller than wide) this is a direct solve;
// otherwise it is the minimum-norm correction
// proj = [I - A^T(AA^T)^-1 A]x0 + A^T(AA^T)^-1 b.
func orthoProj(x0 []float64, A, b *mat.Dense) ([]float64, error) {
	m, n := A.Dims()
	x := mat.NewDense(n, 1, x0)

	if m >= n {
		var sol mat.Dense
		if err := sol.Solve(A, b); err != nil {
			return nil, err
		}
		return denseCol(&sol), nil
	}

	var aT mat.Dense
	aT.CloneFrom(A.T())

	var aaT mat.Dense
	aaT.Mul(A, &aT)

	var inv mat.Dense
	if err := inv.Inverse(&aaT); err != nil {
		return nil, err
	}

	var bMat mat.Dense
	bMat.Mul(&aT, &inv)

	var proj mat.Dense
	proj.Mul(&bMat, A)
	proj.Scale(-1, &proj)
	proj.Add(&proj, eye(n))
	proj.Mul(&proj, x)

	var shift mat.Dense
	shift.Mul(&bMat, b)

	proj.Add(&proj, &shift)
	return denseCol(&proj), nil
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func denseCol(m *mat.Dense) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.At(i, 0)
	}
	return out
}

func stackRows(m *mat.Dense, row []float64) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r+1, c, nil)
	out.Copy(m)
	for j, v := range row {
		out.Set(r, j, v)
	}
	return out
}

func l2norm(x []float64) float64 {
	tot := 0.0
	for _, xi := range x {
		tot += xi * xi
	}
	return math.Sqrt(tot)
}
