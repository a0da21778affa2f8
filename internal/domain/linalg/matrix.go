// Package linalg implements the dense linear algebra the rating solvers are
// built on: LUP factorization with partial pivoting, Gauss-Seidel iteration,
// damped least-squares solving and eigenvalues of general real matrices.
//
// Matrices here are small (teams by teams, at most a few hundred rows), so
// everything is plain row-major float64 with no blocking or sparsity.
package linalg

import (
	"fmt"
	"math"
)

// pivotTol is the threshold below which a pivot counts as numerically zero.
const pivotTol = 1e-10

// Matrix is a dense row-major matrix.
type Matrix struct {
	rows, cols int
	data       []float64
}

// NewMatrix returns a zero rows-by-cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// Rows returns the row count.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the column count.
func (m *Matrix) Cols() int { return m.cols }

// At returns the element at (i, j).
func (m *Matrix) At(i, j int) float64 { return m.data[i*m.cols+j] }

// Set assigns the element at (i, j).
func (m *Matrix) Set(i, j int, v float64) { m.data[i*m.cols+j] = v }

// Add accumulates v into the element at (i, j).
func (m *Matrix) Add(i, j int, v float64) { m.data[i*m.cols+j] += v }

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := NewMatrix(m.rows, m.cols)
	copy(c.data, m.data)
	return c
}

// MulVec computes m * x.
func (m *Matrix) MulVec(x []float64) ([]float64, error) {
	if len(x) != m.cols {
		return nil, fmt.Errorf("%w: %dx%d matrix times vector of %d", ErrShape, m.rows, m.cols, len(x))
	}
	out := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.cols : (i+1)*m.cols]
		var sum float64
		for j, v := range row {
			sum += v * x[j]
		}
		out[i] = sum
	}
	return out, nil
}

// Transpose returns a new transposed matrix.
func (m *Matrix) Transpose() *Matrix {
	t := NewMatrix(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			t.Set(j, i, m.At(i, j))
		}
	}
	return t
}

// IsSymmetric reports whether the matrix equals its transpose within tol.
func (m *Matrix) IsSymmetric(tol float64) bool {
	if m.rows != m.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for j := i + 1; j < m.cols; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > tol {
				return false
			}
		}
	}
	return true
}

// LUP holds the factorization PA = LU in compact form: L (unit diagonal) in
// the strict lower triangle and U in the upper triangle, with perm recording
// the row permutation.
type LUP struct {
	lu   *Matrix
	perm []int
	n    int
}

// Factorize computes the LUP decomposition of the square matrix using
// partial pivoting. Fails with ErrSingular when a pivot falls below the
// numerical-zero threshold.
func (m *Matrix) Factorize() (*LUP, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("%w: factorizing %dx%d", ErrShape, m.rows, m.cols)
	}
	n := m.rows
	lu := m.Clone()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	for k := 0; k < n; k++ {
		// Find pivot row.
		pivot := k
		maxAbs := math.Abs(lu.At(k, k))
		for i := k + 1; i < n; i++ {
			if a := math.Abs(lu.At(i, k)); a > maxAbs {
				maxAbs = a
				pivot = i
			}
		}
		if maxAbs < pivotTol {
			return nil, fmt.Errorf("%w: pivot %d is %.3e", ErrSingular, k, maxAbs)
		}
		if pivot != k {
			lu.swapRows(k, pivot)
			perm[k], perm[pivot] = perm[pivot], perm[k]
		}

		for i := k + 1; i < n; i++ {
			f := lu.At(i, k) / lu.At(k, k)
			lu.Set(i, k, f)
			for j := k + 1; j < n; j++ {
				lu.Add(i, j, -f*lu.At(k, j))
			}
		}
	}
	return &LUP{lu: lu, perm: perm, n: n}, nil
}

func (m *Matrix) swapRows(a, b int) {
	ra := m.data[a*m.cols : (a+1)*m.cols]
	rb := m.data[b*m.cols : (b+1)*m.cols]
	for j := range ra {
		ra[j], rb[j] = rb[j], ra[j]
	}
}

// Solve runs forward then backward substitution for Ax = b.
func (f *LUP) Solve(b []float64) ([]float64, error) {
	if len(b) != f.n {
		return nil, fmt.Errorf("%w: rhs length %d for order %d", ErrShape, len(b), f.n)
	}
	// Forward: Ly = Pb.
	y := make([]float64, f.n)
	for i := 0; i < f.n; i++ {
		sum := b[f.perm[i]]
		for j := 0; j < i; j++ {
			sum -= f.lu.At(i, j) * y[j]
		}
		y[i] = sum
	}
	// Backward: Ux = y.
	x := make([]float64, f.n)
	for i := f.n - 1; i >= 0; i-- {
		sum := y[i]
		for j := i + 1; j < f.n; j++ {
			sum -= f.lu.At(i, j) * x[j]
		}
		x[i] = sum / f.lu.At(i, i)
	}
	return x, nil
}

// GaussSeidel solves Ax = b iteratively using the diagonal/lower/upper
// split. It returns the iteration count alongside the solution and wraps
// ErrNotConverged (still returning the best iterate) when the cap is hit.
func GaussSeidel(a *Matrix, b []float64, tol float64, maxIterations int) ([]float64, int, error) {
	if a.rows != a.cols || len(b) != a.rows {
		return nil, 0, fmt.Errorf("%w: gauss-seidel on %dx%d with rhs %d", ErrShape, a.rows, a.cols, len(b))
	}
	n := a.rows
	x := make([]float64, n)
	for iter := 1; iter <= maxIterations; iter++ {
		maxDelta := 0.0
		for i := 0; i < n; i++ {
			diag := a.At(i, i)
			if math.Abs(diag) < pivotTol {
				return x, iter, fmt.Errorf("%w: zero diagonal at %d", ErrSingular, i)
			}
			sum := b[i]
			for j := 0; j < n; j++ {
				if j != i {
					sum -= a.At(i, j) * x[j]
				}
			}
			next := sum / diag
			if d := math.Abs(next - x[i]); d > maxDelta {
				maxDelta = d
			}
			x[i] = next
		}
		if maxDelta < tol {
			return x, iter, nil
		}
	}
	return x, maxIterations, fmt.Errorf("%w after %d iterations", ErrNotConverged, maxIterations)
}

// Rank estimates the rank by Gaussian elimination with partial pivoting,
// counting pivots above tol.
func (m *Matrix) Rank(tol float64) int {
	a := m.Clone()
	rank := 0
	row := 0
	for col := 0; col < a.cols && row < a.rows; col++ {
		pivot := row
		maxAbs := math.Abs(a.At(row, col))
		for i := row + 1; i < a.rows; i++ {
			if v := math.Abs(a.At(i, col)); v > maxAbs {
				maxAbs = v
				pivot = i
			}
		}
		if maxAbs <= tol {
			continue
		}
		if pivot != row {
			a.swapRows(row, pivot)
		}
		for i := row + 1; i < a.rows; i++ {
			f := a.At(i, col) / a.At(row, col)
			for j := col; j < a.cols; j++ {
				a.Add(i, j, -f*a.At(row, j))
			}
		}
		rank++
		row++
	}
	return rank
}

// SolveLeastSquares solves the overdetermined system a x ~= b through the
// normal equations. A small Tikhonov damping term keeps the system solvable
// when aᵀa is rank deficient, which is the limit definition of the
// pseudo-inverse solution.
func SolveLeastSquares(a *Matrix, b []float64, damping float64) ([]float64, error) {
	if len(b) != a.rows {
		return nil, fmt.Errorf("%w: lstsq rhs length %d for %d rows", ErrShape, len(b), a.rows)
	}
	n := a.cols
	ata := NewMatrix(n, n)
	atb := make([]float64, n)
	for i := 0; i < a.rows; i++ {
		for j := 0; j < n; j++ {
			aij := a.At(i, j)
			if aij == 0 {
				continue
			}
			atb[j] += aij * b[i]
			for k := 0; k < n; k++ {
				ata.Add(j, k, aij*a.At(i, k))
			}
		}
	}
	for i := 0; i < n; i++ {
		ata.Add(i, i, damping)
	}
	f, err := ata.Factorize()
	if err != nil {
		return nil, err
	}
	return f.Solve(atb)
}
