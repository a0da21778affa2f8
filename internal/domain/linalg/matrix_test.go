package linalg_test

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/courtline/ratings/internal/domain/linalg"
)

func TestLUPFactorization(t *testing.T) {
	Convey("Given a well-conditioned square system", t, func() {
		// 2x + y = 5, x + 3y = 10 -> x = 1, y = 3
		m := linalg.NewMatrix(2, 2)
		m.Set(0, 0, 2)
		m.Set(0, 1, 1)
		m.Set(1, 0, 1)
		m.Set(1, 1, 3)

		Convey("When factorizing and solving", func() {
			f, err := m.Factorize()
			So(err, ShouldBeNil)

			x, err := f.Solve([]float64{5, 10})
			So(err, ShouldBeNil)

			Convey("Then the solution satisfies the system", func() {
				So(x[0], ShouldAlmostEqual, 1, 1e-12)
				So(x[1], ShouldAlmostEqual, 3, 1e-12)
			})
		})

		Convey("When the matrix needs pivoting", func() {
			// Zero in the top-left forces a row swap.
			p := linalg.NewMatrix(2, 2)
			p.Set(0, 0, 0)
			p.Set(0, 1, 1)
			p.Set(1, 0, 1)
			p.Set(1, 1, 0)

			f, err := p.Factorize()
			So(err, ShouldBeNil)

			x, err := f.Solve([]float64{7, 4})
			So(err, ShouldBeNil)

			Convey("Then the permuted solve is still exact", func() {
				So(x[0], ShouldAlmostEqual, 4, 1e-12)
				So(x[1], ShouldAlmostEqual, 7, 1e-12)
			})
		})
	})

	Convey("Given a singular matrix", t, func() {
		m := linalg.NewMatrix(2, 2)
		m.Set(0, 0, 1)
		m.Set(0, 1, 2)
		m.Set(1, 0, 2)
		m.Set(1, 1, 4)

		Convey("When factorizing", func() {
			_, err := m.Factorize()

			Convey("Then it fails with ErrSingular", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, linalg.ErrSingular.Error())
			})
		})
	})

	Convey("Given a non-square matrix", t, func() {
		m := linalg.NewMatrix(3, 2)

		Convey("When factorizing", func() {
			_, err := m.Factorize()

			Convey("Then it fails with a shape error", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestGaussSeidel(t *testing.T) {
	Convey("Given a diagonally dominant system", t, func() {
		m := linalg.NewMatrix(3, 3)
		m.Set(0, 0, 4)
		m.Set(0, 1, 1)
		m.Set(0, 2, 1)
		m.Set(1, 0, 1)
		m.Set(1, 1, 5)
		m.Set(1, 2, 2)
		m.Set(2, 0, 1)
		m.Set(2, 1, 2)
		m.Set(2, 2, 6)
		b := []float64{6, 8, 9}

		Convey("When iterating", func() {
			x, iterations, err := linalg.GaussSeidel(m, b, 1e-10, 200)
			So(err, ShouldBeNil)
			So(iterations, ShouldBeGreaterThan, 0)

			Convey("Then the iterate matches the direct solve", func() {
				f, err := m.Factorize()
				So(err, ShouldBeNil)
				direct, err := f.Solve(b)
				So(err, ShouldBeNil)
				for i := range x {
					So(x[i], ShouldAlmostEqual, direct[i], 1e-8)
				}
			})
		})

		Convey("When the iteration cap is too small", func() {
			_, iterations, err := linalg.GaussSeidel(m, b, 1e-14, 1)

			Convey("Then it reports non-convergence with the best iterate", func() {
				So(err, ShouldNotBeNil)
				So(iterations, ShouldEqual, 1)
			})
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given matrices of known rank", t, func() {
		Convey("A full-rank 3x3 has rank 3", func() {
			m := linalg.NewMatrix(3, 3)
			m.Set(0, 0, 1)
			m.Set(1, 1, 2)
			m.Set(2, 2, 3)
			So(m.Rank(1e-10), ShouldEqual, 3)
		})

		Convey("A matrix with a duplicated row drops rank", func() {
			m := linalg.NewMatrix(3, 3)
			for j := 0; j < 3; j++ {
				m.Set(0, j, float64(j+1))
				m.Set(1, j, float64(j+1))
				m.Set(2, j, float64(2*j))
			}
			So(m.Rank(1e-10), ShouldEqual, 2)
		})

		Convey("The zero matrix has rank 0", func() {
			So(linalg.NewMatrix(2, 2).Rank(1e-10), ShouldEqual, 0)
		})
	})
}

func TestSolveLeastSquares(t *testing.T) {
	Convey("Given an overdetermined consistent system", t, func() {
		// Fit y = 2x from three exact samples.
		a := linalg.NewMatrix(3, 1)
		a.Set(0, 0, 1)
		a.Set(1, 0, 2)
		a.Set(2, 0, 3)
		b := []float64{2, 4, 6}

		Convey("When solving in the least-squares sense", func() {
			x, err := linalg.SolveLeastSquares(a, b, 1e-12)
			So(err, ShouldBeNil)

			Convey("Then the exact coefficient is recovered", func() {
				So(x[0], ShouldAlmostEqual, 2, 1e-6)
			})
		})
	})

	Convey("Given a noisy overdetermined system", t, func() {
		a := linalg.NewMatrix(4, 2)
		b := make([]float64, 4)
		points := [][2]float64{{0, 1.1}, {1, 2.9}, {2, 5.05}, {3, 6.95}}
		for i, p := range points {
			a.Set(i, 0, p[0])
			a.Set(i, 1, 1)
			b[i] = p[1]
		}

		Convey("When fitting slope and intercept", func() {
			x, err := linalg.SolveLeastSquares(a, b, 1e-12)
			So(err, ShouldBeNil)

			Convey("Then the fit is close to the generating line", func() {
				So(x[0], ShouldAlmostEqual, 2, 0.1)
				So(x[1], ShouldAlmostEqual, 1, 0.2)
			})
		})
	})
}

func TestMatrixHelpers(t *testing.T) {
	Convey("Given a matrix", t, func() {
		m := linalg.NewMatrix(2, 3)
		m.Set(0, 1, 5)
		m.Set(1, 2, -2)

		Convey("Transpose swaps indices", func() {
			tr := m.Transpose()
			So(tr.Rows(), ShouldEqual, 3)
			So(tr.Cols(), ShouldEqual, 2)
			So(tr.At(1, 0), ShouldEqual, 5)
			So(tr.At(2, 1), ShouldEqual, -2)
		})

		Convey("MulVec rejects mismatched lengths", func() {
			_, err := m.MulVec([]float64{1, 2})
			So(err, ShouldNotBeNil)
		})

		Convey("MulVec multiplies", func() {
			out, err := m.MulVec([]float64{1, 2, 3})
			So(err, ShouldBeNil)
			So(out[0], ShouldEqual, 10)
			So(out[1], ShouldEqual, -6)
		})
	})

	Convey("Given symmetry checks", t, func() {
		s := linalg.NewMatrix(2, 2)
		s.Set(0, 1, 3)
		s.Set(1, 0, 3+1e-12)

		So(s.IsSymmetric(1e-9), ShouldBeTrue)
		So(s.IsSymmetric(1e-15), ShouldBeFalse)
		So(linalg.NewMatrix(2, 3).IsSymmetric(1e-9), ShouldBeFalse)
	})
}

func TestEigenvalues(t *testing.T) {
	Convey("Given a diagonal matrix", t, func() {
		m := linalg.NewMatrix(3, 3)
		m.Set(0, 0, 1)
		m.Set(1, 1, 5)
		m.Set(2, 2, 3)

		Convey("When computing eigenvalues", func() {
			ev, err := linalg.Eigenvalues(m)
			So(err, ShouldBeNil)
			So(len(ev), ShouldEqual, 3)

			Convey("Then they are the diagonal sorted by real part descending", func() {
				So(real(ev[0]), ShouldAlmostEqual, 5, 1e-8)
				So(real(ev[1]), ShouldAlmostEqual, 3, 1e-8)
				So(real(ev[2]), ShouldAlmostEqual, 1, 1e-8)
				for _, v := range ev {
					So(imag(v), ShouldAlmostEqual, 0, 1e-8)
				}
			})
		})
	})

	Convey("Given a rotation generator", t, func() {
		// [[0,-1],[1,0]] has eigenvalues +/- i.
		m := linalg.NewMatrix(2, 2)
		m.Set(0, 1, -1)
		m.Set(1, 0, 1)

		Convey("When computing eigenvalues", func() {
			ev, err := linalg.Eigenvalues(m)
			So(err, ShouldBeNil)
			So(len(ev), ShouldEqual, 2)

			Convey("Then a conjugate imaginary pair comes back", func() {
				So(real(ev[0]), ShouldAlmostEqual, 0, 1e-8)
				So(real(ev[1]), ShouldAlmostEqual, 0, 1e-8)
				So(math.Abs(imag(ev[0])), ShouldAlmostEqual, 1, 1e-8)
				So(imag(ev[0]), ShouldAlmostEqual, -imag(ev[1]), 1e-8)
			})
		})
	})

	Convey("Given a defective-looking general matrix", t, func() {
		// Companion matrix of x^2 - 3x + 2: eigenvalues 2 and 1.
		m := linalg.NewMatrix(2, 2)
		m.Set(0, 0, 3)
		m.Set(0, 1, -2)
		m.Set(1, 0, 1)

		Convey("When computing eigenvalues", func() {
			ev, err := linalg.Eigenvalues(m)
			So(err, ShouldBeNil)

			Convey("Then the characteristic roots come back", func() {
				So(real(ev[0]), ShouldAlmostEqual, 2, 1e-8)
				So(real(ev[1]), ShouldAlmostEqual, 1, 1e-8)
			})
		})
	})
}
