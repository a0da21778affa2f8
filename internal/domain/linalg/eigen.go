package linalg

import (
	"fmt"
	"math"
	"sort"
)

// hqrMaxIterations bounds the QR sweeps per eigenvalue, matching the classic
// EISPACK limit.
const hqrMaxIterations = 30

// Eigenvalues computes all eigenvalues of a general (not necessarily
// symmetric) square matrix: elimination-based Hessenberg reduction followed
// by the Francis double-shift QR algorithm. The result is sorted by real
// part, descending.
//
// The implementation is a port of the EISPACK elmhes/hqr pair and keeps
// their one-based indexing internally; a is padded by one row and column so
// the loop structure matches the reference exactly.
func Eigenvalues(m *Matrix) ([]complex128, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("%w: eigenvalues of %dx%d", ErrShape, m.rows, m.cols)
	}
	n := m.rows
	if n == 0 {
		return nil, nil
	}
	if n == 1 {
		return []complex128{complex(m.At(0, 0), 0)}, nil
	}

	// One-based padded working copy.
	a := make([][]float64, n+1)
	for i := 1; i <= n; i++ {
		a[i] = make([]float64, n+1)
		for j := 1; j <= n; j++ {
			a[i][j] = m.At(i-1, j-1)
		}
	}

	elmhes(a, n)
	wr, wi, err := hqr(a, n)
	if err != nil {
		return nil, err
	}

	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		out[i] = complex(wr[i+1], wi[i+1])
	}
	sort.Slice(out, func(i, j int) bool {
		if real(out[i]) != real(out[j]) {
			return real(out[i]) > real(out[j])
		}
		return imag(out[i]) > imag(out[j])
	})
	return out, nil
}

// elmhes reduces a (one-based) to upper Hessenberg form by stabilized
// elementary similarity transformations.
func elmhes(a [][]float64, n int) {
	for m := 2; m < n; m++ {
		x := 0.0
		i := m
		for j := m; j <= n; j++ {
			if math.Abs(a[j][m-1]) > math.Abs(x) {
				x = a[j][m-1]
				i = j
			}
		}
		if i != m {
			for j := m - 1; j <= n; j++ {
				a[i][j], a[m][j] = a[m][j], a[i][j]
			}
			for j := 1; j <= n; j++ {
				a[j][i], a[j][m] = a[j][m], a[j][i]
			}
		}
		if x != 0 {
			for i := m + 1; i <= n; i++ {
				y := a[i][m-1]
				if y != 0 {
					y /= x
					a[i][m-1] = y
					for j := m; j <= n; j++ {
						a[i][j] -= y * a[m][j]
					}
					for j := 1; j <= n; j++ {
						a[j][m] += y * a[j][i]
					}
				}
			}
		}
	}
	// Multipliers were stored below the subdiagonal; hqr treats them as zero.
	for i := 3; i <= n; i++ {
		for j := 1; j <= i-2; j++ {
			a[i][j] = 0
		}
	}
}

// hqr finds all eigenvalues of a one-based upper Hessenberg matrix via the
// Francis double-shift QR iteration with exceptional shifts.
func hqr(a [][]float64, n int) (wr, wi []float64, err error) { //nolint:gocyclo // reference algorithm kept in one piece
	wr = make([]float64, n+1)
	wi = make([]float64, n+1)

	var p, q, r, s, t, u, v, w, x, y, z float64
	anorm := 0.0
	for i := 1; i <= n; i++ {
		lo := i - 1
		if lo < 1 {
			lo = 1
		}
		for j := lo; j <= n; j++ {
			anorm += math.Abs(a[i][j])
		}
	}

	nn := n
	t = 0.0
	for nn >= 1 {
		its := 0
		var l int
		for {
			for l = nn; l >= 2; l-- {
				s = math.Abs(a[l-1][l-1]) + math.Abs(a[l][l])
				if s == 0 {
					s = anorm
				}
				if math.Abs(a[l][l-1])+s == s {
					a[l][l-1] = 0
					break
				}
			}
			if l < 1 {
				l = 1
			}
			x = a[nn][nn]
			if l == nn {
				// One real root found.
				wr[nn] = x + t
				wi[nn] = 0
				nn--
			} else {
				y = a[nn-1][nn-1]
				w = a[nn][nn-1] * a[nn-1][nn]
				if l == nn-1 {
					// A 2x2 block: real pair or complex conjugates.
					p = 0.5 * (y - x)
					q = p*p + w
					z = math.Sqrt(math.Abs(q))
					x += t
					if q >= 0 {
						if p >= 0 {
							z = p + z
						} else {
							z = p - z
						}
						wr[nn-1] = x + z
						wr[nn] = x + z
						if z != 0 {
							wr[nn] = x - w/z
						}
						wi[nn-1] = 0
						wi[nn] = 0
					} else {
						wr[nn-1] = x + p
						wr[nn] = x + p
						wi[nn] = z
						wi[nn-1] = -z
					}
					nn -= 2
				} else {
					if its == hqrMaxIterations {
						return nil, nil, fmt.Errorf("%w: hqr exceeded %d sweeps", ErrNotConverged, hqrMaxIterations)
					}
					if its == 10 || its == 20 {
						// Exceptional shift.
						t += x
						for i := 1; i <= nn; i++ {
							a[i][i] -= x
						}
						s = math.Abs(a[nn][nn-1]) + math.Abs(a[nn-1][nn-2])
						x = 0.75 * s
						y = x
						w = -0.4375 * s * s
					}
					its++
					var m int
					for m = nn - 2; m >= l; m-- {
						z = a[m][m]
						r = x - z
						s = y - z
						p = (r*s-w)/a[m+1][m] + a[m][m+1]
						q = a[m+1][m+1] - z - r - s
						r = a[m+2][m+1]
						s = math.Abs(p) + math.Abs(q) + math.Abs(r)
						p /= s
						q /= s
						r /= s
						if m == l {
							break
						}
						u = math.Abs(a[m][m-1]) * (math.Abs(q) + math.Abs(r))
						v = math.Abs(p) * (math.Abs(a[m-1][m-1]) + math.Abs(z) + math.Abs(a[m+1][m+1]))
						if u+v == v {
							break
						}
					}
					for i := m + 2; i <= nn; i++ {
						a[i][i-2] = 0
						if i != m+2 {
							a[i][i-3] = 0
						}
					}
					for k := m; k <= nn-1; k++ {
						if k != m {
							p = a[k][k-1]
							q = a[k+1][k-1]
							r = 0
							if k != nn-1 {
								r = a[k+2][k-1]
							}
							x = math.Abs(p) + math.Abs(q) + math.Abs(r)
							if x != 0 {
								p /= x
								q /= x
								r /= x
							}
						}
						s = math.Sqrt(p*p + q*q + r*r)
						if p < 0 {
							s = -s
						}
						if s != 0 {
							if k == m {
								if l != m {
									a[k][k-1] = -a[k][k-1]
								}
							} else {
								a[k][k-1] = -s * x
							}
							p += s
							x = p / s
							y = q / s
							z = r / s
							q /= p
							r /= p
							for j := k; j <= nn; j++ {
								p = a[k][j] + q*a[k+1][j]
								if k != nn-1 {
									p += r * a[k+2][j]
									a[k+2][j] -= p * z
								}
								a[k+1][j] -= p * y
								a[k][j] -= p * x
							}
							mmin := nn
							if k+3 < mmin {
								mmin = k + 3
							}
							for i := l; i <= mmin; i++ {
								p = x*a[i][k] + y*a[i][k+1]
								if k != nn-1 {
									p += z * a[i][k+2]
									a[i][k+2] -= p * r
								}
								a[i][k+1] -= p * q
								a[i][k] -= p * x
							}
						}
					}
				}
			}
			if l >= nn-1 {
				break
			}
		}
	}
	return wr, wi, nil
}
