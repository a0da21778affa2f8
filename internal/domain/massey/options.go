// Package massey implements the weighted least-squares rating solver.
package massey

// Option applies a configuration option to the Solver.
type Option func(*Solver)

// WithMinGames sets the minimum total games before ratings are produced.
func WithMinGames(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.minGames = n
		}
	}
}

// WithMaxIterations caps the Gauss-Seidel fallback.
func WithMaxIterations(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

// WithConvergenceThreshold sets the iterative convergence tolerance.
func WithConvergenceThreshold(tol float64) Option {
	return func(s *Solver) {
		if tol > 0 {
			s.convergence = tol
		}
	}
}

// WithReferenceRating pins the constrained rating sum to
// teams * reference instead of zero.
func WithReferenceRating(reference float64) Option {
	return func(s *Solver) {
		s.reference = reference
	}
}
