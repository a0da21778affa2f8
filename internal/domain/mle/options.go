// Package mle implements the Bradley-Terry maximum-likelihood rating solver.
package mle

// Option applies a configuration option to the Solver.
type Option func(*Solver)

// WithMaxIterations caps both the Newton loop and the fixed-point fallback.
func WithMaxIterations(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

// WithTolerance sets the convergence tolerance on the step size.
func WithTolerance(tol float64) Option {
	return func(s *Solver) {
		if tol > 0 {
			s.tol = tol
		}
	}
}

// WithSeed fixes the pseudo-random seed used for the Newton starting point,
// making runs bit-for-bit reproducible.
func WithSeed(seed int64) Option {
	return func(s *Solver) {
		s.seed = seed
	}
}

// WithStepRatio sets the gradient/Hessian ratio above which the solver takes
// a damped diagonal-only step instead of the full Newton step.
func WithStepRatio(c float64) Option {
	return func(s *Solver) {
		if c > 1 {
			s.stepRatio = c
		}
	}
}
