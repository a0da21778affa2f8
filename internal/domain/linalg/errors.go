package linalg

import "errors"

// Sentinel kinds for numerical failures. Callers treat all of these as
// recoverable and switch to a fallback path.
var (
	ErrSingular     = errors.New("matrix is singular")
	ErrNotConverged = errors.New("iteration did not converge")
	ErrShape        = errors.New("dimension mismatch")
)
