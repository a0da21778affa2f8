// Package sport defines per-sport tuning as a plain value injected into the
// engine at construction. There is no sport hierarchy; everything that varies
// between sports lives in a Policy.
package sport

import (
	"fmt"
	"math"
	"strings"
)

// Transform maps a raw score margin to the response value used by the
// least-squares solver. It must be concave in |margin| so blowouts do not
// dominate the ratings linearly.
type Transform func(margin float64) float64

// Policy bundles the sport-specific constants consumed by the solvers.
type Policy struct {
	// Name identifies the sport, e.g. "basketball".
	Name string

	// HomeAdvantage is subtracted from the home team's raw margin before
	// the transform is applied. The pre-transform convention is fixed for
	// every sport here.
	HomeAdvantage float64

	// MarginFactor converts a rating difference into a predicted margin.
	MarginFactor float64

	// CloseGameMargin is the |margin| at or below which a game counts as
	// close and earns the closeness weight bonus.
	CloseGameMargin float64

	// ProbabilityScale is the logistic divisor turning a rating difference
	// into a win probability: p = 1/(1+exp(-diff/scale)).
	ProbabilityScale float64

	// ReferenceRating anchors rating sums for the Markov analyzer, in the
	// classic Elo convention.
	ReferenceRating float64

	// MarginTransform is the diminishing-returns function for the
	// least-squares response. Defaults to SignedSqrt when nil.
	MarginTransform Transform
}

// Transform applies the configured margin transform, falling back to the
// signed square root.
func (p Policy) Transform(margin float64) float64 {
	if p.MarginTransform != nil {
		return p.MarginTransform(margin)
	}
	return SignedSqrt(margin)
}

// SignedSqrt is the default diminishing-returns transform.
func SignedSqrt(margin float64) float64 {
	if margin < 0 {
		return -math.Sqrt(-margin)
	}
	return math.Sqrt(margin)
}

// CappedSigmoid returns a transform that saturates at +/-cap. Used by
// high-scoring sports where even the square root grows too fast.
func CappedSigmoid(cap, scale float64) Transform {
	return func(margin float64) float64 {
		return cap * math.Tanh(margin/scale)
	}
}

// Basketball returns the policy used for NBA-style basketball.
func Basketball() Policy {
	return Policy{
		Name:             "basketball",
		HomeAdvantage:    3.0,
		MarginFactor:     1.0,
		CloseGameMargin:  10.0,
		ProbabilityScale: 8.0,
		ReferenceRating:  1500.0,
	}
}

// Football returns the policy used for NFL-style football.
func Football() Policy {
	return Policy{
		Name:             "football",
		HomeAdvantage:    2.5,
		MarginFactor:     1.2,
		CloseGameMargin:  7.0,
		ProbabilityScale: 6.0,
		ReferenceRating:  1500.0,
	}
}

// Baseball returns the policy used for MLB-style baseball. Margins are small
// and noisy, so the transform saturates early.
func Baseball() Policy {
	return Policy{
		Name:             "baseball",
		HomeAdvantage:    0.2,
		MarginFactor:     0.6,
		CloseGameMargin:  2.0,
		ProbabilityScale: 2.5,
		ReferenceRating:  1500.0,
		MarginTransform:  CappedSigmoid(3.0, 4.0),
	}
}

// ByName resolves a policy from its configured name.
func ByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "basketball", "nba":
		return Basketball(), nil
	case "football", "nfl":
		return Football(), nil
	case "baseball", "mlb":
		return Baseball(), nil
	default:
		return Policy{}, fmt.Errorf("unknown sport: %s", name)
	}
}
