// Package mle implements the Bradley-Terry maximum-likelihood rating solver:
// fit ratings r so that P(i beats j) = 1/(1+exp(r_j - r_i)) maximizes the
// weighted log-likelihood of observed binary outcomes.
//
// The solver runs a damped Newton method. When the Hessian is ill
// conditioned it takes diagonal-only steps, and when the Hessian solve fails
// outright it switches to the fixed-point iteration that is the stationary
// condition of the likelihood. Every degradation is logged, never raised.
package mle

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/courtline/ratings/internal/domain/linalg"
	"github.com/courtline/ratings/internal/domain/model"
	"github.com/courtline/ratings/internal/domain/store"
	"github.com/courtline/ratings/pkg/logger"
	"github.com/courtline/ratings/pkg/metrics"
)

// Default solver configuration constants.
const (
	defaultMaxIterations = 100
	defaultTolerance     = 1e-6
	defaultStepRatio     = 2.0
	defaultSeed          = 42

	// initSpread is the standard deviation of the random starting point.
	initSpread = 0.1
)

// Solver fits Bradley-Terry ratings from a game-set snapshot. Runs are
// deterministic for a fixed seed; two runs on the same snapshot converge to
// equivalent optima within the tolerance either way.
type Solver struct {
	maxIterations int
	tol           float64
	stepRatio     float64
	seed          int64
	log           logger.Logger
}

// New creates a Solver.
func New(opts ...Option) *Solver {
	s := &Solver{
		maxIterations: defaultMaxIterations,
		tol:           defaultTolerance,
		stepRatio:     defaultStepRatio,
		seed:          defaultSeed,
		log:           logger.Named("mle"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve fits the rating vector. The final ratings are shifted so the minimum
// is zero; the shift is cosmetic.
func (s *Solver) Solve(ctx context.Context, snap *store.Snapshot) *model.RatingVector {
	start := time.Now()
	defer func() {
		metrics.RecordSolveDuration(string(model.MLE), float64(time.Since(start).Milliseconds()))
	}()
	metrics.RecordSolverRun(string(model.MLE))

	vector := &model.RatingVector{
		Method:     model.MLE,
		SnapshotID: snap.ID,
		GameCount:  snap.GameCount(),
		Ratings:    map[string]float64{},
	}
	n := snap.TeamCount()
	if n == 0 || snap.GameCount() == 0 {
		return vector
	}

	rng := rand.New(rand.NewSource(s.seed)) //nolint:gosec // deterministic seed for reproducible starting point
	r := make([]float64, n)
	for i := range r {
		r[i] = rng.NormFloat64() * initSpread
	}

	r = s.newton(ctx, snap, r)

	// Shift so the minimum rating is zero.
	lo := r[0]
	for _, v := range r[1:] {
		lo = math.Min(lo, v)
	}
	for team, i := range snap.Index {
		vector.Ratings[team] = r[i] - lo
	}
	return vector
}

// newton runs the damped Newton iteration, falling back to fixed-point
// iteration when the Hessian solve fails.
func (s *Solver) newton(ctx context.Context, snap *store.Snapshot, r []float64) []float64 {
	n := len(r)
	iterations := 0
	defer func() {
		metrics.RecordSolverIterations(string(model.MLE), iterations)
	}()

	for iterations = 1; iterations <= s.maxIterations; iterations++ {
		grad, hess := s.gradientAndHessian(snap, r)

		// Pin the gauge freedom: constrain the ratings to sum to zero.
		sum := 0.0
		for _, v := range r {
			sum += v
		}
		grad[n-1] = sum
		for j := 0; j < n; j++ {
			hess.Set(n-1, j, 1)
			hess.Set(j, n-1, 1)
		}

		// Step-size safeguard: with a lopsided gradient/curvature ratio the
		// full Newton step can diverge, so fall back to the diagonal step.
		q1, q2 := gradientRatios(grad, hess)
		var delta []float64
		if q1 > s.stepRatio*q2 {
			delta = make([]float64, n)
			for i := range delta {
				d := hess.At(i, i)
				if d == 0 {
					continue
				}
				delta[i] = -grad[i] / d
			}
		} else {
			f, err := hess.Factorize()
			if err == nil {
				neg := make([]float64, n)
				for i := range neg {
					neg[i] = -grad[i]
				}
				delta, err = f.Solve(neg)
			}
			if err != nil {
				s.log.Warn(ctx, "hessian solve failed; switching to fixed-point iteration", logger.Error(err))
				metrics.RecordSolverFallback(string(model.MLE), "fixed_point")
				return s.fixedPoint(ctx, snap, r)
			}
		}

		maxStep := 0.0
		for i := range r {
			r[i] += delta[i]
			maxStep = math.Max(maxStep, math.Abs(delta[i]))
		}
		if maxStep < s.tol {
			return r
		}
	}
	s.log.Warn(ctx, "newton iteration hit the cap without converging",
		logger.Int("max_iterations", s.maxIterations),
	)
	return r
}

// gradientAndHessian accumulates the weighted log-likelihood derivatives
// over all games.
func (s *Solver) gradientAndHessian(snap *store.Snapshot, r []float64) ([]float64, *linalg.Matrix) {
	n := len(r)
	grad := make([]float64, n)
	hess := linalg.NewMatrix(n, n)

	for gi, g := range snap.Games {
		i := snap.Index[g.TeamA]
		j := snap.Index[g.TeamB]
		w := snap.Weight[gi]

		p := 1 / (1 + math.Exp(-(r[i] - r[j])))
		y := 0.0
		if g.ScoreA > g.ScoreB {
			y = 1.0
		}

		grad[i] += w * (y - p)
		grad[j] += w * (p - y)

		h := w * p * (1 - p)
		hess.Add(i, i, h)
		hess.Add(j, j, h)
		hess.Add(i, j, -h)
		hess.Add(j, i, -h)
	}
	return grad, hess
}

// gradientRatios returns the largest and smallest |grad_i / hess_ii|.
func gradientRatios(grad []float64, hess *linalg.Matrix) (q1, q2 float64) {
	q1 = 0.0
	q2 = math.Inf(1)
	for i := range grad {
		d := hess.At(i, i)
		if d == 0 {
			continue
		}
		q := math.Abs(grad[i] / d)
		q1 = math.Max(q1, q)
		q2 = math.Min(q2, q)
	}
	if math.IsInf(q2, 1) {
		q2 = 0
	}
	return q1, q2
}

// fixedPoint iterates r_i <- log(wins_i / expected_wins_i), the stationary
// condition of the weighted likelihood. Converges under mild connectivity
// assumptions on the schedule graph.
func (s *Solver) fixedPoint(ctx context.Context, snap *store.Snapshot, r []float64) []float64 {
	n := len(r)
	for iter := 1; iter <= s.maxIterations; iter++ {
		maxStep := 0.0
		for i := 0; i < n; i++ {
			num := 0.0
			den := 0.0
			for gi, g := range snap.Games {
				var opp int
				var won bool
				switch i {
				case snap.Index[g.TeamA]:
					opp = snap.Index[g.TeamB]
					won = g.ScoreA > g.ScoreB
				case snap.Index[g.TeamB]:
					opp = snap.Index[g.TeamA]
					won = g.ScoreB > g.ScoreA
				default:
					continue
				}
				w := snap.Weight[gi]
				p := 1 / (1 + math.Exp(r[opp]-r[i]))
				if won {
					num += w
				}
				den += w * p
			}
			if num > 0 && den > 0 {
				next := math.Log(num / den)
				maxStep = math.Max(maxStep, math.Abs(next-r[i]))
				r[i] = next
			}
		}
		if maxStep < s.tol {
			s.log.Info(ctx, "fixed-point iteration converged", logger.Int("iterations", iter))
			return r
		}
	}
	s.log.Warn(ctx, "fixed-point iteration hit the cap without converging",
		logger.Int("max_iterations", s.maxIterations),
	)
	return r
}

// WinProbability evaluates the fitted logistic model for a matchup.
func WinProbability(ratings map[string]float64, teamA, teamB string) (float64, bool) {
	ra, okA := ratings[teamA]
	rb, okB := ratings[teamB]
	if !okA || !okB {
		return 0, false
	}
	return 1 / (1 + math.Exp(rb-ra)), true
}
