// Package massey implements the weighted least-squares rating solver: find
// ratings whose pairwise differences best explain weighted score margins.
//
// The solver builds the full design matrix (one row per game, +1/-1 per
// team), forms the weighted normal equations, pins the otherwise-singular
// system with a sum constraint, and solves directly via LUP decomposition
// with Gauss-Seidel as the fallback. Numerical trouble never reaches the
// caller; it degrades the solve and shows up in logs and metrics.
package massey

import (
	"context"
	"math"
	"time"

	"github.com/courtline/ratings/internal/domain/linalg"
	"github.com/courtline/ratings/internal/domain/model"
	"github.com/courtline/ratings/internal/domain/sport"
	"github.com/courtline/ratings/internal/domain/store"
	"github.com/courtline/ratings/pkg/logger"
	"github.com/courtline/ratings/pkg/metrics"
)

// Default solver configuration constants.
const (
	defaultMinGames      = 10
	defaultMaxIterations = 100
	defaultConvergence   = 1e-6

	// orthogonalityTol bounds |Xᵀ(y - Xr)| in the residual check.
	orthogonalityTol = 1e-6

	// rankTol is the pivot threshold for the design-matrix rank estimate.
	rankTol = 1e-10

	// lstsqDamping is the Tikhonov term for the pseudo-inverse fallback.
	lstsqDamping = 1e-8

	// Display normalization range.
	displayBase = 50.0
	displaySpan = 50.0
)

// Solver computes least-squares ratings from a game-set snapshot. It is a
// pure function of the snapshot; the same snapshot always yields the same
// vector bit for bit.
type Solver struct {
	policy        sport.Policy
	minGames      int
	maxIterations int
	convergence   float64
	reference     float64
	log           logger.Logger
}

// New creates a Solver for the given sport policy.
func New(policy sport.Policy, opts ...Option) *Solver {
	s := &Solver{
		policy:        policy,
		minGames:      defaultMinGames,
		maxIterations: defaultMaxIterations,
		convergence:   defaultConvergence,
		reference:     0,
		log:           logger.Named("massey"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve produces the least-squares rating vector for the snapshot. Fewer
// than the minimum number of games yields an empty vector, never an error.
func (s *Solver) Solve(ctx context.Context, snap *store.Snapshot) *model.RatingVector {
	start := time.Now()
	defer func() {
		metrics.RecordSolveDuration(string(model.Massey), float64(time.Since(start).Milliseconds()))
	}()
	metrics.RecordSolverRun(string(model.Massey))

	vector := &model.RatingVector{
		Method:     model.Massey,
		SnapshotID: snap.ID,
		GameCount:  snap.GameCount(),
		Ratings:    map[string]float64{},
	}
	if snap.GameCount() < s.minGames {
		s.log.Warn(ctx, "not enough games for least-squares ratings",
			logger.Int("games", snap.GameCount()),
			logger.Int("min_games", s.minGames),
		)
		return vector
	}

	x, y, w := s.buildSystem(snap)
	r := s.solveNormalEquations(ctx, snap, x, y, w)

	s.verifyOrthogonality(ctx, x, y, w, r)

	for team, i := range snap.Index {
		vector.Ratings[team] = r[i]
	}
	return vector
}

// buildSystem assembles the design matrix X, the transformed response y and
// the per-game weights.
func (s *Solver) buildSystem(snap *store.Snapshot) (x *linalg.Matrix, y, w []float64) {
	nGames := snap.GameCount()
	nTeams := snap.TeamCount()

	x = linalg.NewMatrix(nGames, nTeams)
	y = make([]float64, nGames)
	w = make([]float64, nGames)

	for i, g := range snap.Games {
		x.Set(i, snap.Index[g.TeamA], 1)
		x.Set(i, snap.Index[g.TeamB], -1)

		margin := g.Margin()
		if g.HomeA {
			// Home edge is removed before the transform; the convention is
			// fixed per sport in the policy, not per call site.
			margin -= snap.Policy.HomeAdvantage
		}
		y[i] = snap.Policy.Transform(margin)
		w[i] = snap.Weight[i]
	}
	return x, y, w
}

// solveNormalEquations forms XᵀWX r = XᵀWy, injects the sum constraint and
// solves directly, degrading to the documented fallbacks on the way down.
func (s *Solver) solveNormalEquations(ctx context.Context, snap *store.Snapshot, x *linalg.Matrix, y, w []float64) []float64 {
	nTeams := snap.TeamCount()

	// Rank check on the raw design matrix. A connected schedule graph gives
	// rank active-1 (the all-ones null vector); anything lower means the
	// schedule is disconnected and the system is under-determined beyond the
	// usual additive constant.
	active := 0
	for _, n := range snap.Played {
		if n > 0 {
			active++
		}
	}
	if rank := x.Rank(rankTol); active > 1 && rank < active-1 {
		s.log.Warn(ctx, "design matrix is rank deficient; solving via pseudo-inverse",
			logger.Int("rank", rank),
			logger.Int("active_teams", active),
		)
		metrics.RecordRankDeficiency()
		metrics.RecordSolverFallback(string(model.Massey), "pseudo_inverse")
		if r, err := s.solvePseudoInverse(x, y, w, nTeams); err == nil {
			return r
		}
		// Keep going; the constrained direct solve may still succeed.
	}

	m, p := s.normalEquations(x, y, w, nTeams)

	if !m.IsSymmetric(orthogonalityTol) {
		// The unconstrained XᵀWX is symmetric by construction; anything else
		// means the build is broken, which is worth a loud log line.
		s.log.Error(ctx, "normal-equations matrix is not symmetric")
	}

	// Constraint injection: ratings are identifiable only up to an additive
	// constant, so overwrite the last row with the sum constraint.
	for j := 0; j < nTeams; j++ {
		m.Set(nTeams-1, j, 1)
	}
	p[nTeams-1] = float64(nTeams) * s.reference

	if f, err := m.Factorize(); err == nil {
		if r, err := f.Solve(p); err == nil {
			return r
		}
	}

	s.log.Warn(ctx, "direct solve failed; falling back to gauss-seidel")
	metrics.RecordSolverFallback(string(model.Massey), "gauss_seidel")
	r, iterations, err := linalg.GaussSeidel(m, p, s.convergence, s.maxIterations)
	metrics.RecordSolverIterations(string(model.Massey), iterations)
	if err != nil {
		s.log.Warn(ctx, "gauss-seidel did not converge",
			logger.Int("iterations", iterations),
			logger.Error(err),
		)
	} else {
		s.log.Info(ctx, "gauss-seidel converged", logger.Int("iterations", iterations))
	}
	return r
}

// normalEquations computes XᵀWX and XᵀWy without the constraint row.
func (s *Solver) normalEquations(x *linalg.Matrix, y, w []float64, nTeams int) (*linalg.Matrix, []float64) {
	m := linalg.NewMatrix(nTeams, nTeams)
	p := make([]float64, nTeams)
	for g := 0; g < x.Rows(); g++ {
		for a := 0; a < nTeams; a++ {
			xa := x.At(g, a)
			if xa == 0 {
				continue
			}
			p[a] += xa * w[g] * y[g]
			for b := 0; b < nTeams; b++ {
				if xb := x.At(g, b); xb != 0 {
					m.Add(a, b, xa*w[g]*xb)
				}
			}
		}
	}
	return m, p
}

// solvePseudoInverse solves the weighted system in least-squares sense with
// an extra sum-constraint row, used when the schedule graph is disconnected.
func (s *Solver) solvePseudoInverse(x *linalg.Matrix, y, w []float64, nTeams int) ([]float64, error) {
	rows := x.Rows() + 1
	aw := linalg.NewMatrix(rows, nTeams)
	bw := make([]float64, rows)
	for g := 0; g < x.Rows(); g++ {
		sw := math.Sqrt(w[g])
		for j := 0; j < nTeams; j++ {
			aw.Set(g, j, sw*x.At(g, j))
		}
		bw[g] = sw * y[g]
	}
	for j := 0; j < nTeams; j++ {
		aw.Set(rows-1, j, 1)
	}
	bw[rows-1] = float64(nTeams) * s.reference
	return linalg.SolveLeastSquares(aw, bw, lstsqDamping)
}

// verifyOrthogonality checks Xᵀ(y - Xr) ≈ 0, the geometric proof that the
// solution is a true least-squares minimum. Diagnostic only.
func (s *Solver) verifyOrthogonality(ctx context.Context, x *linalg.Matrix, y, w, r []float64) {
	xr, err := x.MulVec(r)
	if err != nil {
		return
	}
	nTeams := x.Cols()
	worst := 0.0
	for j := 0; j < nTeams; j++ {
		var dot float64
		for g := 0; g < x.Rows(); g++ {
			dot += x.At(g, j) * w[g] * (y[g] - xr[g])
		}
		if a := math.Abs(dot); a > worst {
			worst = a
		}
	}
	// The constraint row shifts the solution slightly off the unconstrained
	// optimum, so the check uses a loose tolerance.
	if worst > orthogonalityTol*float64(x.Rows()+1)*100 {
		s.log.Warn(ctx, "residual not orthogonal to column space",
			logger.Float64("max_component", worst),
		)
		metrics.RecordResidualWarning()
	}
}

// Normalize rescales ratings into the display range, lowest at the base and
// highest at base+span. Cosmetic only; it never feeds back into a solve.
func Normalize(ratings map[string]float64) map[string]float64 {
	if len(ratings) == 0 {
		return map[string]float64{}
	}
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, v := range ratings {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	out := make(map[string]float64, len(ratings))
	if hi == lo {
		for t := range ratings {
			out[t] = displayBase
		}
		return out
	}
	for t, v := range ratings {
		out[t] = displayBase + displaySpan*(v-lo)/(hi-lo)
	}
	return out
}

// Blend mixes freshly solved ratings with a preseason prior on a linear
// ramp: full prior at zero games, pure current ratings once every team has
// the minimum game count. There is no discontinuity anywhere on the ramp.
func Blend(current, preseason map[string]float64, gamesPlayed, minGames, nTeams int) map[string]float64 {
	if len(preseason) == 0 || len(current) == 0 {
		return current
	}
	den := float64(minGames * nTeams)
	if den <= 0 {
		return current
	}
	gw := math.Min(1, float64(gamesPlayed)/den)
	out := make(map[string]float64, len(current))
	for t, c := range current {
		p, ok := preseason[t]
		if !ok {
			out[t] = c
			continue
		}
		out[t] = gw*c + (1-gw)*p
	}
	return out
}

// Predict converts a rating difference into a win probability and a point
// margin for the matchup. The home edge is added unless the site is neutral.
func (s *Solver) Predict(ratings map[string]float64, teamA, teamB string, neutralSite bool) (model.Prediction, bool) {
	ra, okA := ratings[teamA]
	rb, okB := ratings[teamB]
	if !okA || !okB {
		return model.Prediction{}, false
	}
	diff := ra - rb
	if !neutralSite {
		diff += s.policy.HomeAdvantage
	}
	return model.Prediction{
		WinProbability: 1 / (1 + math.Exp(-diff/s.policy.ProbabilityScale)),
		Margin:         diff * s.policy.MarginFactor,
	}, true
}
