// Package markov implements the binary-rating analyzer: pairwise win ratios
// reinterpreted as a continuous-time Markov chain over teams.
//
// Three distinct ratings live here and are never silently merged:
//
//   - the classic sequential Elo update, order dependent by construction;
//   - the steady-state rating, a linear system over the win-ratio matrix;
//   - the equilibrium distribution of the chain's generator, the long-run
//     probability of each team "holding the ball".
//
// The analyzer also derives anti-ratings (relative weakness), an economic
// market-value decomposition, and spectral diagnostics of the generator.
package markov

import (
	"context"
	"math"
	"time"

	"github.com/courtline/ratings/internal/domain/linalg"
	"github.com/courtline/ratings/internal/domain/model"
	"github.com/courtline/ratings/internal/domain/store"
	"github.com/courtline/ratings/pkg/logger"
	"github.com/courtline/ratings/pkg/metrics"
)

// Default analyzer configuration constants.
const (
	defaultKFactor       = 32.0
	defaultInitialElo    = 1500.0
	defaultMaxIterations = 100
	defaultConvergence   = 1e-6
	eloScale             = 400.0

	// unmetRatio is the binary rating assigned to pairs that never met.
	unmetRatio = 0.5

	// lstsqDamping stabilizes the equilibrium least-squares solve.
	lstsqDamping = 1e-12

	// eloPointScale converts an Elo gap into an expected point margin.
	eloPointScale = 25.0
)

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithKFactor sets the Elo adjustment factor.
func WithKFactor(k float64) Option {
	return func(a *Analyzer) {
		if k > 0 {
			a.k = k
		}
	}
}

// WithReferenceRating sets the rating scale anchor (classic Elo 1500).
func WithReferenceRating(reference float64) Option {
	return func(a *Analyzer) {
		if reference > 0 {
			a.reference = reference
		}
	}
}

// WithMaxIterations caps the Gauss-Seidel fallback.
func WithMaxIterations(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithConvergenceThreshold sets the iterative convergence tolerance.
func WithConvergenceThreshold(tol float64) Option {
	return func(a *Analyzer) {
		if tol > 0 {
			a.convergence = tol
		}
	}
}

// Analyzer derives win-ratio based ratings from a game-set snapshot. Like
// the other solvers it is a pure function of the snapshot.
type Analyzer struct {
	k             float64
	reference     float64
	maxIterations int
	convergence   float64
	log           logger.Logger
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		k:             defaultKFactor,
		reference:     defaultInitialElo,
		maxIterations: defaultMaxIterations,
		convergence:   defaultConvergence,
		log:           logger.Named("markov"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// pairCounts tallies wins and meetings for every ordered team pair.
type pairCounts struct {
	wins     map[[2]int]float64 // wins[i over j] in index space
	meetings map[[2]int]float64 // games between i and j, unordered count mirrored both ways
}

func countPairs(snap *store.Snapshot) *pairCounts {
	pc := &pairCounts{
		wins:     make(map[[2]int]float64),
		meetings: make(map[[2]int]float64),
	}
	for _, g := range snap.Games {
		i := snap.Index[g.TeamA]
		j := snap.Index[g.TeamB]
		pc.meetings[[2]int{i, j}]++
		pc.meetings[[2]int{j, i}]++
		switch {
		case g.ScoreA > g.ScoreB:
			pc.wins[[2]int{i, j}]++
		case g.ScoreB > g.ScoreA:
			pc.wins[[2]int{j, i}]++
		default:
			// Ties split evenly: half a win to each side.
			pc.wins[[2]int{i, j}] += 0.5
			pc.wins[[2]int{j, i}] += 0.5
		}
	}
	return pc
}

// binary returns b[i,j]: wins of i over j divided by games between them,
// defaulting to 0.5 when the pair never met.
func (pc *pairCounts) binary(i, j int) float64 {
	total := pc.meetings[[2]int{i, j}]
	if total == 0 {
		return unmetRatio
	}
	return pc.wins[[2]int{i, j}] / total
}

// BinaryRating returns the empirical win ratio of teamA over teamB.
func (a *Analyzer) BinaryRating(snap *store.Snapshot, teamA, teamB string) float64 {
	i, okA := snap.Index[teamA]
	j, okB := snap.Index[teamB]
	if !okA || !okB {
		return unmetRatio
	}
	return countPairs(snap).binary(i, j)
}

// EloRatings runs the classic sequential update r <- r + K(actual-expected)
// over the games in insertion order, which the store keeps chronological for
// a live feed. This is deliberately order dependent and is a separate rating
// from the steady state below.
func (a *Analyzer) EloRatings(snap *store.Snapshot) map[string]float64 {
	ratings := make(map[string]float64, snap.TeamCount())
	for _, t := range snap.Teams {
		ratings[t] = a.reference
	}
	for _, g := range snap.Games {
		ra := ratings[g.TeamA]
		rb := ratings[g.TeamB]
		expected := 1 / (1 + math.Pow(10, (rb-ra)/eloScale))

		var actual float64
		switch {
		case g.ScoreA > g.ScoreB:
			actual = 1.0
		case g.ScoreA < g.ScoreB:
			actual = 0.0
		default:
			actual = 0.5
		}

		delta := a.k * (actual - expected)
		ratings[g.TeamA] += delta
		ratings[g.TeamB] -= delta
	}
	return ratings
}

// SteadyStateRatings solves r_i = Σ_j b_ij r_j as a linear system with the
// usual sum constraint, using the same direct-then-iterative strategy as the
// least-squares solver. The constrained sum is teams * reference.
func (a *Analyzer) SteadyStateRatings(ctx context.Context, snap *store.Snapshot) *model.RatingVector {
	start := time.Now()
	defer func() {
		metrics.RecordSolveDuration(string(model.Markov), float64(time.Since(start).Milliseconds()))
	}()
	metrics.RecordSolverRun(string(model.Markov))

	vector := &model.RatingVector{
		Method:     model.Markov,
		SnapshotID: snap.ID,
		GameCount:  snap.GameCount(),
		Ratings:    map[string]float64{},
	}
	n := snap.TeamCount()
	if n == 0 || snap.GameCount() == 0 {
		return vector
	}
	pc := countPairs(snap)

	m := linalg.NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				m.Set(i, i, -1)
				continue
			}
			m.Set(i, j, pc.binary(i, j))
		}
	}
	// Sum constraint pins the scale.
	for j := 0; j < n; j++ {
		m.Set(n-1, j, 1)
	}
	b := make([]float64, n)
	b[n-1] = float64(n) * a.reference

	r, err := a.solve(ctx, m, b)
	if err != nil {
		// Degenerate system: fall back to the sequential Elo view.
		a.log.Warn(ctx, "steady-state solve failed; falling back to sequential elo", logger.Error(err))
		metrics.RecordSolverFallback(string(model.Markov), "sequential_elo")
		vector.Ratings = a.EloRatings(snap)
		return vector
	}
	for team, i := range snap.Index {
		vector.Ratings[team] = r[i]
	}
	return vector
}

// solve tries the direct LUP factorization first and degrades to
// Gauss-Seidel, mirroring the least-squares solver's strategy.
func (a *Analyzer) solve(ctx context.Context, m *linalg.Matrix, b []float64) ([]float64, error) {
	if f, err := m.Factorize(); err == nil {
		if r, err := f.Solve(b); err == nil {
			return r, nil
		}
	}
	a.log.Warn(ctx, "direct solve failed; falling back to gauss-seidel")
	metrics.RecordSolverFallback(string(model.Markov), "gauss_seidel")
	r, iterations, err := linalg.GaussSeidel(m, b, a.convergence, a.maxIterations)
	metrics.RecordSolverIterations(string(model.Markov), iterations)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Generator builds the continuous-time Markov generator Q where Q[i,j] is
// the rate at which team i loses control to team j: the win ratio of j over
// i scaled by how often they meet. Rows sum to zero.
func (a *Analyzer) Generator(snap *store.Snapshot) *linalg.Matrix {
	n := snap.TeamCount()
	pc := countPairs(snap)
	q := linalg.NewMatrix(n, n)
	for i := 0; i < n; i++ {
		rowSum := 0.0
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			rate := pc.binary(j, i) * pc.meetings[[2]int{i, j}]
			q.Set(i, j, rate)
			rowSum += rate
		}
		q.Set(i, i, -rowSum)
	}
	return q
}

// EquilibriumDistribution solves πQ = 0, Σπ = 1 as a least-squares system:
// Qᵀ stacked with an all-ones row, target (0,…,0,1). Falls back to the
// uniform distribution when the system is degenerate.
func (a *Analyzer) EquilibriumDistribution(ctx context.Context, snap *store.Snapshot) map[string]float64 {
	n := snap.TeamCount()
	out := make(map[string]float64, n)
	if n == 0 {
		return out
	}

	q := a.Generator(snap)
	stacked := linalg.NewMatrix(n+1, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			stacked.Set(i, j, q.At(j, i))
		}
	}
	for j := 0; j < n; j++ {
		stacked.Set(n, j, 1)
	}
	target := make([]float64, n+1)
	target[n] = 1

	pi, err := linalg.SolveLeastSquares(stacked, target, lstsqDamping)
	if err != nil {
		a.log.Warn(ctx, "equilibrium solve failed; returning uniform distribution", logger.Error(err))
		metrics.RecordSolverFallback(string(model.Markov), "uniform_equilibrium")
		for _, t := range snap.Teams {
			out[t] = 1 / float64(n)
		}
		return out
	}
	for team, i := range snap.Index {
		out[team] = pi[i]
	}
	return out
}

// AntiRatings returns losses/games per team, a measure of relative
// weakness. Teams with no games get zero.
func (a *Analyzer) AntiRatings(snap *store.Snapshot) map[string]float64 {
	losses := make(map[string]float64, snap.TeamCount())
	games := make(map[string]float64, snap.TeamCount())
	for _, g := range snap.Games {
		games[g.TeamA]++
		games[g.TeamB]++
		switch {
		case g.ScoreA < g.ScoreB:
			losses[g.TeamA]++
		case g.ScoreB < g.ScoreA:
			losses[g.TeamB]++
		}
	}
	out := make(map[string]float64, snap.TeamCount())
	for _, t := range snap.Teams {
		if games[t] == 0 {
			out[t] = 0
			continue
		}
		out[t] = losses[t] / games[t]
	}
	return out
}

// CombinedScores merges the steady-state rating with the anti-rating:
// rating * (1 - anti). A strong team that rarely loses scores highest.
func (a *Analyzer) CombinedScores(ctx context.Context, snap *store.Snapshot) map[string]float64 {
	steady := a.SteadyStateRatings(ctx, snap)
	anti := a.AntiRatings(snap)
	out := make(map[string]float64, snap.TeamCount())
	for t, r := range steady.Ratings {
		out[t] = r * (1 - anti[t])
	}
	return out
}

// MarketValues reads the win-ratio matrix economically: each team's total
// row sum is its demand, normalized so the values sum to teams * reference.
func (a *Analyzer) MarketValues(snap *store.Snapshot) map[string]float64 {
	n := snap.TeamCount()
	out := make(map[string]float64, n)
	if n == 0 {
		return out
	}
	pc := countPairs(snap)

	demand := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				demand[i] += pc.binary(i, j)
			}
		}
		total += demand[i]
	}
	scale := float64(n) * a.reference
	for team, i := range snap.Index {
		if total == 0 {
			out[team] = scale / float64(n)
			continue
		}
		out[team] = demand[i] / total * scale
	}
	return out
}

// Properties captures spectral diagnostics of the generator.
type Properties struct {
	// Eigenvalues of Q sorted by real part, descending. The principal one
	// is ~0 for a proper generator.
	Eigenvalues []complex128
	// MixingTime is -1/Re(λ2), nil when fewer than two eigenvalues exist or
	// λ2 has non-negative real part.
	MixingTime *float64
	// ConvergenceRate is |λ2|, nil under the same conditions.
	ConvergenceRate *float64
	// Stationary is the equilibrium distribution.
	Stationary map[string]float64
}

// AnalyzeProperties computes the spectral diagnostics of the Markov chain.
func (a *Analyzer) AnalyzeProperties(ctx context.Context, snap *store.Snapshot) Properties {
	props := Properties{
		Stationary: a.EquilibriumDistribution(ctx, snap),
	}
	q := a.Generator(snap)
	eigenvalues, err := linalg.Eigenvalues(q)
	if err != nil {
		a.log.Warn(ctx, "eigenvalue computation failed", logger.Error(err))
		return props
	}
	props.Eigenvalues = eigenvalues

	if len(eigenvalues) >= 2 {
		lambda2 := eigenvalues[1]
		if real(lambda2) < 0 {
			mixing := -1.0 / real(lambda2)
			rate := complexAbs(lambda2)
			props.MixingTime = &mixing
			props.ConvergenceRate = &rate
		}
	}
	return props
}

func complexAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// PredictWin blends the sequential Elo expectation with the head-to-head
// binary rating, weighting the latter by how often the pair has met.
func (a *Analyzer) PredictWin(snap *store.Snapshot, teamA, teamB string) float64 {
	elo := a.EloRatings(snap)
	pElo := 1 / (1 + math.Pow(10, (elo[teamB]-elo[teamA])/eloScale))

	i, okA := snap.Index[teamA]
	j, okB := snap.Index[teamB]
	if !okA || !okB {
		return pElo
	}
	pc := countPairs(snap)
	meetings := pc.meetings[[2]int{i, j}]
	if meetings == 0 {
		return pElo
	}
	// Head-to-head evidence caps out at half the blend.
	binaryWeight := math.Min(meetings/5.0, 0.5)
	return (1-binaryWeight)*pElo + binaryWeight*pc.binary(i, j)
}

// PredictSpread converts the sequential-Elo gap into an expected point
// margin for teamA.
func (a *Analyzer) PredictSpread(snap *store.Snapshot, teamA, teamB string) float64 {
	elo := a.EloRatings(snap)
	return (elo[teamA] - elo[teamB]) / eloPointScale
}
