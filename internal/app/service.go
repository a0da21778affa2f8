// Package service wires the rating engine together and exposes the query
// surface the HTTP API depends on.
//
// The concurrency model is deliberately simple: games flow through the
// queue into the store behind its write lock, and every solver run works on
// an immutable snapshot. The repository caches the latest vector per method
// keyed by as-of game count, so reads never re-solve an unchanged store.
package service

import (
	"context"
	"math"
	"sync"

	gamequeue "github.com/courtline/ratings/internal/adapters/mq/queue"
	workerpool "github.com/courtline/ratings/internal/adapters/mq/worker"
	"github.com/courtline/ratings/internal/adapters/repository"
	"github.com/courtline/ratings/internal/domain/dedupe"
	"github.com/courtline/ratings/internal/domain/inference"
	"github.com/courtline/ratings/internal/domain/markov"
	"github.com/courtline/ratings/internal/domain/massey"
	"github.com/courtline/ratings/internal/domain/mle"
	"github.com/courtline/ratings/internal/domain/model"
	"github.com/courtline/ratings/internal/domain/sport"
	"github.com/courtline/ratings/internal/domain/store"
	"github.com/courtline/ratings/pkg/logger"
	"github.com/courtline/ratings/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize   = 10000
	defaultDedupeSize  = 50000
	defaultWorkerCount = 1 // single writer keeps appends ordered
	defaultMinGames    = 10
)

// Service implements the rating engine behind the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	games      *store.Store
	ratings    repository.Store
	deduper    dedupe.Deduper
	queue      gamequeue.Queue
	pool       *workerpool.Pool
	leastSq    *massey.Solver
	likelihood *mle.Solver
	chain      *markov.Analyzer

	// Configuration
	policy      sport.Policy
	teams       []string
	preseason   map[string]float64
	minGames    int
	queueSize   int
	dedupeSize  int
	workerCount int
	mleSeed     int64
	kFactor     float64

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTeams fixes the team universe.
func WithTeams(teams []string) Option {
	return func(s *Service) {
		if len(teams) > 0 {
			s.teams = teams
		}
	}
}

// WithPolicy selects the sport policy.
func WithPolicy(p sport.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithPreseason sets prior ratings blended in while the season is young.
func WithPreseason(prior map[string]float64) Option {
	return func(s *Service) {
		s.preseason = prior
	}
}

// WithMinGames sets the minimum total games before ratings are produced.
func WithMinGames(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minGames = n
		}
	}
}

// WithQueueSize sets the feed queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the event-id dedupe cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithWorkerCount sets the number of ingest workers. More than one gives up
// strict append ordering.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithMLESeed fixes the likelihood solver's starting-point seed.
func WithMLESeed(seed int64) Option {
	return func(s *Service) {
		s.mleSeed = seed
	}
}

// WithKFactor sets the sequential Elo adjustment factor.
func WithKFactor(k float64) Option {
	return func(s *Service) {
		if k > 0 {
			s.kFactor = k
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		policy:      sport.Basketball(),
		minGames:    defaultMinGames,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		workerCount: defaultWorkerCount,
		mleSeed:     42,
		kFactor:     32,
		logger:      logger.Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start wires and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting rating service",
		logger.String("sport", s.policy.Name),
		logger.Int("teams", len(s.teams)),
	)

	s.games = store.New(s.teams, s.policy)
	s.ratings = repository.NewMemoryStore()
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = gamequeue.NewInMemoryQueue(
		gamequeue.WithCapacity(s.queueSize),
	)
	s.leastSq = massey.New(s.policy,
		massey.WithMinGames(s.minGames),
	)
	s.likelihood = mle.New(
		mle.WithSeed(s.mleSeed),
	)
	s.chain = markov.New(
		markov.WithKFactor(s.kFactor),
		markov.WithReferenceRating(s.policy.ReferenceRating),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.games, s.deduper)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping rating service")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "rating service stopped")
}

// SeenAndRecord atomically checks whether an event id was seen and records
// it if not. Returns true when the event is a duplicate.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordGameDuplicate()
	}
	return seen
}

// Unrecord releases an event id so a corrected event can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// isStarted reports whether Start has completed.
func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Enqueue submits a game event for asynchronous ingestion. Duplicates are
// absorbed and acknowledged; a full queue releases the dedupe slot and
// reports failure so the sender can retry.
func (s *Service) Enqueue(ctx context.Context, g model.GameRecord) (accepted, duplicate bool) {
	if !s.isStarted() {
		return false, false
	}
	if s.SeenAndRecord(ctx, g.EventID) {
		s.logger.Debug(ctx, "duplicate game event",
			logger.String("event_id", g.EventID),
		)
		return true, true
	}
	if !s.queue.Enqueue(ctx, g) {
		s.Unrecord(ctx, g.EventID)
		return false, false
	}
	return true, false
}

// Teams returns the configured team universe.
func (s *Service) Teams(ctx context.Context) []string {
	return s.games.Teams()
}

// Ratings returns the rating vector for the method, re-solving only when
// games have arrived since the cached vector.
func (s *Service) Ratings(ctx context.Context, method model.Method) (*model.RatingVector, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	cached, err := s.ratings.Latest(ctx, method)
	if err == nil && cached.GameCount == s.games.GameCount() {
		return cached, nil
	}

	snap := s.games.Snapshot(ctx)
	var v *model.RatingVector
	switch method {
	case model.Massey:
		v = s.leastSq.Solve(ctx, snap)
		if len(s.preseason) > 0 && !v.Empty() {
			v.Ratings = massey.Blend(v.Ratings, s.preseason, snap.GameCount(), s.minGames, snap.TeamCount())
		}
	case model.MLE:
		v = s.likelihood.Solve(ctx, snap)
	case model.Markov:
		v = s.chain.SteadyStateRatings(ctx, snap)
	default:
		return nil, ErrUnknownMethod
	}

	if err := s.ratings.Put(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Leaderboard returns the top-n teams under the method.
func (s *Service) Leaderboard(ctx context.Context, method model.Method, n int) ([]repository.Entry, error) {
	if _, err := s.Ratings(ctx, method); err != nil {
		return nil, err
	}
	return s.ratings.Leaderboard(ctx, method, n)
}

// Rank returns a single team's leaderboard row under the method.
func (s *Service) Rank(ctx context.Context, method model.Method, team string) (repository.Entry, error) {
	if _, err := s.Ratings(ctx, method); err != nil {
		return repository.Entry{}, err
	}
	return s.ratings.Rank(ctx, method, team)
}

// PredictGame forecasts a matchup. The least-squares path maps the rating
// difference through the sport's logistic scale; the combined default takes
// the likelihood model's win probability and reconciles the margin sign
// with the favored side.
func (s *Service) PredictGame(ctx context.Context, teamA, teamB string, neutralSite bool, method model.Method) (model.Prediction, error) {
	switch method {
	case model.Massey:
		v, err := s.Ratings(ctx, model.Massey)
		if err != nil {
			return model.Prediction{}, err
		}
		p, ok := s.leastSq.Predict(v.Ratings, teamA, teamB, neutralSite)
		if !ok {
			return model.Prediction{}, repository.ErrNotFound
		}
		return p, nil

	case model.MLE:
		v, err := s.Ratings(ctx, model.MLE)
		if err != nil {
			return model.Prediction{}, err
		}
		prob, ok := mle.WinProbability(v.Ratings, teamA, teamB)
		if !ok {
			return model.Prediction{}, repository.ErrNotFound
		}
		return model.Prediction{
			WinProbability: prob,
			Margin:         s.marginFromProbability(prob),
		}, nil

	case model.Markov:
		snap := s.games.Snapshot(ctx)
		if _, ok := snap.Index[teamA]; !ok {
			return model.Prediction{}, repository.ErrNotFound
		}
		if _, ok := snap.Index[teamB]; !ok {
			return model.Prediction{}, repository.ErrNotFound
		}
		return model.Prediction{
			WinProbability: s.chain.PredictWin(snap, teamA, teamB),
			Margin:         s.chain.PredictSpread(snap, teamA, teamB),
		}, nil

	default:
		return s.predictCombined(ctx, teamA, teamB, neutralSite)
	}
}

// predictCombined blends the two model families: win probability from the
// likelihood fit, margin magnitude from the least-squares fit, margin sign
// following whichever side the probability favors.
func (s *Service) predictCombined(ctx context.Context, teamA, teamB string, neutralSite bool) (model.Prediction, error) {
	mleVec, err := s.Ratings(ctx, model.MLE)
	if err != nil {
		return model.Prediction{}, err
	}
	prob, ok := mle.WinProbability(mleVec.Ratings, teamA, teamB)
	if !ok {
		return model.Prediction{}, repository.ErrNotFound
	}

	margin := s.marginFromProbability(prob)
	if lsVec, err := s.Ratings(ctx, model.Massey); err == nil && !lsVec.Empty() {
		if p, ok := s.leastSq.Predict(lsVec.Ratings, teamA, teamB, neutralSite); ok {
			margin = math.Abs(p.Margin)
			if prob < 0.5 {
				margin = -margin
			}
		}
	}
	return model.Prediction{WinProbability: prob, Margin: margin}, nil
}

// marginFromProbability inverts the sport's logistic scale and applies the
// margin factor, so probability-only models still produce a spread.
func (s *Service) marginFromProbability(p float64) float64 {
	const eps = 1e-9
	p = math.Min(math.Max(p, eps), 1-eps)
	diff := s.policy.ProbabilityScale * math.Log(p/(1-p))
	return diff * s.policy.MarginFactor
}

// Confidence returns 95% intervals for each team under the method.
func (s *Service) Confidence(ctx context.Context, method model.Method) (map[string]model.ConfidenceInterval, error) {
	v, err := s.Ratings(ctx, method)
	if err != nil {
		return nil, err
	}
	snap := s.games.Snapshot(ctx)
	return inference.Confidence(snap, v.Ratings), nil
}

// Accuracy replays the game log against the method's predictions.
func (s *Service) Accuracy(ctx context.Context, method model.Method) (model.AccuracyReport, error) {
	snap := s.games.Snapshot(ctx)

	var predict inference.Predictor
	switch method {
	case model.Massey:
		v, err := s.Ratings(ctx, model.Massey)
		if err != nil {
			return model.AccuracyReport{}, err
		}
		predict = func(g model.GameRecord) (float64, float64, bool) {
			p, ok := s.leastSq.Predict(v.Ratings, g.TeamA, g.TeamB, !g.HomeA)
			return p.WinProbability, p.Margin, ok
		}
	case model.MLE:
		v, err := s.Ratings(ctx, model.MLE)
		if err != nil {
			return model.AccuracyReport{}, err
		}
		predict = func(g model.GameRecord) (float64, float64, bool) {
			prob, ok := mle.WinProbability(v.Ratings, g.TeamA, g.TeamB)
			return prob, s.marginFromProbability(prob), ok
		}
	case model.Markov:
		predict = func(g model.GameRecord) (float64, float64, bool) {
			prob := s.chain.PredictWin(snap, g.TeamA, g.TeamB)
			return prob, s.chain.PredictSpread(snap, g.TeamA, g.TeamB), true
		}
	default:
		return model.AccuracyReport{}, ErrUnknownMethod
	}

	// In-sample by construction: the ratings were fit on these same games.
	return inference.Accuracy(snap, predict), nil
}

// AntiRatings returns each team's relative weakness (losses/games).
func (s *Service) AntiRatings(ctx context.Context) map[string]float64 {
	return s.chain.AntiRatings(s.games.Snapshot(ctx))
}

// Equilibrium returns the stationary distribution of the game chain.
func (s *Service) Equilibrium(ctx context.Context) map[string]float64 {
	return s.chain.EquilibriumDistribution(ctx, s.games.Snapshot(ctx))
}

// MarketValues returns the economic decomposition of the win-ratio matrix.
func (s *Service) MarketValues(ctx context.Context) map[string]float64 {
	return s.chain.MarketValues(s.games.Snapshot(ctx))
}

// MarkovProperties returns the chain's spectral diagnostics.
func (s *Service) MarkovProperties(ctx context.Context) markov.Properties {
	return s.chain.AnalyzeProperties(ctx, s.games.Snapshot(ctx))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"sport":        s.policy.Name,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
		"dedupe_size":  s.dedupeSize,
	}
	if s.started {
		stats["queue_length"] = s.queue.Len(ctx)
		stats["game_count"] = s.games.GameCount()
		stats["team_count"] = len(s.games.Teams())
		stats["deduper_size"] = s.deduper.Size()
	}
	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
