// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/courtline/ratings/internal/adapters/repository"
	"github.com/courtline/ratings/internal/domain/markov"
	"github.com/courtline/ratings/internal/domain/model"
)

// Dependencies required by the HTTP handlers. An interface bundle keeps the
// handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Feed side.
	Enqueue(ctx context.Context, g model.GameRecord) (accepted, duplicate bool)

	// Query surface.
	Ratings(ctx context.Context, method model.Method) (*model.RatingVector, error)
	Leaderboard(ctx context.Context, method model.Method, n int) ([]Entry, error)
	Rank(ctx context.Context, method model.Method, team string) (Entry, error)
	PredictGame(ctx context.Context, teamA, teamB string, neutralSite bool, method model.Method) (model.Prediction, error)
	Confidence(ctx context.Context, method model.Method) (map[string]model.ConfidenceInterval, error)
	Accuracy(ctx context.Context, method model.Method) (model.AccuracyReport, error)
	AntiRatings(ctx context.Context) map[string]float64
	Equilibrium(ctx context.Context) map[string]float64
	MarketValues(ctx context.Context) map[string]float64
	MarkovProperties(ctx context.Context) markov.Properties
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = repository.Entry

// Server wires HTTP routes for the rating API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	gamesHandler       *GamesHandler
	ratingsHandler     *RatingsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	predictHandler     *PredictHandler
	inferenceHandler   *InferenceHandler
	markovHandler      *MarkovHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLeaderboardLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		gamesHandler:       NewGamesHandler(deps),
		ratingsHandler:     NewRatingsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLeaderboardLimit),
		rankHandler:        NewRankHandler(deps),
		predictHandler:     NewPredictHandler(deps),
		inferenceHandler:   NewInferenceHandler(deps),
		markovHandler:      NewMarkovHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/games", MetricsMiddleware(s.gamesHandler.HandlePostGame, "games"))
	mux.HandleFunc("/ratings", MetricsMiddleware(s.ratingsHandler.HandleGetRatings, "ratings"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/confidence", MetricsMiddleware(s.inferenceHandler.HandleConfidence, "confidence"))
	mux.HandleFunc("/accuracy", MetricsMiddleware(s.inferenceHandler.HandleAccuracy, "accuracy"))
	mux.HandleFunc("/markov/anti-ratings", MetricsMiddleware(s.markovHandler.HandleAntiRatings, "markov_anti_ratings"))
	mux.HandleFunc("/markov/equilibrium", MetricsMiddleware(s.markovHandler.HandleEquilibrium, "markov_equilibrium"))
	mux.HandleFunc("/markov/market-values", MetricsMiddleware(s.markovHandler.HandleMarketValues, "markov_market_values"))
	mux.HandleFunc("/markov/properties", MetricsMiddleware(s.markovHandler.HandleProperties, "markov_properties"))
}

// parseMethod reads the ?method= query parameter. An empty value falls back
// to the given default; anything unrecognized is an error.
func parseMethod(r *http.Request, fallback model.Method) (model.Method, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("method"))
	if raw == "" {
		return fallback, nil
	}
	switch model.Method(strings.ToLower(raw)) {
	case model.Massey:
		return model.Massey, nil
	case model.MLE:
		return model.MLE, nil
	case model.Markov:
		return model.Markov, nil
	default:
		return "", errors.New("unknown method; want massey, mle or markov")
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrNoRatings)
}

// parseGameTime accepts RFC3339 or a bare date.
func parseGameTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
