// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/courtline/ratings/internal/domain/model"
)

// GamesHandler handles game-feed requests.
type GamesHandler struct {
	deps Dependencies
}

// NewGamesHandler creates a games handler.
func NewGamesHandler(deps Dependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

// gameRequest is the wire shape for POST /games.
type gameRequest struct {
	EventID    string  `json:"event_id"`
	TeamA      string  `json:"team_a"`
	TeamB      string  `json:"team_b"`
	ScoreA     float64 `json:"score_a"`
	ScoreB     float64 `json:"score_b"`
	HomeA      bool    `json:"home_a"`
	PlayedAt   string  `json:"played_at"`
	Importance float64 `json:"importance,omitempty"`
}

func (g gameRequest) validate() error {
	switch {
	case strings.TrimSpace(g.TeamA) == "":
		return errors.New("missing team_a")
	case strings.TrimSpace(g.TeamB) == "":
		return errors.New("missing team_b")
	case g.TeamA == g.TeamB:
		return errors.New("team_a and team_b must differ")
	case strings.TrimSpace(g.PlayedAt) == "":
		return errors.New("missing played_at")
	case g.ScoreA < 0 || g.ScoreB < 0:
		return errors.New("scores must be non-negative")
	}
	if _, err := parseGameTime(g.PlayedAt); err != nil {
		return errors.New("invalid played_at; want RFC3339 or YYYY-MM-DD")
	}
	return nil
}

// HandlePostGame handles POST /games requests. Events are deduplicated by
// event id and enqueued for asynchronous ingestion; the response only
// acknowledges receipt, not storage.
func (h *GamesHandler) HandlePostGame(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_game"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req gameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if strings.TrimSpace(req.EventID) == "" {
		req.EventID = uuid.NewString()
	}
	playedAt, _ := parseGameTime(req.PlayedAt)

	record := model.GameRecord{
		EventID:    req.EventID,
		TeamA:      req.TeamA,
		TeamB:      req.TeamB,
		ScoreA:     req.ScoreA,
		ScoreB:     req.ScoreB,
		HomeA:      req.HomeA,
		PlayedAt:   playedAt,
		Importance: req.Importance,
	}

	accepted, duplicate := h.deps.Enqueue(r.Context(), record)
	if !accepted {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
