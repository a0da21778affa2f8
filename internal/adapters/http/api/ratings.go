// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"

	"github.com/courtline/ratings/internal/domain/massey"
	"github.com/courtline/ratings/internal/domain/model"
)

// RatingsHandler handles rating-vector requests.
type RatingsHandler struct {
	deps Dependencies
}

// NewRatingsHandler creates a ratings handler.
func NewRatingsHandler(deps Dependencies) *RatingsHandler {
	return &RatingsHandler{deps: deps}
}

// ratingsResponse is the wire shape for GET /ratings.
type ratingsResponse struct {
	Method     string             `json:"method"`
	SnapshotID string             `json:"snapshot_id"`
	GameCount  int                `json:"game_count"`
	Ratings    map[string]float64 `json:"ratings"`
}

// HandleGetRatings handles GET /ratings?method=massey|mle|markov requests.
// ?normalized=true rescales into the 50-100 display range.
func (h *RatingsHandler) HandleGetRatings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ratings"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	method, err := parseMethod(r, model.Massey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	v, err := h.deps.Ratings(r.Context(), method)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	ratings := v.Ratings
	if normalized, _ := strconv.ParseBool(r.URL.Query().Get("normalized")); normalized {
		ratings = massey.Normalize(ratings)
	}
	writeJSON(w, http.StatusOK, ratingsResponse{
		Method:     string(v.Method),
		SnapshotID: v.SnapshotID,
		GameCount:  v.GameCount,
		Ratings:    ratings,
	})
}
