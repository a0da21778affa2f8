// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"math"
	"net/http"

	"github.com/courtline/ratings/internal/domain/model"
)

// InferenceHandler handles confidence-interval and accuracy requests.
type InferenceHandler struct {
	deps Dependencies
}

// NewInferenceHandler creates an inference handler.
func NewInferenceHandler(deps Dependencies) *InferenceHandler {
	return &InferenceHandler{deps: deps}
}

// intervalResponse is the wire shape of one confidence interval. Infinities
// are not representable in JSON, so unbounded intervals use null bounds.
type intervalResponse struct {
	Rating   float64  `json:"rating"`
	StdError *float64 `json:"std_error"`
	Lower    *float64 `json:"lower"`
	Upper    *float64 `json:"upper"`
}

func finiteOrNull(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// HandleConfidence handles GET /confidence?method=... requests.
func (h *InferenceHandler) HandleConfidence(w http.ResponseWriter, r *http.Request) {
	const op = "api.confidence"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	method, err := parseMethod(r, model.Massey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	intervals, err := h.deps.Confidence(r.Context(), method)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	out := make(map[string]intervalResponse, len(intervals))
	for team, ci := range intervals {
		out[team] = intervalResponse{
			Rating:   ci.Rating,
			StdError: finiteOrNull(ci.StdError),
			Lower:    finiteOrNull(ci.Lower),
			Upper:    finiteOrNull(ci.Upper),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// accuracyResponse is the wire shape for GET /accuracy. In-sample by
// construction: the ratings were fit on the same games they are scored on.
type accuracyResponse struct {
	Method        string  `json:"method"`
	GameCount     int     `json:"game_count"`
	Accuracy      float64 `json:"accuracy"`
	MAESpread     float64 `json:"mae_spread"`
	LogLikelihood float64 `json:"log_likelihood"`
	InSample      bool    `json:"in_sample"`
}

// HandleAccuracy handles GET /accuracy?method=... requests.
func (h *InferenceHandler) HandleAccuracy(w http.ResponseWriter, r *http.Request) {
	const op = "api.accuracy"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	method, err := parseMethod(r, model.Massey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	report, err := h.deps.Accuracy(r.Context(), method)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, accuracyResponse{
		Method:        string(method),
		GameCount:     report.GameCount,
		Accuracy:      report.Accuracy,
		MAESpread:     report.MAESpread,
		LogLikelihood: report.LogLikelihood,
		InSample:      true,
	})
}
