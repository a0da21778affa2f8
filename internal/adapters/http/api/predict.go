// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/courtline/ratings/internal/domain/model"
)

// methodCombined selects the blended prediction path: likelihood win
// probability with the least-squares margin.
const methodCombined = model.Method("combined")

// PredictHandler handles matchup forecast requests.
type PredictHandler struct {
	deps Dependencies
}

// NewPredictHandler creates a predict handler.
func NewPredictHandler(deps Dependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// predictResponse is the wire shape for GET /predict.
type predictResponse struct {
	TeamA          string  `json:"team_a"`
	TeamB          string  `json:"team_b"`
	Method         string  `json:"method"`
	WinProbability float64 `json:"win_probability"`
	Margin         float64 `json:"margin"`
}

// HandlePredict handles GET /predict?team_a=&team_b=&neutral=&method=
// requests. The default method is the combined path.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	teamA := strings.TrimSpace(q.Get("team_a"))
	teamB := strings.TrimSpace(q.Get("team_b"))
	if teamA == "" || teamB == "" || teamA == teamB {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New("need distinct team_a and team_b")))
		return
	}
	neutral, _ := strconv.ParseBool(q.Get("neutral"))

	method := methodCombined
	if raw := strings.TrimSpace(q.Get("method")); raw != "" && raw != string(methodCombined) {
		m, err := parseMethod(r, methodCombined)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		method = m
	}

	p, err := h.deps.PredictGame(r.Context(), teamA, teamB, neutral, method)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{
		TeamA:          teamA,
		TeamB:          teamB,
		Method:         string(method),
		WinProbability: p.WinProbability,
		Margin:         p.Margin,
	})
}
