// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// MarkovHandler handles the chain-analysis endpoints.
type MarkovHandler struct {
	deps Dependencies
}

// NewMarkovHandler creates a markov handler.
func NewMarkovHandler(deps Dependencies) *MarkovHandler {
	return &MarkovHandler{deps: deps}
}

// HandleAntiRatings handles GET /markov/anti-ratings requests.
func (h *MarkovHandler) HandleAntiRatings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.AntiRatings(r.Context()))
}

// HandleEquilibrium handles GET /markov/equilibrium requests.
func (h *MarkovHandler) HandleEquilibrium(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Equilibrium(r.Context()))
}

// HandleMarketValues handles GET /markov/market-values requests.
func (h *MarkovHandler) HandleMarketValues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.MarketValues(r.Context()))
}

// eigenvalue is the wire shape of one complex eigenvalue.
type eigenvalue struct {
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

// propertiesResponse is the wire shape for GET /markov/properties.
type propertiesResponse struct {
	Eigenvalues     []eigenvalue       `json:"eigenvalues"`
	MixingTime      *float64           `json:"mixing_time"`
	ConvergenceRate *float64           `json:"convergence_rate"`
	Stationary      map[string]float64 `json:"stationary"`
}

// HandleProperties handles GET /markov/properties requests.
func (h *MarkovHandler) HandleProperties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	props := h.deps.MarkovProperties(r.Context())

	eigenvalues := make([]eigenvalue, len(props.Eigenvalues))
	for i, ev := range props.Eigenvalues {
		eigenvalues[i] = eigenvalue{Re: real(ev), Im: imag(ev)}
	}
	writeJSON(w, http.StatusOK, propertiesResponse{
		Eigenvalues:     eigenvalues,
		MixingTime:      props.MixingTime,
		ConvergenceRate: props.ConvergenceRate,
		Stationary:      props.Stationary,
	})
}
