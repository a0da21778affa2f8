// Package store holds validated game records and their derived weights.
//
// Weights are a global invariant, not a per-game one: the recency factor of
// every game depends on the latest date across the whole set, so the store
// keeps a single stale flag and recomputes all weights together the next time
// a snapshot is taken.
package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/courtline/ratings/internal/domain/model"
	"github.com/courtline/ratings/internal/domain/sport"
	"github.com/courtline/ratings/pkg/metrics"
)

// Default weighting constants.
const (
	defaultHalfLifeDays = 365.0
	defaultCloseBonus   = 1.25
	defaultBaseWeight   = 1.0

	hoursPerDay = 24.0
)

// Store owns the game log for a fixed team universe. It is safe for
// concurrent use; writers and snapshot readers are serialized internally.
type Store struct {
	mu sync.RWMutex

	policy sport.Policy
	teams  []string       // sorted team universe
	index  map[string]int // team -> column index
	played map[string]int // games-played counters

	games   []model.GameRecord
	weights []float64
	stale   bool // weights need a full recompute

	halfLifeDays float64
	closeBonus   float64
	baseWeight   float64
}

// New creates a Store for the given team universe. Teams are fixed at
// construction; a game referencing any other identifier is rejected.
func New(teams []string, policy sport.Policy, opts ...Option) *Store {
	sorted := make([]string, len(teams))
	copy(sorted, teams)
	sort.Strings(sorted)

	s := &Store{
		policy:       policy,
		teams:        sorted,
		index:        make(map[string]int, len(sorted)),
		played:       make(map[string]int, len(sorted)),
		halfLifeDays: defaultHalfLifeDays,
		closeBonus:   defaultCloseBonus,
		baseWeight:   defaultBaseWeight,
	}
	for i, t := range sorted {
		s.index[t] = i
		s.played[t] = 0
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add validates and appends a game record. It fails with ErrUnknownTeam when
// either side is outside the configured universe and bumps both teams'
// games-played counters on success. Weights for the whole set are marked
// stale because the new game may move the latest date.
func (s *Store) Add(ctx context.Context, g model.GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[g.TeamA]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTeam, g.TeamA)
	}
	if _, ok := s.index[g.TeamB]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTeam, g.TeamB)
	}
	if math.IsNaN(g.ScoreA) || math.IsNaN(g.ScoreB) || math.IsInf(g.ScoreA, 0) || math.IsInf(g.ScoreB, 0) {
		return fmt.Errorf("%w: %s vs %s", ErrInvalidScore, g.TeamA, g.TeamB)
	}
	if g.Importance <= 0 {
		g.Importance = 1.0
	}

	s.games = append(s.games, g)
	s.played[g.TeamA]++
	s.played[g.TeamB]++
	s.stale = true

	metrics.RecordGameIngested()
	metrics.UpdateGameCount(len(s.games))
	return nil
}

// Teams returns the sorted team universe.
func (s *Store) Teams() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.teams))
	copy(out, s.teams)
	return out
}

// GameCount returns the number of stored games.
func (s *Store) GameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

// GamesPlayed returns how many games the team has in the log.
func (s *Store) GamesPlayed(team string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.played[team]
}

// GamesFor returns team's games in insertion order.
func (s *Store) GamesFor(team string) []model.GameRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.GameRecord
	for _, g := range s.games {
		if g.Involves(team) {
			out = append(out, g)
		}
	}
	return out
}

// isClose reports whether the game margin is within the sport's close-game
// threshold.
func (s *Store) isClose(g model.GameRecord) bool {
	return math.Abs(g.Margin()) <= s.policy.CloseGameMargin
}

// reweight recomputes every game weight from scratch. Must be called with
// the write lock held.
func (s *Store) reweight() {
	if len(s.games) == 0 {
		s.stale = false
		return
	}

	latest := s.games[0].PlayedAt
	for _, g := range s.games[1:] {
		if g.PlayedAt.After(latest) {
			latest = g.PlayedAt
		}
	}

	s.weights = make([]float64, len(s.games))
	for i, g := range s.games {
		daysOld := latest.Sub(g.PlayedAt).Hours() / hoursPerDay
		recency := math.Exp(-daysOld / s.halfLifeDays)

		w := s.baseWeight * g.Importance * recency
		if s.isClose(g) {
			w *= s.closeBonus
		}
		s.weights[i] = w
	}
	s.stale = false
}

// Snapshot returns an immutable view of the game set with fresh weights.
// Solvers operate on snapshots only, so a writer appending games can never
// race a solve in progress.
func (s *Store) Snapshot(ctx context.Context) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stale {
		s.reweight()
	}

	snap := &Snapshot{
		ID:     uuid.NewString(),
		Policy: s.policy,
		Teams:  make([]string, len(s.teams)),
		Index:  make(map[string]int, len(s.index)),
		Games:  make([]model.GameRecord, len(s.games)),
		Weight: make([]float64, len(s.weights)),
		Played: make(map[string]int, len(s.played)),
	}
	copy(snap.Teams, s.teams)
	copy(snap.Games, s.games)
	copy(snap.Weight, s.weights)
	for t, i := range s.index {
		snap.Index[t] = i
	}
	for t, n := range s.played {
		snap.Played[t] = n
	}
	return snap
}

// Snapshot is a consistent, read-only copy of the game set. All solver math
// runs against one of these.
type Snapshot struct {
	ID     string
	Policy sport.Policy
	Teams  []string
	Index  map[string]int
	Games  []model.GameRecord
	Weight []float64 // Weight[i] belongs to Games[i]
	Played map[string]int
}

// GameCount returns the number of games in the snapshot.
func (s *Snapshot) GameCount() int {
	return len(s.Games)
}

// TeamCount returns the size of the team universe.
func (s *Snapshot) TeamCount() int {
	return len(s.Teams)
}
