// Package repository archives solved rating vectors and serves ranked views
// of them.
//
// The solvers are pure functions of a snapshot; the repository is where
// their outputs live between solves. It keeps the latest vector per method
// plus a short history, and derives leaderboards on demand.
package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/courtline/ratings/internal/domain/model"
)

// Default repository configuration constants.
const (
	defaultHistoryLimit = 16
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank   int
	Team   string
	Rating float64
}

// Store provides read/write access to solved rating vectors.
type Store interface {
	// Put archives a rating vector as the latest for its method.
	Put(ctx context.Context, v *model.RatingVector) error

	// Latest returns the most recent vector for the method.
	// Returns ErrNoRatings when no solve has completed yet.
	Latest(ctx context.Context, method model.Method) (*model.RatingVector, error)

	// Rank returns the current rank and rating for a team under the method.
	// Returns ErrNotFound if the team is not in the latest vector.
	Rank(ctx context.Context, method model.Method, team string) (Entry, error)

	// Leaderboard returns the top-n entries ordered by rating descending.
	Leaderboard(ctx context.Context, method model.Method, n int) ([]Entry, error)

	// History returns archived vectors for the method, newest first.
	History(ctx context.Context, method model.Method) []*model.RatingVector

	// Count returns the number of teams in the latest vector for the method.
	Count(ctx context.Context, method model.Method) int
}

// memoryStore is the in-process Store implementation.
type memoryStore struct {
	mu           sync.RWMutex
	history      map[model.Method][]*model.RatingVector // newest first
	ranked       map[model.Method][]Entry               // derived from the newest vector
	historyLimit int
}

// NewMemoryStore creates an in-memory repository.
func NewMemoryStore(opts ...Option) Store {
	s := &memoryStore{
		history:      make(map[model.Method][]*model.RatingVector),
		ranked:       make(map[model.Method][]Entry),
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put archives a vector and rebuilds the ranked view for its method.
func (s *memoryStore) Put(ctx context.Context, v *model.RatingVector) error {
	if v == nil || v.Method == "" {
		return ErrInvalidVector
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append([]*model.RatingVector{v}, s.history[v.Method]...)
	if len(h) > s.historyLimit {
		h = h[:s.historyLimit]
	}
	s.history[v.Method] = h
	s.ranked[v.Method] = rank(v)
	return nil
}

// rank sorts a vector's teams by rating descending, ties broken by name so
// the ordering is stable across solves.
func rank(v *model.RatingVector) []Entry {
	entries := make([]Entry, 0, len(v.Ratings))
	for team, rating := range v.Ratings {
		entries = append(entries, Entry{Team: team, Rating: rating})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].Team < entries[j].Team
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Latest returns the most recent vector for the method.
func (s *memoryStore) Latest(ctx context.Context, method model.Method) (*model.RatingVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history[method]
	if len(h) == 0 {
		return nil, ErrNoRatings
	}
	return h[0], nil
}

// Rank returns the team's row in the latest ranked view.
func (s *memoryStore) Rank(ctx context.Context, method model.Method, team string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.ranked[method] {
		if e.Team == team {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Leaderboard returns the top-n ranked entries.
func (s *memoryStore) Leaderboard(ctx context.Context, method model.Method, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ranked := s.ranked[method]
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]Entry, n)
	copy(out, ranked[:n])
	return out, nil
}

// History returns archived vectors, newest first.
func (s *memoryStore) History(ctx context.Context, method model.Method) []*model.RatingVector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history[method]
	out := make([]*model.RatingVector, len(h))
	copy(out, h)
	return out
}

// Count returns the number of teams in the latest vector.
func (s *memoryStore) Count(ctx context.Context, method model.Method) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ranked[method])
}
