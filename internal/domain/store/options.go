// Package store holds validated game records and their derived weights.
package store

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithHalfLife sets the recency half-life in days.
func WithHalfLife(days float64) Option {
	return func(s *Store) {
		if days > 0 {
			s.halfLifeDays = days
		}
	}
}

// WithCloseGameBonus sets the multiplicative weight boost for close games.
func WithCloseGameBonus(bonus float64) Option {
	return func(s *Store) {
		if bonus > 0 {
			s.closeBonus = bonus
		}
	}
}

// WithBaseWeight sets the base weight every game starts from.
func WithBaseWeight(w float64) Option {
	return func(s *Store) {
		if w > 0 {
			s.baseWeight = w
		}
	}
}
