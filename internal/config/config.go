// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Sport selects the sport policy preset: basketball, football, baseball.
	Sport string `koanf:"sport"`

	// Teams fixes the team universe. Games referencing other identifiers
	// are rejected.
	Teams []string `koanf:"teams"`

	// MinGames is the minimum total games before ratings are produced.
	MinGames int `koanf:"min_games"`

	// HalfLifeDays controls the recency decay of game weights.
	HalfLifeDays float64 `koanf:"half_life_days"`

	// CloseGameBonus multiplies the weight of games decided within the
	// sport's close-game threshold.
	CloseGameBonus float64 `koanf:"close_game_bonus"`

	// KFactor is the sequential Elo adjustment factor.
	KFactor float64 `koanf:"k_factor"`

	// MaxIterations caps the iterative solvers.
	MaxIterations int `koanf:"max_iterations"`

	// ConvergenceThreshold is the iterative convergence tolerance.
	ConvergenceThreshold float64 `koanf:"convergence_threshold"`

	// MLESeed fixes the likelihood solver's starting-point seed.
	MLESeed int64 `koanf:"mle_seed"`

	// QueueSize bounds the in-memory game-event queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingest workers. One keeps appends
	// strictly ordered.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the event-id dedupe cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// Preseason maps team identifiers to prior ratings blended in while
	// the season is young.
	Preseason map[string]float64 `koanf:"preseason"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		Sport:                "basketball",
		MinGames:             10,
		HalfLifeDays:         365,
		CloseGameBonus:       1.25,
		KFactor:              32,
		MaxIterations:        100,
		ConvergenceThreshold: 1e-6,
		MLESeed:              42,
		QueueSize:            10_000,
		WorkerCount:          1,
		DedupeSize:           50_000,
		MaxLeaderboardLimit:  100,
	}
}
