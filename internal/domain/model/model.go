// Package model contains domain models passed between layers.
package model

import "time"

// GameRecord represents a single finished game. Records are immutable once
// created; the store owns them and solvers only ever read them.
type GameRecord struct {
	EventID    string    // unique id for idempotency in the feed pipeline
	TeamA      string    // first team identifier
	TeamB      string    // second team identifier
	ScoreA     float64   // score of TeamA, sport-defined units
	ScoreB     float64   // score of TeamB
	HomeA      bool      // whether TeamA played at home
	PlayedAt   time.Time // calendar date of the game
	Importance float64   // caller-supplied multiplier, 1.0 for a regular game
}

// Margin returns the score margin, positive when TeamA won.
func (g GameRecord) Margin() float64 {
	return g.ScoreA - g.ScoreB
}

// Winner returns the winning team identifier, or "" for a tie.
func (g GameRecord) Winner() string {
	switch {
	case g.ScoreA > g.ScoreB:
		return g.TeamA
	case g.ScoreB > g.ScoreA:
		return g.TeamB
	default:
		return ""
	}
}

// Involves reports whether team took part in the game.
func (g GameRecord) Involves(team string) bool {
	return g.TeamA == team || g.TeamB == team
}

// Method identifies which solver produced a rating vector.
type Method string

// Supported rating methods.
const (
	Massey Method = "massey" // weighted least squares on point margins
	MLE    Method = "mle"    // Bradley-Terry maximum likelihood
	Markov Method = "markov" // steady state of pairwise win ratios
)

// RatingVector is the output of a single solver run. Ratings are meaningless
// detached from the snapshot they were computed from, so the snapshot id and
// as-of game count always travel with them.
type RatingVector struct {
	Method     Method
	SnapshotID string
	GameCount  int
	Ratings    map[string]float64
}

// Empty reports whether the run produced no usable ratings, e.g. because
// fewer than the minimum number of games had been played.
func (v RatingVector) Empty() bool {
	return len(v.Ratings) == 0
}

// Prediction is the engine's forecast for a single matchup.
type Prediction struct {
	WinProbability float64 // probability that the first team wins
	Margin         float64 // predicted point margin, positive for the first team
}

// ConfidenceInterval carries a team's rating with its 95% bounds.
type ConfidenceInterval struct {
	Rating   float64
	StdError float64
	Lower    float64
	Upper    float64
}

// AccuracyReport summarizes in-sample predictive quality over the game log.
type AccuracyReport struct {
	GameCount     int     // games the report covers
	Accuracy      float64 // share of games where the predicted winner won
	MAESpread     float64 // mean absolute error of the predicted margin
	LogLikelihood float64 // average log-likelihood of the actual outcomes
}
