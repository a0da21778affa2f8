package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("team not found")
	ErrNoRatings     = errors.New("no ratings solved yet")
	ErrInvalidLimit  = errors.New("invalid leaderboard limit")
	ErrInvalidVector = errors.New("invalid rating vector")
)
