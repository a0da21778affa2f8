package store

import "errors"

// Sentinel kinds for game store errors. Unknown-team errors always cross the
// engine boundary; they indicate a caller bug, not a data problem.
var (
	ErrUnknownTeam  = errors.New("unknown team")
	ErrInvalidScore = errors.New("invalid score")
)
