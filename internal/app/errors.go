package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrUnknownMethod = errors.New("unknown rating method")
	ErrNotStarted    = errors.New("service not started")
)
