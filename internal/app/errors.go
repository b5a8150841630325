package service

import "errors"

var (
	// ErrNotStarted is returned when an operation runs before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrNoScoringClient is returned by Start when no API client was configured.
	ErrNoScoringClient = errors.New("no scoring client configured")
	// ErrUnknownAttempt is returned for attempt ids that are not registered.
	ErrUnknownAttempt = errors.New("unknown attempt")
	// ErrAlreadySubmitted guards a server session against a second completion.
	ErrAlreadySubmitted = errors.New("assessment already submitted")
	// ErrInvalidInput is returned for malformed demographics or tokens.
	ErrInvalidInput = errors.New("invalid input")
)
