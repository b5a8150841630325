package assessment

import (
	"errors"
	"fmt"
)

// Sentinel kinds for controller errors.
var (
	ErrFramesMissing   = errors.New("assessment frames missing")
	ErrFramesMalformed = errors.New("assessment frames malformed")
	ErrNotReady        = errors.New("assessment not ready")
	ErrSubmitting      = errors.New("submission in progress")
	ErrCompleted       = errors.New("assessment already completed")
	ErrUnknownOption   = errors.New("unknown option")
	ErrCannotAdvance   = errors.New("select both most and least before continuing")
	ErrNothingToRetry  = errors.New("no failed submission to retry")
)

// LoadKind distinguishes why frames could not be loaded.
type LoadKind string

// Load failure kinds.
const (
	LoadMissing   LoadKind = "missing"
	LoadMalformed LoadKind = "malformed"
)

// LoadError is fatal for the attempt; the user has to start over.
type LoadError struct {
	Kind LoadKind
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load frames: %s", e.Kind)
	}
	return fmt.Sprintf("load frames: %s: %v", e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is matches ErrFramesMissing and ErrFramesMalformed by kind.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrFramesMissing:
		return e.Kind == LoadMissing
	case ErrFramesMalformed:
		return e.Kind == LoadMalformed
	}
	return false
}

// SubmitKind distinguishes transport failures from server-reported ones.
type SubmitKind string

// Submission failure kinds.
const (
	SubmitNetwork SubmitKind = "network"
	SubmitServer  SubmitKind = "server"
)

// networkFailure is implemented by submitter errors that never reached the server.
type networkFailure interface {
	NetworkFailure() bool
}

// SubmitError is recoverable: the responses are kept and the user may retry.
type SubmitError struct {
	Kind SubmitKind
	Err  error
}

func newSubmitError(err error) *SubmitError {
	kind := SubmitServer
	var nf networkFailure
	if errors.As(err, &nf) && nf.NetworkFailure() {
		kind = SubmitNetwork
	}
	return &SubmitError{Kind: kind, Err: err}
}

func (e *SubmitError) Error() string { return "submit responses: " + e.Message() }

func (e *SubmitError) Unwrap() error { return e.Err }

// Message is the human-readable text shown next to the retry control.
func (e *SubmitError) Message() string {
	if e.Err == nil {
		return "submission failed"
	}
	return e.Err.Error()
}
