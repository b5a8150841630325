package scoringapi

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call.
type Kind string

// Failure kinds.
const (
	// KindNetwork means no HTTP response was received.
	KindNetwork Kind = "network"
	// KindServer means the server answered with a non-2xx status.
	KindServer Kind = "server"
	// KindDecode means a 2xx body could not be decoded.
	KindDecode Kind = "decode"
)

// Sentinels matched by *Error through errors.Is.
var (
	ErrNetwork = errors.New("scoring api unreachable")
	ErrServer  = errors.New("scoring api error")
	ErrDecode  = errors.New("scoring api response undecodable")
)

// Error is the only error type returned by Client methods.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrServer:
		return e.Kind == KindServer
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}

// NetworkFailure reports whether the request never reached the server.
func (e *Error) NetworkFailure() bool { return e.Kind == KindNetwork }

// statusMessage is shown when a failed response carries no message.
func statusMessage(status int) string {
	return fmt.Sprintf("HTTP error! status: %d", status)
}
