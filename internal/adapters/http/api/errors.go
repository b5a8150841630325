package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/bethegolf/internal/adapters/scoringapi"
	service "github.com/okian/bethegolf/internal/app"
	"github.com/okian/bethegolf/internal/domain/assessment"
	"github.com/okian/bethegolf/internal/domain/share"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// kindError tags an error with the handler operation that produced it.
type kindError struct {
	op   string
	kind error
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return e.kind.Error()
	}
	return e.err.Error()
}

func (e *kindError) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &kindError{op: op, kind: kind}
}

// WrapKind tags err with kind for op.
func WrapKind(op string, kind, err error) error {
	return &kindError{op: op, kind: kind, err: err}
}

// withOp records op on a failure returned by the service.
func withOp(op string, err error) error {
	return &kindError{op: op, kind: err}
}

// Op returns the handler operation recorded on err, if any.
func Op(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.op
	}
	return ""
}

// statusOf maps a service error to an HTTP status, an error code and the
// message shown to the user.
func statusOf(err error) (int, string, string) {
	var (
		se  *assessment.SubmitError
		le  *assessment.LoadError
		ae  *scoringapi.Error
		msg = err.Error()
	)
	switch {
	case errors.As(err, &se):
		return http.StatusBadGateway, "submit_failed", se.Message()
	case errors.As(err, &le):
		return http.StatusGone, "load_error", msg
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, share.ErrInvalidOptions):
		return http.StatusBadRequest, "bad_request", msg
	case errors.Is(err, service.ErrUnknownAttempt):
		return http.StatusNotFound, "not_found", msg
	case errors.Is(err, assessment.ErrUnknownOption),
		errors.Is(err, assessment.ErrCannotAdvance),
		errors.Is(err, assessment.ErrNothingToRetry),
		errors.Is(err, assessment.ErrCompleted),
		errors.Is(err, assessment.ErrSubmitting),
		errors.Is(err, assessment.ErrNotReady):
		return http.StatusConflict, "conflict", msg
	case errors.Is(err, share.ErrGeneration):
		return http.StatusInternalServerError, "generation_failed", msg
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable", msg
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", msg
	case errors.As(err, &ae):
		if ae.Status == http.StatusNotFound {
			return http.StatusNotFound, "not_found", ae.Message
		}
		return http.StatusBadGateway, "upstream_error", ae.Message
	default:
		return http.StatusInternalServerError, "internal", fmt.Sprintf("internal error: %v", err)
	}
}
