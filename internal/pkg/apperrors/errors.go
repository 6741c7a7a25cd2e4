package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind separates the failure classes that matter for retries and HTTP codes.
type Kind string

const (
	// KindConfiguration covers missing/invalid credentials or base URLs.
	// Fatal, never retried.
	KindConfiguration Kind = "configuration"
	// KindValidation covers malformed caller input. Fatal, surfaced to the
	// end user.
	KindValidation Kind = "validation"
	// KindGateway covers non-2xx responses from a payment provider.
	// Retryable at the orchestration level only.
	KindGateway Kind = "gateway"
	// KindPersistence covers database failures. Distinguished from gateway
	// errors because it can occur after money has moved.
	KindPersistence Kind = "persistence"
	// KindNetwork covers timeouts and connection failures. Retryable.
	KindNetwork Kind = "network"
)

// AppError carries the failure class, an operation label for log context and
// the wrapped cause.
type AppError struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the failure class to the status code the outer handler
// should answer with.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindGateway:
		return http.StatusBadGateway
	case KindNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, op, message string) *AppError {
	return &AppError{Kind: kind, Op: op, Message: message}
}

func Wrap(err error, kind Kind, op, message string) *AppError {
	return &AppError{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf extracts the failure class of err, or "" when err is not an AppError.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsRetryable reports whether the whole orchestration may be retried by the
// caller.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindGateway, KindNetwork:
		return true
	default:
		return false
	}
}
