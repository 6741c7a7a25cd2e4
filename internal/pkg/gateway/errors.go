package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/pagflow/pagflow/internal/pkg/apperrors"
)

// GatewayError carries the provider's HTTP status and raw response body.
// The raw body may contain sensitive details and must only reach server-side
// logs and diagnostics, never the end user.
type GatewayError struct {
	StatusCode int
	Message    string
	RawBody    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway responded %d: %s", e.StatusCode, e.Message)
}

// newGatewayError attempts a JSON parse of the provider error body and falls
// back to the raw text when parsing fails.
func newGatewayError(statusCode int, body []byte) *GatewayError {
	raw := string(body)
	message := strings.TrimSpace(raw)

	var parsed struct {
		Errors []struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"errors"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if len(parsed.Errors) > 0 && parsed.Errors[0].Description != "" {
			message = parsed.Errors[0].Description
		} else if parsed.Message != "" {
			message = parsed.Message
		}
	}
	if message == "" {
		message = "empty error body"
	}
	return &GatewayError{StatusCode: statusCode, Message: message, RawBody: raw}
}

// wrapTransportError classifies transport failures: timeouts and connection
// failures are retryable network errors, everything else is a gateway error.
func wrapTransportError(err error, op string) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.Wrap(err, apperrors.KindNetwork, op, "request timed out")
	}
	return apperrors.Wrap(err, apperrors.KindNetwork, op, "request failed")
}
