package anthropic

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError surfaces Anthropic errors with HTTP metadata. StatusCode is zero
// for errors delivered in-band on a stream rather than as an HTTP status.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e APIError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Type != "":
		return fmt.Sprintf("anthropic error (%s): %s", e.Type, e.Message)
	case e.Type == "":
		return fmt.Sprintf("anthropic API error (%d): %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("anthropic API error (%d, %s): %s", e.StatusCode, e.Type, e.Message)
	}
}

// ErrorKind classifies provider failures into gateway response semantics.
type ErrorKind int

const (
	KindService      ErrorKind = iota // Generic provider or transport failure
	KindRateLimited                   // Provider rejected the request for rate limiting
	KindUnauthorized                  // Credential rejected by the provider
)

// String returns a stable label for logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "service_error"
	}
}

// HTTPStatus maps the kind to the status the gateway responds with.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Classify inspects a provider failure and decides how the gateway should
// answer for it. Typed API errors classify by status and error type; anything
// else falls back to message matching.
func Classify(err error) ErrorKind {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.Type == "rate_limit_error":
			return KindRateLimited
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.Type == "authentication_error":
			return KindUnauthorized
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"):
		return KindRateLimited
	case strings.Contains(msg, "authentication"):
		return KindUnauthorized
	default:
		return KindService
	}
}
