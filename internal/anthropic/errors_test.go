package anthropic

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{"rate limit message", errors.New("Rate limit exceeded, please slow down"), KindRateLimited},
		{"authentication message", errors.New("authentication failed: invalid x-api-key"), KindUnauthorized},
		{"generic message", errors.New("connection refused"), KindService},
		{"api error 429", APIError{StatusCode: http.StatusTooManyRequests, Message: "Too many requests"}, KindRateLimited},
		{"api error 401", APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid API key"}, KindUnauthorized},
		{"api error rate limit type", APIError{Type: "rate_limit_error", Message: "Number of requests exceeded"}, KindRateLimited},
		{"api error auth type", APIError{Type: "authentication_error", Message: "Invalid bearer token"}, KindUnauthorized},
		{"api error overloaded", APIError{StatusCode: 529, Type: "overloaded_error", Message: "Overloaded"}, KindService},
		{"api error 500", APIError{StatusCode: http.StatusInternalServerError, Message: "Internal server error"}, KindService},
		{"wrapped api error", fmt.Errorf("call failed: %w", APIError{StatusCode: http.StatusTooManyRequests, Message: "slow down"}), KindRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := Classify(tt.err)
			if kind != tt.expected {
				t.Errorf("Expected kind %s, got %s", tt.expected, kind)
			}
		})
	}
}

func TestErrorKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected int
	}{
		{KindRateLimited, http.StatusTooManyRequests},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindService, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.kind.HTTPStatus(); got != tt.expected {
			t.Errorf("Expected status %d for %s, got %d", tt.expected, tt.kind, got)
		}
	}
}

func TestAPIError_Error(t *testing.T) {
	withStatus := APIError{StatusCode: 429, Type: "rate_limit_error", Message: "Too fast"}
	if withStatus.Error() != "anthropic API error (429, rate_limit_error): Too fast" {
		t.Errorf("Unexpected error string: %s", withStatus.Error())
	}

	noType := APIError{StatusCode: 500, Message: "boom"}
	if noType.Error() != "anthropic API error (500): boom" {
		t.Errorf("Unexpected error string: %s", noType.Error())
	}

	inStream := APIError{Type: "overloaded_error", Message: "Overloaded"}
	if inStream.Error() != "anthropic error (overloaded_error): Overloaded" {
		t.Errorf("Unexpected error string: %s", inStream.Error())
	}
}
