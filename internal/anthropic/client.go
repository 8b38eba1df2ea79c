package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/victry/ai-gateway/internal/config"
	"github.com/victry/ai-gateway/internal/observability"
	"github.com/victry/ai-gateway/internal/resilience"
)

// Client talks to the Anthropic Messages API with circuit breaker and retry
// protection around the transport.
type Client struct {
	apiKey  string
	baseURL string

	// httpClient carries an overall timeout and serves blocking calls.
	// streamClient has no overall timeout: it would cut off long-lived SSE
	// bodies. Stream cancellation comes from the request context instead.
	httpClient   *http.Client
	streamClient *http.Client

	logger         zerolog.Logger
	circuitBreaker *resilience.CircuitBreaker
	retryConfig    *resilience.RetryConfig
}

// NewClient creates a new Anthropic client from configuration
func NewClient(cfg *config.Config) (*Client, error) {
	if strings.TrimSpace(cfg.AnthropicAPIKey) == "" {
		return nil, errors.New("anthropic api key is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.AnthropicBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	circuitBreaker := resilience.NewCircuitBreaker(
		"anthropic",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	retryConfig := &resilience.RetryConfig{
		MaxAttempts:       cfg.RetryMaxAttempts,
		InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}

	return &Client{
		apiKey:         cfg.AnthropicAPIKey,
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: time.Duration(cfg.AnthropicTimeout) * time.Second},
		streamClient:   &http.Client{},
		logger:         observability.GetLogger().With().Str("component", "anthropic_client").Logger(),
		circuitBreaker: circuitBreaker,
		retryConfig:    retryConfig,
	}, nil
}

var (
	defaultClient *Client
	defaultErr    error
	defaultOnce   sync.Once
)

// Default returns the process-wide client, constructed lazily from the
// environment on first use. Construction fails fast when the API key is
// missing, and the result (client or error) is then fixed for the process.
func Default() (*Client, error) {
	defaultOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			defaultErr = err
			return
		}
		defaultClient, defaultErr = NewClient(cfg)
	})
	return defaultClient, defaultErr
}

// Messages performs a blocking Messages API call
func (c *Client) Messages(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	req.Stream = false

	c.logger.Debug().
		Str("model", req.Model).
		Int("max_tokens", req.MaxTokens).
		Int("messages", len(req.Messages)).
		Int("tools", len(req.Tools)).
		Msg("Sending messages request")

	var resp *MessageResponse
	start := time.Now()

	err := c.circuitBreaker.Call(func() error {
		return resilience.Retry(ctx, func() error {
			r, err := c.do(ctx, req, c.httpClient)
			if err != nil {
				return err
			}
			resp = r
			return nil
		}, c.retryConfig, isRetryableTransport)
	})

	// Update circuit breaker metrics
	observability.UpdateCircuitBreakerState("anthropic", int(c.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("anthropic")
	}
	observability.RecordProviderRequest(time.Since(start).Seconds(), err == nil)

	if err != nil {
		return nil, err
	}
	return resp, nil
}

// StreamMessages opens a streaming Messages API call and returns a handle
// delivering incremental events. The returned stream owns the response body.
func (c *Client) StreamMessages(ctx context.Context, req MessageRequest) (*Stream, error) {
	req.Stream = true

	c.logger.Debug().
		Str("model", req.Model).
		Int("max_tokens", req.MaxTokens).
		Int("messages", len(req.Messages)).
		Msg("Opening messages stream")

	streamCtx, cancel := context.WithCancel(ctx)

	var resp *http.Response
	start := time.Now()

	err := c.circuitBreaker.Call(func() error {
		return resilience.Retry(streamCtx, func() error {
			r, err := c.post(streamCtx, req, c.streamClient)
			if err != nil {
				return err
			}
			if r.StatusCode >= http.StatusMultipleChoices {
				defer r.Body.Close()
				return readAPIError(r)
			}
			resp = r
			return nil
		}, c.retryConfig, isRetryableTransport)
	})

	observability.UpdateCircuitBreakerState("anthropic", int(c.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("anthropic")
	}
	observability.RecordProviderRequest(time.Since(start).Seconds(), err == nil)

	if err != nil {
		cancel()
		return nil, err
	}

	return newStream(streamCtx, cancel, resp.Body, c.logger), nil
}

// HealthCheck reports whether the API is reachable with the configured
// credential. It lists models rather than spending completion tokens.
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+modelsPath, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, fmt.Errorf("authentication failed (status %d)", resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return false, fmt.Errorf("anthropic status %d", resp.StatusCode)
	}
	return true, nil
}

// do performs one blocking request and decodes the response.
func (c *Client) do(ctx context.Context, req MessageRequest, hc *http.Client) (*MessageResponse, error) {
	resp, err := c.post(ctx, req, hc)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, readAPIError(resp)
	}

	var msg MessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode messages response: %w", err)
	}
	return &msg, nil
}

func (c *Client) post(ctx context.Context, payload MessageRequest, hc *http.Client) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode messages request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, &buf)
	if err != nil {
		return nil, fmt.Errorf("create messages request: %w", err)
	}

	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Anthropic-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	return hc.Do(req)
}

func readAPIError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic api status %d: %w", resp.StatusCode, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var apiErr ErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return APIError{StatusCode: resp.StatusCode, Type: apiErr.Error.Type, Message: apiErr.Error.Message}
	}

	return APIError{StatusCode: resp.StatusCode, Message: string(body)}
}

// isRetryableTransport retries connection-level failures only. API errors,
// rate limits included, always surface to the caller.
func isRetryableTransport(err error) bool {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return false
	}
	return resilience.IsRetryableNetworkError(err)
}
