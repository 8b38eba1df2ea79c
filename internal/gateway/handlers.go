package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/victry/ai-gateway/internal/anthropic"
	"github.com/victry/ai-gateway/internal/completion"
	"github.com/victry/ai-gateway/internal/config"
	"github.com/victry/ai-gateway/internal/observability"
)

// HandleComplete serves POST /v1/complete: one request, one final answer,
// with at most one tool round in between.
func HandleComplete(svc *completion.Service, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		requestID := observability.NewRequestID()
		logger := observability.WithRequestID(requestID)
		metrics := observability.NewRequestMetrics(requestID)

		var req completion.Request
		if err := decodeBody(w, r, cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		resp, err := svc.Complete(r.Context(), req)
		if err != nil {
			status := statusForError(err)
			if status == http.StatusBadRequest {
				// Validation rejections are the caller's problem, not a failure
				logger.Debug().Err(err).Msg("Completion request rejected")
			} else {
				logger.Error().Err(err).Int("status", status).Msg("Completion failed")
				metrics.RecordError(errorType(err), "completion")
			}
			metrics.RecordCompletion("sync", false)
			writeError(w, status, err.Error())
			return
		}

		metrics.RecordTokens(resp.Usage.InputTokens, resp.Usage.OutputTokens)
		metrics.RecordCompletion("sync", true)
		logger.Info().
			Str("model", resp.Model).
			Str("stop_reason", resp.StopReason).
			Int("input_tokens", resp.Usage.InputTokens).
			Int("output_tokens", resp.Usage.OutputTokens).
			Int("tool_results", len(resp.ToolResults)).
			Msg("Completion served")
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleAnalyze serves POST /v1/analyze: structured job description analysis
// extracted from a forced tool call.
func HandleAnalyze(svc *completion.Service, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		requestID := observability.NewRequestID()
		logger := observability.WithRequestID(requestID)
		metrics := observability.NewRequestMetrics(requestID)

		var req completion.AnalyzeRequest
		if err := decodeBody(w, r, cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		analysis, err := svc.Analyze(r.Context(), req)
		if err != nil {
			status := statusForError(err)
			if status == http.StatusBadRequest {
				logger.Debug().Err(err).Msg("Analyze request rejected")
			} else {
				logger.Error().Err(err).Int("status", status).Msg("Job analysis failed")
				metrics.RecordError(errorType(err), "analyze")
			}
			metrics.RecordCompletion("analyze", false)
			writeError(w, status, err.Error())
			return
		}

		metrics.RecordCompletion("analyze", true)
		logger.Info().
			Str("title", analysis.Title).
			Int("keywords", len(analysis.Keywords)).
			Msg("Job analysis served")
		writeJSON(w, http.StatusOK, analysis)
	}
}

// statusForError maps orchestration failures to response status codes:
// validation 400, parse failures 500 with their own message, and provider
// failures per classification.
func statusForError(err error) int {
	var vErr *completion.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest
	}
	var pErr *completion.ParseError
	if errors.As(err, &pErr) {
		return http.StatusInternalServerError
	}
	return anthropic.Classify(err).HTTPStatus()
}

// errorType labels a failure for the error metrics.
func errorType(err error) string {
	var pErr *completion.ParseError
	if errors.As(err, &pErr) {
		return "parse_error"
	}
	return anthropic.Classify(err).String()
}

// decodeBody decodes a JSON request body with a size cap. An empty body
// decodes to the zero value so the shared validation produces its message;
// malformed or oversized bodies reject immediately.
func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger := observability.GetLogger()
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
