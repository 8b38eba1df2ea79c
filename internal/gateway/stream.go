package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/victry/ai-gateway/internal/completion"
	"github.com/victry/ai-gateway/internal/config"
	"github.com/victry/ai-gateway/internal/observability"
)

// streamChunk is the payload of one SSE data frame.
type streamChunk struct {
	Text string `json:"text"`
}

// HandleStream serves POST /v1/complete/stream: completion text forwarded
// incrementally as server-sent events. Failures before the stream opens get
// a JSON error with a real status; once events are flowing the status line
// is gone, so upstream failures arrive as an in-band error event instead.
func HandleStream(svc *completion.Service, cfg *config.Config) http.HandlerFunc {
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

		// The request context is cancelled when the client disconnects,
		// which aborts the upstream provider stream through the session.
		session, err := svc.StreamComplete(r.Context(), req)
		if err != nil {
			status := statusForError(err)
			if status == http.StatusBadRequest {
				logger.Debug().Err(err).Msg("Stream request rejected")
			} else {
				logger.Error().Err(err).Int("status", status).Msg("Stream open failed")
				metrics.RecordError(errorType(err), "stream")
			}
			metrics.RecordCompletion("stream", false)
			writeError(w, status, err.Error())
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			logger.Error().Msg("Response writer does not support streaming")
			writeError(w, http.StatusInternalServerError, "Streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		metrics.RecordStreamStart()
		logger.Info().Msg("Streaming completion started")

		chunks := 0
		for chunk := range session.Chunks() {
			if err := writeEvent(w, "", streamChunk{Text: chunk}); err != nil {
				// Client is gone; returning cancels the request context and
				// the session aborts upstream
				logger.Debug().Err(err).Int("chunks", chunks).Msg("Client write failed, abandoning stream")
				metrics.RecordCompletion("stream", false)
				return
			}
			flusher.Flush()
			chunks++
			observability.RecordStreamChunk()
		}

		// Chunks has closed, so the session error is settled
		if err := session.Err(); err != nil {
			logger.Warn().Err(err).Int("chunks", chunks).Msg("Stream failed upstream")
			metrics.RecordError(errorType(err), "stream")
			if werr := writeEvent(w, "error", map[string]string{"error": err.Error()}); werr == nil {
				flusher.Flush()
			}
			metrics.RecordCompletion("stream", false)
			return
		}

		metrics.RecordCompletion("stream", true)
		logger.Info().Int("chunks", chunks).Msg("Streaming completion finished")
	}
}

// writeEvent writes one SSE frame. A non-empty name becomes an event: line
// ahead of the JSON data line.
func writeEvent(w io.Writer, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if name != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", name); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
