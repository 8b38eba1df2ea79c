package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// StreamEvent is one event from a live Messages stream: either an
// incremental text delta or a terminal error. The events channel closes
// after the final event is delivered.
type StreamEvent struct {
	Text string
	Err  error
}

// Stream is a handle to one in-flight streaming Messages call.
type Stream struct {
	events    chan StreamEvent
	cancel    context.CancelFunc
	abortOnce sync.Once
}

// errStreamDone stops SSE consumption after the terminal message_stop event.
var errStreamDone = errors.New("stream done")

func newStream(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, logger zerolog.Logger) *Stream {
	s := &Stream{
		events: make(chan StreamEvent, 16),
		cancel: cancel,
	}
	go s.consume(ctx, body, logger)
	return s
}

// Events returns the event channel. It closes once after the stream ends,
// whether normally, by error, or by abort.
func (s *Stream) Events() <-chan StreamEvent {
	return s.events
}

// Abort cancels the upstream request. Safe to call more than once and
// concurrently with event delivery.
func (s *Stream) Abort() {
	s.abortOnce.Do(s.cancel)
}

func (s *Stream) consume(ctx context.Context, body io.ReadCloser, logger zerolog.Logger) {
	defer close(s.events)
	defer body.Close()
	defer s.cancel()

	err := consumeSSE(ctx, body, func(_ string, data string) error {
		data = strings.TrimSpace(data)
		if data == "" {
			return nil
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(data), &envelope); err != nil {
			return fmt.Errorf("decode stream envelope: %w", err)
		}

		switch envelope.Type {
		case "content_block_delta":
			var event struct {
				Delta struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"delta"`
			}
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				return fmt.Errorf("decode stream delta: %w", err)
			}
			if event.Delta.Text == "" {
				return nil
			}
			select {
			case s.events <- StreamEvent{Text: event.Delta.Text}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}

		case "message_stop":
			return errStreamDone

		case "error":
			// Failures arriving mid-stream come as in-band error events
			var event ErrorResponse
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				return fmt.Errorf("decode stream error event: %w", err)
			}
			return APIError{Type: event.Error.Type, Message: event.Error.Message}

		default:
			// message_start, content_block_start, content_block_stop,
			// message_delta, ping
			return nil
		}
	})

	if err != nil && !errors.Is(err, errStreamDone) {
		if ctx.Err() != nil {
			// Aborted by the caller; not a stream failure
			return
		}
		logger.Warn().Err(err).Msg("Messages stream failed")
		select {
		case s.events <- StreamEvent{Err: err}:
		case <-ctx.Done():
		}
	}
}

// consumeSSE parses a Server-Sent Events stream, invoking fn for each event.
func consumeSSE(ctx context.Context, r io.Reader, fn func(event, data string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName string
	var dataBuf strings.Builder
	flush := func() error {
		if dataBuf.Len() == 0 {
			eventName = ""
			return nil
		}
		payload := dataBuf.String()
		dataBuf.Reset()
		return fn(eventName, payload)
	}

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Text()
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			eventName = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "event:") {
			eventName = strings.TrimSpace(line[6:])
			continue
		}
		if strings.HasPrefix(line, "data:") {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimSpace(line[5:]))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}
