package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sseHandler(t *testing.T, events []string, done chan<- struct{}) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("ResponseWriter does not support flushing")
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, e := range events {
			fmt.Fprint(w, e)
			flusher.Flush()
		}
		if done != nil {
			<-r.Context().Done()
			close(done)
		}
	}
}

func streamFrame(eventType, data string) string {
	return "event: " + eventType + "\ndata: " + data + "\n\n"
}

func TestStreamMessages(t *testing.T) {
	events := []string{
		streamFrame("message_start", `{"type":"message_start","message":{"id":"msg_01","role":"assistant"}}`),
		streamFrame("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		streamFrame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`),
		streamFrame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" world"}}`),
		streamFrame("content_block_stop", `{"type":"content_block_stop","index":0}`),
		streamFrame("message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}`),
		streamFrame("message_stop", `{"type":"message_stop"}`),
	}
	server := httptest.NewServer(sseHandler(t, events, nil))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	stream, err := client.StreamMessages(context.Background(), MessageRequest{
		Model:     "claude-3-7-sonnet-20250219",
		MaxTokens: 100,
		Messages:  []MessageParam{{Role: "user", Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("StreamMessages() failed: %v", err)
	}

	var texts []string
	for ev := range stream.Events() {
		if ev.Err != nil {
			t.Fatalf("Unexpected stream error: %v", ev.Err)
		}
		texts = append(texts, ev.Text)
	}

	if len(texts) != 2 {
		t.Fatalf("Expected 2 text events, got %d: %v", len(texts), texts)
	}
	if texts[0] != "Hello" || texts[1] != " world" {
		t.Errorf("Unexpected text events: %v", texts)
	}
}

func TestStreamMessages_ErrorEvent(t *testing.T) {
	events := []string{
		streamFrame("message_start", `{"type":"message_start","message":{"id":"msg_01","role":"assistant"}}`),
		streamFrame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Partial"}}`),
		streamFrame("error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`),
	}
	server := httptest.NewServer(sseHandler(t, events, nil))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	stream, err := client.StreamMessages(context.Background(), MessageRequest{
		Model:     "claude-3-7-sonnet-20250219",
		MaxTokens: 100,
		Messages:  []MessageParam{{Role: "user", Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("StreamMessages() failed: %v", err)
	}

	var texts []string
	var streamErr error
	for ev := range stream.Events() {
		if ev.Err != nil {
			streamErr = ev.Err
			continue
		}
		texts = append(texts, ev.Text)
	}

	if len(texts) != 1 || texts[0] != "Partial" {
		t.Errorf("Expected one text event before the failure, got %v", texts)
	}
	if streamErr == nil {
		t.Fatal("Expected an error event")
	}

	var apiErr APIError
	if !errors.As(streamErr, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", streamErr, streamErr)
	}
	if apiErr.Type != "overloaded_error" {
		t.Errorf("Expected type 'overloaded_error', got '%s'", apiErr.Type)
	}
	if Classify(streamErr) != KindService {
		t.Errorf("Expected KindService, got %s", Classify(streamErr))
	}
}

func TestStreamMessages_OpenError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	_, err = client.StreamMessages(context.Background(), MessageRequest{
		Model:     "claude-3-7-sonnet-20250219",
		MaxTokens: 100,
		Messages:  []MessageParam{{Role: "user", Content: "Hello"}},
	})
	if err == nil {
		t.Fatal("Expected error from 401 response")
	}
	if Classify(err) != KindUnauthorized {
		t.Errorf("Expected KindUnauthorized, got %s", Classify(err))
	}
}

func TestStream_Abort(t *testing.T) {
	handlerDone := make(chan struct{})
	events := []string{
		streamFrame("message_start", `{"type":"message_start","message":{"id":"msg_01","role":"assistant"}}`),
		streamFrame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"First"}}`),
	}
	server := httptest.NewServer(sseHandler(t, events, handlerDone))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	stream, err := client.StreamMessages(context.Background(), MessageRequest{
		Model:     "claude-3-7-sonnet-20250219",
		MaxTokens: 100,
		Messages:  []MessageParam{{Role: "user", Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("StreamMessages() failed: %v", err)
	}

	// Read the first delta, then abort mid-stream
	ev, ok := <-stream.Events()
	if !ok || ev.Text != "First" {
		t.Fatalf("Expected first text event, got %+v (open=%v)", ev, ok)
	}

	stream.Abort()
	stream.Abort() // Second abort is a no-op

	// Upstream request must observe the cancellation
	select {
	case <-handlerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Upstream handler did not observe cancellation")
	}

	// The events channel closes without surfacing an abort-induced error
	for ev := range stream.Events() {
		if ev.Err != nil {
			t.Errorf("Unexpected error event after abort: %v", ev.Err)
		}
	}
}
