package completion

import (
	"context"
)

// Session is one live streaming completion. Chunks delivers incremental text
// until the stream ends; once Chunks closes, Err reports whether it ended in
// failure. Cancelling the context passed to StreamComplete aborts the
// upstream provider call, so a client that disconnects before the first
// chunk still tears the stream down.
type Session struct {
	chunks   chan string
	upstream Stream
	err      error // written by forward before chunks closes
}

// StreamComplete validates the request and opens a streaming completion.
// Failures before the stream exists are returned directly; failures after
// are delivered through the session, since the response status line is
// already gone by then.
func (s *Service) StreamComplete(ctx context.Context, req Request) (*Session, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	apiReq := s.buildMessageRequest(req, req.normalized())
	// The streaming path never runs a tool round
	apiReq.Tools = nil

	upstream, err := s.provider.OpenStream(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	session := &Session{
		chunks:   make(chan string, 16),
		upstream: upstream,
	}
	go session.forward(ctx)
	return session, nil
}

// Chunks returns the outbound text channel. It closes exactly once, when
// the upstream ends, fails, or the context is cancelled.
func (sess *Session) Chunks() <-chan string {
	return sess.chunks
}

// Err reports the stream failure, if any. Valid once Chunks has closed.
func (sess *Session) Err() error {
	return sess.err
}

// forward is the sole writer and closer of chunks. Once ctx is done it
// aborts upstream and drops everything still in flight, so a vanished
// client never blocks the gateway.
func (sess *Session) forward(ctx context.Context) {
	defer close(sess.chunks)

	for {
		select {
		case <-ctx.Done():
			sess.upstream.Abort()
			return
		case event, ok := <-sess.upstream.Events():
			if !ok {
				return
			}
			if event.Err != nil {
				sess.err = event.Err
				return
			}
			select {
			case sess.chunks <- event.Text:
			case <-ctx.Done():
				sess.upstream.Abort()
				return
			}
		}
	}
}
