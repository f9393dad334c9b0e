package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/argonaut-dev/argonaut/pkg/transport"
)

// writerState tracks the state of an SSE stream writer.
type writerState int

const (
	writerIdle      writerState = iota // Initial state, no writes yet
	writerStreaming                    // WriteData has been called at least once
	writerCompleted                    // [DONE] sentinel sent
)

// sseStreamWriter implements transport.StreamWriter over an
// http.ResponseWriter. Each value becomes one SSE data event, flushed
// immediately so chunks reach the client as they are produced.
type sseStreamWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState
}

var _ transport.StreamWriter = (*sseStreamWriter)(nil)

// newSSEStreamWriter creates a StreamWriter wrapping an http.ResponseWriter.
func newSSEStreamWriter(w http.ResponseWriter) *sseStreamWriter {
	return &sseStreamWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// WriteData sends a single SSE data event:
//
//	data: {json}\n
//	\n
//
// The context error is checked first so a vanished client surfaces as a
// write failure before anything touches the wire.
func (s *sseStreamWriter) WriteData(ctx context.Context, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.state == writerCompleted {
		return errors.New("cannot write data: stream is completed")
	}

	// First event: set SSE headers.
	if s.state == writerIdle {
		s.setStreamHeaders()
		s.state = writerStreaming
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}

	// Flush immediately.
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	return nil
}

// WriteDone sends the [DONE] sentinel and marks the stream completed.
func (s *sseStreamWriter) WriteDone(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.state == writerCompleted {
		return errors.New("cannot write [DONE]: stream is completed")
	}
	if s.state == writerIdle {
		s.setStreamHeaders()
	}
	s.state = writerCompleted

	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("failed to write [DONE]: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush [DONE]: %w", err)
	}

	return nil
}

func (s *sseStreamWriter) setStreamHeaders() {
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
}

// started reports whether at least one event has been written. The adapter
// uses it to decide whether a handler error can still become a JSON response.
func (s *sseStreamWriter) started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != writerIdle
}
