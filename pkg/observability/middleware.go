package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MetricsMiddleware wraps an HTTP handler to record request metrics.
//
// It captures:
//   - argonaut_requests_total (counter): incremented per request with method, status class, and route labels
//   - argonaut_request_duration_seconds (histogram): request duration with method and route labels
//   - argonaut_streaming_connections_active (gauge): incremented while an SSE streaming response is in flight
//
// Streaming is detected from the response Content-Type rather than the
// request Accept header: OpenAI-style clients ask for a stream in the JSON
// body, and the handler only commits to SSE framing when it writes the
// first chunk.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		if sw.streaming {
			StreamingConnections.Dec()
		}

		// Routes are a small fixed set, so the path is safe as a label.
		statusClass := strconv.Itoa(sw.status/100) + "xx"
		RequestsTotal.WithLabelValues(r.Method, statusClass, r.URL.Path).Inc()
		RequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code and to
// notice when the handler switches to SSE framing.
type statusWriter struct {
	http.ResponseWriter
	status    int
	written   bool
	streaming bool
}

// markWritten records the first header/body write. If the response declared
// itself an event stream by then, the connection counts as streaming for the
// rest of its life.
func (w *statusWriter) markWritten() {
	if w.written {
		return
	}
	w.written = true
	if strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream") {
		w.streaming = true
		StreamingConnections.Inc()
	}
}

// WriteHeader captures the status code and delegates to the underlying writer.
func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
	}
	w.markWritten()
	w.ResponseWriter.WriteHeader(status)
}

// Write delegates to the underlying writer and marks the status as written.
func (w *statusWriter) Write(b []byte) (int, error) {
	w.markWritten()
	return w.ResponseWriter.Write(b)
}

// Flush delegates to the underlying writer if it implements http.Flusher.
// This is essential for SSE streaming support.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter, enabling http.ResponseController
// and similar utilities to access the original writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
