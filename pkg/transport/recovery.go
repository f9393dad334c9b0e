package transport

import (
	"fmt"
	"log/slog"
	"net/http"
)

// Recovery returns middleware that catches panics in downstream handlers.
// If no response has been started, the client gets a 500 error body;
// otherwise the panic is only logged, since the wire is already committed.
// The server keeps accepting requests either way.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler panic",
						"request_id", RequestIDFromContext(r.Context()),
						"path", r.URL.Path,
						"panic", fmt.Sprint(rec),
					)
					if !sw.wrote {
						WriteAPIError(sw, fmt.Errorf("internal server error: %v", rec))
					}
				}
			}()
			next.ServeHTTP(sw, r)
		})
	}
}
