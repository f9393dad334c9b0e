// Package http adapts the gateway to HTTP: an OpenAI-style route table, SSE
// framing for streams, and server lifecycle management.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/argonaut-dev/argonaut/pkg/api"
	"github.com/argonaut-dev/argonaut/pkg/transport"
)

// Adapter serves the OpenAI-compatible gateway API over HTTP. It parses and
// validates wire input, routes each request to the matching Gateway method,
// and serializes the result.
type Adapter struct {
	gateway  transport.Gateway
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr        string
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:        ":44497",
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter around the given Gateway.
func NewAdapter(gw transport.Gateway, cfg Config) *Adapter {
	a := &Adapter{
		gateway:  gw,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("POST /v1/chat/completions", a.handleChatCompletions)
	a.mux.HandleFunc("POST /v1/completions", a.handleCompletions)
	a.mux.HandleFunc("POST /v1/embeddings", a.handleEmbeddings)
	a.mux.HandleFunc("POST /v1/chat", a.handleRawChat)
	a.mux.HandleFunc("GET /v1/models", a.handleModels)
	a.mux.HandleFunc("GET /v1/status", a.handleStatus)
	a.mux.HandleFunc("GET /v1/docs", a.handleDocs)
	a.mux.HandleFunc("GET /health", a.handleHealth)
	a.mux.Handle("GET /metrics", promhttp.Handler())

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

// handleChatCompletions handles POST /v1/chat/completions.
func (a *Adapter) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req api.ChatCompletionRequest
	if !a.decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := applyTimeoutOverride(r, &req.Timeout); apiErr != nil {
		transport.WriteErrorResponse(w, apiErr, http.StatusBadRequest)
		return
	}

	if req.Stream {
		a.serveStream(w, r, func(ctx context.Context, sw transport.StreamWriter) error {
			return a.gateway.ChatStream(ctx, &req, sw)
		})
		return
	}

	resp, err := a.gateway.Chat(r.Context(), &req)
	if err != nil {
		transport.WriteAPIError(w, err)
		return
	}
	writeJSON(w, resp)
}

// handleCompletions handles POST /v1/completions.
func (a *Adapter) handleCompletions(w http.ResponseWriter, r *http.Request) {
	var req api.CompletionRequest
	if !a.decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := applyTimeoutOverride(r, &req.Timeout); apiErr != nil {
		transport.WriteErrorResponse(w, apiErr, http.StatusBadRequest)
		return
	}

	if req.Stream {
		a.serveStream(w, r, func(ctx context.Context, sw transport.StreamWriter) error {
			return a.gateway.CompletionStream(ctx, &req, sw)
		})
		return
	}

	resp, err := a.gateway.Completion(r.Context(), &req)
	if err != nil {
		transport.WriteAPIError(w, err)
		return
	}
	writeJSON(w, resp)
}

// handleEmbeddings handles POST /v1/embeddings.
func (a *Adapter) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req api.EmbeddingsRequest
	if !a.decodeJSONBody(w, r, &req) {
		return
	}

	resp, err := a.gateway.Embeddings(r.Context(), &req)
	if err != nil {
		transport.WriteAPIError(w, err)
		return
	}
	writeJSON(w, resp)
}

// handleRawChat handles POST /v1/chat, the backend-native passthrough. The
// body is forwarded verbatim and the backend's status and body come back
// untouched, which makes the route useful for checking translation parity.
func (a *Adapter) handleRawChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "reading request body: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	status, respBody, err := a.gateway.RawChat(r.Context(), body)
	if err != nil {
		transport.WriteAPIError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(respBody)
}

// handleModels handles GET /v1/models.
func (a *Adapter) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.gateway.Models())
}

// handleStatus handles GET /v1/status by probing the upstream with one tiny
// chat round trip and returning the completion.
func (a *Adapter) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := a.gateway.Status(r.Context())
	if err != nil {
		transport.WriteAPIError(w, err)
		return
	}
	writeJSON(w, resp)
}

// handleDocs handles GET /v1/docs.
func (a *Adapter) handleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Documentation access: Please visit https://github.com/argonaut-dev/argonaut for full documentation.")
}

// handleHealth handles GET /health.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

// serveStream runs one streaming request. The stream's cancel function is
// registered in the in-flight registry so shutdown can abort it, and a
// handler error only becomes a JSON response while nothing has reached the
// wire.
func (a *Adapter) serveStream(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, sw transport.StreamWriter) error) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id := transport.RequestIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	a.inflight.Register(id, cancel)
	defer a.inflight.Remove(id)

	sw := newSSEStreamWriter(w)
	if err := run(ctx, sw); err != nil {
		if sw.started() {
			// Chunks are already on the wire; the stream ended in-band.
			return
		}
		transport.WriteAPIError(w, err)
	}
}

// decodeJSONBody enforces the JSON content type and the body size cap, then
// decodes the body into dst. On failure it writes the error response itself
// and returns false.
func (a *Adapter) decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "application/json") {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return false
	}
	return true
}

// applyTimeoutOverride folds a ?timeout= query parameter (seconds) into the
// request's timeout field. The query parameter wins over the body value.
func applyTimeoutOverride(r *http.Request, dst **float64) *api.APIError {
	raw := r.URL.Query().Get("timeout")
	if raw == "" {
		return nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return api.NewInvalidRequestError("timeout", "timeout must be a positive number of seconds")
	}
	*dst = &secs
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
