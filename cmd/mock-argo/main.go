// Command mock-argo runs a deterministic Argo API server for demos and
// manual gateway testing. It speaks the Argo wire formats: a buffered chat
// endpoint returning {"response": ...}, a streaming endpoint writing raw
// text chunks, and an embeddings endpoint returning one vector per prompt.
// Responses are derived from request content analysis so runs are
// repeatable.
//
// Configuration:
//
//	MOCK_ARGO_PORT - Listen port (default: 9190)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_ARGO_PORT")
	if port == "" {
		port = "9190"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", handleChat)
	mux.HandleFunc("POST /streamchat", handleStreamChat)
	mux.HandleFunc("POST /embed", handleEmbed)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock argo starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock argo failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock argo shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Request types (Argo wire shapes) ---

type argoRequest struct {
	User     string        `json:"user"`
	Model    string        `json:"model"`
	Messages []argoMessage `json:"messages"`
	System   string        `json:"system"`
	Prompt   []string      `json:"prompt"`
}

type argoMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type embedRequest struct {
	User   string   `json:"user"`
	Model  string   `json:"model"`
	Prompt []string `json:"prompt"`
}

// --- Handlers ---

func handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChat(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"response": completionFor(req)})
}

// handleStreamChat writes the completion as raw text chunks with a small
// delay between writes, the way the real streaming endpoint trickles
// tokens. No SSE framing; the body is plain UTF-8.
func handleStreamChat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChat(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	text := completionFor(req)
	for _, word := range splitKeepingSpace(text) {
		if r.Context().Err() != nil {
			return
		}
		fmt.Fprint(w, word)
		flusher.Flush()
		time.Sleep(20 * time.Millisecond)
	}
}

func handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request"}`, http.StatusBadRequest)
		return
	}
	if req.User == "" {
		http.Error(w, `{"error": "user is required"}`, http.StatusBadRequest)
		return
	}

	// One fixed-dimension vector per prompt, seeded by prompt length so
	// outputs are stable across runs.
	vectors := make([][]float64, len(req.Prompt))
	for i, p := range req.Prompt {
		vec := make([]float64, 8)
		for j := range vec {
			vec[j] = float64((len(p)+i+j)%7) / 10
		}
		vectors[i] = vec
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][][]float64{"embedding": vectors})
}

func decodeChat(w http.ResponseWriter, r *http.Request) (*argoRequest, bool) {
	var req argoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request"}`, http.StatusBadRequest)
		return nil, false
	}
	if req.User == "" {
		http.Error(w, `{"error": "user is required"}`, http.StatusBadRequest)
		return nil, false
	}
	if req.Model == "" {
		http.Error(w, `{"error": "model is required"}`, http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

// --- Content analysis ---

// completionFor derives a deterministic reply from the request text.
func completionFor(req *argoRequest) string {
	full := conversationText(req)

	// A gateway-injected tool instruction block announces itself with the
	// tag convention. Answer with a call so emulation round trips.
	if strings.Contains(full, "<tool_call>") {
		return `<tool_call>
{"name": "get_weather", "arguments": {"location": "Chicago", "unit": "celsius"}}
</tool_call>`
	}

	last := strings.ToLower(lastUserText(req))
	switch {
	case strings.Contains(last, "count from 1 to 5"):
		return "1, 2, 3, 4, 5"
	case strings.Contains(last, "say hello"):
		return "Hello! The mock Argo backend is alive."
	case strings.Contains(last, "haiku"):
		return "Gateway in the night\ntranslating every request\nchunks flow like water"
	default:
		return "This is a deterministic mock completion."
	}
}

func conversationText(req *argoRequest) string {
	var sb strings.Builder
	sb.WriteString(req.System)
	for _, p := range req.Prompt {
		sb.WriteString("\n")
		sb.WriteString(p)
	}
	for _, m := range req.Messages {
		sb.WriteString("\n")
		sb.WriteString(m.Content)
	}
	return sb.String()
}

func lastUserText(req *argoRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	if n := len(req.Prompt); n > 0 {
		return req.Prompt[n-1]
	}
	return ""
}

// splitKeepingSpace cuts text into word-sized chunks without losing any
// bytes, so the concatenated stream equals the buffered completion.
func splitKeepingSpace(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' || text[i] == '\n' {
			out = append(out, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
