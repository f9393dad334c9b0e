package argo

import "strings"

// Request is the Argo chat request body. Depending on the model, the
// conversation travels either as Messages or as the flattened System +
// Prompt pair; never both.
type Request struct {
	User                string    `json:"user"`
	Model               string    `json:"model"`
	Messages            []Message `json:"messages,omitempty"`
	System              string    `json:"system,omitempty"`
	Prompt              []string  `json:"prompt,omitempty"`
	Stop                []string  `json:"stop,omitempty"`
	Temperature         *float64  `json:"temperature,omitempty"`
	TopP                *float64  `json:"top_p,omitempty"`
	MaxTokens           *int      `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int      `json:"max_completion_tokens,omitempty"`
}

// Message is one Argo-format conversation entry. Content is always plain
// text; the backend has no structured content parts.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptText returns the full outbound text of the request, used for
// deterministic token estimation when the backend reports no usage.
func (r *Request) PromptText() string {
	var sb strings.Builder
	if r.System != "" {
		sb.WriteString(r.System)
		sb.WriteString("\n")
	}
	for _, p := range r.Prompt {
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	for _, m := range r.Messages {
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Response is the Argo chat response body. The backend delivers the entire
// completion as one text field; it reports no usage, no finish reason, and
// no structured calls.
type Response struct {
	Response string `json:"response"`
}

// EmbeddingRequest is the Argo embeddings request body.
type EmbeddingRequest struct {
	User   string   `json:"user"`
	Model  string   `json:"model"`
	Prompt []string `json:"prompt"`
}

/// EmbeddingResponse is the Argo embeddings response body: one vector per
// input prompt, in order.
type EmbeddingResponse struct {
	Embedding [][]float64 `json:"embedding"`
}
