package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message roles in the Chat Completions format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// FinishReason explains why a choice stopped producing output.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonContentFilter FinishReason = "content_filter"
	// FinishReasonError terminates a stream that failed after chunks were
	// already emitted. It never appears on non-streaming responses.
	FinishReasonError FinishReason = "error"
)

// Object type discriminators used in response bodies.
const (
	ObjectChatCompletion      = "chat.completion"
	ObjectChatCompletionChunk = "chat.completion.chunk"
	ObjectTextCompletion      = "text_completion"
	ObjectList                = "list"
	ObjectModel               = "model"
	ObjectEmbedding           = "embedding"
)

// ChatCompletionRequest is the request body for POST /v1/chat/completions.
// A request is parsed once per inbound call and treated as read-only from
// then on.
type ChatCompletionRequest struct {
	Model               string         `json:"model"`
	Messages            []ChatMessage  `json:"messages"`
	Tools               []Tool         `json:"tools,omitempty"`
	ToolChoice          *ToolChoice    `json:"tool_choice,omitempty"`
	ParallelToolCalls   *bool          `json:"parallel_tool_calls,omitempty"`
	Temperature         *float64       `json:"temperature,omitempty"`
	TopP                *float64       `json:"top_p,omitempty"`
	MaxTokens           *int           `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int           `json:"max_completion_tokens,omitempty"`
	Stop                StopSequences  `json:"stop,omitempty"`
	N                   *int           `json:"n,omitempty"`
	Logprobs            *bool          `json:"logprobs,omitempty"`
	TopLogprobs         *int           `json:"top_logprobs,omitempty"`
	Stream              bool           `json:"stream,omitempty"`
	StreamOptions       *StreamOptions `json:"stream_options,omitempty"`
	User                string         `json:"user,omitempty"`

	// Timeout overrides the configured upstream timeout for this request
	// only, in seconds. Also accepted as a ?timeout= query parameter, which
	// takes precedence over the body field.
	Timeout *float64 `json:"timeout,omitempty"`
}

// StreamOptions controls streaming behavior.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}

// ChatMessage represents one message in the conversation. Content is either
// a plain string or a list of typed content parts; use [ContentText] to
// obtain the flattened text.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ContentText flattens a message content value into plain text. String
// content is returned as-is; content-part lists are concatenated in order,
// keeping only textual parts. Any other shape yields the empty string.
func ContentText(content any) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []any:
		var sb strings.Builder
		for _, part := range c {
			m, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				sb.WriteString(t)
			}
		}
		return sb.String()
	default:
		return ""
	}
}

// Tool declares a function the model may call.
type Tool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef describes a callable function: its name, what it does, and a
// JSON Schema for its arguments.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Strict      *bool           `json:"strict,omitempty"`
}

// ToolCall is a structured function invocation produced by the assistant.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and serialized JSON arguments of a
// call.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolChoice steers tool selection. On the wire it is either one of the
// strings "none", "auto", "required", or an object naming one function:
//
//	{"type": "function", "function": {"name": "get_weather"}}
type ToolChoice struct {
	// Value holds the string form when present ("none", "auto", "required").
	Value string
	// Function holds the named-function form when present.
	Function *ToolChoiceFunction
}

// ToolChoiceFunction names the function the model must call.
type ToolChoiceFunction struct {
	Name string `json:"name"`
}

// String-form tool choices.
const (
	ToolChoiceNone     = "none"
	ToolChoiceAuto     = "auto"
	ToolChoiceRequired = "required"
)

// MarshalJSON emits the string form when Value is set, otherwise the
// named-function object form.
func (tc ToolChoice) MarshalJSON() ([]byte, error) {
	if tc.Value != "" {
		return json.Marshal(tc.Value)
	}
	if tc.Function != nil {
		return json.Marshal(map[string]any{
			"type":     "function",
			"function": tc.Function,
		})
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts both the string form and the object form.
func (tc *ToolChoice) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		tc.Value = s
		tc.Function = nil
		return nil
	}
	var obj struct {
		Type     string              `json:"type"`
		Function *ToolChoiceFunction `json:"function"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("tool_choice must be a string or a named function object: %w", err)
	}
	if obj.Function == nil {
		return fmt.Errorf("tool_choice object missing function")
	}
	tc.Value = ""
	tc.Function = obj.Function
	return nil
}

// StopSequences accepts the wire forms "stop": "###" and "stop": ["###"].
type StopSequences []string

// UnmarshalJSON accepts a single string or a list of strings.
func (s *StopSequences) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = StopSequences{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("stop must be a string or an array of strings: %w", err)
	}
	*s = StopSequences(many)
	return nil
}

// Usage reports token accounting for a response. When the backend does not
// report usage, the gateway fills this in from a deterministic estimator, so
// non-streaming responses always carry it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is the complete non-streaming response body.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

// ChatChoice is one completion alternative.
type ChatChoice struct {
	Index        int          `json:"index"`
	Message      ChatMessage  `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
}

// ChatCompletionChunk is a single SSE increment of a streamed response.
// Chunks for one response share the same ID and are emitted strictly in
// order; exactly one chunk (the last) carries a non-null finish reason.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

// ChunkChoice is the delta payload of one choice within a chunk.
// FinishReason is null on every chunk except the terminal one.
type ChunkChoice struct {
	Index        int           `json:"index"`
	Delta        ChunkDelta    `json:"delta"`
	FinishReason *FinishReason `json:"finish_reason"`
}

// ChunkDelta carries the incremental content of a chunk. The first chunk of
// a stream carries the assistant role; middle chunks carry content or tool
// call fragments; the terminal chunk carries an empty delta.
type ChunkDelta struct {
	Role      string          `json:"role,omitempty"`
	Content   *string         `json:"content,omitempty"`
	ToolCalls []ChunkToolCall `json:"tool_calls,omitempty"`
}

// ChunkToolCall is an incremental fragment of a tool call. The ID and name
// appear on the first fragment for a given index; later fragments append
// argument text under the same index.
type ChunkToolCall struct {
	Index    int               `json:"index"`
	ID       string            `json:"id,omitempty"`
	Type     string            `json:"type,omitempty"`
	Function ChunkFunctionCall `json:"function"`
}

// ChunkFunctionCall holds incremental function call data.
type ChunkFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// CompletionRequest is the legacy request body for POST /v1/completions.
// It is mapped internally to a one-message chat request.
type CompletionRequest struct {
	Model       string        `json:"model"`
	Prompt      PromptInput   `json:"prompt"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	N           *int          `json:"n,omitempty"`
	Logprobs    *int          `json:"logprobs,omitempty"`
	Stop        StopSequences `json:"stop,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
	User        string        `json:"user,omitempty"`
	Timeout     *float64      `json:"timeout,omitempty"`
}

// PromptInput accepts the wire forms "prompt": "text" and
// "prompt": ["text", ...]. Multiple prompts are joined in order.
type PromptInput []string

// UnmarshalJSON accepts a single string or a list of strings.
func (p *PromptInput) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*p = PromptInput{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("prompt must be a string or an array of strings: %w", err)
	}
	*p = PromptInput(many)
	return nil
}

// Text returns the prompts joined by newlines.
func (p PromptInput) Text() string {
	return strings.Join(p, "\n")
}

// CompletionResponse is the legacy non-streaming response body.
type CompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *Usage             `json:"usage,omitempty"`
}

// CompletionChoice is one legacy completion alternative. In streamed legacy
// responses the same shape carries partial text per chunk, with FinishReason
// set only on the terminal chunk.
type CompletionChoice struct {
	Index        int           `json:"index"`
	Text         string        `json:"text"`
	FinishReason *FinishReason `json:"finish_reason"`
}

// CompletionChunk is a single SSE increment of a streamed legacy completion.
type CompletionChunk struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
}

// EmbeddingsRequest is the request body for POST /v1/embeddings.
type EmbeddingsRequest struct {
	Model          string         `json:"model"`
	Input          EmbeddingInput `json:"input"`
	EncodingFormat string         `json:"encoding_format,omitempty"`
	User           string         `json:"user,omitempty"`
}

// EmbeddingInput accepts a single string or a list of strings.
type EmbeddingInput []string

// UnmarshalJSON accepts a single string or a list of strings.
func (e *EmbeddingInput) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*e = EmbeddingInput{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("input must be a string or an array of strings: %w", err)
	}
	*e = EmbeddingInput(many)
	return nil
}

// EmbeddingsResponse is the response body for POST /v1/embeddings.
type EmbeddingsResponse struct {
	Object string      `json:"object"`
	Data   []Embedding `json:"data"`
	Model  string      `json:"model"`
	Usage  *Usage      `json:"usage,omitempty"`
}

// Embedding is one vector in an embeddings response.
type Embedding struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// ModelList is the response body for GET /v1/models.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// ModelInfo describes one model the gateway accepts. InternalName exposes
// the backend-native identifier the public ID resolves to.
type ModelInfo struct {
	ID           string `json:"id"`
	Object       string `json:"object"`
	Created      int64  `json:"created"`
	OwnedBy      string `json:"owned_by"`
	InternalName string `json:"internal_name,omitempty"`
}
