package argo

import (
	"strings"
	"time"

	"github.com/argonaut-dev/argonaut/pkg/api"
	"github.com/argonaut-dev/argonaut/pkg/models"
)

// ToBackend converts a client chat request into the Argo request shape.
// It resolves the model through the alias table, rejects parameters the
// backend cannot honor without changing semantics, and reshapes the message
// list into the form the resolved model expects. Pure aside from table
// lookups; the same request always maps to the same output.
func ToBackend(req *api.ChatCompletionRequest, table *models.Table, user string) (*Request, error) {
	model, ok := table.ResolveChat(req.Model)
	if !ok {
		return nil, api.NewUnknownModelError(req.Model)
	}
	if err := checkParameters(req); err != nil {
		return nil, err
	}

	out := &Request{
		User:                user,
		Model:               model.Native,
		Stop:                []string(req.Stop),
		Temperature:         req.Temperature,
		TopP:                req.TopP,
		MaxTokens:           req.MaxTokens,
		MaxCompletionTokens: req.MaxCompletionTokens,
	}

	msgs := flattenMessages(req.Messages)
	if !model.SystemRole {
		msgs = demoteSystem(msgs)
	}
	if model.NativeMessages {
		out.Messages = msgs
	} else {
		out.System, out.Prompt = splitSystemPrompt(msgs)
	}
	return out, nil
}

// checkParameters rejects request fields the backend cannot honor without
// silently changing what the client asked for. Fields that can be ignored
// safely are dropped without error.
func checkParameters(req *api.ChatCompletionRequest) error {
	if req.N != nil && *req.N > 1 {
		return api.NewUnsupportedParameterError("n",
			"the backend produces a single completion per request; n > 1 is not supported")
	}
	if req.Logprobs != nil && *req.Logprobs {
		return api.NewUnsupportedParameterError("logprobs",
			"the backend does not report log probabilities")
	}
	if req.TopLogprobs != nil && *req.TopLogprobs > 0 {
		return api.NewUnsupportedParameterError("top_logprobs",
			"the backend does not report log probabilities")
	}
	return nil
}

// flattenMessages reduces client messages to the backend's plain-text
// shape. Structured content parts collapse to their concatenated text.
// Tool-role messages are carried as user messages; the emulation layer has
// already rendered their results into text by the time requests reach the
// mapper.
func flattenMessages(messages []api.ChatMessage) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == api.RoleTool {
			role = api.RoleUser
		}
		out = append(out, Message{Role: role, Content: api.ContentText(m.Content)})
	}
	return out
}

// demoteSystem rewrites system messages as user messages, preserving
// positions, for models that reject the system role.
func demoteSystem(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		if m.Role == api.RoleSystem {
			m.Role = api.RoleUser
		}
		out[i] = m
	}
	return out
}

// splitSystemPrompt flattens a message list into the system + prompt pair
// used by models without native message support. System contents join in
// order; user and assistant contents form the prompt list in order.
func splitSystemPrompt(msgs []Message) (string, []string) {
	var system []string
	var prompt []string
	for _, m := range msgs {
		switch m.Role {
		case api.RoleSystem:
			system = append(system, m.Content)
		default:
			prompt = append(prompt, m.Content)
		}
	}
	return strings.Join(system, "\n\n"), prompt
}

// FromBackend converts an Argo response into a complete client chat
// response. The backend reports no usage, so a synthetic usage block is
// always computed from the estimator; the client contract is that
// non-streaming responses carry usage.
func FromBackend(resp *Response, model string, sent *Request, est TokenEstimator) *api.ChatCompletionResponse {
	usage := estimateUsage(sent, resp.Response, est)
	return &api.ChatCompletionResponse{
		ID:      api.NewChatCompletionID(),
		Object:  api.ObjectChatCompletion,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []api.ChatChoice{
			{
				Index:        0,
				Message:      api.ChatMessage{Role: api.RoleAssistant, Content: resp.Response},
				FinishReason: api.FinishReasonStop,
			},
		},
		Usage: &usage,
	}
}

// FromBackendCompletion converts an Argo response into the legacy
// text_completion response shape.
func FromBackendCompletion(resp *Response, model string, sent *Request, est TokenEstimator) *api.CompletionResponse {
	usage := estimateUsage(sent, resp.Response, est)
	reason := api.FinishReasonStop
	return &api.CompletionResponse{
		ID:      api.NewCompletionID(),
		Object:  api.ObjectTextCompletion,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []api.CompletionChoice{
			{Index: 0, Text: resp.Response, FinishReason: &reason},
		},
		Usage: &usage,
	}
}

func estimateUsage(sent *Request, completion string, est TokenEstimator) api.Usage {
	promptTokens := est.Count(sent.PromptText())
	completionTokens := est.Count(completion)
	return api.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

// ToBackendEmbedding converts a client embeddings request into the Argo
// shape: the input list travels as the prompt field.
func ToBackendEmbedding(req *api.EmbeddingsRequest, table *models.Table, user string) (*EmbeddingRequest, error) {
	model, ok := table.ResolveEmbedding(req.Model)
	if !ok {
		return nil, api.NewUnknownModelError(req.Model)
	}
	return &EmbeddingRequest{
		User:   user,
		Model:  model.Native,
		Prompt: []string(req.Input),
	}, nil
}

// FromBackendEmbedding converts an Argo embeddings response into the client
// list shape, one entry per input in order.
func FromBackendEmbedding(resp *EmbeddingResponse, model string, inputs []string, est TokenEstimator) *api.EmbeddingsResponse {
	out := &api.EmbeddingsResponse{
		Object: api.ObjectList,
		Model:  model,
	}
	for i, vec := range resp.Embedding {
		out.Data = append(out.Data, api.Embedding{
			Object:    api.ObjectEmbedding,
			Index:     i,
			Embedding: vec,
		})
	}
	promptTokens := est.Count(strings.Join(inputs, "\n"))
	out.Usage = &api.Usage{PromptTokens: promptTokens, TotalTokens: promptTokens}
	return out
}
