package api

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// ValidationConfig bounds request shapes before any backend work happens.
type ValidationConfig struct {
	// MaxMessages limits how many messages one chat request may carry.
	MaxMessages int
	// MaxContentBytes limits the flattened text size of a single message.
	MaxContentBytes int
	// MaxTools limits how many tool declarations one request may carry.
	MaxTools int
}

// DefaultValidationConfig returns the default validation limits.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessages:     1000,
		MaxContentBytes: 1 << 20,
		MaxTools:        128,
	}
}

var functionNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidateChatRequest checks structural validity of a chat completion
// request and returns the first failure as an *APIError, or nil when the
// request is well-formed. Parameter support against the backend is checked
// later during translation.
func ValidateChatRequest(req *ChatCompletionRequest, cfg ValidationConfig) *APIError {
	if req.Model == "" {
		return NewInvalidRequestError("model", "model is required")
	}
	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "messages must not be empty")
	}
	if cfg.MaxMessages > 0 && len(req.Messages) > cfg.MaxMessages {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("too many messages: %d exceeds the limit of %d", len(req.Messages), cfg.MaxMessages))
	}
	for i, msg := range req.Messages {
		if err := validateMessage(i, msg, cfg); err != nil {
			return err
		}
	}
	if err := validateSampling(req.Temperature, req.TopP, req.MaxTokens, req.Timeout); err != nil {
		return err
	}
	if req.N != nil && *req.N < 1 {
		return NewInvalidRequestError("n", "n must be at least 1")
	}
	if req.TopLogprobs != nil && (*req.TopLogprobs < 0 || *req.TopLogprobs > 20) {
		return NewInvalidRequestError("top_logprobs", "top_logprobs must be between 0 and 20")
	}
	if err := validateTools(req.Tools, req.ToolChoice, cfg); err != nil {
		return err
	}
	return nil
}

func validateMessage(index int, msg ChatMessage, cfg ValidationConfig) *APIError {
	param := fmt.Sprintf("messages[%d]", index)
	switch msg.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
	default:
		return NewInvalidRequestError(param+".role",
			fmt.Sprintf("invalid role %q: must be system, user, assistant, or tool", msg.Role))
	}
	if msg.Role == RoleTool && msg.ToolCallID == "" {
		return NewInvalidRequestError(param+".tool_call_id",
			"tool messages must reference the tool call they answer")
	}
	if cfg.MaxContentBytes > 0 && len(ContentText(msg.Content)) > cfg.MaxContentBytes {
		return NewInvalidRequestError(param+".content",
			fmt.Sprintf("content exceeds the %d byte limit", cfg.MaxContentBytes))
	}
	return nil
}

func validateSampling(temperature, topP *float64, maxTokens *int, timeout *float64) *APIError {
	if temperature != nil && (*temperature < 0 || *temperature > 2) {
		return NewInvalidRequestError("temperature", "temperature must be between 0 and 2")
	}
	if topP != nil && (*topP < 0 || *topP > 1) {
		return NewInvalidRequestError("top_p", "top_p must be between 0 and 1")
	}
	if maxTokens != nil && *maxTokens < 1 {
		return NewInvalidRequestError("max_tokens", "max_tokens must be at least 1")
	}
	if timeout != nil && *timeout <= 0 {
		return NewInvalidRequestError("timeout", "timeout must be a positive number of seconds")
	}
	return nil
}

func validateTools(tools []Tool, choice *ToolChoice, cfg ValidationConfig) *APIError {
	if cfg.MaxTools > 0 && len(tools) > cfg.MaxTools {
		return NewInvalidRequestError("tools",
			fmt.Sprintf("too many tools: %d exceeds the limit of %d", len(tools), cfg.MaxTools))
	}
	names := make(map[string]bool, len(tools))
	for i, tool := range tools {
		param := fmt.Sprintf("tools[%d]", i)
		if tool.Type != "function" {
			return NewInvalidRequestError(param+".type",
				fmt.Sprintf("unsupported tool type %q: only \"function\" is supported", tool.Type))
		}
		if !functionNamePattern.MatchString(tool.Function.Name) {
			return NewInvalidRequestError(param+".function.name",
				"function name must be 1-64 characters of a-z, A-Z, 0-9, underscore, or dash")
		}
		if names[tool.Function.Name] {
			return NewInvalidRequestError(param+".function.name",
				fmt.Sprintf("duplicate function name %q", tool.Function.Name))
		}
		names[tool.Function.Name] = true
		if len(tool.Function.Parameters) > 0 && !json.Valid(tool.Function.Parameters) {
			return NewInvalidRequestError(param+".function.parameters",
				"parameters must be a valid JSON schema object")
		}
	}
	if choice == nil {
		return nil
	}
	switch {
	case choice.Value != "":
		switch choice.Value {
		case ToolChoiceNone, ToolChoiceAuto, ToolChoiceRequired:
		default:
			return NewInvalidRequestError("tool_choice",
				fmt.Sprintf("invalid tool_choice %q: must be none, auto, required, or a named function", choice.Value))
		}
		if choice.Value != ToolChoiceNone && len(tools) == 0 {
			return NewInvalidRequestError("tool_choice",
				"tool_choice requires at least one tool declaration")
		}
	case choice.Function != nil:
		if !names[choice.Function.Name] {
			return NewInvalidRequestError("tool_choice",
				fmt.Sprintf("tool_choice references undeclared function %q", choice.Function.Name))
		}
	}
	return nil
}

// ValidateCompletionRequest checks structural validity of a legacy
// completion request.
func ValidateCompletionRequest(req *CompletionRequest, cfg ValidationConfig) *APIError {
	if req.Model == "" {
		return NewInvalidRequestError("model", "model is required")
	}
	if len(req.Prompt) == 0 || req.Prompt.Text() == "" {
		return NewInvalidRequestError("prompt", "prompt must not be empty")
	}
	if cfg.MaxContentBytes > 0 && len(req.Prompt.Text()) > cfg.MaxContentBytes {
		return NewInvalidRequestError("prompt",
			fmt.Sprintf("prompt exceeds the %d byte limit", cfg.MaxContentBytes))
	}
	return validateSampling(req.Temperature, req.TopP, req.MaxTokens, req.Timeout)
}

// ValidateEmbeddingsRequest checks structural validity of an embeddings
// request.
func ValidateEmbeddingsRequest(req *EmbeddingsRequest) *APIError {
	if req.Model == "" {
		return NewInvalidRequestError("model", "model is required")
	}
	if len(req.Input) == 0 {
		return NewInvalidRequestError("input", "input must not be empty")
	}
	for i, text := range req.Input {
		if text == "" {
			return NewInvalidRequestError(fmt.Sprintf("input[%d]", i), "input strings must not be empty")
		}
	}
	return nil
}
