package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/argonaut-dev/argonaut/pkg/api"
	"github.com/argonaut-dev/argonaut/pkg/argo"
	"github.com/argonaut-dev/argonaut/pkg/debug"
	"github.com/argonaut-dev/argonaut/pkg/models"
	"github.com/argonaut-dev/argonaut/pkg/observability"
	"github.com/argonaut-dev/argonaut/pkg/toolcall"
	"github.com/argonaut-dev/argonaut/pkg/transport"
)

// Backend is the transport client contract the engine drives. *argo.Client
// implements it; tests substitute fakes.
type Backend interface {
	Chat(ctx context.Context, req *argo.Request) (*argo.Response, error)
	ChatStream(ctx context.Context, req *argo.Request) (*argo.ChunkReader, error)
	Embed(ctx context.Context, req *argo.EmbeddingRequest) (*argo.EmbeddingResponse, error)
	ChatRaw(ctx context.Context, body []byte) (int, []byte, error)
}

var _ Backend = (*argo.Client)(nil)

// Engine orchestrates request processing between the transport layer and
// the Argo backend. It implements transport.Gateway.
type Engine struct {
	backend Backend
	table   *models.Table
	est     argo.TokenEstimator
	cfg     Config
}

// Ensure Engine implements transport.Gateway at compile time.
var _ transport.Gateway = (*Engine)(nil)

// New creates a new Engine. The backend and model table must not be nil.
func New(backend Backend, table *models.Table, cfg Config) (*Engine, error) {
	if backend == nil {
		return nil, fmt.Errorf("engine: backend must not be nil")
	}
	if table == nil {
		return nil, fmt.Errorf("engine: model table must not be nil")
	}
	est := cfg.Estimator
	if est == nil {
		est = argo.WordCountEstimator{}
	}
	return &Engine{backend: backend, table: table, est: est, cfg: cfg}, nil
}

// prepared carries one request's resolved state between the orchestration
// steps.
type prepared struct {
	model   models.Model
	public  string // model identifier echoed back to the client
	request *argo.Request
	tools   *toolState
}

// toolState is present only when the request declares tools.
type toolState struct {
	declared []string
	schemas  map[string]*openapi3.Schema
}

// prepare resolves the model, instruments the conversation for tool-call
// emulation when tools are declared, and translates the request into the
// backend shape. It performs no I/O.
func (e *Engine) prepare(req *api.ChatCompletionRequest) (*prepared, error) {
	model, ok := e.table.ResolveChat(req.Model)
	if !ok {
		return nil, api.NewUnknownModelError(req.Model)
	}

	p := &prepared{model: model, public: req.Model}

	// Histories from earlier tool turns carry structured artifacts the
	// backend cannot take, so normalization runs even when this request
	// declares no tools.
	messages := toolcall.NormalizeHistory(req.Messages)

	if len(req.Tools) > 0 && !choiceIsNone(req.ToolChoice) {
		schemas, err := toolcall.ParseSchemas(req.Tools)
		if err != nil {
			return nil, err
		}
		declared := make([]string, 0, len(req.Tools))
		for _, tool := range req.Tools {
			declared = append(declared, tool.Function.Name)
		}
		p.tools = &toolState{declared: declared, schemas: schemas}

		instructions, err := toolcall.Instructions(model.Family(), req.Tools, req.ToolChoice, parallelCalls(req))
		if err != nil {
			return nil, api.NewServerError(err.Error())
		}
		messages = toolcall.Inject(messages, instructions)
	}

	instrumented := *req
	instrumented.Messages = messages

	backendReq, err := argo.ToBackend(&instrumented, e.table, e.cfg.User)
	if err != nil {
		return nil, err
	}
	p.request = backendReq
	return p, nil
}

// parallelCalls reports whether the request allows parallel tool calls.
// Absent means allowed.
func parallelCalls(req *api.ChatCompletionRequest) bool {
	return req.ParallelToolCalls == nil || *req.ParallelToolCalls
}

// choiceIsNone reports whether the client suppressed tool use outright, in
// which case no instructions are injected and no decoding happens.
func choiceIsNone(choice *api.ToolChoice) bool {
	return choice != nil && choice.Value == api.ToolChoiceNone
}

// requestContext applies the per-request timeout override when present.
// Without an override the caller's context (and the transport client's
// configured default) governs.
func requestContext(ctx context.Context, override *float64) (context.Context, context.CancelFunc) {
	if override != nil && *override > 0 {
		return context.WithTimeout(ctx, time.Duration(*override*float64(time.Second)))
	}
	return context.WithCancel(ctx)
}

// Chat handles a non-streaming chat completion.
func (e *Engine) Chat(ctx context.Context, req *api.ChatCompletionRequest) (*api.ChatCompletionResponse, error) {
	if apiErr := api.ValidateChatRequest(req, api.DefaultValidationConfig()); apiErr != nil {
		return nil, apiErr
	}
	p, err := e.prepare(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := requestContext(ctx, req.Timeout)
	defer cancel()

	if p.tools != nil {
		text, err := e.collectCompletion(ctx, p)
		if err != nil {
			return nil, mapBackendError(err)
		}
		resp := argo.FromBackend(&argo.Response{Response: text}, p.public, p.request, e.est)
		recordTokens(p.request.Model, resp.Usage)
		applyToolDecode(resp, p.tools)
		return resp, nil
	}

	backendResp, err := e.chatBackend(ctx, p.request)
	if err != nil {
		return nil, mapBackendError(err)
	}
	resp := argo.FromBackend(backendResp, p.public, p.request, e.est)
	recordTokens(p.request.Model, resp.Usage)
	return resp, nil
}

// applyToolDecode runs the layered decoder over the buffered completion.
// When calls come out, they replace the ordinary content wholesale and the
// finish reason flips to tool_calls; otherwise the response passes through
// untouched.
func applyToolDecode(resp *api.ChatCompletionResponse, st *toolState) {
	msg := &resp.Choices[0].Message
	res := toolcall.Decode(api.ContentText(msg.Content), st.declared)
	if len(res.Calls) == 0 {
		return
	}
	toolcall.CheckArguments(st.schemas, res.Calls)
	recordToolCalls(resp.Model, len(res.Calls))
	msg.Content = nil
	msg.ToolCalls = res.Calls
	resp.Choices[0].FinishReason = api.FinishReasonToolCalls
}

// collectCompletion obtains the complete response text for requests that
// must be fully buffered before anything is emitted. Streamable models are
// drained through the bounded assembler; the rest use the buffered call.
func (e *Engine) collectCompletion(ctx context.Context, p *prepared) (string, error) {
	if p.model.Streaming {
		reader, err := e.streamBackend(ctx, p.request)
		if err != nil {
			return "", err
		}
		defer reader.Close()
		return Assemble(reader, e.cfg.maxStreamBytes())
	}
	resp, err := e.chatBackend(ctx, p.request)
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Completion handles a non-streaming legacy completion by mapping it onto
// the chat path and re-wrapping the result in the text_completion shape.
func (e *Engine) Completion(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error) {
	if apiErr := api.ValidateCompletionRequest(req, api.DefaultValidationConfig()); apiErr != nil {
		return nil, apiErr
	}
	chatReq := completionToChat(req)
	p, err := e.prepare(chatReq)
	if err != nil {
		return nil, err
	}

	ctx, cancel := requestContext(ctx, req.Timeout)
	defer cancel()

	backendResp, err := e.chatBackend(ctx, p.request)
	if err != nil {
		return nil, mapBackendError(err)
	}
	resp := argo.FromBackendCompletion(backendResp, p.public, p.request, e.est)
	recordTokens(p.request.Model, resp.Usage)
	return resp, nil
}

// completionToChat maps the legacy request onto a one-message chat request.
func completionToChat(req *api.CompletionRequest) *api.ChatCompletionRequest {
	return &api.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    []api.ChatMessage{{Role: api.RoleUser, Content: req.Prompt.Text()}},
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
		N:           req.N,
		Stream:      req.Stream,
		User:        req.User,
		Timeout:     req.Timeout,
	}
}

// Embeddings handles an embeddings request through the schema mapper.
func (e *Engine) Embeddings(ctx context.Context, req *api.EmbeddingsRequest) (*api.EmbeddingsResponse, error) {
	if apiErr := api.ValidateEmbeddingsRequest(req); apiErr != nil {
		return nil, apiErr
	}
	backendReq, err := argo.ToBackendEmbedding(req, e.table, e.cfg.User)
	if err != nil {
		return nil, err
	}
	backendResp, err := e.embedBackend(ctx, backendReq)
	if err != nil {
		return nil, mapBackendError(err)
	}
	resp := argo.FromBackendEmbedding(backendResp, req.Model, []string(req.Input), e.est)
	recordTokens(backendReq.Model, resp.Usage)
	return resp, nil
}

// Models lists the served models.
func (e *Engine) Models() *api.ModelList {
	return e.table.List()
}

// Status probes the upstream with a minimal chat round trip and returns the
// probe's completion.
func (e *Engine) Status(ctx context.Context) (*api.ChatCompletionResponse, error) {
	probe := &api.ChatCompletionRequest{
		Model:    e.cfg.probeModel(),
		Messages: []api.ChatMessage{{Role: api.RoleUser, Content: "Say hello"}},
	}
	return e.Chat(ctx, probe)
}

// RawChat forwards a backend-native body verbatim.
func (e *Engine) RawChat(ctx context.Context, body []byte) (int, []byte, error) {
	status, respBody, err := e.backend.ChatRaw(ctx, body)
	if err != nil {
		return 0, nil, mapBackendError(err)
	}
	return status, respBody, nil
}

// chatBackend calls the buffered chat endpoint and records backend metrics.
func (e *Engine) chatBackend(ctx context.Context, req *argo.Request) (*argo.Response, error) {
	start := time.Now()
	resp, err := e.backend.Chat(ctx, req)
	recordBackend("chat", req.Model, start, err)
	return resp, err
}

// streamBackend opens the streaming chat endpoint. The recorded latency
// covers connection establishment; consumption is accounted per request by
// the HTTP middleware.
func (e *Engine) streamBackend(ctx context.Context, req *argo.Request) (*argo.ChunkReader, error) {
	start := time.Now()
	reader, err := e.backend.ChatStream(ctx, req)
	recordBackend("streamchat", req.Model, start, err)
	return reader, err
}

// embedBackend calls the embeddings endpoint and records backend metrics.
func (e *Engine) embedBackend(ctx context.Context, req *argo.EmbeddingRequest) (*argo.EmbeddingResponse, error) {
	start := time.Now()
	resp, err := e.backend.Embed(ctx, req)
	recordBackend("embed", req.Model, start, err)
	return resp, err
}

func recordBackend(endpoint, model string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.BackendRequestsTotal.WithLabelValues(endpoint, model, status).Inc()
	observability.BackendLatency.WithLabelValues(endpoint, model).Observe(time.Since(start).Seconds())
}

func recordTokens(model string, usage *api.Usage) {
	if usage == nil {
		return
	}
	observability.TokensTotal.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
	observability.TokensTotal.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))
}

func recordToolCalls(model string, n int) {
	observability.ToolCallsTotal.WithLabelValues(model).Add(float64(n))
}

// mapBackendError folds transport-client failures into the APIError
// taxonomy. Well-formed backend 4xx/5xx statuses pass through; connect and
// timeout failures, oversized responses, and malformed success bodies all
// become 502-class upstream errors. Context cancellation propagates as-is
// so the transport can tell a vanished client from a backend fault.
func mapBackendError(err error) error {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var sizeErr *argo.SizeLimitError
	if errors.As(err, &sizeErr) {
		return api.NewResponseTooLargeError(sizeErr.Limit)
	}
	var backendErr *argo.BackendError
	if errors.As(err, &backendErr) {
		switch backendErr.Kind {
		case argo.KindTimeout:
			return api.NewUpstreamError(api.CodeBackendTimeout, 0, "backend request timed out")
		case argo.KindConnect:
			return api.NewUpstreamError(api.CodeBackendConnect, 0, "cannot reach the backend")
		default:
			status := backendErr.Status
			if status < 400 {
				status = 0
			}
			return api.NewUpstreamError(api.CodeBackendStatus, status, backendErr.Error())
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	debug.Log("backend", "unclassified backend error: %v", err)
	return api.NewServerError(err.Error())
}
