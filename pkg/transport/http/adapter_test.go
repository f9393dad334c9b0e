package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/argonaut-dev/argonaut/pkg/api"
	"github.com/argonaut-dev/argonaut/pkg/transport"
)

// fakeGateway is a configurable Gateway double. Unwired methods fail loudly
// so a misrouted request shows up as a server error in the test.
type fakeGateway struct {
	chatFn             func(ctx context.Context, req *api.ChatCompletionRequest) (*api.ChatCompletionResponse, error)
	chatStreamFn       func(ctx context.Context, req *api.ChatCompletionRequest, w transport.StreamWriter) error
	completionFn       func(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error)
	completionStreamFn func(ctx context.Context, req *api.CompletionRequest, w transport.StreamWriter) error
	embeddingsFn       func(ctx context.Context, req *api.EmbeddingsRequest) (*api.EmbeddingsResponse, error)
	statusFn           func(ctx context.Context) (*api.ChatCompletionResponse, error)
	rawChatFn          func(ctx context.Context, body []byte) (int, []byte, error)
	models             *api.ModelList
}

var _ transport.Gateway = (*fakeGateway)(nil)

func (g *fakeGateway) Chat(ctx context.Context, req *api.ChatCompletionRequest) (*api.ChatCompletionResponse, error) {
	if g.chatFn == nil {
		return nil, api.NewServerError("fakeGateway: Chat not wired")
	}
	return g.chatFn(ctx, req)
}

func (g *fakeGateway) ChatStream(ctx context.Context, req *api.ChatCompletionRequest, w transport.StreamWriter) error {
	if g.chatStreamFn == nil {
		return api.NewServerError("fakeGateway: ChatStream not wired")
	}
	return g.chatStreamFn(ctx, req, w)
}

func (g *fakeGateway) Completion(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error) {
	if g.completionFn == nil {
		return nil, api.NewServerError("fakeGateway: Completion not wired")
	}
	return g.completionFn(ctx, req)
}

func (g *fakeGateway) CompletionStream(ctx context.Context, req *api.CompletionRequest, w transport.StreamWriter) error {
	if g.completionStreamFn == nil {
		return api.NewServerError("fakeGateway: CompletionStream not wired")
	}
	return g.completionStreamFn(ctx, req, w)
}

func (g *fakeGateway) Embeddings(ctx context.Context, req *api.EmbeddingsRequest) (*api.EmbeddingsResponse, error) {
	if g.embeddingsFn == nil {
		return nil, api.NewServerError("fakeGateway: Embeddings not wired")
	}
	return g.embeddingsFn(ctx, req)
}

func (g *fakeGateway) Models() *api.ModelList {
	if g.models != nil {
		return g.models
	}
	return &api.ModelList{Object: api.ObjectList}
}

func (g *fakeGateway) Status(ctx context.Context) (*api.ChatCompletionResponse, error) {
	if g.statusFn == nil {
		return nil, api.NewServerError("fakeGateway: Status not wired")
	}
	return g.statusFn(ctx)
}

func (g *fakeGateway) RawChat(ctx context.Context, body []byte) (int, []byte, error) {
	if g.rawChatFn == nil {
		return 0, nil, api.NewServerError("fakeGateway: RawChat not wired")
	}
	return g.rawChatFn(ctx, body)
}

func chatResponse(id, model, content string) *api.ChatCompletionResponse {
	return &api.ChatCompletionResponse{
		ID:      id,
		Object:  api.ObjectChatCompletion,
		Created: 1700000000,
		Model:   model,
		Choices: []api.ChatChoice{{
			Message:      api.ChatMessage{Role: api.RoleAssistant, Content: content},
			FinishReason: api.FinishReasonStop,
		}},
	}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	return resp
}

// sseDataPayloads extracts the data payload of every SSE event in order.
func sseDataPayloads(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			out = append(out, strings.TrimPrefix(line, "data: "))
		}
	}
	return out
}

func TestChatCompletionsReturnsJSON(t *testing.T) {
	gw := &fakeGateway{
		chatFn: func(_ context.Context, req *api.ChatCompletionRequest) (*api.ChatCompletionResponse, error) {
			if req.Model != "argo:gpt-4o" {
				t.Errorf("gateway saw model %q, want argo:gpt-4o", req.Model)
			}
			return chatResponse("chatcmpl-test1", req.Model, "Hello there"), nil
		},
	}
	srv := httptest.NewServer(NewAdapter(gw, DefaultConfig()).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/chat/completions",
		`{"model":"argo:gpt-4o","messages":[{"role":"user","content":"hi"}]}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var got api.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.ID != "chatcmpl-test1" {
		t.Errorf("ID = %q, want chatcmpl-test1", got.ID)
	}
	if content := api.ContentText(got.Choices[0].Message.Content); content != "Hello there" {
		t.Errorf("content = %q, want Hello there", content)
	}
}

func TestChatCompletionsInvalidJSONReturns400(t *testing.T) {
	srv := httptest.NewServer(NewAdapter(&fakeGateway{}, DefaultConfig()).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/chat/completions", "{invalid")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var errResp api.ErrorResponse
	json.NewDecoder(resp.Body).Decode(&errResp)
	if errResp.Error.Type != api.ErrorTypeInvalidRequest {
		t.Errorf("error type = %q, want %q", errResp.Error.Type, api.ErrorTypeInvalidRequest)
	}
}

func TestChatCompletionsOversizedBodyReturns413(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBodySize = 10
	srv := httptest.NewServer(NewAdapter(&fakeGateway{}, cfg).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/chat/completions",
		`{"model":"argo:gpt-4o","messages":[{"role":"user","content":"hi"}]}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusRequestEntityTooLarge)
	}
}

func TestWrongContentTypeReturns415(t *testing.T) {
	srv := httptest.NewServer(NewAdapter(&fakeGateway{}, DefaultConfig()).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "text/plain", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnsupportedMediaType)
	}
}

func TestChatCompletionsStreamsSSE(t *testing.T) {
	gw := &fakeGateway{
		chatStreamFn: func(ctx context.Context, req *api.ChatCompletionRequest, w transport.StreamWriter) error {
			for _, piece := range []string{"Hello", " world"} {
				if err := w.WriteData(ctx, textChunk("chatcmpl-s1", piece)); err != nil {
					return err
				}
			}
			stop := api.FinishReasonStop
			terminal := api.ChatCompletionChunk{
				ID:      "chatcmpl-s1",
				Object:  api.ObjectChatCompletionChunk,
				Model:   req.Model,
				Choices: []api.ChunkChoice{{Delta: api.ChunkDelta{}, FinishReason: &stop}},
			}
			if err := w.WriteData(ctx, terminal); err != nil {
				return err
			}
			return w.WriteDone(ctx)
		},
	}
	srv := httptest.NewServer(NewAdapter(gw, DefaultConfig()).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/chat/completions",
		`{"model":"argo:gpt-4o","messages":[{"role":"user","content":"hi"}],"stream":true}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	raw, _ := io.ReadAll(resp.Body)
	payloads := sseDataPayloads(string(raw))
	if len(payloads) == 0 || payloads[len(payloads)-1] != "[DONE]" {
		t.Fatalf("stream must end with [DONE], got payloads %v", payloads)
	}

	var content strings.Builder
	for _, p := range payloads[:len(payloads)-1] {
		var chunk api.ChatCompletionChunk
		if err := json.Unmarshal([]byte(p), &chunk); err != nil {
			t.Fatalf("chunk parse error: %v in %q", err, p)
		}
		if chunk.Choices[0].Delta.Content != nil {
			content.WriteString(*chunk.Choices[0].Delta.Content)
		}
	}
	if content.String() != "Hello world" {
		t.Errorf("reassembled content = %q, want %q", content.String(), "Hello world")
	}
}

func TestStreamingErrorBeforeChunksIsJSON(t *testing.T) {
	gw := &fakeGateway{
		chatStreamFn: func(context.Context, *api.ChatCompletionRequest, transport.StreamWriter) error {
			return api.NewUnknownModelError("argo:nope")
		},
	}
	srv := httptest.NewServer(NewAdapter(gw, DefaultConfig()).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/chat/completions",
		`{"model":"argo:nope","messages":[{"role":"user","content":"hi"}],"stream":true}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var errResp api.ErrorResponse
	json.NewDecoder(resp.Body).Decode(&errResp)
	if errResp.Error.Code != api.CodeUnknownModel {
		t.Errorf("error code = %q, want %q", errResp.Error.Code, api.CodeUnknownModel)
	}
}

func TestStreamingCleansUpInFlight(t *testing.T) {
	var adapter *Adapter
	gw := &fakeGateway{
		chatStreamFn: func(ctx context.Context, _ *api.ChatCompletionRequest, w transport.StreamWriter) error {
			if n := adapter.inflight.Len(); n != 1 {
				t.Errorf("in-flight count during stream = %d, want 1", n)
			}
			if err := w.WriteData(ctx, textChunk("chatcmpl-s2", "hi")); err != nil {
				return err
			}
			return w.WriteDone(ctx)
		},
	}
	adapter = NewAdapter(gw, DefaultConfig())
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/chat/completions",
		`{"model":"argo:gpt-4o","messages":[{"role":"user","content":"hi"}],"stream":true}`)
	io.ReadAll(resp.Body)
	resp.Body.Close()

	if n := adapter.inflight.Len(); n != 0 {
		t.Errorf("in-flight count after stream = %d, want 0", n)
	}
}

func TestCancelAllAbortsActiveStream(t *testing.T) {
	started := make(chan struct{})
	gw := &fakeGateway{
		chatStreamFn: func(ctx context.Context, _ *api.ChatCompletionRequest, w transport.StreamWriter) error {
			if err := w.WriteData(ctx, textChunk("chatcmpl-s3", "partial")); err != nil {
				return err
			}
			close(started)
			<-ctx.Done()
			return nil
		},
	}
	adapter := NewAdapter(gw, DefaultConfig())
	srv := httptest.NewServer(adapter.Handler())
	defer srv.Close()

	done := make(chan error, 1)
	go func() {
		resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json",
			strings.NewReader(`{"model":"argo:gpt-4o","messages":[{"role":"user","content":"hi"}],"stream":true}`))
		if err != nil {
			done <- err
			return
		}
		defer resp.Body.Close()
		io.ReadAll(resp.Body)
		done <- nil
	}()

	<-started
	if n := adapter.inflight.CancelAll(); n != 1 {
		t.Errorf("CancelAll() = %d, want 1", n)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("request error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after cancellation")
	}
}

func TestTimeoutQueryParameterWins(t *testing.T) {
	var got *float64
	gw := &fakeGateway{
		chatFn: func(_ context.Context, req *api.ChatCompletionRequest) (*api.ChatCompletionResponse, error) {
			got = req.Timeout
			return chatResponse("chatcmpl-t1", req.Model, "ok"), nil
		},
	}
	srv := httptest.NewServer(NewAdapter(gw, DefaultConfig()).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/chat/completions?timeout=5",
		`{"model":"argo:gpt-4o","messages":[{"role":"user","content":"hi"}],"timeout":60}`)
	resp.Body.Close()

	if got == nil || *got != 5 {
		t.Errorf("timeout = %v, want the query override 5", got)
	}
}

func TestTimeoutQueryParameterInvalid(t *testing.T) {
	srv := httptest.NewServer(NewAdapter(&fakeGateway{}, DefaultConfig()).Handler())
	defer srv.Close()

	for _, raw := range []string{"abc", "0", "-3"} {
		t.Run(raw, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/v1/chat/completions?timeout="+raw,
				`{"model":"argo:gpt-4o","messages":[{"role":"user","content":"hi"}]}`)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
		})
	}
}

func TestCompletionsRoute(t *testing.T) {
	gw := &fakeGateway{
		completionFn: func(_ context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error) {
			if req.Prompt.Text() != "Once upon a time" {
				t.Errorf("prompt = %q", req.Prompt.Text())
			}
			stop := api.FinishReasonStop
			return &api.CompletionResponse{
				ID:      "cmpl-test1",
				Object:  api.ObjectTextCompletion,
				Model:   req.Model,
				Choices: []api.CompletionChoice{{Text: " there was", FinishReason: &stop}},
			}, nil
		},
	}
	srv := httptest.NewServer(NewAdapter(gw, DefaultConfig()).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/completions",
		`{"model":"argo:gpt-4o","prompt":"Once upon a time"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var got api.CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.Object != api.ObjectTextCompletion || got.Choices[0].Text != " there was" {
		t.Errorf("got %+v", got)
	}
}

func TestEmbeddingsRoute(t *testing.T) {
	gw := &fakeGateway{
		embeddingsFn: func(_ context.Context, req *api.EmbeddingsRequest) (*api.EmbeddingsResponse, error) {
			if len(req.Input) != 1 || req.Input[0] != "hello" {
				t.Errorf("input = %v, want [hello]", req.Input)
			}
			return &api.EmbeddingsResponse{
				Object: api.ObjectList,
				Data:   []api.Embedding{{Object: api.ObjectEmbedding, Embedding: []float64{0.1, 0.2}}},
				Model:  req.Model,
			}, nil
		},
	}
	srv := httptest.NewServer(NewAdapter(gw, DefaultConfig()).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/embeddings",
		`{"model":"argo:text-embedding-3-small","input":"hello"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var got api.EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(got.Data) != 1 || len(got.Data[0].Embedding) != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestRawChatForwardsVerbatim(t *testing.T) {
	inBody := `{"user":"bob","model":"gpt4o","prompt":["hi"]}`
	gw := &fakeGateway{
		rawChatFn: func(_ context.Context, body []byte) (int, []byte, error) {
			if string(body) != inBody {
				t.Errorf("forwarded body = %s, want verbatim passthrough", body)
			}
			return http.StatusOK, []byte(`{"response":"raw reply"}`), nil
		},
	}
	srv := httptest.NewServer(NewAdapter(gw, DefaultConfig()).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/chat", inBody)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	raw, _ := io.ReadAll(resp.Body)
	if string(raw) != `{"response":"raw reply"}` {
		t.Errorf("body = %s", raw)
	}
}

func TestRawChatPassesBackendStatusThrough(t *testing.T) {
	gw := &fakeGateway{
		rawChatFn: func(context.Context, []byte) (int, []byte, error) {
			return http.StatusServiceUnavailable, []byte(`{"error":"overloaded"}`), nil
		},
	}
	srv := httptest.NewServer(NewAdapter(gw, DefaultConfig()).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/chat", `{"user":"bob","model":"gpt4o"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want backend 503 passed through", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if string(raw) != `{"error":"overloaded"}` {
		t.Errorf("body = %s", raw)
	}
}

func TestModelsRoute(t *testing.T) {
	gw := &fakeGateway{
		models: &api.ModelList{
			Object: api.ObjectList,
			Data:   []api.ModelInfo{{ID: "argo:gpt-4o", Object: api.ObjectModel, InternalName: "gpt4o"}},
		},
	}
	srv := httptest.NewServer(NewAdapter(gw, DefaultConfig()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/models")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var got api.ModelList
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(got.Data) != 1 || got.Data[0].ID != "argo:gpt-4o" {
		t.Errorf("got %+v", got)
	}
}

func TestStatusRoute(t *testing.T) {
	gw := &fakeGateway{
		statusFn: func(context.Context) (*api.ChatCompletionResponse, error) {
			return chatResponse("chatcmpl-probe", "argo:gpt-4o", "Hello!"), nil
		},
	}
	srv := httptest.NewServer(NewAdapter(gw, DefaultConfig()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/status")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var got api.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.ID != "chatcmpl-probe" {
		t.Errorf("ID = %q", got.ID)
	}
}

func TestStatusRouteUpstreamFailure(t *testing.T) {
	gw := &fakeGateway{
		statusFn: func(context.Context) (*api.ChatCompletionResponse, error) {
			return nil, api.NewUpstreamError(api.CodeBackendConnect, 0, "connection refused")
		},
	}
	srv := httptest.NewServer(NewAdapter(gw, DefaultConfig()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/status")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadGateway)
	}
}

func TestHealthRoute(t *testing.T) {
	srv := httptest.NewServer(NewAdapter(&fakeGateway{}, DefaultConfig()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var got map[string]string
	json.NewDecoder(resp.Body).Decode(&got)
	if got["status"] != "healthy" {
		t.Errorf(`body = %v, want {"status":"healthy"}`, got)
	}
}

func TestMetricsRoute(t *testing.T) {
	srv := httptest.NewServer(NewAdapter(&fakeGateway{}, DefaultConfig()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "argonaut_streaming_connections_active") {
		t.Error("exposition is missing the gateway's own metrics")
	}
}

func TestUnknownPathReturns404(t *testing.T) {
	srv := httptest.NewServer(NewAdapter(&fakeGateway{}, DefaultConfig()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/nonexistent")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(NewAdapter(&fakeGateway{}, DefaultConfig()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/chat/completions")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}
