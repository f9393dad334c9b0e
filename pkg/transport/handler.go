package transport

import (
	"context"

	"github.com/argonaut-dev/argonaut/pkg/api"
)

// Gateway is the handler contract between the HTTP layer and the engine.
// The HTTP adapter parses and validates wire input, then calls exactly one
// Gateway method per request; the implementation owns model resolution,
// translation, the backend round trip, and error mapping.
//
// The streaming methods write chunks through the supplied StreamWriter. They
// return a non-nil error only when nothing has been written yet, so the
// caller can still produce a JSON error response. Once the first chunk is
// out, failures terminate the stream in-band (a finish_reason "error" chunk
// followed by the [DONE] sentinel) and the method returns nil.
type Gateway interface {
	// Chat handles a non-streaming chat completion.
	Chat(ctx context.Context, req *api.ChatCompletionRequest) (*api.ChatCompletionResponse, error)

	// ChatStream handles a streaming chat completion.
	ChatStream(ctx context.Context, req *api.ChatCompletionRequest, w StreamWriter) error

	// Completion handles a non-streaming legacy completion.
	Completion(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error)

	// CompletionStream handles a streaming legacy completion.
	CompletionStream(ctx context.Context, req *api.CompletionRequest, w StreamWriter) error

	// Embeddings handles an embeddings request.
	Embeddings(ctx context.Context, req *api.EmbeddingsRequest) (*api.EmbeddingsResponse, error)

	// Models lists the served models.
	Models() *api.ModelList

	// Status probes the upstream with a minimal chat round trip and returns
	// the probe's completion.
	Status(ctx context.Context) (*api.ChatCompletionResponse, error)

	// RawChat forwards a backend-native request body verbatim and returns
	// the backend's status code and body.
	RawChat(ctx context.Context, body []byte) (int, []byte, error)
}

// StreamWriter is the sink for server-sent chunks. The HTTP adapter provides
// an implementation that frames each value as one SSE data event and flushes
// it immediately.
//
// WriteData after WriteDone is an error. Implementations must be safe to
// call from the single handler goroutine only; they are not shared.
type StreamWriter interface {
	// WriteData emits one data event carrying the JSON encoding of v.
	WriteData(ctx context.Context, v any) error

	// WriteDone emits the [DONE] sentinel and closes the logical stream.
	WriteDone(ctx context.Context) error
}
