package engine

import (
	"context"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/argonaut-dev/argonaut/pkg/api"
	"github.com/argonaut-dev/argonaut/pkg/argo"
	"github.com/argonaut-dev/argonaut/pkg/debug"
	"github.com/argonaut-dev/argonaut/pkg/toolcall"
	"github.com/argonaut-dev/argonaut/pkg/transport"
)

// ChatStream handles a streaming chat completion. A non-nil return always
// means nothing has been written and the transport may still send an
// ordinary error response; once the first chunk is out, failures are
// reported in-band as a terminal chunk with finish_reason "error" followed
// by the done sentinel, and the method returns nil.
func (e *Engine) ChatStream(ctx context.Context, req *api.ChatCompletionRequest, w transport.StreamWriter) error {
	if apiErr := api.ValidateChatRequest(req, api.DefaultValidationConfig()); apiErr != nil {
		return apiErr
	}
	p, err := e.prepare(req)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(ctx, req.Timeout)
	defer cancel()

	s := &chunkStream{
		id:      api.NewChatCompletionID(),
		model:   p.public,
		created: time.Now().Unix(),
		w:       w,
	}

	// Tool declarations force full buffering: the decoder needs the
	// complete text to classify the turn before the first chunk goes out.
	if p.tools != nil {
		text, err := e.collectCompletion(ctx, p)
		if err != nil {
			return mapBackendError(err)
		}
		res := toolcall.Decode(text, p.tools.declared)
		if len(res.Calls) > 0 {
			toolcall.CheckArguments(p.tools.schemas, res.Calls)
			recordToolCalls(p.public, len(res.Calls))
			return s.run(ctx, newToolCallProducer(res.Calls), api.FinishReasonToolCalls, e.bufferedUsage(req, p, text))
		}
		return s.run(ctx, newTextProducer(res.Content), api.FinishReasonStop, e.bufferedUsage(req, p, text))
	}

	if p.model.Streaming && !e.cfg.PseudoStream {
		reader, err := e.streamBackend(ctx, p.request)
		if err != nil {
			return mapBackendError(err)
		}
		defer reader.Close()
		producer := &passthroughProducer{reader: reader, limit: e.cfg.maxStreamBytes()}
		return s.run(ctx, producer, api.FinishReasonStop, e.transcriptUsage(req, p))
	}

	text, err := e.collectCompletion(ctx, p)
	if err != nil {
		return mapBackendError(err)
	}
	return s.run(ctx, newTextProducer(text), api.FinishReasonStop, e.bufferedUsage(req, p, text))
}

// CompletionStream handles a streaming legacy completion by running the
// chat pipeline with a writer that re-frames every chunk in the
// text_completion shape.
func (e *Engine) CompletionStream(ctx context.Context, req *api.CompletionRequest, w transport.StreamWriter) error {
	if apiErr := api.ValidateCompletionRequest(req, api.DefaultValidationConfig()); apiErr != nil {
		return apiErr
	}
	lw := &legacyStreamWriter{
		w:       w,
		id:      api.NewCompletionID(),
		model:   req.Model,
		created: time.Now().Unix(),
	}
	return e.ChatStream(ctx, completionToChat(req), lw)
}

// usageFunc produces the usage block for the terminal chunk from the
// accumulated content transcript. A nil usageFunc disables both the
// accumulation and the block.
type usageFunc func(transcript string) *api.Usage

// bufferedUsage returns the terminal usage for a stream whose complete text
// is already in hand, or nil when the client did not opt in.
func (e *Engine) bufferedUsage(req *api.ChatCompletionRequest, p *prepared, completion string) usageFunc {
	if req.StreamOptions == nil || !req.StreamOptions.IncludeUsage {
		return nil
	}
	u := e.usage(p, completion)
	return func(string) *api.Usage { return u }
}

// transcriptUsage computes the terminal usage from whatever content the
// stream relayed, for passthrough streams where no buffered copy exists.
func (e *Engine) transcriptUsage(req *api.ChatCompletionRequest, p *prepared) usageFunc {
	if req.StreamOptions == nil || !req.StreamOptions.IncludeUsage {
		return nil
	}
	return func(transcript string) *api.Usage { return e.usage(p, transcript) }
}

func (e *Engine) usage(p *prepared, completion string) *api.Usage {
	prompt := e.est.Count(p.request.PromptText())
	done := e.est.Count(completion)
	return &api.Usage{PromptTokens: prompt, CompletionTokens: done, TotalTokens: prompt + done}
}

// chunkProducer yields successive delta payloads for one streamed response.
// io.EOF signals a clean end of output.
type chunkProducer interface {
	next() (api.ChunkDelta, error)
}

// chunkStream frames producer output as chat.completion.chunk events: an
// assistant-role chunk first, one chunk per delta, then exactly one
// terminal chunk carrying the finish reason and, when requested, usage. A
// canceled context aborts the stream with no terminal chunk.
type chunkStream struct {
	id      string
	model   string
	created int64
	w       transport.StreamWriter
}

func (s *chunkStream) run(ctx context.Context, p chunkProducer, finish api.FinishReason, usage usageFunc) error {
	empty := ""
	if err := s.write(ctx, api.ChunkDelta{Role: api.RoleAssistant, Content: &empty}, nil, nil); err != nil {
		return nil
	}

	var transcript strings.Builder
	for {
		delta, err := p.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			debug.Log("stream", "stream failed after first chunk: %v", err)
			s.fail(ctx)
			return nil
		}
		if usage != nil && delta.Content != nil {
			transcript.WriteString(*delta.Content)
		}
		if err := s.write(ctx, delta, nil, nil); err != nil {
			return nil
		}
	}

	var u *api.Usage
	if usage != nil {
		u = usage(transcript.String())
	}
	if err := s.write(ctx, api.ChunkDelta{}, &finish, u); err != nil {
		return nil
	}
	_ = s.w.WriteDone(ctx)
	return nil
}

// fail terminates an already-started stream in-band.
func (s *chunkStream) fail(ctx context.Context) {
	reason := api.FinishReasonError
	if err := s.write(ctx, api.ChunkDelta{}, &reason, nil); err != nil {
		return
	}
	_ = s.w.WriteDone(ctx)
}

func (s *chunkStream) write(ctx context.Context, delta api.ChunkDelta, finish *api.FinishReason, usage *api.Usage) error {
	return s.w.WriteData(ctx, &api.ChatCompletionChunk{
		ID:      s.id,
		Object:  api.ObjectChatCompletionChunk,
		Created: s.created,
		Model:   s.model,
		Choices: []api.ChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
		Usage:   usage,
	})
}

// emulatedProducer replays a fixed sequence of deltas sliced from a
// complete buffered response.
type emulatedProducer struct {
	deltas []api.ChunkDelta
	pos    int
}

func (p *emulatedProducer) next() (api.ChunkDelta, error) {
	if p.pos >= len(p.deltas) {
		return api.ChunkDelta{}, io.EOF
	}
	d := p.deltas[p.pos]
	p.pos++
	return d, nil
}

// newTextProducer slices text into word-boundary runs. Concatenating the
// runs reproduces the text byte for byte.
func newTextProducer(text string) *emulatedProducer {
	runs := splitRuns(text)
	deltas := make([]api.ChunkDelta, 0, len(runs))
	for i := range runs {
		deltas = append(deltas, api.ChunkDelta{Content: &runs[i]})
	}
	return &emulatedProducer{deltas: deltas}
}

// newToolCallProducer streams decoded calls as indexed fragments: one
// fragment carrying the call id and name, then one carrying the complete
// serialized arguments under the same index.
func newToolCallProducer(calls []api.ToolCall) *emulatedProducer {
	deltas := make([]api.ChunkDelta, 0, 2*len(calls))
	for i, call := range calls {
		deltas = append(deltas,
			api.ChunkDelta{ToolCalls: []api.ChunkToolCall{{
				Index:    i,
				ID:       call.ID,
				Type:     call.Type,
				Function: api.ChunkFunctionCall{Name: call.Function.Name},
			}}},
			api.ChunkDelta{ToolCalls: []api.ChunkToolCall{{
				Index:    i,
				Function: api.ChunkFunctionCall{Arguments: call.Function.Arguments},
			}}},
		)
	}
	return &emulatedProducer{deltas: deltas}
}

// passthroughProducer re-frames backend stream units as content deltas,
// buffering at most one unit ahead. The byte bound caps the total response
// size the gateway will relay, matching the buffered paths.
type passthroughProducer struct {
	reader *argo.ChunkReader
	limit  int64
	seen   int64
}

func (p *passthroughProducer) next() (api.ChunkDelta, error) {
	chunk, err := p.reader.Next()
	if err != nil {
		return api.ChunkDelta{}, err
	}
	p.seen += int64(len(chunk))
	if p.seen > p.limit {
		return api.ChunkDelta{}, &argo.SizeLimitError{Limit: p.limit}
	}
	return api.ChunkDelta{Content: &chunk}, nil
}

// splitRuns slices text into emission runs. Each run is one word with its
// leading whitespace attached, so boundaries only ever fall between a word
// and the whitespace that follows it; trailing whitespace forms a final
// run of its own. Offsets advance per rune, never splitting one.
func splitRuns(text string) []string {
	if text == "" {
		return nil
	}
	var runs []string
	start := 0
	inWord := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if inWord && space {
			runs = append(runs, text[start:i])
			start = i
		}
		inWord = !space
	}
	return append(runs, text[start:])
}

// legacyStreamWriter adapts the chat chunk stream to the legacy
// text_completion framing. The assistant role chunk has no legacy
// counterpart and is dropped; the done sentinel passes through.
type legacyStreamWriter struct {
	w       transport.StreamWriter
	id      string
	model   string
	created int64
}

func (lw *legacyStreamWriter) WriteData(ctx context.Context, v any) error {
	chunk, ok := v.(*api.ChatCompletionChunk)
	if !ok {
		return lw.w.WriteData(ctx, v)
	}
	choice := chunk.Choices[0]
	if choice.FinishReason == nil && choice.Delta.Role != "" {
		return nil
	}
	var text string
	if choice.Delta.Content != nil {
		text = *choice.Delta.Content
	}
	return lw.w.WriteData(ctx, &api.CompletionChunk{
		ID:      lw.id,
		Object:  api.ObjectTextCompletion,
		Created: lw.created,
		Model:   lw.model,
		Choices: []api.CompletionChoice{{Index: 0, Text: text, FinishReason: choice.FinishReason}},
	})
}

func (lw *legacyStreamWriter) WriteDone(ctx context.Context) error {
	return lw.w.WriteDone(ctx)
}
