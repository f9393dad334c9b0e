// Package api defines the client-facing protocol types for the argonaut
// gateway.
//
// This package provides all data types for the OpenAI-compatible surface the
// gateway presents to callers: chat completion requests and responses,
// streaming chunks, legacy text completions, embeddings, model listings,
// error types, and ID generation.
//
// The package performs no I/O. All types produce JSON compatible with the
// OpenAI Chat Completions wire format, enabling client library compatibility.
//
// Core types:
//   - [ChatCompletionRequest]: inbound chat request (messages, tools, sampling)
//   - [ChatCompletionResponse]: complete non-streaming response
//   - [ChatCompletionChunk]: one increment of a streamed response
//   - [CompletionRequest]: legacy single-prompt completion request
//   - [APIError]: structured error with type, code, param, and message
package api
