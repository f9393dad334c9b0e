// Package transport defines the handler contract and middleware chain for
// the argonaut HTTP transport layer.
//
// The transport layer bridges OpenAI-style clients and the translation
// engine. It deserializes incoming requests into the wire types defined in
// pkg/api, dispatches them through the Gateway interface, and serializes
// results back as JSON bodies or SSE chunk streams.
//
// # Handler Contract
//
// Gateway is the single interface between the HTTP adapter and the engine:
// one method per inbound operation (chat, legacy completion, embeddings,
// model listing, upstream status, raw passthrough), with streaming variants
// taking a StreamWriter sink. Error mapping is centralized here:
// HTTPStatusFromError turns the APIError taxonomy into status codes, and
// WriteAPIError renders the error envelope.
//
// # Middleware
//
// Middleware wraps http.Handler with cross-cutting concerns: panic
// recovery, request ID assignment (X-Request-ID), and structured logging
// via log/slog. The InFlightRegistry tracks active streams so shutdown can
// cancel them instead of waiting out every open connection.
package transport
