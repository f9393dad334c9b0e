// Package engine implements the core orchestration logic for argonaut.
// The Engine struct implements transport.Gateway, bridging incoming
// OpenAI-style requests to the Argo backend. It resolves models, applies
// tool-call emulation when tools are declared, picks the effective delivery
// mode, and maps every failure into the APIError taxonomy before it crosses
// back to transport:
//
//	tools | stream requested | effective mode
//	 no   |  no              | one buffered backend call, one JSON response
//	 no   |  yes             | passthrough streaming (emulated when the
//	      |                  | model cannot stream or pseudo_stream is set)
//	 yes  |  no              | buffered call + tool-call decode
//	 yes  |  yes             | forced emulation: backend output is drained
//	      |                  | and decoded before the first chunk goes out
//
// Streams emit a role-first chunk, zero or more delta chunks, and exactly
// one terminal chunk carrying the finish reason with an empty delta, then
// the [DONE] sentinel. Concatenating the content deltas of an emulated
// stream reproduces the buffered response byte for byte.
package engine
