// Package toolcall emulates function calling for backends that have no
// native support for it.
//
// The encode side renders declared tools into a per-family instruction
// block teaching the model a fixed textual convention
// (<tool_call>{"name": ..., "arguments": ...}</tool_call>) and re-encodes
// prior structured calls and tool results into plain text so conversations
// replay faithfully.
//
// The decode side recovers structured calls from free-form model output
// with a layered strategy: a strict scan of the tagged convention, then a
// lenient scan for bare JSON objects naming a declared tool, then giving up
// and passing the text through as ordinary content. Decoding never fails;
// the worst outcome is a response with no calls.
package toolcall
