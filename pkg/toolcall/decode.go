package toolcall

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/argonaut-dev/argonaut/pkg/api"
	"github.com/argonaut-dev/argonaut/pkg/debug"
)

// Result is the outcome of decoding a completion. Content holds the prose
// that remains after call extraction; Calls holds the structured calls in
// the order they appeared.
type Result struct {
	Content string
	Calls   []api.ToolCall
}

// Decode extracts tool calls from a model completion. It tries the tagged
// convention first, then falls back to scanning for bare JSON objects that
// name a declared tool. Text that yields no calls is returned unchanged as
// plain content. Decode never fails: malformed fragments stay in the
// content verbatim rather than aborting the response.
func Decode(text string, declared []string) Result {
	content, calls := scanTagged(text)
	if len(calls) > 0 {
		debug.Log("toolcall", "decoded %d tagged call(s)", len(calls))
		return Result{Content: strings.TrimSpace(content), Calls: calls}
	}
	if len(declared) > 0 {
		if salvaged, bare := scanBare(text, declared); len(bare) > 0 {
			debug.Log("toolcall", "salvaged %d bare call(s)", len(bare))
			return Result{Content: salvaged, Calls: bare}
		}
	}
	return Result{Content: text}
}

// scanTagged walks the text extracting <tool_call> segments. Segments whose
// payload is not a parseable call, and tags that never close, are kept in
// the content verbatim so no model output is silently lost.
func scanTagged(text string) (string, []api.ToolCall) {
	var content strings.Builder
	var calls []api.ToolCall
	rest := text
	for {
		start := strings.Index(rest, openTag)
		if start < 0 {
			content.WriteString(rest)
			break
		}
		inner := start + len(openTag)
		end := strings.Index(rest[inner:], closeTag)
		if end < 0 {
			content.WriteString(rest)
			break
		}
		segmentEnd := inner + end + len(closeTag)
		if call, ok := parseCall(rest[inner : inner+end]); ok {
			content.WriteString(rest[:start])
			calls = append(calls, call)
		} else {
			debug.Log("toolcall", "unparseable tagged segment kept as content: %s",
				debug.Truncate(rest[start:segmentEnd], 120))
			content.WriteString(rest[:segmentEnd])
		}
		rest = rest[segmentEnd:]
	}
	return content.String(), calls
}

// scanBare looks for balanced JSON objects in free text and salvages the
// ones that name a declared tool. Requiring a declared name keeps ordinary
// JSON in prose from being mistaken for a call.
func scanBare(text string, declared []string) (string, []api.ToolCall) {
	allowed := make(map[string]bool, len(declared))
	for _, name := range declared {
		allowed[name] = true
	}

	var content strings.Builder
	var calls []api.ToolCall
	i := 0
	for i < len(text) {
		j := strings.IndexByte(text[i:], '{')
		if j < 0 {
			content.WriteString(text[i:])
			break
		}
		j += i
		content.WriteString(text[i:j])
		n := balancedObject(text[j:])
		if n < 0 {
			content.WriteString(text[j:])
			break
		}
		candidate := text[j : j+n]
		if call, ok := parseCall(candidate); ok && allowed[call.Function.Name] {
			calls = append(calls, call)
		} else {
			content.WriteString(candidate)
		}
		i = j + n
	}
	if len(calls) == 0 {
		return text, nil
	}
	return tidyAfterSalvage(content.String()), calls
}

// balancedObject returns the length of the balanced JSON object starting at
// s[0] == '{', or -1 if the braces never balance. Braces inside string
// literals do not count.
func balancedObject(s string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			if inString {
				escaped = true
			}
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// parseCall interprets a payload as a single call object. Models sometimes
// wrap the JSON in a markdown fence or use "parameters" instead of
// "arguments"; both are tolerated.
func parseCall(payload string) (api.ToolCall, bool) {
	trimmed := stripFences(payload)
	if trimmed == "" || !gjson.Valid(trimmed) {
		return api.ToolCall{}, false
	}
	doc := gjson.Parse(trimmed)
	if !doc.IsObject() {
		return api.ToolCall{}, false
	}
	name := doc.Get("name")
	if name.Type != gjson.String || name.Str == "" {
		return api.ToolCall{}, false
	}
	args := doc.Get("arguments")
	if !args.Exists() {
		args = doc.Get("parameters")
	}
	return api.ToolCall{
		ID:   api.NewToolCallID(),
		Type: "function",
		Function: api.FunctionCall{
			Name:      name.Str,
			Arguments: normalizeArgs(args),
		},
	}, true
}

// normalizeArgs renders the decoded arguments value as the JSON text the
// wire format carries. Objects pass through raw; a string that itself holds
// serialized JSON is unwrapped, since models double-encode routinely.
func normalizeArgs(v gjson.Result) string {
	switch {
	case !v.Exists(), v.Type == gjson.Null:
		return "{}"
	case v.Type == gjson.String:
		inner := strings.TrimSpace(v.Str)
		if (strings.HasPrefix(inner, "{") || strings.HasPrefix(inner, "[")) && json.Valid([]byte(inner)) {
			return inner
		}
		return v.Raw
	default:
		return v.Raw
	}
}

// stripFences removes a surrounding markdown code fence, including an info
// string such as "json" on the opening line.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// tidyAfterSalvage cleans prose left behind once bare calls were cut out of
// it, dropping the fence lines that framed them.
func tidyAfterSalvage(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
