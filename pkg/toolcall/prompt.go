package toolcall

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/argonaut-dev/argonaut/pkg/api"
	"github.com/argonaut-dev/argonaut/pkg/models"
)

// Tags of the textual calling convention.
const (
	openTag  = "<tool_call>"
	closeTag = "</tool_call>"
)

// openaiSkeleton is the instruction block for GPT-family models. GPT models
// follow strict mode rules well, so the convention demands calls at the very
// start of the response.
const openaiSkeleton = `You are an AI assistant that can call pre-defined tools when needed.

### Available Tools
{tools_json}

### Tool Usage Policy
Tool choice: {tool_choice_json}
- "none": Do not use tools, respond with text only
- "auto": Use tools only when necessary to answer the user's request
- "required": You MUST use at least one tool - cannot respond with text only
- {"name": "tool_name"}: Use the specified tool if relevant

Parallel calls allowed: {parallel_flag}

### CRITICAL: Response Format Rules

You have TWO response modes:

**MODE 1: Tool Call Response**
- Start IMMEDIATELY with <tool_call> (no text before)
- Contains ONLY valid JSON with "name" and "arguments" fields
- End with </tool_call>
- After the tool call, you MUST wait for the tool result before continuing
- Do NOT simulate tool results or continue the conversation

Format:
<tool_call>
{"name": "tool_name", "arguments": {"param": "value"}}
</tool_call>

**MODE 2: Text Response**
- Pure natural language response
- Use when no tools are needed or after receiving tool results
- Never include <tool_call> tags in text responses

### Important Constraints
- NEVER start a tool call with explanatory text like "I'll help you..." or "Let me search..."
- NEVER simulate or imagine tool results - always wait for actual results
- NEVER use tags like <tool_code>, <tool_result>, or any other XML tags
- If parallel_tool_calls is false, make only ONE tool call per response
- If you start with <tool_call>, you cannot add text before it
- If you don't start with <tool_call>, you cannot use tools in that response

### Decision Process
Before responding, ask yourself:
1. Is tool choice "required"? -> You MUST use a tool
2. Is tool choice "none"? -> You MUST NOT use tools
3. Does the user's request require a tool to answer properly?
4. If yes -> Start immediately with <tool_call>
5. If no -> Respond with natural language only

Remember: Your first character determines your response mode. Choose wisely.`

// claudeSkeleton is the instruction block for Claude-family models. Claude
// over-calls tools without explicit restraint guidance and interleaves
// prose, so calls are allowed anywhere in the response.
const claudeSkeleton = `You are an AI assistant that can call pre-defined tools to help answer questions.

## When to Use Tools vs Your Knowledge

**Use tools ONLY when:**
- You need real-time, current information (stock prices, weather, news)
- You need to perform calculations beyond simple mental math
- You need to access specific external data or APIs
- The user explicitly requests you to use a particular tool
- You genuinely cannot answer accurately with your existing knowledge

**Do NOT use tools when:**
- You can answer from your training knowledge (general facts, explanations, advice)
- The question is about concepts, definitions, or well-established information
- You can provide helpful guidance without external data
- The user is asking for your opinion, analysis, or creative input
- Simple calculations you can do mentally (basic arithmetic)

**Remember:** Your training data is extensive and valuable. Use it first, tools second.

## CRITICAL: Planning Tool Calls with Dependencies

**BEFORE making any tool calls, think through:**
1. What information do I need to answer this question?
2. What order must I get this information in?
3. Does tool B need the result from tool A?
4. Can I make these calls in parallel, or must they be sequential?

**If there are data dependencies:**
- Make ONE tool call at a time
- Wait for the result before planning your next call
- Explain your plan to the user: "First I'll get X, then use that to get Y"

**When parallel calls ARE appropriate:**
- Getting independent information (weather in 3 different cities)
- Performing separate calculations that don't depend on each other
- Only when parallel_tool_calls is true AND there are no dependencies

## How to Use Tools
When you genuinely need information beyond your knowledge, use this format anywhere in your response:

<tool_call>
{"name": "tool_name", "arguments": {"param": "value"}}
</tool_call>

You can explain what you're doing, ask for clarification, or provide context - just include the tool call when needed.

## CRITICAL: Do NOT use these formats
- Anthropic's API format: {"type": "tool_use", "id": "...", "name": "...", "input": {...}}
- Anthropic's internal XML format: <function_calls>, <invoke>, <parameter> tags
- OpenAI's API format: a "tool_calls" array with nested "function" objects

## Available Tools
{tools_json}

## Tool Settings
- Tool choice: {tool_choice_json}
  - "auto": decide carefully when tools are truly needed
  - "none": answer without tools unless absolutely necessary
  - "required": you must use at least one tool in your response
  - {"name": "tool_name"}: prefer using the specified tool when relevant
- Parallel calls: {parallel_flag}
  - true: you may use multiple tools in one response (only if no dependencies)
  - false: use only one tool per response

Remember: Think before you call. Plan your sequence. Respect data dependencies.`

// geminiSkeleton is the instruction block for Gemini-family models. Gemini
// tends to roleplay tool execution, so the rules forbid simulation
// explicitly and allow no prose around calls.
const geminiSkeleton = `You are an AI assistant. You can call tools when needed, but you must follow the exact format.

### Available Tools
{tools_json}

### Tool Policy
{tool_choice_json}
- "none" = No tools allowed
- "auto" = Use tools if needed
- "required" = Must use one tool
- {"name": "X"} = Use tool X if relevant

Parallel: {parallel_flag}

### RESPONSE RULES (CRITICAL FOR GEMINI)

You have exactly TWO ways to respond:

**WAY 1: Call a tool**
Your entire response must be ONLY this:
<tool_call>
{"name": "tool_name", "arguments": {"param": "value"}}
</tool_call>

**WAY 2: Give a text answer**
Write a normal response with NO XML tags at all.

### FORBIDDEN BEHAVIORS
- Do NOT use <tool_code> tags
- Do NOT use <tool_result> tags
- Do NOT simulate running tools yourself
- Do NOT write code that calls tools
- Do NOT pretend to execute tools
- Do NOT continue after making a tool call
- Do NOT mix text with tool calls

### GEMINI-SPECIFIC INSTRUCTIONS
- You are NOT executing code yourself
- You are NOT running tools yourself
- You are only REQUESTING that a tool be called
- After requesting a tool call, you must WAIT
- The human will provide the tool result
- Do NOT roleplay or simulate anything

Choose ONE response type and stick to it completely.`

func skeleton(family models.Family) string {
	switch family {
	case models.FamilyAnthropic:
		return claudeSkeleton
	case models.FamilyGoogle:
		return geminiSkeleton
	default:
		return openaiSkeleton
	}
}

// Instructions renders the system instruction block for the declared tools.
// The output is deterministic: tools render in declaration order and the
// same inputs always produce identical text.
func Instructions(family models.Family, tools []api.Tool, choice *api.ToolChoice, parallel bool) (string, error) {
	toolsJSON, err := json.Marshal(tools)
	if err != nil {
		return "", fmt.Errorf("toolcall: encoding tool declarations: %w", err)
	}

	parallelFlag := "false"
	if parallel {
		parallelFlag = "true"
	}

	r := strings.NewReplacer(
		"{tools_json}", string(toolsJSON),
		"{tool_choice_json}", choiceJSON(choice),
		"{parallel_flag}", parallelFlag,
	)
	return r.Replace(skeleton(family)), nil
}

// choiceJSON renders the caller's tool_choice for embedding in the
// instruction block. An absent choice means "auto", matching what declaring
// tools implies.
func choiceJSON(choice *api.ToolChoice) string {
	switch {
	case choice == nil:
		return `"auto"`
	case choice.Function != nil:
		b, _ := json.Marshal(map[string]string{"name": choice.Function.Name})
		return string(b)
	default:
		b, _ := json.Marshal(choice.Value)
		return string(b)
	}
}

// Inject returns a copy of messages with the instruction block added as an
// additional system message, placed after the last existing system message
// so caller-provided system content keeps precedence.
func Inject(messages []api.ChatMessage, instructions string) []api.ChatMessage {
	insert := 0
	for i, m := range messages {
		if m.Role == api.RoleSystem {
			insert = i + 1
		}
	}
	out := make([]api.ChatMessage, 0, len(messages)+1)
	out = append(out, messages[:insert]...)
	out = append(out, api.ChatMessage{Role: api.RoleSystem, Content: instructions})
	out = append(out, messages[insert:]...)
	return out
}

// NormalizeHistory re-encodes structured tool traffic from earlier turns
// into the textual convention. Assistant messages replay their calls as
// tagged text; tool results become user messages, since that is how the
// instruction block tells the model results arrive.
func NormalizeHistory(messages []api.ChatMessage) []api.ChatMessage {
	names := make(map[string]string)
	out := make([]api.ChatMessage, 0, len(messages))
	for _, m := range messages {
		switch {
		case m.Role == api.RoleAssistant && len(m.ToolCalls) > 0:
			for _, c := range m.ToolCalls {
				names[c.ID] = c.Function.Name
			}
			text := api.ContentText(m.Content)
			encoded := EncodeCalls(m.ToolCalls)
			if text != "" {
				text = text + "\n\n" + encoded
			} else {
				text = encoded
			}
			out = append(out, api.ChatMessage{Role: api.RoleAssistant, Content: text})
		case m.Role == api.RoleTool:
			label := m.ToolCallID
			if name := names[m.ToolCallID]; name != "" {
				label = fmt.Sprintf("%s (%s)", name, m.ToolCallID)
			}
			text := fmt.Sprintf("Tool result from %s:\n%s", label, api.ContentText(m.Content))
			out = append(out, api.ChatMessage{Role: api.RoleUser, Content: text})
		default:
			out = append(out, m)
		}
	}
	return out
}

// EncodeCalls renders structured calls back into the tagged convention, one
// tag per call, in order.
func EncodeCalls(calls []api.ToolCall) string {
	parts := make([]string, 0, len(calls))
	for _, c := range calls {
		payload := struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}{
			Name:      c.Function.Name,
			Arguments: argumentsJSON(c.Function.Arguments),
		}
		b, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		parts = append(parts, openTag+"\n"+string(b)+"\n"+closeTag)
	}
	return strings.Join(parts, "\n")
}

// argumentsJSON turns the wire-format argument string into embeddable JSON.
// Arguments arrive pre-serialized; anything unparseable is carried as a
// JSON string.
func argumentsJSON(arguments string) json.RawMessage {
	if arguments == "" {
		return json.RawMessage(`{}`)
	}
	if json.Valid([]byte(arguments)) {
		return json.RawMessage(arguments)
	}
	quoted, _ := json.Marshal(arguments)
	return quoted
}
