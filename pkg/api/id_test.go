package api

import (
	"strings"
	"testing"
)

func TestNewToolCallID(t *testing.T) {
	id := NewToolCallID()
	if !ValidateToolCallID(id) {
		t.Errorf("generated ID %q does not validate", id)
	}
}

func TestToolCallIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewToolCallID()
		if seen[id] {
			t.Fatalf("duplicate ID generated: %q", id)
		}
		seen[id] = true
	}
}

func TestResponseIDPrefixes(t *testing.T) {
	if id := NewChatCompletionID(); !strings.HasPrefix(id, "chatcmpl-") {
		t.Errorf("NewChatCompletionID() = %q, want chatcmpl- prefix", id)
	}
	if id := NewCompletionID(); !strings.HasPrefix(id, "cmpl-") {
		t.Errorf("NewCompletionID() = %q, want cmpl- prefix", id)
	}
}

func TestValidateToolCallID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid", "call_" + strings.Repeat("a", 22), true},
		{"wrong prefix", "tool_" + strings.Repeat("a", 22), false},
		{"too short", "call_abc", false},
		{"bad characters", "call_" + strings.Repeat("!", 22), false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateToolCallID(tt.id); got != tt.want {
				t.Errorf("ValidateToolCallID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
