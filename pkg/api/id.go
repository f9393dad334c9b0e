package api

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	toolCallIDLength = 22
	charset          = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	chatCompletionIDPrefix = "chatcmpl-"
	completionIDPrefix     = "cmpl-"
	toolCallIDPrefix       = "call_"
)

var toolCallIDPattern = regexp.MustCompile(`^call_[a-zA-Z0-9]{22}$`)

// NewChatCompletionID generates a chat completion response ID with the
// "chatcmpl-" prefix followed by a dashless UUID.
func NewChatCompletionID() string {
	return chatCompletionIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewCompletionID generates a legacy completion response ID with the
// "cmpl-" prefix followed by a dashless UUID.
func NewCompletionID() string {
	return completionIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewToolCallID generates a tool call ID with the "call_" prefix followed
// by 22 cryptographically random alphanumeric characters.
func NewToolCallID() string {
	return toolCallIDPrefix + randomAlphanumeric(toolCallIDLength)
}

// ValidateToolCallID checks whether the given string is a valid tool call ID
// (matches "call_" + 22 alphanumeric characters).
func ValidateToolCallID(id string) bool {
	return toolCallIDPattern.MatchString(id)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
