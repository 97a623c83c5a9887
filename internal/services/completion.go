package services

import (
	"context"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

// ChatMessageRole defines the role of the message sender (system, user, assistant).
type ChatMessageRole string

const (
	ChatMessageRoleSystem    ChatMessageRole = "system"
	ChatMessageRoleUser      ChatMessageRole = "user"
	ChatMessageRoleAssistant ChatMessageRole = "assistant" // "model" for Gemini
)

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    ChatMessageRole
	Content string
}

// CompletionService defines the interface for generating chat responses.
// Implementations wrap upstream failures with a retry category so callers can
// tell a rate limit from a malformed request.
type CompletionService interface {
	GenerateChatCompletion(ctx context.Context, messages []ChatMessage) (string, error)
	Status() store.ProviderStatus
	Name() string
	ModelName() string
}
