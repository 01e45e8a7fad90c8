// Package ai provides the LLM completion clients and per-conversation history.
package ai

import "context"

// Role identifies the speaker of a conversation turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation. Turns are values and are never modified after being appended to a
// history
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserTurn creates a turn spoken by the user
func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// NewAssistantTurn creates a turn spoken by the model
func NewAssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// Completer produces a single model reply for a new user message, given the prior history of the conversation. The
// system prompt is supplied by the implementation and must not appear in history.
type Completer interface {
	GetResponse(ctx context.Context, userMessage string, history []Turn) (string, error)
}

// buildMessages assembles the request message list: system prompt, then history, then the new user turn
func buildMessages(systemPrompt string, userMessage string, history []Turn) []Turn {
	messages := make([]Turn, 0, len(history)+2)
	messages = append(messages, Turn{Role: RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, NewUserTurn(userMessage))
	return messages
}
