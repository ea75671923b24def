package usecase

import (
	"strings"

	"openrouter-chat/internal/domain"
)

// buildMessages returns the single-turn conversation: an optional system
// message followed by the user prompt.
func buildMessages(systemPrompt, prompt string) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, 2)
	if sp := strings.TrimSpace(systemPrompt); sp != "" {
		messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: sp})
	}
	return append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: prompt})
}
