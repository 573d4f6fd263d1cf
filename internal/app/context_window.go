package app

import (
	"strings"

	"marketmind/pkg/domain"
)

// BuildContextWindow turns conversation history into a bounded prompt
// sequence: exactly one system entry first, then at most maxMessages of the
// most recent history entries oldest-first, then the new user message.
// History entries missing a role or content are dropped rather than sent.
func BuildContextWindow(systemPrompt string, history []domain.Message, userMessage string, maxMessages int) []domain.ChatMessage {
	if maxMessages < 0 {
		maxMessages = 0
	}
	window := history
	if len(window) > maxMessages {
		window = window[len(window)-maxMessages:]
	}
	msgs := make([]domain.ChatMessage, 0, len(window)+2)
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: strings.TrimSpace(systemPrompt)})
	for _, msg := range window {
		if strings.TrimSpace(msg.Role) == "" || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		msgs = append(msgs, domain.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: userMessage})
}
