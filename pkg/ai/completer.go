package ai

import (
	"context"

	"marketmind/pkg/domain"
)

// ChatCompleter produces a single completion for an ordered message sequence.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// OllamaCompleter binds an OllamaClient to a fixed model.
type OllamaCompleter struct {
	client *OllamaClient
	model  string
}

// NewOllamaCompleter builds an Ollama-backed ChatCompleter.
func NewOllamaCompleter(client *OllamaClient, model string) *OllamaCompleter {
	return &OllamaCompleter{client: client, model: model}
}

// Complete implements ChatCompleter using Ollama /api/chat.
func (c *OllamaCompleter) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	return c.client.Chat(ctx, c.model, messages)
}
