package store

import "marketmind/pkg/domain"

// Store defines persistence operations for conversations, messages, and the
// per-conversation artifact pointer.
type Store interface {
	// conversations
	CreateConversation(domain.Conversation) error
	// GetConversation resolves a conversation only when it belongs to ownerID.
	GetConversation(id, ownerID string) (domain.Conversation, bool, error)
	ListConversationsByOwner(ownerID string) ([]domain.Conversation, error)

	// messages
	// AppendMessages adds the whole batch and refreshes the conversation's
	// updated_at, or adds nothing at all.
	AppendMessages(conversationID string, msgs []domain.Message) error
	ListMessages(conversationID string, limit int) ([]domain.Message, error)

	// artifact pointer (one current slot per conversation, replace-on-write)
	SetCurrentArtifact(domain.Artifact) (domain.Artifact, error)
	GetCurrentArtifact(conversationID string) (domain.Artifact, bool, error)
}
