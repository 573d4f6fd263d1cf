package domain

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is an owner-scoped, append-only thread of messages.
type Conversation struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is one turn of a conversation. Messages are immutable once appended.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ChatMessage is one role/content entry of a chat-completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Artifact points at the current generated image of a conversation.
// There is at most one per conversation; producing a new image replaces it
// and bumps Version. The bytes themselves live in object storage under
// StorageKey.
type Artifact struct {
	ConversationID string            `json:"conversationId"`
	Version        int               `json:"version"`
	StorageKey     string            `json:"-"`
	ContentType    string            `json:"contentType"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// GenerationJob is a video render job as acknowledged by the video engine.
// Submission is fire and forget: the job is never polled by this service,
// completion monitoring belongs to whoever consumes the engine's output.
type GenerationJob struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Status         string    `json:"status"`
	SubmittedAt    time.Time `json:"submittedAt"`
}
