package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"marketmind/internal/util"
	"marketmind/pkg/domain"
)

// TextResult is the outcome of one conversational turn.
type TextResult struct {
	Conversation domain.Conversation `json:"conversation"`
	Reply        string              `json:"reply"`
	// Warning is set when the turn succeeded with a caveat, e.g. the model
	// returned an empty completion.
	Warning string `json:"warning,omitempty"`
}

// GenerateText drives one turn of the marketing conversation: resolve or
// create the conversation, send the bounded context window to the chat
// service, and persist the exchange as one batch.
//
// A transport failure aborts before any persistence, leaving the conversation
// exactly as it was. An empty completion still persists the user's message
// (history must reflect what the user said) and is reported as a warning.
func (a *App) GenerateText(ctx context.Context, ownerID, conversationID, topic string) (TextResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return TextResult{}, validationErr("topic required")
	}
	if strings.TrimSpace(ownerID) == "" {
		return TextResult{}, validationErr("owner id required")
	}

	// A caller-supplied id that is absent, invalid, or not owned by the
	// caller starts a fresh conversation instead of failing.
	var conversation domain.Conversation
	var history []domain.Message
	create := true
	if strings.TrimSpace(conversationID) != "" {
		existing, ok, err := a.store.GetConversation(conversationID, ownerID)
		if err != nil {
			return TextResult{}, persistenceErr(err)
		}
		if ok {
			conversation = existing
			create = false
			history, err = a.store.ListMessages(conversation.ID, a.historyLimit)
			if err != nil {
				return TextResult{}, persistenceErr(err)
			}
		}
	}
	if create {
		conversation = newConversation(ownerID, topic)
	}

	messages := BuildContextWindow(marketingSystemPrompt, history, topic, a.historyLimit)
	reply, err := a.chat.Complete(ctx, messages)
	if err != nil {
		return TextResult{}, upstreamErr("chat service", err)
	}

	if create {
		if err := a.store.CreateConversation(conversation); err != nil {
			return TextResult{}, persistenceErr(err)
		}
	}

	now := time.Now().UTC()
	batch := []domain.Message{{
		ID:             util.NewID(),
		ConversationID: conversation.ID,
		Role:           domain.RoleUser,
		Content:        topic,
		CreatedAt:      now,
	}}
	warning := ""
	if reply != "" {
		batch = append(batch, domain.Message{
			ID:             util.NewID(),
			ConversationID: conversation.ID,
			Role:           domain.RoleAssistant,
			Content:        reply,
			CreatedAt:      now,
		})
	} else {
		warning = "the assistant returned an empty reply; your message was kept"
		slog.Warn("chat completion empty", "conversation_id", conversation.ID)
	}
	if err := a.store.AppendMessages(conversation.ID, batch); err != nil {
		return TextResult{}, persistenceErr(err)
	}
	conversation.UpdatedAt = now

	return TextResult{Conversation: conversation, Reply: reply, Warning: warning}, nil
}
