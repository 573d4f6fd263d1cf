package store

import (
	"sync"
	"time"

	"marketmind/pkg/domain"
)

// MemoryStore keeps everything in-process. It backs unit tests and local
// development without Postgres.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]domain.Conversation
	messages      map[string][]domain.Message
	artifacts     map[string]domain.Artifact

	// AppendErr, when set, makes AppendMessages fail without persisting
	// anything. Used by tests to exercise batch atomicity.
	AppendErr error
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string][]domain.Message),
		artifacts:     make(map[string]domain.Artifact),
	}
}

func (m *MemoryStore) CreateConversation(c domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[c.ID] = c
	return nil
}

func (m *MemoryStore) GetConversation(id, ownerID string) (domain.Conversation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	if !ok || c.OwnerID != ownerID {
		return domain.Conversation{}, false, nil
	}
	return c, true, nil
}

func (m *MemoryStore) ListConversationsByOwner(ownerID string) ([]domain.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Conversation, 0)
	for _, c := range m.conversations {
		if c.OwnerID == ownerID {
			res = append(res, c)
		}
	}
	// most recently updated first
	for i := 1; i < len(res); i++ {
		for j := i; j > 0 && res[j].UpdatedAt.After(res[j-1].UpdatedAt); j-- {
			res[j], res[j-1] = res[j-1], res[j]
		}
	}
	return res, nil
}

// AppendMessages mirrors the transactional semantics of the Postgres store:
// the whole batch lands or none of it does.
func (m *MemoryStore) AppendMessages(conversationID string, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	c, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	m.messages[conversationID] = append(m.messages[conversationID], msgs...)
	c.UpdatedAt = time.Now().UTC()
	m.conversations[conversationID] = c
	return nil
}

func (m *MemoryStore) ListMessages(conversationID string, limit int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	res := make([]domain.Message, len(msgs))
	copy(res, msgs)
	return res, nil
}

func (m *MemoryStore) SetCurrentArtifact(a domain.Artifact) (domain.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := m.artifacts[a.ConversationID]; ok {
		a.Version = existing.Version + 1
		a.CreatedAt = existing.CreatedAt
	} else {
		a.Version = 1
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	m.artifacts[a.ConversationID] = a
	return a, nil
}

func (m *MemoryStore) GetCurrentArtifact(conversationID string) (domain.Artifact, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artifacts[conversationID]
	return a, ok, nil
}
