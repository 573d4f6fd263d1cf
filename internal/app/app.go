package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"marketmind/internal/util"
	"marketmind/pkg/ai"
	"marketmind/pkg/domain"
	"marketmind/pkg/storage"
	"marketmind/pkg/store"
)

// ImageSynthesizer is the text-to-image service boundary. The two request
// shapes differ by the presence of a seed image and a denoising strength.
type ImageSynthesizer interface {
	TextToImage(ctx context.Context, req ai.TextToImageRequest) ([]byte, error)
	ImageToImage(ctx context.Context, req ai.ImageToImageRequest) ([]byte, error)
}

// SpeechSynthesizer is the text-to-speech service boundary.
type SpeechSynthesizer interface {
	ListSpeakers(ctx context.Context) ([]string, error)
	Synthesize(ctx context.Context, req ai.SpeechRequest) ([]byte, error)
}

// VideoEngine is the video generation engine boundary. Submission is fire and
// forget; job completion is never polled by this service.
type VideoEngine interface {
	UploadImage(ctx context.Context, filename string, data []byte) (string, error)
	SubmitPrompt(ctx context.Context, wf ai.Workflow) (string, error)
}

// JobLog records submitted video jobs for display. Optional; recording
// failures never fail a submission.
type JobLog interface {
	Record(ctx context.Context, job domain.GenerationJob) error
	Recent(ctx context.Context, conversationID string, limit int64) ([]domain.GenerationJob, error)
}

// Config holds runtime dependencies for the core application.
type Config struct {
	Store   store.Store
	Objects storage.ObjectStore
	Chat    ai.ChatCompleter
	Refiner ai.ChatCompleter
	Images  ImageSynthesizer
	Speech  SpeechSynthesizer
	Video   VideoEngine
	Jobs    JobLog

	WorkflowPath       string
	WorkflowImageNode  string
	WorkflowOutputNode string

	HistoryLimit int
}

// App is the generation orchestration core: conversation state, the
// text/image/audio/video stages, and the artifact hand-off between them.
type App struct {
	store   store.Store
	objects storage.ObjectStore
	chat    ai.ChatCompleter
	refiner ai.ChatCompleter
	images  ImageSynthesizer
	speech  SpeechSynthesizer
	video   VideoEngine
	jobs    JobLog

	workflowPath       string
	workflowImageNode  string
	workflowOutputNode string

	historyLimit int

	workflowMu sync.Mutex
	workflow   ai.Workflow
}

// New wires the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Objects == nil {
		return nil, fmt.Errorf("object store required")
	}
	if cfg.Chat == nil {
		return nil, fmt.Errorf("chat completer required")
	}
	refiner := cfg.Refiner
	if refiner == nil {
		refiner = cfg.Chat
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &App{
		store:              cfg.Store,
		objects:            cfg.Objects,
		chat:               cfg.Chat,
		refiner:            refiner,
		images:             cfg.Images,
		speech:             cfg.Speech,
		video:              cfg.Video,
		jobs:               cfg.Jobs,
		workflowPath:       cfg.WorkflowPath,
		workflowImageNode:  cfg.WorkflowImageNode,
		workflowOutputNode: cfg.WorkflowOutputNode,
		historyLimit:       historyLimit,
	}, nil
}

// ListConversations returns the owner's conversations, most recently updated
// first, for the sidebar view.
func (a *App) ListConversations(ctx context.Context, ownerID string) ([]domain.Conversation, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, validationErr("owner id required")
	}
	items, err := a.store.ListConversationsByOwner(ownerID)
	if err != nil {
		return nil, persistenceErr(err)
	}
	return items, nil
}

// ListMessages returns a conversation's history in chronological order.
func (a *App) ListMessages(ctx context.Context, ownerID, conversationID string, limit int) ([]domain.Message, error) {
	if _, err := a.resolveConversation(ownerID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	items, err := a.store.ListMessages(conversationID, limit)
	if err != nil {
		return nil, persistenceErr(err)
	}
	return items, nil
}

// resolveConversation loads an owner's conversation or reports it missing.
func (a *App) resolveConversation(ownerID, conversationID string) (domain.Conversation, error) {
	if strings.TrimSpace(ownerID) == "" {
		return domain.Conversation{}, validationErr("owner id required")
	}
	if strings.TrimSpace(conversationID) == "" {
		return domain.Conversation{}, validationErr("conversation id required")
	}
	conversation, ok, err := a.store.GetConversation(conversationID, ownerID)
	if err != nil {
		return domain.Conversation{}, persistenceErr(err)
	}
	if !ok {
		return domain.Conversation{}, ErrConversationNotFound
	}
	return conversation, nil
}

// newConversation builds (but does not persist) a conversation titled from
// the seed topic.
func newConversation(ownerID, seedTopic string) domain.Conversation {
	now := time.Now().UTC()
	return domain.Conversation{
		ID:        util.NewID(),
		OwnerID:   ownerID,
		Title:     conversationTitle(seedTopic),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// conversationTitle derives a display title from the first topic: the first
// 40 characters, with an ellipsis appended when truncated.
func conversationTitle(seedTopic string) string {
	runes := []rune(seedTopic)
	if len(runes) <= conversationTitleLength {
		return seedTopic
	}
	return string(runes[:conversationTitleLength]) + "..."
}
