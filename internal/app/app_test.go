package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"marketmind/pkg/ai"
	"marketmind/pkg/domain"
	"marketmind/pkg/store"
)

// Shared fakes for the stage tests.

type fakeCompleter struct {
	reply string
	err   error
	calls [][]domain.ChatMessage
}

func (f *fakeCompleter) Complete(_ context.Context, messages []domain.ChatMessage) (string, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeImages struct {
	image []byte
	err   error

	txt2imgCalls []ai.TextToImageRequest
	img2imgCalls []ai.ImageToImageRequest
}

func (f *fakeImages) TextToImage(_ context.Context, req ai.TextToImageRequest) ([]byte, error) {
	f.txt2imgCalls = append(f.txt2imgCalls, req)
	return f.image, f.err
}

func (f *fakeImages) ImageToImage(_ context.Context, req ai.ImageToImageRequest) ([]byte, error) {
	f.img2imgCalls = append(f.img2imgCalls, req)
	return f.image, f.err
}

type fakeSpeech struct {
	speakers    []string
	speakersErr error
	audio       []byte
	audioErr    error

	listCalls  int
	synthCalls []ai.SpeechRequest
}

func (f *fakeSpeech) ListSpeakers(_ context.Context) ([]string, error) {
	f.listCalls++
	return f.speakers, f.speakersErr
}

func (f *fakeSpeech) Synthesize(_ context.Context, req ai.SpeechRequest) ([]byte, error) {
	f.synthCalls = append(f.synthCalls, req)
	if f.audioErr != nil {
		return nil, f.audioErr
	}
	return f.audio, nil
}

type fakeVideo struct {
	uploadName string
	uploadErr  error
	jobID      string
	submitErr  error

	uploads []string
	submits []ai.Workflow
}

func (f *fakeVideo) UploadImage(_ context.Context, filename string, _ []byte) (string, error) {
	f.uploads = append(f.uploads, filename)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadName, nil
}

func (f *fakeVideo) SubmitPrompt(_ context.Context, wf ai.Workflow) (string, error) {
	f.submits = append(f.submits, wf)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.jobID, nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte

	putErr error
	getErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Put(_ context.Context, key string, data []byte, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

type fakeJobs struct {
	recorded []domain.GenerationJob
	err      error
}

func (f *fakeJobs) Record(_ context.Context, job domain.GenerationJob) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, job)
	return nil
}

func (f *fakeJobs) Recent(_ context.Context, conversationID string, _ int64) ([]domain.GenerationJob, error) {
	res := make([]domain.GenerationJob, 0)
	for i := len(f.recorded) - 1; i >= 0; i-- {
		if f.recorded[i].ConversationID == conversationID {
			res = append(res, f.recorded[i])
		}
	}
	return res, nil
}

type testEnv struct {
	app     *App
	store   *store.MemoryStore
	objects *fakeObjects
	chat    *fakeCompleter
	refiner *fakeCompleter
	images  *fakeImages
	speech  *fakeSpeech
	video   *fakeVideo
	jobs    *fakeJobs
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   store.NewMemoryStore(),
		objects: newFakeObjects(),
		chat:    &fakeCompleter{reply: "assistant reply"},
		refiner: &fakeCompleter{reply: "refined prompt"},
		images:  &fakeImages{image: []byte("png-bytes")},
		speech:  &fakeSpeech{speakers: []string{"alloy", "ember"}, audio: []byte("wav-bytes")},
		video:   &fakeVideo{uploadName: "upload-0001.png", jobID: "job-42"},
		jobs:    &fakeJobs{},
	}
	cfg := Config{
		Store:              env.store,
		Objects:            env.objects,
		Chat:               env.chat,
		Refiner:            env.refiner,
		Images:             env.images,
		Speech:             env.speech,
		Video:              env.video,
		Jobs:               env.jobs,
		WorkflowImageNode:  "3",
		WorkflowOutputNode: "9",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	env.app = a
	return env
}

func seedConversation(t *testing.T, s *store.MemoryStore, ownerID string) domain.Conversation {
	t.Helper()
	conversation := domain.Conversation{
		ID:        "conv-1",
		OwnerID:   ownerID,
		Title:     "seeded",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.CreateConversation(conversation); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return conversation
}
