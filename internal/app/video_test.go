package app

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

const testWorkflowJSON = `{
  "3": {
    "class_type": "LoadImage",
    "inputs": {"image": "placeholder.png"}
  },
  "6": {
    "class_type": "ImageToVideo",
    "inputs": {"image": ["3", 0], "frames": 25}
  },
  "9": {
    "class_type": "SaveVideo",
    "inputs": {"filename_prefix": "out", "video": ["6", 0]}
  }
}`

func writeTestWorkflow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write workflow template: %v", err)
	}
	return path
}

func newVideoEnv(t *testing.T) *testEnv {
	t.Helper()
	path := writeTestWorkflow(t, testWorkflowJSON)
	return newTestEnv(t, func(cfg *Config) {
		cfg.WorkflowPath = path
	})
}

func seedArtifact(t *testing.T, env *testEnv, conversationID string) {
	t.Helper()
	if _, err := env.app.GenerateImage(context.Background(), "owner-1", conversationID, "seed subject"); err != nil {
		t.Fatalf("seed artifact: %v", err)
	}
}

func TestSubmitVideoRequiresArtifact(t *testing.T) {
	env := newVideoEnv(t)
	conversation := seedConversation(t, env.store, "owner-1")

	_, err := env.app.SubmitVideo(context.Background(), "owner-1", conversation.ID)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if len(env.video.uploads)+len(env.video.submits) != 0 {
		t.Fatalf("no engine calls expected without an artifact")
	}
}

func TestSubmitVideoPatchesWorkflowAndSubmits(t *testing.T) {
	env := newVideoEnv(t)
	conversation := seedConversation(t, env.store, "owner-1")
	seedArtifact(t, env, conversation.ID)

	job, err := env.app.SubmitVideo(context.Background(), "owner-1", conversation.ID)
	if err != nil {
		t.Fatalf("submit video: %v", err)
	}
	if job.ID != "job-42" {
		t.Fatalf("job id = %q", job.ID)
	}
	if job.Status != "submitted" {
		t.Fatalf("job status = %q", job.Status)
	}
	if len(env.video.uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(env.video.uploads))
	}
	if env.video.uploads[0] != conversation.ID+"-v1.png" {
		t.Fatalf("upload name = %q", env.video.uploads[0])
	}
	if len(env.video.submits) != 1 {
		t.Fatalf("submits = %d, want 1", len(env.video.submits))
	}
	wf := env.video.submits[0]
	if got := wf["3"]["inputs"].(map[string]any)["image"]; got != "upload-0001.png" {
		t.Fatalf("image node input = %v, want the engine-side filename", got)
	}
	if got := wf["9"]["inputs"].(map[string]any)["filename_prefix"]; got != "marketmind-"+conversation.ID {
		t.Fatalf("output prefix = %v", got)
	}
	if len(env.jobs.recorded) != 1 || env.jobs.recorded[0].ID != "job-42" {
		t.Fatalf("job log = %+v", env.jobs.recorded)
	}
}

func TestSubmitVideoTemplatePatchedPerRequest(t *testing.T) {
	env := newVideoEnv(t)
	conversation := seedConversation(t, env.store, "owner-1")
	seedArtifact(t, env, conversation.ID)

	for i := 0; i < 2; i++ {
		if _, err := env.app.SubmitVideo(context.Background(), "owner-1", conversation.ID); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	// Each submission patches its own clone, not the cached template.
	env.video.submits[0]["3"]["inputs"].(map[string]any)["image"] = "tampered.png"
	if got := env.video.submits[1]["3"]["inputs"].(map[string]any)["image"]; got != "upload-0001.png" {
		t.Fatalf("second submission image input = %v, submissions must not share state", got)
	}
}

func TestSubmitVideoMissingWorkflowNode(t *testing.T) {
	path := writeTestWorkflow(t, `{"1": {"inputs": {"image": "x"}}}`)
	env := newTestEnv(t, func(cfg *Config) {
		cfg.WorkflowPath = path
	})
	conversation := seedConversation(t, env.store, "owner-1")
	seedArtifact(t, env, conversation.ID)

	_, err := env.app.SubmitVideo(context.Background(), "owner-1", conversation.ID)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want configuration", err)
	}
	if len(env.video.uploads) != 0 {
		t.Fatalf("must not upload against an unpatchable workflow")
	}
}

func TestSubmitVideoMissingTemplateIsRetryable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.json")
	env := newTestEnv(t, func(cfg *Config) {
		cfg.WorkflowPath = path
	})
	conversation := seedConversation(t, env.store, "owner-1")
	seedArtifact(t, env, conversation.ID)

	if _, err := env.app.SubmitVideo(context.Background(), "owner-1", conversation.ID); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("missing template: err = %v", err)
	}
	// Deploying the template fixes the stage without a restart.
	if err := os.WriteFile(path, []byte(testWorkflowJSON), 0o600); err != nil {
		t.Fatalf("write workflow template: %v", err)
	}
	if _, err := env.app.SubmitVideo(context.Background(), "owner-1", conversation.ID); err != nil {
		t.Fatalf("submit after template deploy: %v", err)
	}
}

func TestSubmitVideoEngineOutage(t *testing.T) {
	env := newVideoEnv(t)
	conversation := seedConversation(t, env.store, "owner-1")
	seedArtifact(t, env, conversation.ID)
	env.video.uploadErr = &url.Error{Op: "Post", URL: "http://comfy/upload/image", Err: errors.New("connection refused")}

	_, err := env.app.SubmitVideo(context.Background(), "owner-1", conversation.ID)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want upstream unavailable", err)
	}
	if len(env.video.submits) != 0 {
		t.Fatalf("must not submit after a failed upload")
	}
}

func TestSubmitVideoJobLogFailureIsNotFatal(t *testing.T) {
	env := newVideoEnv(t)
	conversation := seedConversation(t, env.store, "owner-1")
	seedArtifact(t, env, conversation.ID)
	env.jobs.err = errors.New("redis down")

	job, err := env.app.SubmitVideo(context.Background(), "owner-1", conversation.ID)
	if err != nil {
		t.Fatalf("submit video: %v", err)
	}
	if job.ID != "job-42" {
		t.Fatalf("job id = %q", job.ID)
	}
}

func TestRecentJobsScopedToConversation(t *testing.T) {
	env := newVideoEnv(t)
	first := seedConversation(t, env.store, "owner-1")
	seedArtifact(t, env, first.ID)
	if _, err := env.app.SubmitVideo(context.Background(), "owner-1", first.ID); err != nil {
		t.Fatalf("submit video: %v", err)
	}

	jobs, err := env.app.RecentJobs(context.Background(), "owner-1", first.ID)
	if err != nil {
		t.Fatalf("recent jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ConversationID != first.ID {
		t.Fatalf("jobs = %+v", jobs)
	}
	if _, err := env.app.RecentJobs(context.Background(), "owner-2", first.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("foreign owner must not read the job log, got %v", err)
	}
}
