package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"marketmind/pkg/ai"
	"marketmind/pkg/domain"
)

// SubmitVideo animates the conversation's current image artifact: the
// workflow template is cloned, the artifact is uploaded to the engine, the
// designated nodes are patched, and the job is submitted. The stage returns
// as soon as the engine acknowledges the job; render completion is never
// polled, monitoring belongs to the engine's own consumers.
//
// There is no from-scratch video mode: a conversation without an artifact
// fails validation before any network call.
func (a *App) SubmitVideo(ctx context.Context, ownerID, conversationID string) (domain.GenerationJob, error) {
	conversation, err := a.resolveConversation(ownerID, conversationID)
	if err != nil {
		return domain.GenerationJob{}, err
	}
	artifact, ok, err := a.store.GetCurrentArtifact(conversation.ID)
	if err != nil {
		return domain.GenerationJob{}, persistenceErr(err)
	}
	if !ok {
		return domain.GenerationJob{}, validationErr("no image artifact to animate; generate an image first")
	}
	if a.video == nil {
		return domain.GenerationJob{}, configurationErr("video engine not configured")
	}

	template, err := a.loadWorkflowTemplate()
	if err != nil {
		return domain.GenerationJob{}, err
	}
	workflow, err := template.Clone()
	if err != nil {
		return domain.GenerationJob{}, configurationErr("clone workflow template: %v", err)
	}
	// Verify both addressable nodes before spending an upload on a graph
	// that cannot be patched.
	for _, nodeID := range []string{a.workflowImageNode, a.workflowOutputNode} {
		if _, ok := workflow[nodeID]; !ok {
			return domain.GenerationJob{}, configurationErr("workflow template missing node %q", nodeID)
		}
	}

	seed, err := a.objects.Get(ctx, artifact.StorageKey)
	if err != nil {
		return domain.GenerationJob{}, persistenceErr(err)
	}
	filename, err := a.video.UploadImage(ctx, fmt.Sprintf("%s-v%d.png", conversation.ID, artifact.Version), seed)
	if err != nil {
		return domain.GenerationJob{}, upstreamErr("video engine", err)
	}

	if err := workflow.SetNodeInput(a.workflowImageNode, "image", filename); err != nil {
		return domain.GenerationJob{}, configurationErr("patch image input node: %v", err)
	}
	if err := workflow.SetNodeInput(a.workflowOutputNode, "filename_prefix", "marketmind-"+conversation.ID); err != nil {
		return domain.GenerationJob{}, configurationErr("patch output naming node: %v", err)
	}

	jobID, err := a.video.SubmitPrompt(ctx, workflow)
	if err != nil {
		return domain.GenerationJob{}, upstreamErr("video engine", err)
	}

	job := domain.GenerationJob{
		ID:             jobID,
		ConversationID: conversation.ID,
		Status:         "submitted",
		SubmittedAt:    time.Now().UTC(),
	}
	if a.jobs != nil {
		if err := a.jobs.Record(ctx, job); err != nil {
			slog.Warn("failed to record video job", "job_id", job.ID, "err", err)
		}
	}
	return job, nil
}

// RecentJobs lists the conversation's recently submitted video jobs.
func (a *App) RecentJobs(ctx context.Context, ownerID, conversationID string) ([]domain.GenerationJob, error) {
	conversation, err := a.resolveConversation(ownerID, conversationID)
	if err != nil {
		return nil, err
	}
	if a.jobs == nil {
		return []domain.GenerationJob{}, nil
	}
	jobs, err := a.jobs.Recent(ctx, conversation.ID, 0)
	if err != nil {
		return nil, persistenceErr(err)
	}
	return jobs, nil
}

// loadWorkflowTemplate loads and caches the template. The cached copy is
// read-only; SubmitVideo patches a per-request clone. A load or parse failure
// is a deployment mistake and is not cached, so a fixed template file is
// picked up on the next request.
func (a *App) loadWorkflowTemplate() (ai.Workflow, error) {
	if strings.TrimSpace(a.workflowPath) == "" {
		return nil, configurationErr("workflow template path not configured")
	}
	a.workflowMu.Lock()
	defer a.workflowMu.Unlock()
	if a.workflow != nil {
		return a.workflow, nil
	}
	wf, err := ai.LoadWorkflow(a.workflowPath)
	if err != nil {
		return nil, configurationErr("%v", err)
	}
	a.workflow = wf
	return wf, nil
}
