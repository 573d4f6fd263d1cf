package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"marketmind/pkg/ai"
	"marketmind/pkg/domain"
)

// ImageResult is a completed image synthesis.
type ImageResult struct {
	Artifact      domain.Artifact `json:"artifact"`
	ImageBase64   string          `json:"imageBase64"`
	RefinedPrompt string          `json:"refinedPrompt"`
}

// RefineImagePrompt runs the raw idea through the refinement-primed chat
// call. Refinement is an enhancement, not a dependency: any failure or empty
// completion falls back to the raw prompt.
func (a *App) RefineImagePrompt(ctx context.Context, rawPrompt string) string {
	messages := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: refinementSystemPrompt},
		{Role: domain.RoleUser, Content: rawPrompt},
	}
	refined, err := a.refiner.Complete(ctx, messages)
	if err != nil {
		slog.Warn("prompt refinement failed, using raw prompt", "err", err)
		return rawPrompt
	}
	if refined == "" {
		slog.Warn("prompt refinement returned empty completion, using raw prompt")
		return rawPrompt
	}
	return refined
}

// GenerateImage synthesizes an image for the conversation. When the
// conversation already carries an artifact it is used as the seed for an
// image-to-image transformation; otherwise the image is generated from
// scratch. On success the result replaces the conversation's artifact slot;
// on failure the slot is left untouched.
func (a *App) GenerateImage(ctx context.Context, ownerID, conversationID, rawPrompt string) (ImageResult, error) {
	rawPrompt = strings.TrimSpace(rawPrompt)
	if rawPrompt == "" {
		return ImageResult{}, validationErr("image prompt required")
	}
	conversation, err := a.resolveConversation(ownerID, conversationID)
	if err != nil {
		return ImageResult{}, err
	}
	if a.images == nil {
		return ImageResult{}, configurationErr("image service not configured")
	}

	refined := a.RefineImagePrompt(ctx, rawPrompt)

	seed, haveSeed, err := a.store.GetCurrentArtifact(conversation.ID)
	if err != nil {
		return ImageResult{}, persistenceErr(err)
	}

	var image []byte
	mode := "generate"
	if haveSeed {
		mode = "transform"
		seedBytes, err := a.objects.Get(ctx, seed.StorageKey)
		if err != nil {
			return ImageResult{}, persistenceErr(err)
		}
		image, err = a.images.ImageToImage(ctx, ai.ImageToImageRequest{
			Prompt:            refined,
			NegativePrompt:    imageNegativePrompt,
			Steps:             imageToImageSteps,
			Width:             imageWidth,
			Height:            imageHeight,
			SamplerIndex:      imageSampler,
			InitImages:        []string{base64.StdEncoding.EncodeToString(seedBytes)},
			DenoisingStrength: imageDenoising,
		})
		if err != nil {
			return ImageResult{}, upstreamErr("image service", err)
		}
	} else {
		image, err = a.images.TextToImage(ctx, ai.TextToImageRequest{
			Prompt:         refined,
			NegativePrompt: imageNegativePrompt,
			Steps:          textToImageSteps,
			Width:          imageWidth,
			Height:         imageHeight,
			SamplerIndex:   imageSampler,
		})
		if err != nil {
			return ImageResult{}, upstreamErr("image service", err)
		}
	}

	key := fmt.Sprintf("artifacts/%s/%s.png", conversation.ID, uuid.NewString())
	if err := a.objects.Put(ctx, key, image, "image/png"); err != nil {
		return ImageResult{}, persistenceErr(err)
	}
	artifact, err := a.store.SetCurrentArtifact(domain.Artifact{
		ConversationID: conversation.ID,
		StorageKey:     key,
		ContentType:    "image/png",
		Metadata: map[string]string{
			"mode":   mode,
			"prompt": refined,
		},
	})
	if err != nil {
		// Keep the slot consistent: the pointer was not replaced, so the
		// uploaded object is orphaned and removed best effort.
		if delErr := a.objects.Delete(ctx, key); delErr != nil {
			slog.Warn("failed to delete orphaned artifact object", "key", key, "err", delErr)
		}
		return ImageResult{}, persistenceErr(err)
	}
	if haveSeed && seed.StorageKey != artifact.StorageKey {
		if err := a.objects.Delete(ctx, seed.StorageKey); err != nil {
			slog.Warn("failed to delete replaced artifact object", "key", seed.StorageKey, "err", err)
		}
	}

	return ImageResult{
		Artifact:      artifact,
		ImageBase64:   base64.StdEncoding.EncodeToString(image),
		RefinedPrompt: refined,
	}, nil
}

// CurrentArtifact returns the conversation's artifact pointer and its bytes.
func (a *App) CurrentArtifact(ctx context.Context, ownerID, conversationID string) (domain.Artifact, []byte, error) {
	conversation, err := a.resolveConversation(ownerID, conversationID)
	if err != nil {
		return domain.Artifact{}, nil, err
	}
	artifact, ok, err := a.store.GetCurrentArtifact(conversation.ID)
	if err != nil {
		return domain.Artifact{}, nil, persistenceErr(err)
	}
	if !ok {
		return domain.Artifact{}, nil, validationErr("conversation has no image artifact")
	}
	data, err := a.objects.Get(ctx, artifact.StorageKey)
	if err != nil {
		return domain.Artifact{}, nil, persistenceErr(err)
	}
	return artifact, data, nil
}
