package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StableDiffusionClient calls an AUTOMATIC1111-compatible image API.
type StableDiffusionClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewStableDiffusionClient constructs the client. Image synthesis is
// compute-heavy; the timeout should allow for minutes.
func NewStableDiffusionClient(baseURL string, timeout time.Duration) *StableDiffusionClient {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &StableDiffusionClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// TextToImageRequest is the "generate from scratch" payload.
type TextToImageRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Steps          int    `json:"steps,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	SamplerIndex   string `json:"sampler_index,omitempty"`
}

// ImageToImageRequest is the "transform an existing image" payload. InitImages
// carries base64-encoded seed images; DenoisingStrength controls how far the
// result may drift from the seed.
type ImageToImageRequest struct {
	Prompt            string   `json:"prompt"`
	NegativePrompt    string   `json:"negative_prompt,omitempty"`
	Steps             int      `json:"steps,omitempty"`
	Width             int      `json:"width,omitempty"`
	Height            int      `json:"height,omitempty"`
	SamplerIndex      string   `json:"sampler_index,omitempty"`
	InitImages        []string `json:"init_images"`
	DenoisingStrength float64  `json:"denoising_strength"`
}

// TextToImage generates an image from a prompt alone and returns the decoded
// bytes of the first result.
func (c *StableDiffusionClient) TextToImage(ctx context.Context, req TextToImageRequest) ([]byte, error) {
	return c.generate(ctx, "/sdapi/v1/txt2img", req)
}

// ImageToImage transforms a seed image under a prompt and returns the decoded
// bytes of the first result.
func (c *StableDiffusionClient) ImageToImage(ctx context.Context, req ImageToImageRequest) ([]byte, error) {
	if len(req.InitImages) == 0 {
		return nil, fmt.Errorf("img2img requires a seed image")
	}
	return c.generate(ctx, "/sdapi/v1/img2img", req)
}

func (c *StableDiffusionClient) generate(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &APIError{Service: "image", Status: resp.StatusCode, Message: strings.TrimSpace(string(detail))}
	}
	var out struct {
		Images []string `json:"images"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode image response: %v", ErrSchema, err)
	}
	if len(out.Images) == 0 || strings.TrimSpace(out.Images[0]) == "" {
		return nil, fmt.Errorf("%w: image response contained no images", ErrSchema)
	}
	data, err := base64.StdEncoding.DecodeString(out.Images[0])
	if err != nil {
		return nil, fmt.Errorf("%w: image payload is not valid base64: %v", ErrSchema, err)
	}
	return data, nil
}
