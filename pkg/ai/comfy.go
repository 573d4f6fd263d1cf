package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ComfyClient talks to a ComfyUI-compatible video generation engine.
type ComfyClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewComfyClient constructs the client.
func NewComfyClient(baseURL string, timeout time.Duration) *ComfyClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ComfyClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UploadImage pushes image bytes to the engine's asset endpoint and returns
// the engine-side filename to reference from workflow nodes.
func (c *ComfyClient) UploadImage(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.WriteField("overwrite", "true"); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/image", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &APIError{Service: "video", Status: resp.StatusCode, Message: strings.TrimSpace(string(detail))}
	}
	var out struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode upload response: %v", ErrSchema, err)
	}
	if strings.TrimSpace(out.Name) == "" {
		return "", fmt.Errorf("%w: upload response missing asset name", ErrSchema)
	}
	return out.Name, nil
}

// SubmitPrompt queues the workflow for rendering and returns the engine's job
// id. Submission is fire and forget: this client never polls for completion;
// whoever consumes the engine's output owns job monitoring.
func (c *ComfyClient) SubmitPrompt(ctx context.Context, wf Workflow) (string, error) {
	payload := struct {
		Prompt Workflow `json:"prompt"`
	}{Prompt: wf}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &APIError{Service: "video", Status: resp.StatusCode, Message: strings.TrimSpace(string(detail))}
	}
	var out struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode submit response: %v", ErrSchema, err)
	}
	if strings.TrimSpace(out.PromptID) == "" {
		return "", fmt.Errorf("%w: submit response missing prompt id", ErrSchema)
	}
	return out.PromptID, nil
}
