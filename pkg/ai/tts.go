package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TTSClient calls a text-to-speech service.
type TTSClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewTTSClient constructs the client.
func NewTTSClient(baseURL string, timeout time.Duration) *TTSClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &TTSClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ListSpeakers fetches the available voices and normalizes them into one
// flat, deduplicated, sorted list of speaker ids.
func (c *TTSClient) ListSpeakers(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/speakers", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &APIError{Service: "tts", Status: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	names, err := decodeSpeakerList(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return NormalizeSpeakers(names), nil
}

// SpeechRequest is a single synthesis call.
type SpeechRequest struct {
	Text     string `json:"text"`
	Language string `json:"language_id"`
	Speaker  string `json:"speaker_id"`
}

// Synthesize converts text to speech and returns the raw audio bytes. A 2xx
// response without an audio content type is a schema failure, not a success.
func (c *TTSClient) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tts", bytes.NewReader(body))
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
		return nil, &APIError{Service: "tts", Status: resp.StatusCode, Message: strings.TrimSpace(string(detail))}
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "audio/") {
		return nil, fmt.Errorf("%w: tts returned content type %q, want audio", ErrSchema, contentType)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: tts returned an empty audio body", ErrSchema)
	}
	return audio, nil
}
