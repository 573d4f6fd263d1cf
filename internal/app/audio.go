package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"marketmind/pkg/ai"
)

// Languages the speech service is provisioned for.
var supportedLanguages = map[string]struct{}{
	"en": {},
	"de": {},
	"es": {},
	"fr": {},
	"it": {},
	"pt": {},
}

// AudioResult is a completed speech synthesis. AudioBase64 carries the binary
// response in a transport-safe encoding.
type AudioResult struct {
	AudioBase64 string `json:"audioBase64"`
	Speaker     string `json:"speaker"`
	// Notice is set when the request succeeded with a substitution, e.g. the
	// requested speaker was unavailable and the default was used.
	Notice string `json:"notice,omitempty"`
}

// SynthesizeSpeech validates the request, resolves a speaker against the
// freshly fetched registry, and calls the speech service once. The registry
// is re-fetched per request; an empty registry refuses synthesis.
func (a *App) SynthesizeSpeech(ctx context.Context, ownerID, conversationID, text, language, requestedSpeaker string) (AudioResult, error) {
	if _, err := a.resolveConversation(ownerID, conversationID); err != nil {
		return AudioResult{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return AudioResult{}, validationErr("text required")
	}
	language = strings.ToLower(strings.TrimSpace(language))
	if _, ok := supportedLanguages[language]; !ok {
		return AudioResult{}, validationErr("unsupported language %q (supported: %s)", language, supportedLanguageList())
	}
	if a.speech == nil {
		return AudioResult{}, configurationErr("speech service not configured")
	}

	speakers, err := a.speech.ListSpeakers(ctx)
	if err != nil {
		return AudioResult{}, upstreamErr("speech service", err)
	}
	if len(speakers) == 0 {
		return AudioResult{}, fmt.Errorf("%w: no voices available", ErrUpstreamBadResponse)
	}

	speaker := speakers[0]
	notice := ""
	requestedSpeaker = strings.TrimSpace(requestedSpeaker)
	if requestedSpeaker != "" {
		if containsSpeaker(speakers, requestedSpeaker) {
			speaker = requestedSpeaker
		} else {
			notice = fmt.Sprintf("speaker %q unavailable, default %q used", requestedSpeaker, speaker)
		}
	}

	audio, err := a.speech.Synthesize(ctx, ai.SpeechRequest{
		Text:     text,
		Language: language,
		Speaker:  speaker,
	})
	if err != nil {
		return AudioResult{}, upstreamErr("speech service", err)
	}

	return AudioResult{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		Speaker:     speaker,
		Notice:      notice,
	}, nil
}

func containsSpeaker(speakers []string, name string) bool {
	for _, s := range speakers {
		if s == name {
			return true
		}
	}
	return false
}

func supportedLanguageList() string {
	langs := make([]string, 0, len(supportedLanguages))
	for lang := range supportedLanguages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return strings.Join(langs, ", ")
}
