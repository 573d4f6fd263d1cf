package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"marketmind/internal/app"
	"marketmind/internal/ratelimit"
	"marketmind/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App     *app.App
	Limiter *ratelimit.FixedWindowLimiter
}

// Server exposes the generation pipeline over HTTP. The boundary supplies the
// owner identity via the X-User-Id header; authentication itself lives in
// front of this service.
type Server struct {
	app     *app.App
	limiter *ratelimit.FixedWindowLimiter
	mux     *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	s := &Server{
		app:     cfg.App,
		limiter: cfg.Limiter,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithCORS(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/conversations", s.withOwner(s.handleConversations))
	s.mux.Handle("/messages", s.withOwner(s.handleMessages))
	s.mux.Handle("/artifact", s.withOwner(s.handleArtifact))
	s.mux.Handle("/jobs", s.withOwner(s.handleJobs))
	s.mux.Handle("/generate/text", s.withOwner(s.limited(s.handleGenerateText)))
	s.mux.Handle("/generate/image", s.withOwner(s.limited(s.handleGenerateImage)))
	s.mux.Handle("/generate/audio", s.withOwner(s.limited(s.handleGenerateAudio)))
	s.mux.Handle("/generate/video", s.withOwner(s.limited(s.handleGenerateVideo)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ownerHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) withOwner(next ownerHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if ownerID == "" {
			writeError(w, http.StatusUnauthorized, "missing owner identity")
			return
		}
		next(w, r, ownerID)
	})
}

// limited applies the per-owner quota to the expensive generation endpoints.
func (s *Server) limited(next ownerHandler) ownerHandler {
	return func(w http.ResponseWriter, r *http.Request, ownerID string) {
		if s.limiter != nil && !s.limiter.Allow(ownerID) {
			writeError(w, http.StatusTooManyRequests, "generation quota exceeded, slow down")
			return
		}
		next(w, r, ownerID)
	}
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request, ownerID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items, err := s.app.ListConversations(r.Context(), ownerID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": items})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, ownerID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	conversationID := r.URL.Query().Get("conversation_id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := s.app.ListMessages(r.Context(), ownerID, conversationID, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": items})
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request, ownerID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	conversationID := r.URL.Query().Get("conversation_id")
	artifact, data, err := s.app.CurrentArtifact(r.Context(), ownerID, conversationID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"artifact":    artifact,
		"imageBase64": base64.StdEncoding.EncodeToString(data),
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request, ownerID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	conversationID := r.URL.Query().Get("conversation_id")
	items, err := s.app.RecentJobs(r.Context(), ownerID, conversationID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": items})
}

type generateTextRequest struct {
	ConversationID string `json:"conversationId"`
	Topic          string `json:"topic"`
}

func (s *Server) handleGenerateText(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req generateTextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.app.GenerateText(r.Context(), ownerID, req.ConversationID, req.Topic)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type generateImageRequest struct {
	ConversationID string `json:"conversationId"`
	Prompt         string `json:"prompt"`
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req generateImageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.app.GenerateImage(r.Context(), ownerID, req.ConversationID, req.Prompt)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type generateAudioRequest struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	Language       string `json:"language"`
	Speaker        string `json:"speaker"`
}

func (s *Server) handleGenerateAudio(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req generateAudioRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.app.SynthesizeSpeech(r.Context(), ownerID, req.ConversationID, req.Text, req.Language, req.Speaker)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type generateVideoRequest struct {
	ConversationID string `json:"conversationId"`
}

func (s *Server) handleGenerateVideo(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req generateVideoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	job, err := s.app.SubmitVideo(r.Context(), ownerID, req.ConversationID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job": job})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return false
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeAppError maps the stage error taxonomy onto HTTP statuses so callers
// can tell a caller mistake from a broken deployment from a downed service.
func writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrConversationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrConfiguration):
		status = http.StatusInternalServerError
	case errors.Is(err, app.ErrUpstreamTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, app.ErrUpstreamUnavailable),
		errors.Is(err, app.ErrUpstreamBadResponse):
		status = http.StatusBadGateway
	case errors.Is(err, app.ErrPersistence):
		status = http.StatusInternalServerError
	}
	writeError(w, status, err.Error())
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
