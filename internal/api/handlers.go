// Package api session, relay, speech and scoring handlers.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voicecredit-ai/voicecredit/internal/models"
	"github.com/voicecredit-ai/voicecredit/internal/speech"
)

// maxAudioUploadBytes caps transcription uploads.
const maxAudioUploadBytes = 32 << 20

// handleCreateSession creates a fresh session in the Welcome phase.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.CreateSession()
	writeJSONResponse(w, http.StatusCreated, snap)
}

// handleSnapshot returns the session's read-only view.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.engine.Snapshot(id)
	if err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, snap)
}

// handleTranscript returns just the session transcript.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.engine.Snapshot(id)
	if err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	transcript := snap.Transcript
	if transcript == nil {
		transcript = []models.ChatMessage{}
	}
	writeJSONResponse(w, http.StatusOK, map[string][]models.ChatMessage{"transcript": transcript})
}

// handleStart moves a Welcome session into language selection.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.engine.StartConversation(r.Context(), id); err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	snap, err := s.engine.Snapshot(id)
	if err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, snap)
}

// answerRequest is the body of an answer submission.
type answerRequest struct {
	Text string `json:"text"`
}

// handleAnswer submits a user utterance, typed or recognized client-side.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.engine.SubmitAnswer(r.Context(), id, req.Text); err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	snap, err := s.engine.Snapshot(id)
	if err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, snap)
}

// handleReset returns the session to a fresh Welcome state.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.engine.Reset(r.Context(), id); err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	snap, err := s.engine.Snapshot(id)
	if err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, snap)
}

// handleDemo runs the canned demo application on a Welcome session.
func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.engine.RunDemo(r.Context(), id); err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	snap, err := s.engine.Snapshot(id)
	if err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, snap)
}

// handleDirective hands the polling client its next speech directive.
func (s *Server) handleDirective(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.engine.Snapshot(id); err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, s.relay.NextDirective(id))
}

// handleEvent accepts a client-reported speech capability event.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var ev speech.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ev.SessionID = id
	if err := s.relay.PushEvent(ev); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSONResponse(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// synthesizeRequest is the body of a synthesis request.
type synthesizeRequest struct {
	Text     string          `json:"text"`
	Language models.Language `json:"language,omitempty"`
}

// handleSynthesize renders text as spoken audio for clients without
// on-device synthesis.
func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if s.voice == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "speech synthesis not configured")
		return
	}
	var req synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}
	audio, err := s.voice.Synthesize(r.Context(), req.Text, req.Language)
	if err != nil {
		slog.Error("Server.handleSynthesize: synthesis failed", "error", err)
		writeJSONError(w, http.StatusBadGateway, "synthesis failed")
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		slog.Error("Server.handleSynthesize: failed to write audio", "error", err)
	}
}

// handleTranscribe recognizes text from an uploaded recording (multipart
// field "file", optional form value "language").
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.voice == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "speech transcription not configured")
		return
	}
	if err := r.ParseMultipartForm(maxAudioUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "audio file is required (field 'file')")
		return
	}
	defer file.Close()

	lang := models.Language(r.FormValue("language"))
	text, err := s.voice.Transcribe(r.Context(), file, header.Filename, lang)
	if err != nil {
		slog.Error("Server.handleTranscribe: transcription failed", "error", err)
		writeJSONError(w, http.StatusBadGateway, "transcription failed")
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"text": text})
}

// handlePredict scores an applicant record directly, without a session.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.ScoringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.scorer.Predict(r.Context(), req)
	if err != nil {
		slog.Error("Server.handlePredict: scoring failed", "error", err)
		writeJSONError(w, http.StatusBadGateway, "scoring failed")
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

// handleApplications lists archived assessments.
func (s *Server) handleApplications(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "application archive not configured")
		return
	}
	apps, err := s.archive.GetApplications()
	if err != nil {
		slog.Error("Server.handleApplications: archive query failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list applications")
		return
	}
	if apps == nil {
		apps = []models.Application{}
	}
	writeJSONResponse(w, http.StatusOK, map[string][]models.Application{"applications": apps})
}
