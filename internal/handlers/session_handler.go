package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"vocaflow/internal/models"
	"vocaflow/internal/service"
)

// SessionHandler handles conversation attempts and transcripts
type SessionHandler struct {
	sessionService *service.SessionService
	log            logrus.FieldLogger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *service.SessionService, log logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, log: log}
}

// Get returns a session to its student or classroom teacher
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.Get(actorOf(r), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to load session", err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Update applies a partial update to the student's session
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update models.SessionUpdate
	if !decodeJSON(w, r, &update) {
		return
	}

	session, err := h.sessionService.Update(actorOf(r).ID, r.PathValue("id"), update)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to update session", err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// SaveTranscript stores a finished conversation
func (h *SessionHandler) SaveTranscript(w http.ResponseWriter, r *http.Request) {
	var transcript service.Transcript
	if !decodeJSON(w, r, &transcript) {
		return
	}

	session, err := h.sessionService.SaveTranscript(actorOf(r).ID, r.PathValue("id"), transcript)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to save transcript", err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Logs returns the conversation of a session
func (h *SessionHandler) Logs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.sessionService.Logs(actorOf(r), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to load conversation", err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(logs))
}

// Submit marks the session as the attempt to grade
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.Submit(r.Context(), actorOf(r).ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to submit session", err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// StudentSessions lists the student's attempts, optionally in one classroom
func (h *SessionHandler) StudentSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessionService.ListForStudent(actorOf(r).ID, r.URL.Query().Get("classroom_id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to list sessions", err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(sessions))
}
