package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"vocaflow/internal/models"
	"vocaflow/internal/service"
)

// AssignmentHandler handles assignments and the sessions started from them
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
	sessionService    *service.SessionService
	log               logrus.FieldLogger
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(assignmentService *service.AssignmentService, sessionService *service.SessionService, log logrus.FieldLogger) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
		sessionService:    sessionService,
		log:               log,
	}
}

// ListAll returns every active assignment of the signed-in teacher
func (h *AssignmentHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.assignmentService.ListAll(actorOf(r).ID)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to list assignments", err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(assignments))
}

// Get returns an assignment to its teacher or an enrolled student
func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	assignment, err := h.assignmentService.Get(actorOf(r), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to load assignment", err)
		return
	}
	respondJSON(w, http.StatusOK, assignment)
}

// Update applies a partial update to an owned assignment
func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update models.AssignmentUpdate
	if !decodeJSON(w, r, &update) {
		return
	}

	assignment, err := h.assignmentService.Update(actorOf(r).ID, r.PathValue("id"), update)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to update assignment", err)
		return
	}
	respondJSON(w, http.StatusOK, assignment)
}

// Delete soft-deletes an owned assignment
func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.assignmentService.Delete(actorOf(r).ID, r.PathValue("id")); err != nil {
		respondWithServiceError(w, h.log, "Failed to delete assignment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submissions lists the attempts students submitted for grading
func (h *AssignmentHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.assignmentService.Submissions(actorOf(r).ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to list submissions", err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(sessions))
}

// StudentAssignments lists assignments across the student's classrooms
func (h *AssignmentHandler) StudentAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.assignmentService.ListForStudent(actorOf(r).ID)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to list student assignments", err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(assignments))
}

// StartSession opens a new attempt for the signed-in student
func (h *AssignmentHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.Start(actorOf(r).ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to start session", err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}
