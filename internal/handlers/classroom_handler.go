package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"vocaflow/internal/models"
	"vocaflow/internal/service"
)

// ClassroomHandler handles classroom management and enrollment
type ClassroomHandler struct {
	classroomService  *service.ClassroomService
	assignmentService *service.AssignmentService
	log               logrus.FieldLogger
}

// NewClassroomHandler creates a new classroom handler
func NewClassroomHandler(classroomService *service.ClassroomService, assignmentService *service.AssignmentService, log logrus.FieldLogger) *ClassroomHandler {
	return &ClassroomHandler{
		classroomService:  classroomService,
		assignmentService: assignmentService,
		log:               log,
	}
}

// Create opens a classroom for the signed-in teacher
func (h *ClassroomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var classroom models.Classroom
	if !decodeJSON(w, r, &classroom) {
		return
	}

	created, err := h.classroomService.Create(actorOf(r).ID, &classroom)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to create classroom", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// List returns the teacher's classrooms
func (h *ClassroomHandler) List(w http.ResponseWriter, r *http.Request) {
	classrooms, err := h.classroomService.ListForTeacher(actorOf(r).ID)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to list classrooms", err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(classrooms))
}

// Get returns one owned classroom
func (h *ClassroomHandler) Get(w http.ResponseWriter, r *http.Request) {
	classroom, err := h.classroomService.Owned(actorOf(r).ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to load classroom", err)
		return
	}
	respondJSON(w, http.StatusOK, classroom)
}

// Update applies a partial update to an owned classroom
func (h *ClassroomHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update models.ClassroomUpdate
	if !decodeJSON(w, r, &update) {
		return
	}

	classroom, err := h.classroomService.Update(actorOf(r).ID, r.PathValue("id"), update)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to update classroom", err)
		return
	}
	respondJSON(w, http.StatusOK, classroom)
}

// Delete soft-deletes an owned classroom
func (h *ClassroomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.classroomService.Delete(actorOf(r).ID, r.PathValue("id")); err != nil {
		respondWithServiceError(w, h.log, "Failed to delete classroom", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Students lists a classroom's members
func (h *ClassroomHandler) Students(w http.ResponseWriter, r *http.Request) {
	students, err := h.classroomService.Students(actorOf(r).ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to list students", err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(students))
}

// RemoveStudent ends a student's membership
func (h *ClassroomHandler) RemoveStudent(w http.ResponseWriter, r *http.Request) {
	err := h.classroomService.RemoveStudent(actorOf(r).ID, r.PathValue("id"), r.PathValue("studentId"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to remove student", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Analytics returns classroom activity aggregates
func (h *ClassroomHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.classroomService.Analytics(actorOf(r).ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to load analytics", err)
		return
	}
	respondJSON(w, http.StatusOK, analytics)
}

// Assignments lists the classroom's assignments
func (h *ClassroomHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.assignmentService.ListForClassroom(actorOf(r).ID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to list assignments", err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(assignments))
}

// CreateAssignment adds an assignment to the classroom
func (h *ClassroomHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var assignment models.Assignment
	if !decodeJSON(w, r, &assignment) {
		return
	}

	created, err := h.assignmentService.Create(actorOf(r).ID, r.PathValue("id"), &assignment)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to create assignment", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

type joinRequest struct {
	JoinCode string `json:"join_code"`
}

// Join enrolls the signed-in student by join code
func (h *ClassroomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	classroom, err := h.classroomService.Join(actorOf(r).ID, req.JoinCode)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to join classroom", err)
		return
	}
	respondJSON(w, http.StatusOK, classroom)
}

// StudentClassrooms lists the signed-in student's classrooms
func (h *ClassroomHandler) StudentClassrooms(w http.ResponseWriter, r *http.Request) {
	classrooms, err := h.classroomService.StudentClassrooms(actorOf(r).ID)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to list student classrooms", err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(classrooms))
}

// emptyIfNil keeps JSON list responses as [] rather than null
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
