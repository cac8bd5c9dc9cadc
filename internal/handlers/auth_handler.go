package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"vocaflow/internal/models"
	"vocaflow/internal/service"
)

// AuthHandler handles sign-up, sign-in and profile requests
type AuthHandler struct {
	authService *service.AuthService
	google      *GoogleOAuth
	appBaseURL  string
	log         logrus.FieldLogger
}

// NewAuthHandler creates a new auth handler. google may be nil when Google
// sign-in is not configured.
func NewAuthHandler(authService *service.AuthService, google *GoogleOAuth, appBaseURL string, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		google:      google,
		appBaseURL:  appBaseURL,
		log:         log,
	}
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	School     string `json:"school"`
	GradeLevel string `json:"grade_level"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterTeacher creates a teacher account and returns a token
func (h *AuthHandler) RegisterTeacher(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.RegisterTeacher(r.Context(), req.Email, req.Password, req.Name, req.School)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to register teacher", err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// LoginTeacher signs a teacher in
func (h *AuthHandler) LoginTeacher(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.LoginTeacher(req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to sign in teacher", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// TeacherMe returns the signed-in teacher's profile
func (h *AuthHandler) TeacherMe(w http.ResponseWriter, r *http.Request) {
	teacher, err := h.authService.Teacher(actorOf(r).ID)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to load teacher", err)
		return
	}
	respondJSON(w, http.StatusOK, teacher)
}

// UpdateTeacherMe applies a partial profile update
func (h *AuthHandler) UpdateTeacherMe(w http.ResponseWriter, r *http.Request) {
	var update models.TeacherUpdate
	if !decodeJSON(w, r, &update) {
		return
	}

	teacher, err := h.authService.UpdateTeacher(actorOf(r).ID, update)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to update teacher", err)
		return
	}
	respondJSON(w, http.StatusOK, teacher)
}

// RegisterStudent creates a student account and returns a token
func (h *AuthHandler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.RegisterStudent(req.Email, req.Password, req.Name, req.GradeLevel)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to register student", err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// LoginStudent signs a student in
func (h *AuthHandler) LoginStudent(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.LoginStudent(req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to sign in student", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
