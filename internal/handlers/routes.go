package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// Router bundles the handlers served by the API
type Router struct {
	Middleware    *Middleware
	Auth          *AuthHandler
	Classrooms    *ClassroomHandler
	Assignments   *AssignmentHandler
	Sessions      *SessionHandler
	Conversations *ConversationHandler
	Startup       *StartupStatus
}

// Handler registers every route and wraps the mux with request logging
func (rt *Router) Handler(log logrus.FieldLogger) http.Handler {
	m := rt.Middleware
	mux := http.NewServeMux()

	// Health and reference data
	mux.HandleFunc("GET /healthz", rt.Startup.Healthz)
	mux.HandleFunc("GET /api/levels", Levels)

	// Conversation socket
	mux.HandleFunc("GET /ws/{level}", rt.Conversations.Serve)

	// Teachers
	mux.HandleFunc("POST /api/teachers/register", m.RateLimit(rt.Auth.RegisterTeacher))
	mux.HandleFunc("POST /api/teachers/login", m.RateLimit(rt.Auth.LoginTeacher))
	mux.HandleFunc("GET /api/teachers/me", m.RequireTeacher(rt.Auth.TeacherMe))
	mux.HandleFunc("PUT /api/teachers/me", m.RequireTeacher(rt.Auth.UpdateTeacherMe))
	mux.HandleFunc("GET /api/auth/google/start", rt.Auth.StartGoogle)
	mux.HandleFunc("GET /api/auth/google/callback", rt.Auth.GoogleCallback)

	// Students
	mux.HandleFunc("POST /api/students/register", m.RateLimit(rt.Auth.RegisterStudent))
	mux.HandleFunc("POST /api/students/login", m.RateLimit(rt.Auth.LoginStudent))
	mux.HandleFunc("GET /api/students/me/classrooms", m.RequireStudent(rt.Classrooms.StudentClassrooms))
	mux.HandleFunc("GET /api/students/me/assignments", m.RequireStudent(rt.Assignments.StudentAssignments))
	mux.HandleFunc("GET /api/students/me/sessions", m.RequireStudent(rt.Sessions.StudentSessions))
	mux.HandleFunc("POST /api/classrooms/join", m.RequireStudent(rt.Classrooms.Join))

	// Classrooms
	mux.HandleFunc("POST /api/classrooms", m.RequireTeacher(rt.Classrooms.Create))
	mux.HandleFunc("GET /api/classrooms", m.RequireTeacher(rt.Classrooms.List))
	mux.HandleFunc("GET /api/classrooms/{id}", m.RequireTeacher(rt.Classrooms.Get))
	mux.HandleFunc("PUT /api/classrooms/{id}", m.RequireTeacher(rt.Classrooms.Update))
	mux.HandleFunc("DELETE /api/classrooms/{id}", m.RequireTeacher(rt.Classrooms.Delete))
	mux.HandleFunc("GET /api/classrooms/{id}/students", m.RequireTeacher(rt.Classrooms.Students))
	mux.HandleFunc("DELETE /api/classrooms/{id}/students/{studentId}", m.RequireTeacher(rt.Classrooms.RemoveStudent))
	mux.HandleFunc("GET /api/classrooms/{id}/analytics", m.RequireTeacher(rt.Classrooms.Analytics))
	mux.HandleFunc("GET /api/classrooms/{id}/assignments", m.RequireTeacher(rt.Classrooms.Assignments))
	mux.HandleFunc("POST /api/classrooms/{id}/assignments", m.RequireTeacher(rt.Classrooms.CreateAssignment))

	// Assignments
	mux.HandleFunc("GET /api/assignments", m.RequireTeacher(rt.Assignments.ListAll))
	mux.HandleFunc("GET /api/assignments/{id}", m.RequireAuth(rt.Assignments.Get))
	mux.HandleFunc("PUT /api/assignments/{id}", m.RequireTeacher(rt.Assignments.Update))
	mux.HandleFunc("DELETE /api/assignments/{id}", m.RequireTeacher(rt.Assignments.Delete))
	mux.HandleFunc("GET /api/assignments/{id}/submissions", m.RequireTeacher(rt.Assignments.Submissions))
	mux.HandleFunc("POST /api/assignments/{id}/sessions", m.RequireStudent(rt.Assignments.StartSession))

	// Sessions
	mux.HandleFunc("GET /api/sessions/{id}", m.RequireAuth(rt.Sessions.Get))
	mux.HandleFunc("PUT /api/sessions/{id}", m.RequireStudent(rt.Sessions.Update))
	mux.HandleFunc("POST /api/sessions/{id}/transcript", m.RequireStudent(rt.Sessions.SaveTranscript))
	mux.HandleFunc("GET /api/sessions/{id}/logs", m.RequireAuth(rt.Sessions.Logs))
	mux.HandleFunc("POST /api/sessions/{id}/submit", m.RequireStudent(rt.Sessions.Submit))

	return Logging(log, mux)
}
