package models

import "time"

// Classroom groups enrolled students under one teacher
type Classroom struct {
	ID           string    `json:"id"`
	TeacherID    string    `json:"teacher_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	GradeLevel   string    `json:"grade_level"`
	Subject      string    `json:"subject"`
	SpanishLevel string    `json:"spanish_level"`
	IsAdvanced   bool      `json:"is_advanced"`
	JoinCode     string    `json:"join_code"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`

	// Populated by read queries that join or aggregate
	TeacherName     string `json:"teacher_name,omitempty"`
	StudentCount    int    `json:"student_count"`
	AssignmentCount int    `json:"assignment_count"`
}

// ClassroomUpdate carries the optional fields of a partial update
type ClassroomUpdate struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	GradeLevel   *string `json:"grade_level"`
	Subject      *string `json:"subject"`
	SpanishLevel *string `json:"spanish_level"`
	IsAdvanced   *bool   `json:"is_advanced"`
}

// ClassroomAnalytics aggregates activity for one classroom
type ClassroomAnalytics struct {
	ClassroomID          string  `json:"classroom_id"`
	TotalStudents        int     `json:"total_students"`
	TotalAssignments     int     `json:"total_assignments"`
	TotalSessions        int     `json:"total_sessions"`
	CompletedSessions    int     `json:"completed_sessions"`
	CompletionRate       float64 `json:"completion_rate"`
	VoiceUsageRate       float64 `json:"voice_usage_rate"`
	AvgCompletionMinutes float64 `json:"avg_completion_minutes"`
}
