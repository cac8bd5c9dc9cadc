package models

import "time"

// Student converses with the bot and submits sessions
type Student struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GradeLevel   string    `json:"grade_level"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`

	// Set when listed through a classroom
	EnrolledAt *time.Time `json:"enrolled_at,omitempty"`
}

// Enrollment links a student to a classroom
type Enrollment struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	ClassroomID string    `json:"classroom_id"`
	EnrolledAt  time.Time `json:"enrolled_at"`
	IsActive    bool      `json:"is_active"`
}
