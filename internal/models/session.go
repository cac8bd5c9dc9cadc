package models

import "time"

// Sender kinds stored in conversation_logs.message_type
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// AssignmentSession is one student's attempt at an assignment
type AssignmentSession struct {
	ID                  string     `json:"id"`
	AssignmentID        string     `json:"assignment_id"`
	StudentID           string     `json:"student_id"`
	StartTime           time.Time  `json:"start_time"`
	EndTime             *time.Time `json:"end_time,omitempty"`
	Completed           bool       `json:"completed"`
	MessageCount        int        `json:"message_count"`
	VoiceUsed           bool       `json:"voice_used"`
	TranscriptUsed      bool       `json:"transcript_used"`
	IsActive            bool       `json:"is_active"`
	SubmittedForGrading bool       `json:"submitted_for_grading"`
	AttemptNumber       int        `json:"attempt_number"`
	CreatedAt           time.Time  `json:"created_at"`

	// Joined by list queries
	AssignmentTitle string `json:"assignment_title,omitempty"`
	ClassroomID     string `json:"classroom_id,omitempty"`
	StudentName     string `json:"student_name,omitempty"`
}

// Duration returns the elapsed time of a finished session
func (s *AssignmentSession) Duration() (time.Duration, bool) {
	if s.EndTime == nil || s.EndTime.Before(s.StartTime) {
		return 0, false
	}
	return s.EndTime.Sub(s.StartTime), true
}

// SessionUpdate carries the optional fields of a partial session update
type SessionUpdate struct {
	EndTime        *time.Time `json:"end_time"`
	Completed      *bool      `json:"completed"`
	MessageCount   *int       `json:"message_count"`
	VoiceUsed      *bool      `json:"voice_used"`
	TranscriptUsed *bool      `json:"transcript_used"`
}

// ConversationLog is one append-only conversation line
type ConversationLog struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	MessageType string    `json:"message_type"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedAt   time.Time `json:"created_at"`
}
