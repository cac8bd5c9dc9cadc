package models

import "time"

// Assignment is a teacher-authored conversation scenario
type Assignment struct {
	ID                    string     `json:"id"`
	ClassroomID           string     `json:"classroom_id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	Instructions          string     `json:"instructions"`
	Level                 string     `json:"level"`
	Duration              int        `json:"duration"`
	DueDate               *time.Time `json:"due_date,omitempty"`
	Prompt                string     `json:"prompt"`
	Vocab                 []string   `json:"vocab"`
	MinVocabWords         int        `json:"min_vocab_words"`
	AvatarRole            string     `json:"avatar_role"`
	AvatarCharacteristics string     `json:"avatar_characteristics"`
	VoiceSpeed            float64    `json:"voice_speed"`
	IsActive              bool       `json:"is_active"`
	CreatedAt             time.Time  `json:"created_at"`

	// Joined or aggregated by read queries
	ClassroomName   string `json:"classroom_name,omitempty"`
	TeacherID       string `json:"teacher_id,omitempty"`
	SessionCount    int    `json:"session_count"`
	CompletionCount int    `json:"completion_count"`

	// Student view: completion of the latest attempt
	Completed *bool `json:"completed,omitempty"`
}

// AssignmentUpdate carries the optional fields of a partial update
type AssignmentUpdate struct {
	Title                 *string    `json:"title"`
	Description           *string    `json:"description"`
	Instructions          *string    `json:"instructions"`
	Level                 *string    `json:"level"`
	Duration              *int       `json:"duration"`
	DueDate               *time.Time `json:"due_date"`
	Prompt                *string    `json:"prompt"`
	Vocab                 *[]string  `json:"vocab"`
	MinVocabWords         *int       `json:"min_vocab_words"`
	AvatarRole            *string    `json:"avatar_role"`
	AvatarCharacteristics *string    `json:"avatar_characteristics"`
	VoiceSpeed            *float64   `json:"voice_speed"`
}
