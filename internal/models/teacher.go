package models

import "time"

// Teacher owns classrooms and authors assignments
type Teacher struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	School       string    `json:"school"`
	Title        string    `json:"title"`
	Bio          string    `json:"bio"`
	CreatedAt    time.Time `json:"created_at"`
}

// TeacherUpdate carries the optional fields of a partial profile update.
// Nil fields are left unchanged.
type TeacherUpdate struct {
	Name   *string `json:"name"`
	School *string `json:"school"`
	Title  *string `json:"title"`
	Bio    *string `json:"bio"`
}
