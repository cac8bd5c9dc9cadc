// Package validation checks user-supplied fields before they reach the
// services.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"vocaflow/internal/prompt"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateRequired checks that a free-text field is present
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	return nil
}

// ValidateLevel checks a proficiency level key. Empty is allowed and means
// the default level.
func ValidateLevel(level string) error {
	if level == "" {
		return nil
	}
	if _, ok := prompt.Lookup(level); !ok {
		return ValidationError{Field: "level", Message: fmt.Sprintf("unknown level %q", level)}
	}
	return nil
}

// ValidateVoiceSpeed checks the speech rate multiplier
func ValidateVoiceSpeed(speed float64) error {
	if speed < 0.5 || speed > 2.0 {
		return ValidationError{Field: "voice_speed", Message: "voice speed must be between 0.5 and 2.0"}
	}
	return nil
}

// ValidateNonNegative checks counters such as duration and minimum vocabulary
func ValidateNonNegative(field string, n int) error {
	if n < 0 {
		return ValidationError{Field: field, Message: field + " must not be negative"}
	}
	return nil
}
