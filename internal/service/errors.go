package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidJoinCode    = errors.New("invalid join code")
)

// ProhibitedWordsError reports vocabulary rejected by the word filter
type ProhibitedWordsError struct {
	Words []string
}

func (e *ProhibitedWordsError) Error() string {
	return fmt.Sprintf("vocabulary contains prohibited words: %s", strings.Join(e.Words, ", "))
}

// Actor is the authenticated caller of a service operation
type Actor struct {
	ID   string
	Role string
}
