package handlers

const (
	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Unauthorized"
	ErrForbiddenMsg        = "Forbidden"
	ErrNotFoundMsg         = "Not found"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"

	maxBodyBytes = 1 << 20
)
