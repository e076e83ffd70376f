package apperrors

import "fmt"

// ValidationError reports malformed or missing required input. Callers can
// retry with corrected input; the API layer maps it to a 400 response.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Message)
}

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AuthError covers both "not authenticated" and "authenticated but lacking
// the required capability". The reason string carries the distinction when
// the auth layer made one. Maps to a 401 response.
type AuthError struct {
	Reason string `json:"reason"`
}

func (e *AuthError) Error() string {
	return "unauthorized: " + e.Reason
}

func NewAuth(reason string) *AuthError {
	return &AuthError{Reason: reason}
}

// NotFoundError means the resource ID does not exist at all. A resource that
// exists but is forbidden yields AuthError instead.
type NotFoundError struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError reports a violation of the one-row-per-(user,resource)
// grant invariant. Maps to a 409 response.
type ConflictError struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting grant for %s %s", e.Resource, e.ID)
}

func NewConflict(resource, id string) *ConflictError {
	return &ConflictError{Resource: resource, ID: id}
}
