package model

import (
	"fmt"
	"net/mail"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateTask checks a Task for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the task is valid.
func ValidateTask(t *Task) error {
	var ve ValidationError

	// Title: required and at most 200 characters.
	title := strings.TrimSpace(t.Title)
	if title == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "title", Message: "is required"})
	} else if len([]rune(title)) > 200 {
		ve.Errors = append(ve.Errors, FieldError{Field: "title", Message: "must be 200 characters or fewer"})
	}

	// Status: must be a valid enum value (closed set).
	if !t.Status.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "status",
			Message: fmt.Sprintf("invalid value %q", t.Status),
		})
	}

	// Priority: must be a valid enum value (closed set).
	if !t.Priority.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "priority",
			Message: fmt.Sprintf("invalid value %q", t.Priority),
		})
	}

	// CompletedAt consistency with Status.
	if t.Status == StatusDone && t.CompletedAt == nil {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "completed_at",
			Message: "is required when status is done",
		})
	}
	if t.Status != StatusDone && t.CompletedAt != nil {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "completed_at",
			Message: "must be nil when status is not done",
		})
	}

	// Tag cap.
	if len(t.Tags) > MaxTagsPerTask {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "tags",
			Message: fmt.Sprintf("at most %d tags per task, got %d", MaxTagsPerTask, len(t.Tags)),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateTag checks a Tag for constraint violations.
func ValidateTag(tg *Tag) error {
	var ve ValidationError

	name := strings.TrimSpace(tg.Name)
	if name == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "is required"})
	} else if len([]rune(name)) > 50 {
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "must be 50 characters or fewer"})
	}

	if !ValidHexColor(tg.Color) {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "color",
			Message: fmt.Sprintf("must be a #RRGGBB hex color, got %q", tg.Color),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateUser checks a User for constraint violations. The password hash is
// checked for presence only; password strength is enforced at registration.
func ValidateUser(u *User) error {
	var ve ValidationError

	username := strings.TrimSpace(u.Username)
	if username == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "username", Message: "is required"})
	} else if len([]rune(username)) > 150 {
		ve.Errors = append(ve.Errors, FieldError{Field: "username", Message: "must be 150 characters or fewer"})
	}

	if strings.TrimSpace(u.Email) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "email", Message: "is required"})
	} else if _, err := mail.ParseAddress(u.Email); err != nil {
		ve.Errors = append(ve.Errors, FieldError{Field: "email", Message: "is not a valid address"})
	}

	if u.PasswordHash == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "password", Message: "is required"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
