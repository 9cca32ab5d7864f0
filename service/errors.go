package service

import (
	"errors"
	"fmt"

	"projtrack/response"
)

var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrContactNotFound    = errors.New("contact not found")
	ErrFileNotFound       = errors.New("file not found")

	// ErrStorage marks failures of the blob store.
	ErrStorage = errors.New("file storage unavailable")
)

// ValidationError carries every rejected field of one input.
type ValidationError struct {
	Issues []response.Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("validation failed: %s %s", e.Issues[0].Field, e.Issues[0].Message)
	}
	return fmt.Sprintf("validation failed: %d issues", len(e.Issues))
}

func invalidBody(msg string) *ValidationError {
	return &ValidationError{Issues: []response.Issue{{Field: "", Message: msg}}}
}
