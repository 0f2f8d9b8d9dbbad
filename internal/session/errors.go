package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrMissingCredential = errors.New("completion-service api key is missing")
	ErrDuplicateRequest  = errors.New("request matches the pending request")
	ErrSessionLimit      = errors.New("session limit reached")
)

// Fixed warnings surfaced to the conversational user when a submission
// is blocked before the pipeline runs.
const (
	WarnMissingCredential = "Please enter your OpenAI API key to proceed."
	WarnDuplicateRequest  = "Please enter a new query to proceed."
)

// GenerationError marks a completion-service failure. The submission
// leaves no history entry behind and the pending request is rolled
// back so the same text may be retried.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate sql: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
