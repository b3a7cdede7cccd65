package coach

import "fmt"

// ValidationError marks input that failed the sanitizer gate. The user
// is re-prompted; nothing else changes.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

// Code implements the error-code contract used by handler logging.
func (e *ValidationError) Code() string { return "VALIDATION_ERROR" }

// CompletionError wraps a failed call to the completion collaborator.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion: %v", e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

func (e *CompletionError) Code() string { return "COMPLETION_ERROR" }

// StoreError wraps a failed history or profile persistence call.
// Store failures degrade the turn, they never abort it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Code() string { return "STORE_ERROR" }
