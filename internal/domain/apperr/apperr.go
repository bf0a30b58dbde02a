// Package apperr defines the error taxonomy shared across the pipeline:
// validation, transient, not-found, partial-failure, and cancellation
// errors, each distinguishable via errors.As so that callers can decide
// whether to retry, nack, or surface a terminal failure.
package apperr

import "fmt"

// ValidationError wraps a configuration or input problem that is never
// retried (e.g. fewer than four calibration rectangles, fewer than 15
// feature matches).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// TransientError wraps a broker or artifact-store condition that the
// connection layer retries; handler-level operations never auto-retry
// one of these.
type TransientError struct {
	Msg string
	Err error
}

func (e *TransientError) Error() string { return e.Msg }
func (e *TransientError) Unwrap() error { return e.Err }

func NewTransient(msg string, err error) error {
	return &TransientError{Msg: msg, Err: err}
}

// NotFoundError wraps a missing record or artifact.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func NewNotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// PartialFailureError records a single sheet's failure within a batch;
// it is counted by the orchestrator, never propagated to fail the whole
// MarkingJob.
type PartialFailureError struct {
	SheetID string
	Reason  string
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("sheet %s: %s", e.SheetID, e.Reason)
}

func NewPartialFailure(sheetID, reason string) error {
	return &PartialFailureError{SheetID: sheetID, Reason: reason}
}

// CancelledError propagates an external cancellation observed at a
// stage boundary.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "cancelled" }

func NewCancelled() error { return &CancelledError{} }
