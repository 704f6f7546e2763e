package domain

import "fmt"

// Error types for consistent error handling across the CRM core.
// Every storage adapter normalizes backend-native failures into exactly one
// of these kinds; raw driver or HTTP errors never cross the port boundary.

// ErrNotFound indicates a record does not exist.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates malformed or missing required input.
// Messages are name-spaced per field.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrForbidden indicates a scope or role denial. The Reason distinguishes
// "wrong organization" from "not the creator" from "role cannot perform this
// operation" so callers never conflate a denial with a missing record.
type ErrForbidden struct {
	Reason string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

// ErrConflict indicates a uniqueness or dependency violation
// (duplicate email, organization with users, last superadmin).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrBackendUnavailable indicates the underlying store could not be reached.
// The wrapped error keeps connection details out of user-visible messages.
type ErrBackendUnavailable struct {
	Service string
	Err     error
}

func (e *ErrBackendUnavailable) Error() string {
	return fmt.Sprintf("backend unavailable [%s]", e.Service)
}

func (e *ErrBackendUnavailable) Unwrap() error {
	return e.Err
}

// ErrAlreadyProcessed indicates a form submission already left the pending
// state. Distinct from ErrConflict so callers can render "already handled".
type ErrAlreadyProcessed struct {
	SubmissionID int64
}

func (e *ErrAlreadyProcessed) Error() string {
	return fmt.Sprintf("submission %d already processed", e.SubmissionID)
}

// ErrUnauthorized indicates invalid credentials or an invalid session token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
