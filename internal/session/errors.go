package session

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Controller operations.
var (
	ErrSubmitInFlight        = errors.New("submission already in progress")
	ErrAlreadySubmitted      = errors.New("attempt already submitted")
	ErrNotSubmittable        = errors.New("session cannot be submitted in its current state")
	ErrNoPendingConfirmation = errors.New("no submit confirmation is pending")
	ErrNotResettable         = errors.New("session cannot be reset in its current state")
	ErrStarting              = errors.New("session start already in progress")
	ErrNoResult              = errors.New("no result available yet")
	ErrClosed                = errors.New("session closed")
)

// StartError means the gateway could not start or resume an attempt. The
// host shows a retry/back screen; the controller stays in loading.
type StartError struct {
	ReviewerID string
	Err        error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start attempt for reviewer %s: %v", e.ReviewerID, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed answer save or pause. It is only logged.
type PersistenceError struct {
	Op        string
	AttemptID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s for attempt %s: %v", e.Op, e.AttemptID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SubmitError is surfaced to the user; the submit latch is released so they can retry.
type SubmitError struct {
	AttemptID string
	Mode      SubmitMode
	Err       error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("%s submit of attempt %s: %v", e.Mode, e.AttemptID, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }
