/*
errors.go - Centralized error types for the session engine

PURPOSE:
  All engine failures in one place. Every failure here is local and
  recoverable: an operation either fully succeeds or is rejected before any
  state is touched, and the rejection carries a message fit for the client.

ERROR CATEGORIES:
  1. Timer errors - break timer asked for an invalid transition
  2. Requirement errors - completing an unknown or finished requirement

USAGE:
  The API layer maps these to HTTP status codes:

    if engine.IsNotFound(err) {
        writeError(w, http.StatusNotFound, ...)
    }

SEE ALSO:
  - timer.go: Returns the timer errors
  - constraints.go: Returns the requirement errors
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTimerLocked is returned when unlocking while a break is running.
	ErrTimerLocked = errors.New("break timer is locked")

	// ErrTimerAlreadyUnlocked is returned when unlocking during a work period.
	ErrTimerAlreadyUnlocked = errors.New("break timer is already unlocked")

	// ErrTimerNotUnlocked is returned when locking without a running work
	// period. Breaks are never free: a work credit must be spent first.
	ErrTimerNotUnlocked = errors.New("break timer is not unlocked")

	// ErrNotUnlockable is returned when the combined session state forbids
	// spending a work credit (some other constraint is active).
	ErrNotUnlockable = errors.New("session is not unlockable")

	// ErrRequirementNotFound is returned for an unknown requirement id.
	ErrRequirementNotFound = errors.New("requirement not found")

	// ErrRequirementComplete is returned when completing twice. Completion
	// is one-way; the second attempt is rejected, not ignored.
	ErrRequirementComplete = errors.New("requirement has already been completed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the offending id
// =============================================================================

// RequirementError wraps a requirement failure with the id the caller sent.
type RequirementError struct {
	ID  uint64
	Err error
}

func (e *RequirementError) Error() string {
	switch {
	case errors.Is(e.Err, ErrRequirementNotFound):
		return fmt.Sprintf("requirement %d not found", e.ID)
	case errors.Is(e.Err, ErrRequirementComplete):
		return fmt.Sprintf("requirement %d has already been completed", e.ID)
	default:
		return fmt.Sprintf("requirement %d: %v", e.ID, e.Err)
	}
}

func (e *RequirementError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error names a missing requirement.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequirementNotFound)
}

// IsConflict reports whether the error is a rejected state transition rather
// than bad input: the operation was legal, the current state just forbids it.
func IsConflict(err error) bool {
	return errors.Is(err, ErrTimerLocked) ||
		errors.Is(err, ErrTimerAlreadyUnlocked) ||
		errors.Is(err, ErrTimerNotUnlocked) ||
		errors.Is(err, ErrNotUnlockable) ||
		errors.Is(err, ErrRequirementComplete)
}
