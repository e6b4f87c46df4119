package domain

import "errors"

// Sentinel errors for the inventory domain. Use errors.Is() to check these.
// Every error a caller can act on is one of these; anything else is an
// internal failure.
var (
	// ErrValidation indicates malformed or missing input. Never partially applied.
	ErrValidation = errors.New("validation failed")

	// ErrUnitNotFound indicates the referenced blood unit does not exist.
	ErrUnitNotFound = errors.New("blood unit not found")

	// ErrDonorNotFound indicates the referenced donor does not exist.
	ErrDonorNotFound = errors.New("donor not found")

	// ErrDonorNotEligible indicates the donor is not in an approved or served state.
	ErrDonorNotEligible = errors.New("donor not eligible to source a unit")

	// ErrIllegalTransition indicates the requested status change is not in the
	// legal transition table.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrStatusConflict indicates the unit's status changed between read and
	// write (optimistic concurrency). Safe to re-read and retry.
	ErrStatusConflict = errors.New("unit status changed concurrently")

	// ErrPermissionDenied indicates the actor's role lacks rights for the action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrStorageUnavailable indicates the persistence layer failed or timed out.
	// Safe to retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
