// Package ledger defines the error kinds shared by the scheduling and
// ledger services. Callers distinguish kinds with errors.Is; anything that
// matches none of these sentinels is an infrastructure failure (e.g. the
// database being unreachable) and must never be mistaken for NotFound.
package ledger

import "errors"

var (
	// ErrValidation indicates bad input shape or amount.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState indicates an operation that is not valid for the
	// current group or member state.
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict indicates a write that would violate a uniqueness or
	// range invariant (duplicate position, duplicate membership).
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates a referenced group, member, contribution or
	// distribution does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition indicates a status change that the entity's
	// state machine does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicate indicates an insert that already happened (e.g. a
	// contribution row for the same group, user and cycle).
	ErrDuplicate = errors.New("duplicate record")

	// ErrNotReady indicates a distribution attempted before the cycle's
	// eligibility conditions are met.
	ErrNotReady = errors.New("distribution not ready")

	// ErrDuplicateDistribution indicates a second completed distribution
	// for the same group and cycle — a double-payout attempt.
	ErrDuplicateDistribution = errors.New("duplicate distribution")
)
