package models

import "time"

// ContributionStatus is the state of a contribution obligation.
type ContributionStatus string

const (
	ContributionPending   ContributionStatus = "pending"
	ContributionPaid      ContributionStatus = "paid"
	ContributionOverdue   ContributionStatus = "overdue"
	ContributionCancelled ContributionStatus = "cancelled"
)

// CanTransitionTo reports whether the contribution state machine permits
// moving from s to next:
//
//	pending → paid | overdue | cancelled
//	overdue → paid | cancelled
//
// Paid and cancelled are terminal; in particular a paid contribution never
// reverts to overdue.
func (s ContributionStatus) CanTransitionTo(next ContributionStatus) bool {
	switch s {
	case ContributionPending:
		return next == ContributionPaid || next == ContributionOverdue || next == ContributionCancelled
	case ContributionOverdue:
		return next == ContributionPaid || next == ContributionCancelled
	default:
		return false
	}
}

// Contribution is one member's payment obligation for one cycle. At most one
// contribution exists per (group, user, cycle).
type Contribution struct {
	// ID is the unique identifier for the contribution (UUID format).
	ID string

	// GroupID is the group this contribution belongs to.
	GroupID string

	// UserID is the obligated member's user account.
	UserID string

	// Cycle is the 1-based cycle number within the group's duration.
	Cycle int

	// Amount equals the group's contribution amount.
	Amount float64

	// DueDate is when the contribution is due, derived from the group's
	// start date, frequency and cycle number.
	DueDate time.Time

	// PaidDate is when the payment settled; zero until paid.
	PaidDate time.Time

	// PaymentMethod is how the payment settled (recorded by the external
	// payment processor; the ledger only stores the label).
	PaymentMethod string

	// Status is the obligation state.
	Status ContributionStatus

	// CreatedAt is the Unix timestamp when the row was created.
	CreatedAt int64
}
