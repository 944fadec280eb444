package models

import "time"

// DistributionStatus is the state of a payout record.
type DistributionStatus string

const (
	DistributionPending   DistributionStatus = "pending"
	DistributionCompleted DistributionStatus = "completed"
	DistributionFailed    DistributionStatus = "failed"
)

// Distribution is the payout of one cycle's collected funds to the member
// holding that cycle's payment position. At most one completed distribution
// exists per (group, cycle).
type Distribution struct {
	// ID is the unique identifier for the distribution (UUID format).
	ID string

	// GroupID is the group this distribution belongs to.
	GroupID string

	// RecipientID is the user holding the position due for Cycle.
	RecipientID string

	// Cycle is the 1-based cycle number the payout covers.
	Cycle int

	// Amount is the sum of paid contributions collected for the cycle.
	// It can fall short of ExpectedAmount when contributions were
	// cancelled; the expected figure is kept for variance reporting only.
	Amount float64

	// ExpectedAmount is contribution_amount × active members at cycle
	// open. Never used to clamp the payout.
	ExpectedAmount float64

	// DistributionDate is when the payout was recorded.
	DistributionDate time.Time

	// Status is the payout state.
	Status DistributionStatus

	// Notes carries failure reasons and operator annotations.
	Notes string

	// CreatedAt is the Unix timestamp when the row was created.
	CreatedAt int64
}
