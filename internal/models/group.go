package models

import "time"

// Frequency is the contribution cadence of a group.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is a known cadence.
func (f Frequency) Valid() bool {
	return f == FrequencyWeekly || f == FrequencyMonthly
}

// GroupStatus is the lifecycle state of a group.
type GroupStatus string

const (
	GroupForming   GroupStatus = "forming"
	GroupActive    GroupStatus = "active"
	GroupPaused    GroupStatus = "paused"
	GroupCompleted GroupStatus = "completed"
	GroupCancelled GroupStatus = "cancelled"
)

// CanTransitionTo reports whether the group state machine permits moving
// from s to next. Completed and cancelled are terminal.
func (s GroupStatus) CanTransitionTo(next GroupStatus) bool {
	switch s {
	case GroupForming:
		return next == GroupActive || next == GroupCancelled
	case GroupActive:
		return next == GroupPaused || next == GroupCompleted || next == GroupCancelled
	case GroupPaused:
		return next == GroupActive || next == GroupCancelled
	default:
		return false
	}
}

// Group represents a rotating savings circle. Members contribute
// ContributionAmount every cycle and the pool is paid out to one member per
// cycle in payment-position order.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group.
	Name string

	// Description is an optional free-text description.
	Description string

	// ContributionAmount is the fixed amount every member pays per cycle.
	ContributionAmount float64

	// Frequency is the contribution cadence (weekly or monthly).
	Frequency Frequency

	// StartDate is the date of the first cycle.
	StartDate time.Time

	// DurationCycles is the number of cycles the group runs; it normally
	// equals the member count so each member collects exactly once.
	DurationCycles int

	// MaxMembers caps the active membership (5-10 for Ajo groups).
	MaxMembers int

	// Status is the lifecycle state.
	Status GroupStatus

	// CreatedBy is the user ID of the group creator.
	CreatedBy string

	// InvitationCode is the unique join code for this group.
	InvitationCode string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}
