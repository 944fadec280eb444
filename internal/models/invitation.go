package models

// InvitationStatus is the state of a group invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// CanTransitionTo reports whether the invitation state machine permits
// moving from s to next. Only pending invitations change state.
func (s InvitationStatus) CanTransitionTo(next InvitationStatus) bool {
	if s != InvitationPending {
		return false
	}
	return next == InvitationAccepted || next == InvitationDeclined || next == InvitationExpired
}

// Invitation is a pending invite into a group. Delivery (email/SMS) is an
// external concern; the ledger only tracks the lifecycle that feeds Member
// creation.
type Invitation struct {
	// ID is the unique identifier for the invitation (UUID format).
	ID string

	// Code is the single-use join code.
	Code string

	// GroupID is the group being joined.
	GroupID string

	// InviterID is the user who sent the invite.
	InviterID string

	// InviteeEmail is the invited contact.
	InviteeEmail string

	// Status is the invitation state.
	Status InvitationStatus

	// ExpiresAt is the Unix timestamp after which the invite is void.
	ExpiresAt int64

	// CreatedAt is the Unix timestamp when the invite was created.
	CreatedAt int64
}
