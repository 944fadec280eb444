package models

// MemberRole is a member's role within a group.
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// MemberStatus is the state of a group membership.
type MemberStatus string

const (
	MemberActive    MemberStatus = "active"
	MemberPending   MemberStatus = "pending"
	MemberSuspended MemberStatus = "suspended"
	MemberRemoved   MemberStatus = "removed"
)

// Member joins a user to a group. Among a group's active members the
// PaymentPosition values form a dense permutation 1..N once assigned; the
// position scheduler is the only writer of that field.
type Member struct {
	// ID is the unique identifier for the membership (UUID format).
	ID string

	// GroupID is the group this membership belongs to.
	GroupID string

	// UserID is the member's user account.
	UserID string

	// Role is admin or member.
	Role MemberRole

	// Status is the membership state.
	Status MemberStatus

	// PaymentPosition is the member's rank in the payout rotation,
	// 1..N among active members. Zero means unassigned.
	PaymentPosition int

	// JoinDate is the Unix timestamp when the user joined.
	JoinDate int64
}

// HasPosition reports whether a payment position has been assigned.
func (m *Member) HasPosition() bool {
	return m.PaymentPosition > 0
}
