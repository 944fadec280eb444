package models

// GroupSummary is the read-only roll-up of a group's ledger produced by the
// financial aggregator. It is recomputed on demand and never stored.
type GroupSummary struct {
	GroupID string

	// Member counts.
	TotalMembers  int
	ActiveMembers int

	// Contribution counts by status.
	PendingContributions   int
	PaidContributions      int
	OverdueContributions   int
	CancelledContributions int

	// Contribution totals.
	TotalCollected float64
	TotalPending   float64
	TotalOverdue   float64

	// Distribution counts and totals.
	CompletedDistributions int
	FailedDistributions    int
	TotalDistributed       float64

	// ContributionRate is paid / (active members × cycles elapsed),
	// as a percentage in [0,100].
	ContributionRate float64

	// CyclesElapsed is how many cycles have opened so far.
	CyclesElapsed int
}

// MemberSummary is the cross-group roll-up for one user.
type MemberSummary struct {
	UserID string

	// Groups the user is an active member of.
	GroupCount int

	TotalContributions   int
	PaidContributions    int
	OverdueContributions int

	// PaymentRate is paid / total contributions as a percentage.
	PaymentRate float64

	// OverdueRate is overdue / total contributions as a percentage.
	OverdueRate float64

	TotalContributed float64
	TotalReceived    float64

	// NetPosition is total received minus total contributed.
	NetPosition float64
}
