// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"
	"time"

	"github.com/mmynk/ajoledger/internal/models"
)

// Store defines the interface for ledger storage operations. The store is
// the single shared mutable resource of the system: the position scheduler,
// contribution tracker and distribution engine never share in-memory state
// with each other and every cross-component interaction goes through here.
//
// Multi-statement mutations (position writes, cycle opening, distribution
// execution) are serialized per group inside the implementation, so two
// concurrent calls for the same group never interleave partial writes.
// Lookups return ledger.ErrNotFound for missing rows and a wrapped driver
// error for infrastructure failures; the two are never conflated.
type Store interface {
	// Groups.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	GetGroupByInvitationCode(ctx context.Context, code string) (*models.Group, error)
	// UpdateGroupStatus moves the group to the given status if its current
	// status is one of allowedFrom; returns ledger.ErrInvalidTransition
	// otherwise.
	UpdateGroupStatus(ctx context.Context, groupID string, to models.GroupStatus, allowedFrom ...models.GroupStatus) error

	// Members.
	AddMember(ctx context.Context, member *models.Member) error
	GetMember(ctx context.Context, groupID, userID string) (*models.Member, error)
	ListMembers(ctx context.Context, groupID string, activeOnly bool) ([]*models.Member, error)
	// RemoveMember marks the membership removed and clears its payment
	// position in one transaction. The last active admin cannot be removed.
	RemoveMember(ctx context.Context, groupID, userID string) error
	UpdateMemberRole(ctx context.Context, groupID, userID string, role models.MemberRole) error

	// Positions. UpdatePositions writes one position per user atomically
	// under the group's lock; the unique index on active positions rejects
	// any write that would create a duplicate. ClearPositions unsets every
	// active member's position.
	UpdatePositions(ctx context.Context, groupID string, positions map[string]int) error
	ClearPositions(ctx context.Context, groupID string) error

	// Contributions. CreateContributionsIfAbsent is the atomic
	// insert-if-absent used by cycle opening: rows that already exist for
	// (group, user, cycle) are skipped, and the number actually inserted is
	// returned.
	CreateContributionsIfAbsent(ctx context.Context, contributions []*models.Contribution) (int, error)
	GetContribution(ctx context.Context, contributionID string) (*models.Contribution, error)
	// UpdateContributionStatus transitions the contribution if its current
	// status is one of allowedFrom; returns ledger.ErrInvalidTransition
	// otherwise. PaidDate and method are only written when to is paid.
	UpdateContributionStatus(ctx context.Context, contributionID string, to models.ContributionStatus, paidDate time.Time, paymentMethod string, allowedFrom ...models.ContributionStatus) error
	// MarkContributionsOverdue bulk-transitions pending contributions of
	// the group with due_date before asOf to overdue, returning how many
	// rows changed. Idempotent.
	MarkContributionsOverdue(ctx context.Context, groupID string, asOf time.Time) (int64, error)
	ListContributions(ctx context.Context, groupID string, cycle int, status models.ContributionStatus) ([]*models.Contribution, error)
	ListUserContributions(ctx context.Context, userID string) ([]*models.Contribution, error)
	// SumPaidContributions returns the total amount and count of paid
	// contributions for the cycle.
	SumPaidContributions(ctx context.Context, groupID string, cycle int) (float64, int, error)

	// Distributions. CreateDistribution enforces at most one completed
	// distribution per (group, cycle): a second completed insert fails with
	// ledger.ErrDuplicateDistribution.
	CreateDistribution(ctx context.Context, dist *models.Distribution) error
	GetDistributionByCycle(ctx context.Context, groupID string, cycle int) (*models.Distribution, error)
	UpdateDistributionStatus(ctx context.Context, distributionID string, to models.DistributionStatus, notes string, allowedFrom ...models.DistributionStatus) error
	ListDistributions(ctx context.Context, groupID string, status models.DistributionStatus) ([]*models.Distribution, error)
	ListUserDistributions(ctx context.Context, userID string) ([]*models.Distribution, error)
	CountCompletedDistributions(ctx context.Context, groupID string) (int, error)

	// Invitations.
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitationByCode(ctx context.Context, code string) (*models.Invitation, error)
	UpdateInvitationStatus(ctx context.Context, invitationID string, to models.InvitationStatus) error
	ExpireInvitations(ctx context.Context, asOf time.Time) (int64, error)

	// Users (auth boundary).
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Aggregation (read-only).
	GroupSummary(ctx context.Context, groupID string) (*models.GroupSummary, error)
	MemberSummary(ctx context.Context, userID string) (*models.MemberSummary, error)

	// Close releases any resources held by the store.
	Close() error
}
