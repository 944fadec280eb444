package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/ajoledger/internal/ledger"
	"github.com/mmynk/ajoledger/internal/metrics"
	"github.com/mmynk/ajoledger/internal/models"
	"github.com/mmynk/ajoledger/internal/rotation"
	"github.com/mmynk/ajoledger/internal/storage"
)

// ContributionService tracks the per-cycle payment obligations of a group:
// opening cycles, recording payments, sweeping overdue obligations and
// cancelling them. Payment processing itself is external; the service only
// records outcomes.
type ContributionService struct {
	store storage.Store
}

// NewContributionService creates a new ContributionService.
func NewContributionService(store storage.Store) *ContributionService {
	return &ContributionService{store: store}
}

// OpenCycle creates a pending contribution for every active member of the
// group for the given cycle, each for the group's contribution amount and
// due on the cycle's due date. Idempotent: members who already have a row
// for the cycle are skipped, so a retry after a partial failure completes
// the remainder. Returns how many rows were actually created.
func (s *ContributionService) OpenCycle(ctx context.Context, groupID string, cycle int) (int, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if group.Status != models.GroupActive {
		return 0, fmt.Errorf("group %s is %s, cycles open only on active groups: %w",
			groupID, group.Status, ledger.ErrInvalidState)
	}
	if cycle < 1 || cycle > group.DurationCycles {
		return 0, fmt.Errorf("cycle %d outside group duration 1..%d: %w",
			cycle, group.DurationCycles, ledger.ErrValidation)
	}

	members, err := s.store.ListMembers(ctx, groupID, true)
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, fmt.Errorf("group %s has no active members: %w", groupID, ledger.ErrInvalidState)
	}

	dueDate := rotation.DueDate(group.StartDate, rotation.Frequency(group.Frequency), cycle)
	now := time.Now().Unix()

	contributions := make([]*models.Contribution, len(members))
	for i, m := range members {
		contributions[i] = &models.Contribution{
			ID:        uuid.New().String(),
			GroupID:   groupID,
			UserID:    m.UserID,
			Cycle:     cycle,
			Amount:    group.ContributionAmount,
			DueDate:   dueDate,
			Status:    models.ContributionPending,
			CreatedAt: now,
		}
	}

	created, err := s.store.CreateContributionsIfAbsent(ctx, contributions)
	if err != nil {
		return 0, err
	}

	if created > 0 {
		metrics.CyclesOpened.Inc()
	}
	slog.Info("cycle opened",
		"group_id", groupID,
		"cycle", cycle,
		"created", created,
		"skipped", len(contributions)-created,
		"due_date", dueDate.Format("2006-01-02"),
	)
	return created, nil
}

// MarkPaid records a contribution as paid with the settlement date and
// payment method. Valid from pending or overdue; paid is terminal, so a
// repeated call fails with an invalid-transition error rather than silently
// double-recording.
func (s *ContributionService) MarkPaid(ctx context.Context, contributionID string, paidDate time.Time, paymentMethod string) (*models.Contribution, error) {
	if paidDate.IsZero() {
		paidDate = time.Now()
	}

	err := s.store.UpdateContributionStatus(ctx, contributionID, models.ContributionPaid,
		paidDate, paymentMethod,
		models.ContributionPending, models.ContributionOverdue)
	if err != nil {
		return nil, err
	}

	metrics.ContributionsPaid.Inc()
	contribution, err := s.store.GetContribution(ctx, contributionID)
	if err != nil {
		return nil, err
	}

	slog.Info("contribution paid",
		"contribution_id", contributionID,
		"group_id", contribution.GroupID,
		"user_id", contribution.UserID,
		"cycle", contribution.Cycle,
		"amount", contribution.Amount,
	)
	return contribution, nil
}

// MarkOverdue sweeps the group's pending contributions whose due date has
// passed into overdue, returning how many changed. Paid contributions are
// never touched, so running the sweep after a payment cannot revert it.
// Idempotent.
func (s *ContributionService) MarkOverdue(ctx context.Context, groupID string, asOf time.Time) (int64, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}

	swept, err := s.store.MarkContributionsOverdue(ctx, groupID, asOf)
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		metrics.ContributionsOverdue.Add(float64(swept))
		slog.Info("contributions marked overdue", "group_id", groupID, "count", swept)
	}
	return swept, nil
}

// Cancel voids a pending or overdue contribution, e.g. when the member left
// the group before paying. Cancelled is terminal.
func (s *ContributionService) Cancel(ctx context.Context, contributionID string) error {
	err := s.store.UpdateContributionStatus(ctx, contributionID, models.ContributionCancelled,
		time.Time{}, "",
		models.ContributionPending, models.ContributionOverdue)
	if err != nil {
		return err
	}

	slog.Info("contribution cancelled", "contribution_id", contributionID)
	return nil
}

// Get retrieves a single contribution.
func (s *ContributionService) Get(ctx context.Context, contributionID string) (*models.Contribution, error) {
	return s.store.GetContribution(ctx, contributionID)
}

// ListForGroup retrieves a group's contributions, optionally filtered by
// cycle (0 means all cycles) and status (empty means all).
func (s *ContributionService) ListForGroup(ctx context.Context, groupID string, cycle int, status models.ContributionStatus) ([]*models.Contribution, error) {
	return s.store.ListContributions(ctx, groupID, cycle, status)
}

// ListForUser retrieves every contribution a user owes or has paid across
// all groups.
func (s *ContributionService) ListForUser(ctx context.Context, userID string) ([]*models.Contribution, error) {
	return s.store.ListUserContributions(ctx, userID)
}
