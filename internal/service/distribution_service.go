package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/ajoledger/internal/ledger"
	"github.com/mmynk/ajoledger/internal/metrics"
	"github.com/mmynk/ajoledger/internal/models"
	"github.com/mmynk/ajoledger/internal/storage"
)

// PolicyMode selects how Evaluate decides a cycle is ready for payout.
type PolicyMode string

const (
	// PolicyFull requires every opened contribution of the cycle to be paid
	// or cancelled. The default.
	PolicyFull PolicyMode = "full"

	// PolicyThreshold requires collected funds to reach a fraction of the
	// expected pool.
	PolicyThreshold PolicyMode = "threshold"
)

// CollectionPolicy is the eligibility rule a DistributionService applies.
// Fixed at construction so every evaluation of a deployment uses the same
// rule.
type CollectionPolicy struct {
	Mode PolicyMode

	// Threshold is the required fraction of the expected pool in (0,1],
	// used only in threshold mode.
	Threshold float64
}

// DefaultPolicy requires full collection.
func DefaultPolicy() CollectionPolicy {
	return CollectionPolicy{Mode: PolicyFull}
}

// Verdict is the outcome of evaluating a cycle for payout.
type Verdict string

const (
	VerdictReady              Verdict = "ready"
	VerdictIncomplete         Verdict = "incomplete"
	VerdictAlreadyDistributed Verdict = "already_distributed"
)

// Evaluation is the read-only result of Evaluate: the verdict plus the
// figures it was derived from.
type Evaluation struct {
	GroupID string
	Cycle   int
	Verdict Verdict

	// Recipient is the member due to collect, resolved from the rotation.
	// Nil when the cycle was already distributed.
	Recipient *models.Member

	// Collected is the sum of paid contributions for the cycle; PaidCount
	// how many have paid.
	Collected float64
	PaidCount int

	// Outstanding is how many opened contributions are still pending or
	// overdue.
	Outstanding int

	// Expected is contribution amount × contributions opened for the cycle.
	Expected float64
}

// DistributionService decides when a cycle's pool may be paid out and
// records the payout. Evaluation is pure read; Execute re-evaluates and
// writes the distribution in one store-level critical section so concurrent
// triggers cannot double-pay a cycle.
type DistributionService struct {
	store     storage.Store
	positions *PositionService
	policy    CollectionPolicy
}

// NewDistributionService creates a DistributionService with the given
// eligibility policy.
func NewDistributionService(store storage.Store, positions *PositionService, policy CollectionPolicy) (*DistributionService, error) {
	switch policy.Mode {
	case PolicyFull:
	case PolicyThreshold:
		if policy.Threshold <= 0 || policy.Threshold > 1 {
			return nil, fmt.Errorf("threshold must be in (0,1], got %v: %w", policy.Threshold, ledger.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("unknown policy mode %q: %w", policy.Mode, ledger.ErrValidation)
	}
	return &DistributionService{store: store, positions: positions, policy: policy}, nil
}

// Evaluate reports whether the given cycle is ready for payout without
// changing any state. A cycle that already has a completed distribution is
// already_distributed regardless of its contribution state.
func (s *DistributionService) Evaluate(ctx context.Context, groupID string, cycle int) (*Evaluation, error) {
	if cycle < 1 {
		return nil, fmt.Errorf("cycle must be positive, got %d: %w", cycle, ledger.ErrValidation)
	}
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	eval := &Evaluation{GroupID: groupID, Cycle: cycle}

	existing, err := s.store.GetDistributionByCycle(ctx, groupID, cycle)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == models.DistributionCompleted {
		eval.Verdict = VerdictAlreadyDistributed
		eval.Collected = existing.Amount
		eval.Expected = existing.ExpectedAmount
		return eval, nil
	}

	contributions, err := s.store.ListContributions(ctx, groupID, cycle, "")
	if err != nil {
		return nil, err
	}
	if len(contributions) == 0 {
		return nil, fmt.Errorf("cycle %d of group %s has not been opened: %w", cycle, groupID, ledger.ErrInvalidState)
	}

	for _, c := range contributions {
		eval.Expected += c.Amount
		switch c.Status {
		case models.ContributionPaid:
			eval.Collected += c.Amount
			eval.PaidCount++
		case models.ContributionPending, models.ContributionOverdue:
			eval.Outstanding++
		}
	}

	recipient, err := s.positions.NextRecipient(ctx, groupID, cycle)
	if err != nil {
		return nil, err
	}
	eval.Recipient = recipient

	if s.eligible(eval) {
		eval.Verdict = VerdictReady
	} else {
		eval.Verdict = VerdictIncomplete
	}
	return eval, nil
}

func (s *DistributionService) eligible(eval *Evaluation) bool {
	switch s.policy.Mode {
	case PolicyThreshold:
		return eval.Expected > 0 && eval.Collected >= eval.Expected*s.policy.Threshold
	default:
		return eval.Outstanding == 0 && eval.PaidCount > 0
	}
}

// Execute pays out the cycle: it re-evaluates eligibility and records a
// completed distribution of the collected amount to the rotation's
// recipient. Fails with ledger.ErrNotReady when the cycle is not eligible
// and ledger.ErrDuplicateDistribution when the cycle was already paid out;
// the duplicate check is enforced again inside the store's transaction, so
// a concurrent Execute racing past Evaluate still cannot double-pay.
// When the payout completes the group's final cycle, the group is moved to
// completed.
func (s *DistributionService) Execute(ctx context.Context, groupID string, cycle int) (*models.Distribution, error) {
	eval, err := s.Evaluate(ctx, groupID, cycle)
	if err != nil {
		return nil, err
	}
	switch eval.Verdict {
	case VerdictAlreadyDistributed:
		metrics.DistributionsRejected.WithLabelValues("duplicate").Inc()
		return nil, fmt.Errorf("cycle %d of group %s already distributed: %w",
			cycle, groupID, ledger.ErrDuplicateDistribution)
	case VerdictIncomplete:
		metrics.DistributionsRejected.WithLabelValues("incomplete").Inc()
		return nil, fmt.Errorf("cycle %d of group %s has %d outstanding contributions (%.2f of %.2f collected): %w",
			cycle, groupID, eval.Outstanding, eval.Collected, eval.Expected, ledger.ErrNotReady)
	}

	dist := &models.Distribution{
		GroupID:          groupID,
		RecipientID:      eval.Recipient.UserID,
		Cycle:            cycle,
		Amount:           eval.Collected,
		ExpectedAmount:   eval.Expected,
		DistributionDate: time.Now(),
		Status:           models.DistributionCompleted,
	}
	if err := s.store.CreateDistribution(ctx, dist); err != nil {
		if errors.Is(err, ledger.ErrDuplicateDistribution) {
			metrics.DistributionsRejected.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}

	metrics.DistributionsExecuted.Inc()
	slog.Info("distribution executed",
		"group_id", groupID,
		"cycle", cycle,
		"recipient_id", dist.RecipientID,
		"amount", dist.Amount,
		"expected", dist.ExpectedAmount,
	)

	if err := s.completeGroupIfDone(ctx, groupID); err != nil {
		slog.Error("failed to check group completion", "group_id", groupID, "error", err)
	}
	return dist, nil
}

// completeGroupIfDone moves the group to completed once every cycle of its
// duration has a completed payout.
func (s *DistributionService) completeGroupIfDone(ctx context.Context, groupID string) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	done, err := s.store.CountCompletedDistributions(ctx, groupID)
	if err != nil {
		return err
	}
	if done < group.DurationCycles {
		return nil
	}

	err = s.store.UpdateGroupStatus(ctx, groupID, models.GroupCompleted, models.GroupActive)
	if errors.Is(err, ledger.ErrInvalidTransition) {
		// Already completed by a concurrent payout, or paused mid-final-cycle.
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("group completed", "group_id", groupID, "cycles", done)
	return nil
}

// MarkFailed records that a completed payout could not be delivered
// downstream, with the reason in the notes. Only completed distributions
// can fail; the failed record replaces the completed one, so the cycle
// becomes eligible for re-execution.
func (s *DistributionService) MarkFailed(ctx context.Context, distributionID, reason string) error {
	err := s.store.UpdateDistributionStatus(ctx, distributionID, models.DistributionFailed, reason,
		models.DistributionCompleted)
	if err != nil {
		return err
	}

	slog.Warn("distribution marked failed", "distribution_id", distributionID, "reason", reason)
	return nil
}

// Get retrieves the distribution recorded for a cycle.
func (s *DistributionService) Get(ctx context.Context, groupID string, cycle int) (*models.Distribution, error) {
	return s.store.GetDistributionByCycle(ctx, groupID, cycle)
}

// ListForGroup retrieves a group's distributions, optionally filtered by
// status.
func (s *DistributionService) ListForGroup(ctx context.Context, groupID string, status models.DistributionStatus) ([]*models.Distribution, error) {
	return s.store.ListDistributions(ctx, groupID, status)
}

// ListForUser retrieves every payout a user has received.
func (s *DistributionService) ListForUser(ctx context.Context, userID string) ([]*models.Distribution, error) {
	return s.store.ListUserDistributions(ctx, userID)
}
