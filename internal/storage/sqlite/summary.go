package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/ajoledger/internal/models"
)

// GroupSummary derives the group's roll-up from the ledger tables. Strictly
// read-only; the aggregator owns no state that could drift from the ledger.
func (s *SQLiteStore) GroupSummary(ctx context.Context, groupID string) (*models.GroupSummary, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	summary := &models.GroupSummary{GroupID: groupID}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(CASE WHEN status = 'active' THEN 1 END)
		 FROM members WHERE group_id = ?`,
		groupID,
	).Scan(&summary.TotalMembers, &summary.ActiveMembers)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(CASE WHEN status = 'pending' THEN 1 END),
		        COUNT(CASE WHEN status = 'paid' THEN 1 END),
		        COUNT(CASE WHEN status = 'overdue' THEN 1 END),
		        COUNT(CASE WHEN status = 'cancelled' THEN 1 END),
		        COALESCE(SUM(CASE WHEN status = 'paid' THEN amount ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = 'pending' THEN amount ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = 'overdue' THEN amount ELSE 0 END), 0),
		        COUNT(DISTINCT cycle)
		 FROM contributions WHERE group_id = ?`,
		groupID,
	).Scan(&summary.PendingContributions, &summary.PaidContributions,
		&summary.OverdueContributions, &summary.CancelledContributions,
		&summary.TotalCollected, &summary.TotalPending, &summary.TotalOverdue,
		&summary.CyclesElapsed)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize contributions: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(CASE WHEN status = 'completed' THEN 1 END),
		        COUNT(CASE WHEN status = 'failed' THEN 1 END),
		        COALESCE(SUM(CASE WHEN status = 'completed' THEN amount ELSE 0 END), 0)
		 FROM distributions WHERE group_id = ?`,
		groupID,
	).Scan(&summary.CompletedDistributions, &summary.FailedDistributions, &summary.TotalDistributed)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize distributions: %w", err)
	}

	if expected := summary.ActiveMembers * summary.CyclesElapsed; expected > 0 {
		summary.ContributionRate = float64(summary.PaidContributions) / float64(expected) * 100
	}
	return summary, nil
}

// MemberSummary derives a user's cross-group roll-up: payment and overdue
// rates and the net position (received minus contributed).
func (s *SQLiteStore) MemberSummary(ctx context.Context, userID string) (*models.MemberSummary, error) {
	summary := &models.MemberSummary{UserID: userID}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM members WHERE user_id = ? AND status = 'active'`,
		userID,
	).Scan(&summary.GroupCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count memberships: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(CASE WHEN status = 'paid' THEN 1 END),
		        COUNT(CASE WHEN status = 'overdue' THEN 1 END),
		        COALESCE(SUM(CASE WHEN status = 'paid' THEN amount ELSE 0 END), 0)
		 FROM contributions WHERE user_id = ?`,
		userID,
	).Scan(&summary.TotalContributions, &summary.PaidContributions,
		&summary.OverdueContributions, &summary.TotalContributed)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize user contributions: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0)
		 FROM distributions WHERE recipient_id = ? AND status = 'completed'`,
		userID,
	).Scan(&summary.TotalReceived)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize user distributions: %w", err)
	}

	if summary.TotalContributions > 0 {
		summary.PaymentRate = float64(summary.PaidContributions) / float64(summary.TotalContributions) * 100
		summary.OverdueRate = float64(summary.OverdueContributions) / float64(summary.TotalContributions) * 100
	}
	summary.NetPosition = summary.TotalReceived - summary.TotalContributed
	return summary, nil
}
