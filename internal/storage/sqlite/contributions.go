package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/ajoledger/internal/ledger"
	"github.com/mmynk/ajoledger/internal/models"
)

// CreateContributionsIfAbsent inserts the given contributions, skipping any
// that already exist for their (group, user, cycle). The INSERT OR IGNORE
// runs against the unique constraint, so concurrent cycle openings cannot
// create duplicates; re-invocation is a no-op for existing rows.
func (s *SQLiteStore) CreateContributionsIfAbsent(ctx context.Context, contributions []*models.Contribution) (int, error) {
	if len(contributions) == 0 {
		return 0, nil
	}

	created := 0
	err := s.withGroupTx(ctx, contributions[0].GroupID, func(tx *sql.Tx) error {
		for _, c := range contributions {
			if c.ID == "" {
				c.ID = uuid.New().String()
			}
			if c.CreatedAt == 0 {
				c.CreatedAt = time.Now().Unix()
			}

			res, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO contributions
				 (id, group_id, user_id, cycle, amount, due_date, paid_date, payment_method, status, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, NULL, NULL, ?, ?)`,
				c.ID, c.GroupID, c.UserID, c.Cycle, c.Amount,
				c.DueDate.Format(dateLayout), string(c.Status), c.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert contribution: %w", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			created += int(affected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// GetContribution retrieves a contribution by ID.
func (s *SQLiteStore) GetContribution(ctx context.Context, contributionID string) (*models.Contribution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, user_id, cycle, amount, due_date, paid_date, payment_method, status, created_at
		 FROM contributions WHERE id = ?`,
		contributionID,
	)
	c, err := scanContribution(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("contribution %s: %w", contributionID, ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return c, nil
}

// UpdateContributionStatus transitions the contribution if its current
// status is one of allowedFrom. allowedFrom narrows caller intent; the
// contribution state machine (ContributionStatus.CanTransitionTo) is
// enforced on top of it. PaidDate and method are written only when
// transitioning to paid.
func (s *SQLiteStore) UpdateContributionStatus(ctx context.Context, contributionID string, to models.ContributionStatus, paidDate time.Time, paymentMethod string, allowedFrom ...models.ContributionStatus) error {
	var placeholders []string
	var args []any

	var set string
	if to == models.ContributionPaid {
		set = `status = ?, paid_date = ?, payment_method = ?`
		args = append(args, string(to), paidDate.Format(dateLayout), nullString(paymentMethod))
	} else {
		set = `status = ?`
		args = append(args, string(to))
	}
	args = append(args, contributionID)
	for _, from := range allowedFrom {
		if !from.CanTransitionTo(to) {
			continue
		}
		placeholders = append(placeholders, "?")
		args = append(args, string(from))
	}
	if len(placeholders) == 0 {
		current, err := s.GetContribution(ctx, contributionID)
		if err != nil {
			return err
		}
		return fmt.Errorf("contribution %s is %s, cannot move to %s: %w",
			contributionID, current.Status, to, ledger.ErrInvalidTransition)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE contributions SET `+set+` WHERE id = ? AND status IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to update contribution status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		current, err := s.GetContribution(ctx, contributionID)
		if err != nil {
			return err
		}
		return fmt.Errorf("contribution %s is %s, cannot move to %s: %w",
			contributionID, current.Status, to, ledger.ErrInvalidTransition)
	}
	return nil
}

// MarkContributionsOverdue bulk-transitions the group's pending
// contributions with due_date before asOf to overdue. Idempotent: rows
// already overdue, paid or cancelled are untouched.
func (s *SQLiteStore) MarkContributionsOverdue(ctx context.Context, groupID string, asOf time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contributions SET status = 'overdue'
		 WHERE group_id = ? AND status = 'pending' AND due_date < ?`,
		groupID, asOf.Format(dateLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark contributions overdue: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected, nil
}

// ListContributions retrieves a group's contributions, optionally filtered
// by cycle (0 = all cycles) and status (empty = all statuses).
func (s *SQLiteStore) ListContributions(ctx context.Context, groupID string, cycle int, status models.ContributionStatus) ([]*models.Contribution, error) {
	query := `SELECT id, group_id, user_id, cycle, amount, due_date, paid_date, payment_method, status, created_at
	          FROM contributions WHERE group_id = ?`
	args := []any{groupID}
	if cycle > 0 {
		query += ` AND cycle = ?`
		args = append(args, cycle)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY cycle, due_date, user_id`

	return s.queryContributions(ctx, query, args...)
}

// ListUserContributions retrieves every contribution a user owes across all
// groups, newest due first.
func (s *SQLiteStore) ListUserContributions(ctx context.Context, userID string) ([]*models.Contribution, error) {
	return s.queryContributions(ctx,
		`SELECT id, group_id, user_id, cycle, amount, due_date, paid_date, payment_method, status, created_at
		 FROM contributions WHERE user_id = ? ORDER BY due_date DESC, created_at DESC`,
		userID,
	)
}

// SumPaidContributions returns the total amount and count of paid
// contributions for the cycle.
func (s *SQLiteStore) SumPaidContributions(ctx context.Context, groupID string, cycle int) (float64, int, error) {
	var total float64
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0), COUNT(*)
		 FROM contributions WHERE group_id = ? AND cycle = ? AND status = 'paid'`,
		groupID, cycle,
	).Scan(&total, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum paid contributions: %w", err)
	}
	return total, count, nil
}

func (s *SQLiteStore) queryContributions(ctx context.Context, query string, args ...any) ([]*models.Contribution, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions: %w", err)
	}
	defer rows.Close()

	var contributions []*models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}
	return contributions, nil
}

// scanContribution reads one contribution row through the given scan
// function, shared by QueryRow and Rows paths.
func scanContribution(scan func(dest ...any) error) (*models.Contribution, error) {
	c := &models.Contribution{}
	var dueDate string
	var paidDate, method sql.NullString
	var status string

	err := scan(&c.ID, &c.GroupID, &c.UserID, &c.Cycle, &c.Amount, &dueDate, &paidDate, &method, &status, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.Status = models.ContributionStatus(status)
	c.PaymentMethod = method.String
	if c.DueDate, err = time.Parse(dateLayout, dueDate); err != nil {
		return nil, fmt.Errorf("failed to parse due date: %w", err)
	}
	if paidDate.Valid {
		if c.PaidDate, err = time.Parse(dateLayout, paidDate.String); err != nil {
			return nil, fmt.Errorf("failed to parse paid date: %w", err)
		}
	}
	return c, nil
}
