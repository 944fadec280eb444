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

// CreateDistribution inserts a payout record. For a completed distribution
// the existence check and insert run in one transaction under the group's
// lock, and the partial unique index on (group_id, cycle) backs the check,
// so two concurrent triggers can never both record a payout for the same
// cycle.
func (s *SQLiteStore) CreateDistribution(ctx context.Context, dist *models.Distribution) error {
	if dist.ID == "" {
		dist.ID = uuid.New().String()
	}
	if dist.CreatedAt == 0 {
		dist.CreatedAt = time.Now().Unix()
	}

	return s.withGroupTx(ctx, dist.GroupID, func(tx *sql.Tx) error {
		if dist.Status == models.DistributionCompleted {
			var existing int
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM distributions WHERE group_id = ? AND cycle = ? AND status = 'completed'`,
				dist.GroupID, dist.Cycle,
			).Scan(&existing)
			if err != nil {
				return fmt.Errorf("failed to check existing distribution: %w", err)
			}
			if existing > 0 {
				return fmt.Errorf("cycle %d of group %s already distributed: %w",
					dist.Cycle, dist.GroupID, ledger.ErrDuplicateDistribution)
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO distributions
			 (id, group_id, recipient_id, cycle, amount, expected_amount, distribution_date, status, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			dist.ID, dist.GroupID, dist.RecipientID, dist.Cycle, dist.Amount, dist.ExpectedAmount,
			dist.DistributionDate.Format(dateLayout), string(dist.Status), nullString(dist.Notes), dist.CreatedAt,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("cycle %d of group %s already distributed: %w",
				dist.Cycle, dist.GroupID, ledger.ErrDuplicateDistribution)
		}
		if err != nil {
			return fmt.Errorf("failed to insert distribution: %w", err)
		}
		return nil
	})
}

// GetDistributionByCycle retrieves the completed or most recent
// distribution for a (group, cycle).
func (s *SQLiteStore) GetDistributionByCycle(ctx context.Context, groupID string, cycle int) (*models.Distribution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, recipient_id, cycle, amount, expected_amount, distribution_date, status, notes, created_at
		 FROM distributions WHERE group_id = ? AND cycle = ?
		 ORDER BY status = 'completed' DESC, created_at DESC LIMIT 1`,
		groupID, cycle,
	)
	d, err := scanDistribution(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("distribution for cycle %d of group %s: %w", cycle, groupID, ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get distribution: %w", err)
	}
	return d, nil
}

// UpdateDistributionStatus transitions a distribution if its current status
// is one of allowedFrom. Notes are appended for failure reasons.
func (s *SQLiteStore) UpdateDistributionStatus(ctx context.Context, distributionID string, to models.DistributionStatus, notes string, allowedFrom ...models.DistributionStatus) error {
	placeholders := make([]string, len(allowedFrom))
	args := []any{string(to), nullString(notes)}
	args = append(args, distributionID)
	for i, from := range allowedFrom {
		placeholders[i] = "?"
		args = append(args, string(from))
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE distributions
		 SET status = ?, notes = COALESCE(?, notes)
		 WHERE id = ? AND status IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to update distribution status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM distributions WHERE id = ?`, distributionID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check distribution existence: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("distribution %s: %w", distributionID, ledger.ErrNotFound)
		}
		return fmt.Errorf("distribution %s cannot move to %s: %w", distributionID, to, ledger.ErrInvalidTransition)
	}
	return nil
}

// ListDistributions retrieves a group's distributions, optionally filtered
// by status, newest first.
func (s *SQLiteStore) ListDistributions(ctx context.Context, groupID string, status models.DistributionStatus) ([]*models.Distribution, error) {
	query := `SELECT id, group_id, recipient_id, cycle, amount, expected_amount, distribution_date, status, notes, created_at
	          FROM distributions WHERE group_id = ?`
	args := []any{groupID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY cycle DESC, created_at DESC`

	return s.queryDistributions(ctx, query, args...)
}

// ListUserDistributions retrieves every distribution a user has received
// across all groups, newest first.
func (s *SQLiteStore) ListUserDistributions(ctx context.Context, userID string) ([]*models.Distribution, error) {
	return s.queryDistributions(ctx,
		`SELECT id, group_id, recipient_id, cycle, amount, expected_amount, distribution_date, status, notes, created_at
		 FROM distributions WHERE recipient_id = ? ORDER BY distribution_date DESC, created_at DESC`,
		userID,
	)
}

// CountCompletedDistributions returns how many cycles of the group have a
// completed payout.
func (s *SQLiteStore) CountCompletedDistributions(ctx context.Context, groupID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM distributions WHERE group_id = ? AND status = 'completed'`,
		groupID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count distributions: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) queryDistributions(ctx context.Context, query string, args ...any) ([]*models.Distribution, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query distributions: %w", err)
	}
	defer rows.Close()

	var distributions []*models.Distribution
	for rows.Next() {
		d, err := scanDistribution(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan distribution: %w", err)
		}
		distributions = append(distributions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate distributions: %w", err)
	}
	return distributions, nil
}

func scanDistribution(scan func(dest ...any) error) (*models.Distribution, error) {
	d := &models.Distribution{}
	var distDate, status string
	var notes sql.NullString

	err := scan(&d.ID, &d.GroupID, &d.RecipientID, &d.Cycle, &d.Amount, &d.ExpectedAmount, &distDate, &status, &notes, &d.CreatedAt)
	if err != nil {
		return nil, err
	}

	d.Status = models.DistributionStatus(status)
	d.Notes = notes.String
	if d.DistributionDate, err = time.Parse(dateLayout, distDate); err != nil {
		return nil, fmt.Errorf("failed to parse distribution date: %w", err)
	}
	return d, nil
}
