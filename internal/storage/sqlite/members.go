package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/ajoledger/internal/ledger"
	"github.com/mmynk/ajoledger/internal/models"
)

// AddMember inserts a membership after checking group capacity inside the
// group's transaction. The (group_id, user_id) unique constraint rejects a
// duplicate membership even under concurrent inserts.
func (s *SQLiteStore) AddMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.JoinDate == 0 {
		member.JoinDate = time.Now().Unix()
	}

	return s.withGroupTx(ctx, member.GroupID, func(tx *sql.Tx) error {
		var maxMembers, activeCount int
		err := tx.QueryRowContext(ctx,
			`SELECT g.max_members,
			        (SELECT COUNT(*) FROM members WHERE group_id = g.id AND status = 'active')
			 FROM groups g WHERE g.id = ?`,
			member.GroupID,
		).Scan(&maxMembers, &activeCount)
		if err == sql.ErrNoRows {
			return fmt.Errorf("group %s: %w", member.GroupID, ledger.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check group capacity: %w", err)
		}

		if member.Status == models.MemberActive && activeCount >= maxMembers {
			return fmt.Errorf("group %s is full (max %d members): %w", member.GroupID, maxMembers, ledger.ErrInvalidState)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO members (id, group_id, user_id, role, status, payment_position, join_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			member.ID, member.GroupID, member.UserID, string(member.Role),
			string(member.Status), nullPosition(member.PaymentPosition), member.JoinDate,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s is already a member of group %s: %w", member.UserID, member.GroupID, ledger.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
		return nil
	})
}

// GetMember retrieves a membership by group and user.
func (s *SQLiteStore) GetMember(ctx context.Context, groupID, userID string) (*models.Member, error) {
	member := &models.Member{}
	var role, status string
	var position sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, user_id, role, status, payment_position, join_date
		 FROM members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	).Scan(&member.ID, &member.GroupID, &member.UserID, &role, &status, &position, &member.JoinDate)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("member %s in group %s: %w", userID, groupID, ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	member.Role = models.MemberRole(role)
	member.Status = models.MemberStatus(status)
	member.PaymentPosition = int(position.Int64)
	return member, nil
}

// ListMembers retrieves a group's members ordered by payment position, then
// join date (unassigned members last).
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string, activeOnly bool) ([]*models.Member, error) {
	query := `SELECT id, group_id, user_id, role, status, payment_position, join_date
	          FROM members WHERE group_id = ?`
	if activeOnly {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY payment_position IS NULL, payment_position, join_date`

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member := &models.Member{}
		var role, status string
		var position sql.NullInt64
		if err := rows.Scan(&member.ID, &member.GroupID, &member.UserID, &role, &status, &position, &member.JoinDate); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		member.Role = models.MemberRole(role)
		member.Status = models.MemberStatus(status)
		member.PaymentPosition = int(position.Int64)
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// RemoveMember marks the membership removed and clears its payment position
// in one transaction. Removing the last active admin is rejected.
func (s *SQLiteStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	return s.withGroupTx(ctx, groupID, func(tx *sql.Tx) error {
		var role, status string
		err := tx.QueryRowContext(ctx,
			`SELECT role, status FROM members WHERE group_id = ? AND user_id = ?`,
			groupID, userID,
		).Scan(&role, &status)
		if err == sql.ErrNoRows {
			return fmt.Errorf("member %s in group %s: %w", userID, groupID, ledger.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get member: %w", err)
		}
		if models.MemberStatus(status) != models.MemberActive {
			return fmt.Errorf("member %s is not active: %w", userID, ledger.ErrInvalidState)
		}

		if models.MemberRole(role) == models.RoleAdmin {
			var admins int
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM members WHERE group_id = ? AND role = 'admin' AND status = 'active'`,
				groupID,
			).Scan(&admins)
			if err != nil {
				return fmt.Errorf("failed to count admins: %w", err)
			}
			if admins <= 1 {
				return fmt.Errorf("cannot remove the last admin of group %s: %w", groupID, ledger.ErrInvalidState)
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE members SET status = 'removed', payment_position = NULL
			 WHERE group_id = ? AND user_id = ?`,
			groupID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return nil
	})
}

// UpdateMemberRole changes a member's role. Demoting the last active admin
// is rejected.
func (s *SQLiteStore) UpdateMemberRole(ctx context.Context, groupID, userID string, role models.MemberRole) error {
	return s.withGroupTx(ctx, groupID, func(tx *sql.Tx) error {
		var current, status string
		err := tx.QueryRowContext(ctx,
			`SELECT role, status FROM members WHERE group_id = ? AND user_id = ?`,
			groupID, userID,
		).Scan(&current, &status)
		if err == sql.ErrNoRows {
			return fmt.Errorf("member %s in group %s: %w", userID, groupID, ledger.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get member: %w", err)
		}
		if models.MemberStatus(status) != models.MemberActive {
			return fmt.Errorf("member %s is not active: %w", userID, ledger.ErrInvalidState)
		}

		if models.MemberRole(current) == models.RoleAdmin && role == models.RoleMember {
			var admins int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM members WHERE group_id = ? AND role = 'admin' AND status = 'active'`,
				groupID,
			).Scan(&admins); err != nil {
				return fmt.Errorf("failed to count admins: %w", err)
			}
			if admins <= 1 {
				return fmt.Errorf("cannot demote the last admin of group %s: %w", groupID, ledger.ErrInvalidState)
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE members SET role = ? WHERE group_id = ? AND user_id = ?`,
			string(role), groupID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to update member role: %w", err)
		}
		return nil
	})
}

// UpdatePositions writes one payment position per user atomically. The
// positions are cleared first so a permutation rewrite (random assignment,
// swap) never trips the unique index on its own intermediate state; the
// index still rejects any final state with a duplicate.
func (s *SQLiteStore) UpdatePositions(ctx context.Context, groupID string, positions map[string]int) error {
	return s.withGroupTx(ctx, groupID, func(tx *sql.Tx) error {
		for userID := range positions {
			res, err := tx.ExecContext(ctx,
				`UPDATE members SET payment_position = NULL
				 WHERE group_id = ? AND user_id = ? AND status = 'active'`,
				groupID, userID,
			)
			if err != nil {
				return fmt.Errorf("failed to clear position: %w", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			if affected == 0 {
				return fmt.Errorf("active member %s in group %s: %w", userID, groupID, ledger.ErrNotFound)
			}
		}

		for userID, position := range positions {
			_, err := tx.ExecContext(ctx,
				`UPDATE members SET payment_position = ?
				 WHERE group_id = ? AND user_id = ? AND status = 'active'`,
				position, groupID, userID,
			)
			if isUniqueViolation(err) {
				return fmt.Errorf("position %d already held in group %s: %w", position, groupID, ledger.ErrConflict)
			}
			if err != nil {
				return fmt.Errorf("failed to set position: %w", err)
			}
		}
		return nil
	})
}

// ClearPositions unsets every active member's payment position.
func (s *SQLiteStore) ClearPositions(ctx context.Context, groupID string) error {
	return s.withGroupTx(ctx, groupID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE members SET payment_position = NULL WHERE group_id = ? AND status = 'active'`,
			groupID,
		)
		if err != nil {
			return fmt.Errorf("failed to clear positions: %w", err)
		}
		return nil
	})
}

// nullPosition maps an unassigned position (0) to NULL so the partial
// unique index only sees real assignments.
func nullPosition(position int) any {
	if position == 0 {
		return nil
	}
	return position
}
