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

// CreateGroup persists a new group. ID and CreatedAt are generated if unset.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, contribution_amount, frequency, start_date,
		                     duration_cycles, max_members, status, created_by, invitation_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, nullString(group.Description), group.ContributionAmount,
		string(group.Frequency), group.StartDate.Format(dateLayout), group.DurationCycles,
		group.MaxMembers, string(group.Status), group.CreatedBy, group.InvitationCode, group.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("invitation code %s already in use: %w", group.InvitationCode, ledger.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return s.getGroupWhere(ctx, "id = ?", groupID)
}

// GetGroupByInvitationCode retrieves a group by its join code.
func (s *SQLiteStore) GetGroupByInvitationCode(ctx context.Context, code string) (*models.Group, error) {
	return s.getGroupWhere(ctx, "invitation_code = ?", code)
}

func (s *SQLiteStore) getGroupWhere(ctx context.Context, where string, arg any) (*models.Group, error) {
	group := &models.Group{}
	var description sql.NullString
	var frequency, status, startDate string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, contribution_amount, frequency, start_date,
		        duration_cycles, max_members, status, created_by, invitation_code, created_at
		 FROM groups WHERE `+where, arg,
	).Scan(&group.ID, &group.Name, &description, &group.ContributionAmount, &frequency,
		&startDate, &group.DurationCycles, &group.MaxMembers, &status,
		&group.CreatedBy, &group.InvitationCode, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %v: %w", arg, ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group.Description = description.String
	group.Frequency = models.Frequency(frequency)
	group.Status = models.GroupStatus(status)
	group.StartDate, err = time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse group start date: %w", err)
	}
	return group, nil
}

// UpdateGroupStatus moves the group to the given status if its current
// status is one of allowedFrom. allowedFrom narrows caller intent; the group
// state machine (GroupStatus.CanTransitionTo) is enforced on top of it, so a
// transition the machine forbids fails even if listed.
func (s *SQLiteStore) UpdateGroupStatus(ctx context.Context, groupID string, to models.GroupStatus, allowedFrom ...models.GroupStatus) error {
	var placeholders []string
	args := []any{string(to), groupID}
	for _, from := range allowedFrom {
		if !from.CanTransitionTo(to) {
			continue
		}
		placeholders = append(placeholders, "?")
		args = append(args, string(from))
	}
	if len(placeholders) == 0 {
		if _, err := s.GetGroup(ctx, groupID); err != nil {
			return err
		}
		return fmt.Errorf("group %s cannot move to %s: %w", groupID, to, ledger.ErrInvalidTransition)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE groups SET status = ? WHERE id = ? AND status IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to update group status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing group from one in the wrong state.
		if _, err := s.GetGroup(ctx, groupID); err != nil {
			return err
		}
		return fmt.Errorf("group %s cannot move to %s: %w", groupID, to, ledger.ErrInvalidTransition)
	}
	return nil
}

// nullString maps an empty string to NULL.
func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
