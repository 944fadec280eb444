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

// CreateInvitation persists a new invitation.
func (s *SQLiteStore) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.CreatedAt == 0 {
		inv.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invitations (id, code, group_id, inviter_id, invitee_email, status, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Code, inv.GroupID, inv.InviterID, inv.InviteeEmail,
		string(inv.Status), inv.ExpiresAt, inv.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("invitation code %s already in use: %w", inv.Code, ledger.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

// GetInvitationByCode retrieves an invitation by its join code.
func (s *SQLiteStore) GetInvitationByCode(ctx context.Context, code string) (*models.Invitation, error) {
	inv := &models.Invitation{}
	var status string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, group_id, inviter_id, invitee_email, status, expires_at, created_at
		 FROM invitations WHERE code = ?`,
		code,
	).Scan(&inv.ID, &inv.Code, &inv.GroupID, &inv.InviterID, &inv.InviteeEmail, &status, &inv.ExpiresAt, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invitation %s: %w", code, ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	inv.Status = models.InvitationStatus(status)
	return inv, nil
}

// UpdateInvitationStatus transitions a pending invitation. Targets the
// invitation state machine forbids (anything but accepted, declined or
// expired) are rejected before touching the row.
func (s *SQLiteStore) UpdateInvitationStatus(ctx context.Context, invitationID string, to models.InvitationStatus) error {
	if !models.InvitationPending.CanTransitionTo(to) {
		return fmt.Errorf("invitation %s cannot move to %s: %w", invitationID, to, ledger.ErrInvalidTransition)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE invitations SET status = ? WHERE id = ? AND status = 'pending'`,
		string(to), invitationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invitation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM invitations WHERE id = ?`, invitationID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check invitation existence: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("invitation %s: %w", invitationID, ledger.ErrNotFound)
		}
		return fmt.Errorf("invitation %s is no longer pending: %w", invitationID, ledger.ErrInvalidTransition)
	}
	return nil
}

// ExpireInvitations marks every pending invitation past its expiry as
// expired, returning how many rows changed. Idempotent sweep.
func (s *SQLiteStore) ExpireInvitations(ctx context.Context, asOf time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invitations SET status = 'expired' WHERE status = 'pending' AND expires_at < ?`,
		asOf.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire invitations: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected, nil
}
