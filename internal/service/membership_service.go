package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/ajoledger/internal/ledger"
	"github.com/mmynk/ajoledger/internal/models"
	"github.com/mmynk/ajoledger/internal/rotation"
	"github.com/mmynk/ajoledger/internal/storage"
)

const invitationTTL = 7 * 24 * time.Hour

// MembershipService manages who belongs to a group: joining by code,
// invitations, removal and role changes. Capacity and last-admin rules are
// enforced in the store's transactions; this service adds the lifecycle
// checks around them.
type MembershipService struct {
	store     storage.Store
	positions *PositionService
}

// NewMembershipService creates a new MembershipService.
func NewMembershipService(store storage.Store, positions *PositionService) *MembershipService {
	return &MembershipService{store: store, positions: positions}
}

// Join enrolls a user as an active member via the group's invitation code.
// Only forming groups accept new members; the rotation of an active group
// is already fixed.
func (s *MembershipService) Join(ctx context.Context, code, userID string) (*models.Member, error) {
	group, err := s.store.GetGroupByInvitationCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.addActive(ctx, group, userID, models.RoleMember)
}

// AddMember enrolls a user as an active member of a forming group directly,
// e.g. by an admin acting on their behalf.
func (s *MembershipService) AddMember(ctx context.Context, groupID, userID string, role models.MemberRole) (*models.Member, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.addActive(ctx, group, userID, role)
}

func (s *MembershipService) addActive(ctx context.Context, group *models.Group, userID string, role models.MemberRole) (*models.Member, error) {
	if group.Status != models.GroupForming {
		return nil, fmt.Errorf("group %s is %s, members join only while forming: %w",
			group.ID, group.Status, ledger.ErrInvalidState)
	}

	member := &models.Member{
		GroupID: group.ID,
		UserID:  userID,
		Role:    role,
		Status:  models.MemberActive,
	}
	if err := s.store.AddMember(ctx, member); err != nil {
		return nil, err
	}

	slog.Info("member joined", "group_id", group.ID, "user_id", userID, "role", role)
	return member, nil
}

// Remove marks the membership removed and clears its payment position, then
// revalidates the rotation. The returned violations tell the caller what
// the removal broke (typically a gap to be repaired with AssignMissing);
// the removal itself is already durable when they are returned.
func (s *MembershipService) Remove(ctx context.Context, groupID, userID string) ([]rotation.Violation, error) {
	if err := s.store.RemoveMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	violations, err := s.positions.Validate(ctx, groupID)
	if err != nil {
		return nil, err
	}

	slog.Info("member removed", "group_id", groupID, "user_id", userID, "violations", len(violations))
	return violations, nil
}

// UpdateRole changes a member's role. Demoting the last active admin is
// rejected by the store.
func (s *MembershipService) UpdateRole(ctx context.Context, groupID, userID string, role models.MemberRole) error {
	if role != models.RoleAdmin && role != models.RoleMember {
		return fmt.Errorf("unknown role %q: %w", role, ledger.ErrValidation)
	}
	return s.store.UpdateMemberRole(ctx, groupID, userID, role)
}

// Get retrieves a membership.
func (s *MembershipService) Get(ctx context.Context, groupID, userID string) (*models.Member, error) {
	return s.store.GetMember(ctx, groupID, userID)
}

// List retrieves a group's members in payout order.
func (s *MembershipService) List(ctx context.Context, groupID string, activeOnly bool) ([]*models.Member, error) {
	return s.store.ListMembers(ctx, groupID, activeOnly)
}

// Invite records an invitation into the group sent by an active admin.
// Delivery is external; the ledger tracks the code and its lifecycle.
func (s *MembershipService) Invite(ctx context.Context, groupID, inviterID, inviteeEmail string) (*models.Invitation, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != models.GroupForming {
		return nil, fmt.Errorf("group %s is %s, invitations are sent only while forming: %w",
			groupID, group.Status, ledger.ErrInvalidState)
	}

	inviter, err := s.store.GetMember(ctx, groupID, inviterID)
	if err != nil {
		return nil, err
	}
	if inviter.Role != models.RoleAdmin || inviter.Status != models.MemberActive {
		return nil, fmt.Errorf("only active admins send invitations: %w", ledger.ErrInvalidState)
	}

	code, err := generateCode(invitationCodeLength)
	if err != nil {
		return nil, err
	}

	inv := &models.Invitation{
		Code:         code,
		GroupID:      groupID,
		InviterID:    inviterID,
		InviteeEmail: inviteeEmail,
		Status:       models.InvitationPending,
		ExpiresAt:    time.Now().Add(invitationTTL).Unix(),
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}

	slog.Info("invitation created", "group_id", groupID, "inviter_id", inviterID)
	return inv, nil
}

// AcceptInvitation enrolls the user via a pending, unexpired invitation and
// marks it accepted.
func (s *MembershipService) AcceptInvitation(ctx context.Context, code, userID string) (*models.Member, error) {
	inv, err := s.store.GetInvitationByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvitationPending {
		return nil, fmt.Errorf("invitation is %s: %w", inv.Status, ledger.ErrInvalidState)
	}
	if time.Now().Unix() > inv.ExpiresAt {
		if err := s.store.UpdateInvitationStatus(ctx, inv.ID, models.InvitationExpired); err != nil {
			slog.Error("failed to expire invitation", "invitation_id", inv.ID, "error", err)
		}
		return nil, fmt.Errorf("invitation has expired: %w", ledger.ErrInvalidState)
	}

	group, err := s.store.GetGroup(ctx, inv.GroupID)
	if err != nil {
		return nil, err
	}
	member, err := s.addActive(ctx, group, userID, models.RoleMember)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateInvitationStatus(ctx, inv.ID, models.InvitationAccepted); err != nil {
		slog.Error("failed to mark invitation accepted", "invitation_id", inv.ID, "error", err)
	}
	return member, nil
}

// DeclineInvitation marks a pending invitation declined.
func (s *MembershipService) DeclineInvitation(ctx context.Context, code string) error {
	inv, err := s.store.GetInvitationByCode(ctx, code)
	if err != nil {
		return err
	}
	return s.store.UpdateInvitationStatus(ctx, inv.ID, models.InvitationDeclined)
}

// ExpireInvitations sweeps pending invitations past their expiry.
func (s *MembershipService) ExpireInvitations(ctx context.Context) (int64, error) {
	return s.store.ExpireInvitations(ctx, time.Now())
}
