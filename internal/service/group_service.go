package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mmynk/ajoledger/internal/ledger"
	"github.com/mmynk/ajoledger/internal/metrics"
	"github.com/mmynk/ajoledger/internal/models"
	"github.com/mmynk/ajoledger/internal/storage"
)

// codeAlphabet excludes 0/O and 1/I so codes survive being read aloud or
// handwritten.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const invitationCodeLength = 8

var validate = validator.New()

// generateCode produces a random join code from the unambiguous alphabet.
func generateCode(length int) (string, error) {
	code := make([]byte, length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// CreateGroupInput is the validated payload for creating a group.
type CreateGroupInput struct {
	Name               string  `validate:"required,min=3,max=100"`
	Description        string  `validate:"max=500"`
	ContributionAmount float64 `validate:"required,gt=0"`
	Frequency          string  `validate:"required,oneof=weekly monthly"`
	StartDate          time.Time
	DurationCycles     int    `validate:"required,gte=3,lte=24"`
	MaxMembers         int    `validate:"required,gte=5,lte=10"`
	CreatedBy          string `validate:"required"`
}

// GroupService manages the group lifecycle: creation with its invitation
// code, activation once the rotation is sound, pause/resume and
// cancellation.
type GroupService struct {
	store     storage.Store
	positions *PositionService
}

// NewGroupService creates a new GroupService.
func NewGroupService(store storage.Store, positions *PositionService) *GroupService {
	return &GroupService{store: store, positions: positions}
}

// Create validates the input, generates a unique invitation code and
// persists the group in forming state with its creator enrolled as an
// active admin.
func (s *GroupService) Create(ctx context.Context, input CreateGroupInput) (*models.Group, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ledger.ErrValidation)
	}
	if !input.StartDate.After(time.Now()) {
		return nil, fmt.Errorf("start date must be in the future: %w", ledger.ErrValidation)
	}

	group := &models.Group{
		ID:                 uuid.New().String(),
		Name:               input.Name,
		Description:        input.Description,
		ContributionAmount: input.ContributionAmount,
		Frequency:          models.Frequency(input.Frequency),
		StartDate:          input.StartDate,
		DurationCycles:     input.DurationCycles,
		MaxMembers:         input.MaxMembers,
		Status:             models.GroupForming,
		CreatedBy:          input.CreatedBy,
		CreatedAt:          time.Now().Unix(),
	}

	// Retry on the rare code collision; the store's unique index is the
	// arbiter.
	for attempt := 0; attempt < 5; attempt++ {
		code, err := generateCode(invitationCodeLength)
		if err != nil {
			return nil, err
		}
		group.InvitationCode = code

		err = s.store.CreateGroup(ctx, group)
		if errors.Is(err, ledger.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		member := &models.Member{
			GroupID: group.ID,
			UserID:  input.CreatedBy,
			Role:    models.RoleAdmin,
			Status:  models.MemberActive,
		}
		if err := s.store.AddMember(ctx, member); err != nil {
			// Void the half-created group rather than leave an adminless
			// shell joinable by code.
			if cancelErr := s.store.UpdateGroupStatus(ctx, group.ID, models.GroupCancelled, models.GroupForming); cancelErr != nil {
				slog.Error("failed to cancel group after admin enrollment failure",
					"group_id", group.ID, "error", cancelErr)
			}
			return nil, err
		}

		metrics.GroupsCreated.Inc()
		slog.Info("group created",
			"group_id", group.ID,
			"name", group.Name,
			"frequency", group.Frequency,
			"duration_cycles", group.DurationCycles,
		)
		return group, nil
	}
	return nil, fmt.Errorf("could not generate a unique invitation code: %w", ledger.ErrConflict)
}

// Get retrieves a group by ID.
func (s *GroupService) Get(ctx context.Context, groupID string) (*models.Group, error) {
	return s.store.GetGroup(ctx, groupID)
}

// GetByInvitationCode retrieves a group by its join code.
func (s *GroupService) GetByInvitationCode(ctx context.Context, code string) (*models.Group, error) {
	return s.store.GetGroupByInvitationCode(ctx, code)
}

// Activate moves a forming group to active. The rotation must be sound
// first: every active member holds a position and the positions form a
// dense permutation.
func (s *GroupService) Activate(ctx context.Context, groupID string) error {
	violations, err := s.positions.Validate(ctx, groupID)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return fmt.Errorf("rotation is not sound (%d violations, first: %s): %w",
			len(violations), violations[0], ledger.ErrInvalidState)
	}

	if err := s.store.UpdateGroupStatus(ctx, groupID, models.GroupActive, models.GroupForming); err != nil {
		return err
	}

	slog.Info("group activated", "group_id", groupID)
	return nil
}

// Pause suspends an active group; no cycles open while paused.
func (s *GroupService) Pause(ctx context.Context, groupID string) error {
	return s.store.UpdateGroupStatus(ctx, groupID, models.GroupPaused, models.GroupActive)
}

// Resume reactivates a paused group.
func (s *GroupService) Resume(ctx context.Context, groupID string) error {
	return s.store.UpdateGroupStatus(ctx, groupID, models.GroupActive, models.GroupPaused)
}

// Cancel terminates a group that has not completed. Terminal.
func (s *GroupService) Cancel(ctx context.Context, groupID string) error {
	err := s.store.UpdateGroupStatus(ctx, groupID, models.GroupCancelled,
		models.GroupForming, models.GroupActive, models.GroupPaused)
	if err != nil {
		return err
	}

	slog.Info("group cancelled", "group_id", groupID)
	return nil
}
