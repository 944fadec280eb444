package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/mmynk/ajoledger/internal/ledger"
	"github.com/mmynk/ajoledger/internal/models"
	"github.com/mmynk/ajoledger/internal/rotation"
	"github.com/mmynk/ajoledger/internal/storage"
)

// PositionService manages the payout rotation of a group: assigning payment
// positions, repairing gaps after removals, swapping slots and resolving the
// recipient for a cycle. All position math lives in the rotation package;
// this service binds it to the store.
type PositionService struct {
	store storage.Store

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPositionService creates a PositionService seeded from the clock. Tests
// pass a fixed-seed source via NewPositionServiceWithRand.
func NewPositionService(store storage.Store) *PositionService {
	return NewPositionServiceWithRand(store, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewPositionServiceWithRand creates a PositionService with an explicit
// random source.
func NewPositionServiceWithRand(store storage.Store, rng *rand.Rand) *PositionService {
	return &PositionService{store: store, rng: rng}
}

// AssignRandom assigns a uniformly random permutation of 1..N to the group's
// N active members. It refuses to run if any active member already holds a
// position; callers that want a reshuffle clear positions first so a
// half-assigned group is never silently overwritten.
func (s *PositionService) AssignRandom(ctx context.Context, groupID string) (map[string]int, error) {
	members, err := s.store.ListMembers(ctx, groupID, true)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("group %s has no active members: %w", groupID, ledger.ErrInvalidState)
	}

	userIDs := make([]string, 0, len(members))
	for _, m := range members {
		if m.HasPosition() {
			return nil, fmt.Errorf("member %s already holds position %d, clear positions before reassigning: %w",
				m.UserID, m.PaymentPosition, ledger.ErrInvalidState)
		}
		userIDs = append(userIDs, m.UserID)
	}

	s.mu.Lock()
	positions := rotation.Shuffle(userIDs, s.rng)
	s.mu.Unlock()

	if err := s.store.UpdatePositions(ctx, groupID, positions); err != nil {
		return nil, err
	}

	slog.Info("positions assigned", "group_id", groupID, "members", len(positions))
	return positions, nil
}

// AssignMissing fills the group's unassigned slots and packs down members
// left holding positions beyond N, using the lowest unused positions in
// 1..N; in-range assignments are untouched. Used to repair the rotation
// after a member removal, whether the replacement joined unassigned or the
// group simply shrank. Returns only the positions it changed; an empty map
// means there was nothing to repair.
func (s *PositionService) AssignMissing(ctx context.Context, groupID string) (map[string]int, error) {
	members, err := s.store.ListMembers(ctx, groupID, true)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("group %s has no active members: %w", groupID, ledger.ErrInvalidState)
	}

	slots := make([]rotation.Assignment, len(members))
	for i, m := range members {
		slots[i] = rotation.Assignment{UserID: m.UserID, Position: m.PaymentPosition}
	}

	assigned, err := rotation.FillMissing(slots)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ledger.ErrConflict)
	}
	if len(assigned) == 0 {
		return map[string]int{}, nil
	}

	if err := s.store.UpdatePositions(ctx, groupID, assigned); err != nil {
		return nil, err
	}

	slog.Info("missing positions filled", "group_id", groupID, "assigned", len(assigned))
	return assigned, nil
}

// Swap exchanges the payment positions of two members atomically. Both
// members must be active and hold positions.
func (s *PositionService) Swap(ctx context.Context, groupID, userA, userB string) error {
	if userA == userB {
		return fmt.Errorf("cannot swap a member with itself: %w", ledger.ErrValidation)
	}

	a, err := s.store.GetMember(ctx, groupID, userA)
	if err != nil {
		return err
	}
	b, err := s.store.GetMember(ctx, groupID, userB)
	if err != nil {
		return err
	}
	if a.Status != models.MemberActive || b.Status != models.MemberActive {
		return fmt.Errorf("both members must be active to swap: %w", ledger.ErrInvalidState)
	}
	if !a.HasPosition() || !b.HasPosition() {
		return fmt.Errorf("both members must hold positions to swap: %w", ledger.ErrNotFound)
	}

	err = s.store.UpdatePositions(ctx, groupID, map[string]int{
		userA: b.PaymentPosition,
		userB: a.PaymentPosition,
	})
	if err != nil {
		return err
	}

	slog.Info("positions swapped",
		"group_id", groupID,
		"user_a", userA, "position_a", b.PaymentPosition,
		"user_b", userB, "position_b", a.PaymentPosition,
	)
	return nil
}

// Clear unsets every active member's position so the rotation can be
// reassigned from scratch.
func (s *PositionService) Clear(ctx context.Context, groupID string) error {
	return s.store.ClearPositions(ctx, groupID)
}

// Validate checks the group's rotation and returns every violation found:
// active members without positions, duplicates, gaps, out-of-range values,
// and positions still held by members no longer active. An empty result
// means the rotation is sound.
func (s *PositionService) Validate(ctx context.Context, groupID string) ([]rotation.Violation, error) {
	members, err := s.store.ListMembers(ctx, groupID, false)
	if err != nil {
		return nil, err
	}

	var slots []rotation.Assignment
	var violations []rotation.Violation
	for _, m := range members {
		if m.Status == models.MemberActive {
			slots = append(slots, rotation.Assignment{UserID: m.UserID, Position: m.PaymentPosition})
			continue
		}
		if m.HasPosition() {
			violations = append(violations, rotation.Violation{
				Kind:     rotation.ViolationInactiveHolder,
				UserID:   m.UserID,
				Position: m.PaymentPosition,
			})
		}
	}

	violations = append(violations, rotation.Validate(slots)...)
	return violations, nil
}

// NextRecipient resolves the member due to collect for the given cycle:
// the holder of position ((cycle-1) mod N) + 1 among the N active members.
// Deterministic; callers may invoke it for any cycle without side effects.
func (s *PositionService) NextRecipient(ctx context.Context, groupID string, cycle int) (*models.Member, error) {
	if cycle < 1 {
		return nil, fmt.Errorf("cycle must be positive, got %d: %w", cycle, ledger.ErrValidation)
	}

	members, err := s.store.ListMembers(ctx, groupID, true)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("group %s has no active members: %w", groupID, ledger.ErrInvalidState)
	}

	position := rotation.NextPosition(cycle, len(members))
	for _, m := range members {
		if m.PaymentPosition == position {
			return m, nil
		}
	}
	return nil, fmt.Errorf("no active member holds position %d in group %s, run position validation: %w",
		position, groupID, ledger.ErrInvalidState)
}

// Schedule returns the group's active members in payout order. Members
// without positions sort last.
func (s *PositionService) Schedule(ctx context.Context, groupID string) ([]*models.Member, error) {
	return s.store.ListMembers(ctx, groupID, true)
}
