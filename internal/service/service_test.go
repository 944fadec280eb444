package service

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/ajoledger/internal/models"
	"github.com/mmynk/ajoledger/internal/storage"
	"github.com/mmynk/ajoledger/internal/storage/sqlite"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestPositions(t *testing.T, store storage.Store) *PositionService {
	t.Helper()
	return NewPositionServiceWithRand(store, rand.New(rand.NewSource(1)))
}

var groupSeq int

// seedGroup creates a group with n active members u1..un. When positioned
// is true they hold positions 1..n; u1 is the admin.
func seedGroup(t *testing.T, store storage.Store, n int, status models.GroupStatus, positioned bool) (*models.Group, []string) {
	t.Helper()
	ctx := context.Background()

	groupSeq++
	group := &models.Group{
		Name:               "Market Circle",
		ContributionAmount: 100,
		Frequency:          models.FrequencyWeekly,
		StartDate:          time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		DurationCycles:     5,
		MaxMembers:         10,
		Status:             status,
		CreatedBy:          "u1",
		InvitationCode:     fmt.Sprintf("SEEDCD%02d", groupSeq),
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}

	userIDs := make([]string, n)
	positions := make(map[string]int, n)
	for i := 0; i < n; i++ {
		userID := fmt.Sprintf("u%d", i+1)
		userIDs[i] = userID
		positions[userID] = i + 1

		role := models.RoleMember
		if i == 0 {
			role = models.RoleAdmin
		}
		err := store.AddMember(ctx, &models.Member{
			GroupID: group.ID, UserID: userID, Role: role, Status: models.MemberActive,
		})
		if err != nil {
			t.Fatalf("failed to add member %s: %v", userID, err)
		}
	}

	if positioned && n > 0 {
		if err := store.UpdatePositions(ctx, group.ID, positions); err != nil {
			t.Fatalf("failed to assign positions: %v", err)
		}
	}
	return group, userIDs
}

// payCycle marks the cycle's contributions of the given users paid.
func payCycle(t *testing.T, store storage.Store, contributions *ContributionService, groupID string, cycle int, userIDs ...string) {
	t.Helper()
	ctx := context.Background()

	rows, err := store.ListContributions(ctx, groupID, cycle, "")
	if err != nil {
		t.Fatalf("failed to list contributions: %v", err)
	}
	want := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	for _, c := range rows {
		if !want[c.UserID] {
			continue
		}
		if _, err := contributions.MarkPaid(ctx, c.ID, time.Time{}, "transfer"); err != nil {
			t.Fatalf("failed to mark %s paid: %v", c.UserID, err)
		}
	}
}
