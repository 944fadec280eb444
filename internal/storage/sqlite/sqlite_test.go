package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/ajoledger/internal/ledger"
	"github.com/mmynk/ajoledger/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var codeSeq int

func createTestGroup(t *testing.T, store *SQLiteStore, maxMembers int) *models.Group {
	t.Helper()

	codeSeq++
	group := &models.Group{
		Name:               "Test Ajo",
		ContributionAmount: 100,
		Frequency:          models.FrequencyWeekly,
		StartDate:          time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		DurationCycles:     5,
		MaxMembers:         maxMembers,
		Status:             models.GroupForming,
		CreatedBy:          "creator",
		InvitationCode:     fmt.Sprintf("TESTCD%02d", codeSeq),
	}
	if err := store.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	return group
}

func addTestMember(t *testing.T, store *SQLiteStore, groupID, userID string, role models.MemberRole) *models.Member {
	t.Helper()

	member := &models.Member{
		GroupID: groupID,
		UserID:  userID,
		Role:    role,
		Status:  models.MemberActive,
	}
	if err := store.AddMember(context.Background(), member); err != nil {
		t.Fatalf("failed to add member %s: %v", userID, err)
	}
	return member
}

func TestGetGroupNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetGroup(context.Background(), "no-such-group")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGroupRoundtrip(t *testing.T) {
	store := newTestStore(t)
	group := createTestGroup(t, store, 5)

	got, err := store.GetGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if got.Name != group.Name || got.ContributionAmount != 100 || got.Status != models.GroupForming {
		t.Errorf("group mismatch: %+v", got)
	}
	if !got.StartDate.Equal(group.StartDate) {
		t.Errorf("start date: expected %s, got %s", group.StartDate, got.StartDate)
	}

	byCode, err := store.GetGroupByInvitationCode(context.Background(), group.InvitationCode)
	if err != nil {
		t.Fatalf("GetGroupByInvitationCode failed: %v", err)
	}
	if byCode.ID != group.ID {
		t.Errorf("expected group %s, got %s", group.ID, byCode.ID)
	}
}

func TestUpdateGroupStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, 5)

	if err := store.UpdateGroupStatus(ctx, group.ID, models.GroupActive, models.GroupForming); err != nil {
		t.Fatalf("forming -> active failed: %v", err)
	}

	// Completed groups cannot reactivate.
	if err := store.UpdateGroupStatus(ctx, group.ID, models.GroupCompleted, models.GroupActive); err != nil {
		t.Fatalf("active -> completed failed: %v", err)
	}
	err := store.UpdateGroupStatus(ctx, group.ID, models.GroupActive, models.GroupForming, models.GroupPaused)
	if !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	err = store.UpdateGroupStatus(ctx, "no-such-group", models.GroupActive, models.GroupForming)
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStatusMachineOverridesCallerIntent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, 5)

	// The row is forming and forming is listed, but the group state machine
	// has no forming -> completed edge, so the update must not go through.
	err := store.UpdateGroupStatus(ctx, group.ID, models.GroupCompleted, models.GroupForming)
	if !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Errorf("forming -> completed: expected ErrInvalidTransition, got %v", err)
	}
	got, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if got.Status != models.GroupForming {
		t.Errorf("expected group untouched, got %s", got.Status)
	}

	contributions := []*models.Contribution{{
		GroupID: group.ID, UserID: "u1", Cycle: 1, Amount: 100,
		DueDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Status:  models.ContributionPending,
	}}
	if _, err := store.CreateContributionsIfAbsent(ctx, contributions); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	id := contributions[0].ID
	paidDate := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	if err := store.UpdateContributionStatus(ctx, id, models.ContributionPaid, paidDate, "cash", models.ContributionPending); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	// Listing paid as a source does not make paid -> overdue legal.
	err = store.UpdateContributionStatus(ctx, id, models.ContributionOverdue, time.Time{}, "", models.ContributionPaid)
	if !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Errorf("paid -> overdue: expected ErrInvalidTransition, got %v", err)
	}

	inv := &models.Invitation{
		Code: "JOINCD33", GroupID: group.ID, InviterID: "admin",
		InviteeEmail: "friend@example.com", Status: models.InvitationPending,
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
	if err := store.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("CreateInvitation failed: %v", err)
	}
	err = store.UpdateInvitationStatus(ctx, inv.ID, models.InvitationPending)
	if !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Errorf("pending -> pending: expected ErrInvalidTransition, got %v", err)
	}
}

func TestAddMemberCapacityAndDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, 3)

	addTestMember(t, store, group.ID, "u1", models.RoleAdmin)
	addTestMember(t, store, group.ID, "u2", models.RoleMember)

	err := store.AddMember(ctx, &models.Member{
		GroupID: group.ID, UserID: "u1", Role: models.RoleMember, Status: models.MemberActive,
	})
	if !errors.Is(err, ledger.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate membership, got %v", err)
	}

	addTestMember(t, store, group.ID, "u3", models.RoleMember)
	err = store.AddMember(ctx, &models.Member{
		GroupID: group.ID, UserID: "u4", Role: models.RoleMember, Status: models.MemberActive,
	})
	if !errors.Is(err, ledger.ErrInvalidState) {
		t.Errorf("expected capacity error, got %v", err)
	}
}

func TestUpdatePositions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, 5)
	addTestMember(t, store, group.ID, "u1", models.RoleAdmin)
	addTestMember(t, store, group.ID, "u2", models.RoleMember)
	addTestMember(t, store, group.ID, "u3", models.RoleMember)

	err := store.UpdatePositions(ctx, group.ID, map[string]int{"u1": 1, "u2": 2, "u3": 3})
	if err != nil {
		t.Fatalf("UpdatePositions failed: %v", err)
	}

	// Full permutation rewrite must not trip the unique index mid-write.
	err = store.UpdatePositions(ctx, group.ID, map[string]int{"u1": 2, "u2": 1})
	if err != nil {
		t.Fatalf("swap rewrite failed: %v", err)
	}

	m, err := store.GetMember(ctx, group.ID, "u1")
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if m.PaymentPosition != 2 {
		t.Errorf("expected u1 at position 2, got %d", m.PaymentPosition)
	}

	err = store.UpdatePositions(ctx, group.ID, map[string]int{"u1": 1, "u2": 1})
	if !errors.Is(err, ledger.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate position, got %v", err)
	}

	err = store.UpdatePositions(ctx, group.ID, map[string]int{"ghost": 1})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown member, got %v", err)
	}
}

func TestRemoveMemberClearsPosition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, 5)
	addTestMember(t, store, group.ID, "admin", models.RoleAdmin)
	addTestMember(t, store, group.ID, "u2", models.RoleMember)

	if err := store.UpdatePositions(ctx, group.ID, map[string]int{"admin": 1, "u2": 2}); err != nil {
		t.Fatalf("UpdatePositions failed: %v", err)
	}

	if err := store.RemoveMember(ctx, group.ID, "u2"); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}

	m, err := store.GetMember(ctx, group.ID, "u2")
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if m.Status != models.MemberRemoved {
		t.Errorf("expected removed status, got %s", m.Status)
	}
	if m.HasPosition() {
		t.Errorf("expected position cleared, got %d", m.PaymentPosition)
	}

	// The freed position is reusable by the remaining members.
	if err := store.UpdatePositions(ctx, group.ID, map[string]int{"admin": 2}); err != nil {
		t.Errorf("reusing freed position failed: %v", err)
	}
}

func TestRemoveLastAdmin(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, 5)
	addTestMember(t, store, group.ID, "admin", models.RoleAdmin)
	addTestMember(t, store, group.ID, "u2", models.RoleMember)

	err := store.RemoveMember(ctx, group.ID, "admin")
	if !errors.Is(err, ledger.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState removing last admin, got %v", err)
	}

	err = store.UpdateMemberRole(ctx, group.ID, "admin", models.RoleMember)
	if !errors.Is(err, ledger.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState demoting last admin, got %v", err)
	}

	// With a second admin, removal is allowed.
	if err := store.UpdateMemberRole(ctx, group.ID, "u2", models.RoleAdmin); err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	if err := store.RemoveMember(ctx, group.ID, "admin"); err != nil {
		t.Errorf("removing non-last admin failed: %v", err)
	}
}

func TestCreateContributionsIfAbsent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, 5)

	due := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	batch := func() []*models.Contribution {
		var out []*models.Contribution
		for _, u := range []string{"u1", "u2", "u3"} {
			out = append(out, &models.Contribution{
				GroupID: group.ID, UserID: u, Cycle: 1, Amount: 100,
				DueDate: due, Status: models.ContributionPending,
			})
		}
		return out
	}

	created, err := store.CreateContributionsIfAbsent(ctx, batch())
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if created != 3 {
		t.Errorf("expected 3 created, got %d", created)
	}

	created, err = store.CreateContributionsIfAbsent(ctx, batch())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if created != 0 {
		t.Errorf("expected idempotent retry to create 0, got %d", created)
	}
}

func TestContributionStatusMachine(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, 5)

	contributions := []*models.Contribution{{
		GroupID: group.ID, UserID: "u1", Cycle: 1, Amount: 100,
		DueDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Status:  models.ContributionPending,
	}}
	if _, err := store.CreateContributionsIfAbsent(ctx, contributions); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	id := contributions[0].ID

	paidDate := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	err := store.UpdateContributionStatus(ctx, id, models.ContributionPaid, paidDate, "transfer",
		models.ContributionPending, models.ContributionOverdue)
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	got, err := store.GetContribution(ctx, id)
	if err != nil {
		t.Fatalf("GetContribution failed: %v", err)
	}
	if got.Status != models.ContributionPaid || !got.PaidDate.Equal(paidDate) || got.PaymentMethod != "transfer" {
		t.Errorf("paid contribution mismatch: %+v", got)
	}

	// Paid is terminal.
	err = store.UpdateContributionStatus(ctx, id, models.ContributionOverdue, time.Time{}, "",
		models.ContributionPending)
	if !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	err = store.UpdateContributionStatus(ctx, "no-such-id", models.ContributionPaid, paidDate, "",
		models.ContributionPending)
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkContributionsOverdue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, 5)

	due := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	contributions := []*models.Contribution{
		{GroupID: group.ID, UserID: "u1", Cycle: 1, Amount: 100, DueDate: due, Status: models.ContributionPending},
		{GroupID: group.ID, UserID: "u2", Cycle: 1, Amount: 100, DueDate: due, Status: models.ContributionPending},
	}
	if _, err := store.CreateContributionsIfAbsent(ctx, contributions); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// u1 pays before the sweep.
	err := store.UpdateContributionStatus(ctx, contributions[0].ID, models.ContributionPaid,
		due, "cash", models.ContributionPending)
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	swept, err := store.MarkContributionsOverdue(ctx, group.ID, due.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if swept != 1 {
		t.Errorf("expected 1 swept, got %d", swept)
	}

	// The paid contribution is untouched and the sweep is idempotent.
	got, _ := store.GetContribution(ctx, contributions[0].ID)
	if got.Status != models.ContributionPaid {
		t.Errorf("sweep reverted a paid contribution to %s", got.Status)
	}
	swept, err = store.MarkContributionsOverdue(ctx, group.ID, due.AddDate(0, 0, 1))
	if err != nil || swept != 0 {
		t.Errorf("expected idempotent sweep (0, nil), got (%d, %v)", swept, err)
	}
}

func TestCreateDistributionDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, 5)

	dist := &models.Distribution{
		GroupID: group.ID, RecipientID: "u1", Cycle: 1,
		Amount: 500, ExpectedAmount: 500,
		DistributionDate: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
		Status:           models.DistributionCompleted,
	}
	if err := store.CreateDistribution(ctx, dist); err != nil {
		t.Fatalf("first distribution failed: %v", err)
	}

	second := &models.Distribution{
		GroupID: group.ID, RecipientID: "u2", Cycle: 1,
		Amount: 500, ExpectedAmount: 500,
		DistributionDate: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
		Status:           models.DistributionCompleted,
	}
	err := store.CreateDistribution(ctx, second)
	if !errors.Is(err, ledger.ErrDuplicateDistribution) {
		t.Errorf("expected ErrDuplicateDistribution, got %v", err)
	}

	// A different cycle is fine.
	second.Cycle = 2
	if err := store.CreateDistribution(ctx, second); err != nil {
		t.Errorf("distribution for cycle 2 failed: %v", err)
	}

	count, err := store.CountCompletedDistributions(ctx, group.ID)
	if err != nil || count != 2 {
		t.Errorf("expected 2 completed distributions, got (%d, %v)", count, err)
	}
}

func TestInvitationLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, 5)

	inv := &models.Invitation{
		Code: "JOINCD22", GroupID: group.ID, InviterID: "admin",
		InviteeEmail: "friend@example.com", Status: models.InvitationPending,
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}
	if err := store.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("CreateInvitation failed: %v", err)
	}

	swept, err := store.ExpireInvitations(ctx, time.Now())
	if err != nil || swept != 1 {
		t.Fatalf("expected 1 expired, got (%d, %v)", swept, err)
	}

	err = store.UpdateInvitationStatus(ctx, inv.ID, models.InvitationAccepted)
	if !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on expired invitation, got %v", err)
	}
}

func TestGroupSummaryNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GroupSummary(context.Background(), "no-such-group")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserNotFoundVsCreate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetUserByEmail(ctx, "nobody@example.com")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	user := models.NewUser("a@example.com", "Ada", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	dup := models.NewUser("a@example.com", "Imposter", "hash2")
	if err := store.CreateUser(ctx, dup); !errors.Is(err, ledger.ErrConflict) {
		t.Errorf("expected ErrConflict on duplicate email, got %v", err)
	}
}
