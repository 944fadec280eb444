// Package rotation holds the pure scheduling math for Ajo groups: payout
// permutation generation and validation, next-recipient derivation, and
// cycle date arithmetic. Nothing here touches storage or mutates state, so
// every function can be tested exhaustively in isolation.
package rotation

import (
	"fmt"
	"math/rand"
	"sort"
)

// Assignment is one member's slot in the payout order. Position 0 means
// unassigned.
type Assignment struct {
	UserID   string
	Position int
}

// ViolationKind classifies a position invariant breach.
type ViolationKind string

const (
	ViolationMissing    ViolationKind = "missing_position"
	ViolationDuplicate  ViolationKind = "duplicate_position"
	ViolationGap        ViolationKind = "gap"
	ViolationOutOfRange ViolationKind = "out_of_range"
	// ViolationInactiveHolder marks a position held by a member who is no
	// longer active; the scheduler reports it, the store's removal path
	// prevents it.
	ViolationInactiveHolder ViolationKind = "inactive_holder"
)

// Violation describes one breach of the dense-permutation invariant.
type Violation struct {
	Kind     ViolationKind
	UserID   string
	Position int
}

func (v Violation) String() string {
	switch v.Kind {
	case ViolationMissing:
		return fmt.Sprintf("member %s has no position", v.UserID)
	case ViolationDuplicate:
		return fmt.Sprintf("position %d held by more than one member", v.Position)
	case ViolationGap:
		return fmt.Sprintf("position %d is unheld", v.Position)
	default:
		return fmt.Sprintf("member %s holds out-of-range position %d", v.UserID, v.Position)
	}
}

// Shuffle produces a uniformly random permutation of 1..len(userIDs) keyed
// by user ID. The rng is injected so tests can fix the seed.
func Shuffle(userIDs []string, rng *rand.Rand) map[string]int {
	positions := make([]int, len(userIDs))
	for i := range positions {
		positions[i] = i + 1
	}
	rng.Shuffle(len(positions), func(i, j int) {
		positions[i], positions[j] = positions[j], positions[i]
	})

	assigned := make(map[string]int, len(userIDs))
	for i, id := range userIDs {
		assigned[id] = positions[i]
	}
	return assigned
}

// FillMissing computes positions for the members whose slot is unassigned or
// outside 1..N, using the lowest unused integers. In-range assignments are
// kept. A member left holding a position beyond N after the rotation shrank
// is packed down into a free slot, so removing a mid-rotation member stays
// repairable. Returns an error if the in-range assignments already contain a
// duplicate, since filling around a duplicate would only mask it.
func FillMissing(slots []Assignment) (map[string]int, error) {
	n := len(slots)
	taken := make(map[int]string, n)
	var reassign []string

	for _, s := range slots {
		if s.Position < 1 || s.Position > n {
			reassign = append(reassign, s.UserID)
			continue
		}
		if holder, dup := taken[s.Position]; dup {
			return nil, fmt.Errorf("position %d held by both %s and %s", s.Position, holder, s.UserID)
		}
		taken[s.Position] = s.UserID
	}

	assigned := make(map[string]int, len(reassign))
	next := 1
	for _, id := range reassign {
		for taken[next] != "" {
			next++
		}
		if next > n {
			return nil, fmt.Errorf("no free position in 1..%d for member %s", n, id)
		}
		taken[next] = id
		assigned[id] = next
	}
	return assigned, nil
}

// Validate checks that the slots form a dense permutation of 1..N and
// returns every violation found. An empty result means the rotation is
// sound. Slots must contain exactly the active members of the group.
func Validate(slots []Assignment) []Violation {
	n := len(slots)
	var violations []Violation
	holders := make(map[int][]string, n)

	for _, s := range slots {
		if s.Position == 0 {
			violations = append(violations, Violation{Kind: ViolationMissing, UserID: s.UserID})
			continue
		}
		if s.Position < 1 || s.Position > n {
			violations = append(violations, Violation{Kind: ViolationOutOfRange, UserID: s.UserID, Position: s.Position})
			continue
		}
		holders[s.Position] = append(holders[s.Position], s.UserID)
	}

	var duplicates, gaps []int
	for pos := 1; pos <= n; pos++ {
		switch len(holders[pos]) {
		case 0:
			gaps = append(gaps, pos)
		case 1:
		default:
			duplicates = append(duplicates, pos)
		}
	}
	sort.Ints(duplicates)
	for _, pos := range duplicates {
		violations = append(violations, Violation{Kind: ViolationDuplicate, Position: pos})
	}
	// A gap is only reportable when some member actually holds a position;
	// an entirely unassigned group is all missing-position violations.
	if len(holders) > 0 {
		sort.Ints(gaps)
		for _, pos := range gaps {
			violations = append(violations, Violation{Kind: ViolationGap, Position: pos})
		}
	}
	return violations
}

// NextPosition returns the payment position due for the given 1-based cycle
// in a group of n active members: ((cycle-1) mod n) + 1. Periodic with
// period n.
func NextPosition(cycle, n int) int {
	if n <= 0 || cycle <= 0 {
		return 0
	}
	return (cycle-1)%n + 1
}
