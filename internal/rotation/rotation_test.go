package rotation

import (
	"math/rand"
	"testing"
	"time"
)

func TestShuffleProducesPermutation(t *testing.T) {
	userIDs := []string{"a", "b", "c", "d", "e"}

	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		assigned := Shuffle(userIDs, rng)

		if len(assigned) != len(userIDs) {
			t.Fatalf("seed %d: expected %d assignments, got %d", seed, len(userIDs), len(assigned))
		}

		seen := make(map[int]bool)
		for id, pos := range assigned {
			if pos < 1 || pos > len(userIDs) {
				t.Errorf("seed %d: member %s got out-of-range position %d", seed, id, pos)
			}
			if seen[pos] {
				t.Errorf("seed %d: position %d assigned twice", seed, pos)
			}
			seen[pos] = true
		}
	}
}

func TestShuffleDeterministicForSeed(t *testing.T) {
	userIDs := []string{"a", "b", "c", "d"}

	first := Shuffle(userIDs, rand.New(rand.NewSource(42)))
	second := Shuffle(userIDs, rand.New(rand.NewSource(42)))

	for id, pos := range first {
		if second[id] != pos {
			t.Errorf("member %s: got %d and %d from the same seed", id, pos, second[id])
		}
	}
}

func TestShuffleSingleMember(t *testing.T) {
	assigned := Shuffle([]string{"solo"}, rand.New(rand.NewSource(1)))
	if assigned["solo"] != 1 {
		t.Errorf("expected position 1, got %d", assigned["solo"])
	}
}

func TestFillMissing(t *testing.T) {
	tests := []struct {
		name    string
		slots   []Assignment
		want    map[string]int
		wantErr bool
	}{
		{
			name: "fills gap left by removal",
			slots: []Assignment{
				{UserID: "a", Position: 1},
				{UserID: "b", Position: 3},
				{UserID: "c", Position: 0},
			},
			want: map[string]int{"c": 2},
		},
		{
			name: "all unassigned",
			slots: []Assignment{
				{UserID: "a", Position: 0},
				{UserID: "b", Position: 0},
			},
			want: map[string]int{"a": 1, "b": 2},
		},
		{
			name: "nothing to fill",
			slots: []Assignment{
				{UserID: "a", Position: 2},
				{UserID: "b", Position: 1},
			},
			want: map[string]int{},
		},
		{
			name: "packs out-of-range holder after removal",
			slots: []Assignment{
				{UserID: "a", Position: 1},
				{UserID: "b", Position: 2},
				{UserID: "d", Position: 4},
			},
			want: map[string]int{"d": 3},
		},
		{
			name: "packs several trailing holders",
			slots: []Assignment{
				{UserID: "a", Position: 1},
				{UserID: "b", Position: 4},
				{UserID: "c", Position: 5},
			},
			want: map[string]int{"b": 2, "c": 3},
		},
		{
			name: "duplicate positions rejected",
			slots: []Assignment{
				{UserID: "a", Position: 1},
				{UserID: "b", Position: 1},
				{UserID: "c", Position: 0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assigned, err := FillMissing(tt.slots)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(assigned) != len(tt.want) {
				t.Fatalf("expected %d assignments, got %d", len(tt.want), len(assigned))
			}
			for id, pos := range tt.want {
				if assigned[id] != pos {
					t.Errorf("member %s: expected position %d, got %d", id, pos, assigned[id])
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		slots     []Assignment
		wantKinds []ViolationKind
	}{
		{
			name: "sound permutation",
			slots: []Assignment{
				{UserID: "a", Position: 2},
				{UserID: "b", Position: 1},
				{UserID: "c", Position: 3},
			},
		},
		{
			name: "entirely unassigned reports only missing",
			slots: []Assignment{
				{UserID: "a", Position: 0},
				{UserID: "b", Position: 0},
			},
			wantKinds: []ViolationKind{ViolationMissing, ViolationMissing},
		},
		{
			name: "removal leaves a gap and a trailing holder",
			slots: []Assignment{
				{UserID: "a", Position: 1},
				{UserID: "b", Position: 3},
			},
			wantKinds: []ViolationKind{ViolationOutOfRange, ViolationGap},
		},
		{
			name: "out of range",
			slots: []Assignment{
				{UserID: "a", Position: 1},
				{UserID: "b", Position: 7},
			},
			wantKinds: []ViolationKind{ViolationOutOfRange, ViolationGap},
		},
		{
			name:  "empty group is sound",
			slots: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := Validate(tt.slots)
			if len(violations) != len(tt.wantKinds) {
				t.Fatalf("expected %d violations, got %d: %v", len(tt.wantKinds), len(violations), violations)
			}
			kinds := make(map[ViolationKind]int)
			for _, v := range violations {
				kinds[v.Kind]++
			}
			want := make(map[ViolationKind]int)
			for _, k := range tt.wantKinds {
				want[k]++
			}
			for k, n := range want {
				if kinds[k] != n {
					t.Errorf("expected %d %s violations, got %d", n, k, kinds[k])
				}
			}
		})
	}
}

func TestValidateDuplicate(t *testing.T) {
	violations := Validate([]Assignment{
		{UserID: "a", Position: 1},
		{UserID: "b", Position: 1},
		{UserID: "c", Position: 3},
	})

	var dup, gap bool
	for _, v := range violations {
		switch v.Kind {
		case ViolationDuplicate:
			dup = true
			if v.Position != 1 {
				t.Errorf("expected duplicate at position 1, got %d", v.Position)
			}
		case ViolationGap:
			gap = true
			if v.Position != 2 {
				t.Errorf("expected gap at position 2, got %d", v.Position)
			}
		}
	}
	if !dup || !gap {
		t.Errorf("expected duplicate and gap violations, got %v", violations)
	}
}

func TestNextPosition(t *testing.T) {
	tests := []struct {
		cycle, n, want int
	}{
		{1, 5, 1},
		{5, 5, 5},
		{6, 5, 1},
		{11, 5, 1},
		{7, 3, 1},
		{1, 1, 1},
		{4, 1, 1},
		{0, 5, 0},
		{3, 0, 0},
	}
	for _, tt := range tests {
		if got := NextPosition(tt.cycle, tt.n); got != tt.want {
			t.Errorf("NextPosition(%d, %d) = %d, want %d", tt.cycle, tt.n, got, tt.want)
		}
	}
}

func TestNextPositionPeriodicity(t *testing.T) {
	const n = 7
	for cycle := 1; cycle <= 3*n; cycle++ {
		if NextPosition(cycle, n) != NextPosition(cycle+n, n) {
			t.Errorf("cycle %d: rotation is not periodic with period %d", cycle, n)
		}
	}
}

func TestDueDate(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		freq  Frequency
		cycle int
		want  time.Time
	}{
		{Weekly, 1, start},
		{Weekly, 2, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)},
		{Weekly, 5, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)},
		{Monthly, 1, start},
		{Monthly, 3, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := DueDate(start, tt.freq, tt.cycle); !got.Equal(tt.want) {
			t.Errorf("DueDate(%s, %d) = %s, want %s", tt.freq, tt.cycle, got, tt.want)
		}
	}
}

func TestCurrentCycle(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		asOf time.Time
		want int
	}{
		{start.AddDate(0, 0, -1), 0},
		{start, 1},
		{start.AddDate(0, 0, 6), 1},
		{start.AddDate(0, 0, 7), 2},
		{start.AddDate(0, 0, 20), 3},
	}
	for _, tt := range tests {
		if got := CurrentCycle(start, Weekly, tt.asOf); got != tt.want {
			t.Errorf("CurrentCycle(%s) = %d, want %d", tt.asOf.Format("2006-01-02"), got, tt.want)
		}
	}
}
