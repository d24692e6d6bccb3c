package core

import (
	"errors"
	"testing"
)

func TestResolveLevelBoundaries(t *testing.T) {
	cases := []struct {
		xp   int
		want int
	}{
		{0, 1}, {499, 1}, {500, 2}, {1499, 2}, {1500, 3},
		{2999, 3}, {3000, 4}, {4999, 4}, {5000, 5}, {9999, 5},
		{10000, 6}, {1_000_000, 6},
	}
	for _, c := range cases {
		got, err := ResolveLevel(c.xp)
		if err != nil || got != c.want {
			t.Fatalf("ResolveLevel(%d) = %d, %v; want %d", c.xp, got, err, c.want)
		}
	}
}

func TestResolveLevelNegative(t *testing.T) {
	if _, err := ResolveLevel(-1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestResolveLevelMonotonic(t *testing.T) {
	prev := 0
	for xp := 0; xp <= 12_000; xp += 7 {
		lvl, err := ResolveLevel(xp)
		if err != nil {
			t.Fatalf("xp %d: %v", xp, err)
		}
		if lvl < prev {
			t.Fatalf("level decreased at xp %d: %d -> %d", xp, prev, lvl)
		}
		prev = lvl
	}
}

func TestValidateLevelTable(t *testing.T) {
	if err := ValidateLevelTable(Levels); err != nil {
		t.Fatalf("production table must validate: %v", err)
	}
	bad := []LevelDefinition{
		{Level: 1, Name: "A", MinXP: 0, MaxXP: 99},
		{Level: 2, Name: "B", MinXP: 200, MaxXP: UnboundedXP},
	}
	if err := ValidateLevelTable(bad); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("gap must fail, got %v", err)
	}
	if err := ValidateLevelTable(nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty table must fail, got %v", err)
	}
}

func TestProgressToNextLevel(t *testing.T) {
	p, err := ProgressToNextLevel(450)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.Percent != 90 || p.CurrentInLevel != 450 || p.NeededForLevel != 500 {
		t.Fatalf("got %+v", p)
	}
	if p.RemainingToNext == nil || *p.RemainingToNext != 50 {
		t.Fatalf("remaining = %v", p.RemainingToNext)
	}

	// floor, never round up
	p, _ = ProgressToNextLevel(999)
	if p.Percent != 49 {
		t.Fatalf("percent = %d, want 49", p.Percent)
	}
}

func TestProgressToNextLevelAtMax(t *testing.T) {
	p, err := ProgressToNextLevel(25_000)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.Percent != 100 {
		t.Fatalf("percent = %d, want 100", p.Percent)
	}
	if p.RemainingToNext != nil {
		t.Fatal("remaining must be absent at max level")
	}
}
