package core

import "fmt"

// UnboundedXP marks the open upper range of the final level.
const UnboundedXP = -1

// LevelDefinition is one row of the static level table.
type LevelDefinition struct {
	Level int    `json:"level"`
	Name  string `json:"name"`
	MinXP int    `json:"min_xp"`
	// MaxXP is inclusive; UnboundedXP on the last level.
	MaxXP int `json:"max_xp"`
}

// Levels is the static level table, ordered ascending by MinXP. Ranges are
// contiguous and total over [0, ∞).
var Levels = []LevelDefinition{
	{Level: 1, Name: "Beginner", MinXP: 0, MaxXP: 499},
	{Level: 2, Name: "Learner", MinXP: 500, MaxXP: 1499},
	{Level: 3, Name: "Cool Dude", MinXP: 1500, MaxXP: 2999},
	{Level: 4, Name: "Expert", MinXP: 3000, MaxXP: 4999},
	{Level: 5, Name: "Legend", MinXP: 5000, MaxXP: 9999},
	{Level: 6, Name: "Master", MinXP: 10000, MaxXP: UnboundedXP},
}

func init() {
	if err := ValidateLevelTable(Levels); err != nil {
		panic(err)
	}
}

// ValidateLevelTable checks the static table once at startup. A failure is a
// programming error, not a runtime condition.
func ValidateLevelTable(table []LevelDefinition) error {
	if len(table) == 0 {
		return fmt.Errorf("%w: empty level table", ErrInvalidInput)
	}
	if table[0].MinXP != 0 {
		return fmt.Errorf("%w: level table must start at 0 xp", ErrInvalidInput)
	}
	for i, def := range table {
		if def.Level != i+1 {
			return fmt.Errorf("%w: level %d out of order", ErrInvalidInput, def.Level)
		}
		last := i == len(table)-1
		if last {
			if def.MaxXP != UnboundedXP {
				return fmt.Errorf("%w: final level must be unbounded", ErrInvalidInput)
			}
			continue
		}
		if def.MaxXP < def.MinXP {
			return fmt.Errorf("%w: level %d has inverted range", ErrInvalidInput, def.Level)
		}
		if table[i+1].MinXP != def.MaxXP+1 {
			return fmt.Errorf("%w: gap between level %d and %d", ErrInvalidInput, def.Level, def.Level+1)
		}
	}
	return nil
}

// ResolveLevel returns the level for the given XP: the highest level whose
// MinXP is at or below xp. Total over all non-negative xp.
func ResolveLevel(xp int) (int, error) {
	if xp < 0 {
		return 0, fmt.Errorf("%w: negative xp %d", ErrInvalidInput, xp)
	}
	for i := len(Levels) - 1; i >= 0; i-- {
		if xp >= Levels[i].MinXP {
			return Levels[i].Level, nil
		}
	}
	// unreachable: level 1 starts at 0
	return Levels[0].Level, nil
}

// LevelInfo returns the definition for a level, falling back to the lowest.
func LevelInfo(level int) LevelDefinition {
	for _, def := range Levels {
		if def.Level == level {
			return def
		}
	}
	return Levels[0]
}

// MaxLevel is the highest defined level.
func MaxLevel() int { return Levels[len(Levels)-1].Level }

// LevelProgress describes how far into the current level an XP total sits.
type LevelProgress struct {
	Percent        int `json:"percent"`
	CurrentInLevel int `json:"current_in_level"`
	NeededForLevel int `json:"needed_for_level"`
	// RemainingToNext is absent (nil) at the max level.
	RemainingToNext *int `json:"remaining_to_next,omitempty"`
}

// ProgressToNextLevel computes the progress bar for an XP total. At the max
// level percent is pinned to 100 and RemainingToNext is absent.
func ProgressToNextLevel(xp int) (LevelProgress, error) {
	level, err := ResolveLevel(xp)
	if err != nil {
		return LevelProgress{}, err
	}
	cur := LevelInfo(level)
	if level == MaxLevel() {
		return LevelProgress{
			Percent:        100,
			CurrentInLevel: xp - cur.MinXP,
		}, nil
	}
	next := LevelInfo(level + 1)
	currentIn := xp - cur.MinXP
	needed := next.MinXP - cur.MinXP
	percent := 100 * currentIn / needed
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	remaining := next.MinXP - xp
	return LevelProgress{
		Percent:         percent,
		CurrentInLevel:  currentIn,
		NeededForLevel:  needed,
		RemainingToNext: &remaining,
	}, nil
}
