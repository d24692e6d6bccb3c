package core

import "fmt"

// StreakUpdate is the outcome of one streak evaluation.
type StreakUpdate struct {
	NewStreak int `json:"new_streak"`
	BonusXP   int `json:"bonus_xp"`
}

// UpdateStreak applies the streak policy for one completion event. Dates are
// calendar-day strings compared in a single consistent zone; there is no
// partial-day credit.
//
//   - first-ever activity: streak 1, no bonus
//   - already counted today: streak unchanged, no bonus
//   - continued from yesterday: streak+1, bonus min(newStreak*rate, cap)
//   - gap of two or more days: streak resets to 1, no bonus
func UpdateStreak(lastActivityDate, today string, currentStreak int, rw Rewards) (StreakUpdate, error) {
	if currentStreak < 0 {
		return StreakUpdate{}, fmt.Errorf("%w: negative streak %d", ErrInvalidInput, currentStreak)
	}
	todayT, err := ParseDay(today)
	if err != nil {
		return StreakUpdate{}, err
	}
	if lastActivityDate == "" {
		return StreakUpdate{NewStreak: 1}, nil
	}
	lastT, err := ParseDay(lastActivityDate)
	if err != nil {
		return StreakUpdate{}, err
	}
	switch {
	case lastActivityDate == today:
		return StreakUpdate{NewStreak: currentStreak}, nil
	case lastT.AddDate(0, 0, 1).Equal(todayT):
		newStreak := currentStreak + 1
		bonus := newStreak * rw.StreakBonusPerDay
		if bonus > rw.StreakBonusCap {
			bonus = rw.StreakBonusCap
		}
		return StreakUpdate{NewStreak: newStreak, BonusXP: bonus}, nil
	default:
		return StreakUpdate{NewStreak: 1}, nil
	}
}

// StreakEmoji returns the flair shown beside a streak count.
func StreakEmoji(streak int) string {
	switch {
	case streak >= 30:
		return "💎"
	case streak >= 14:
		return "🔥🔥🔥"
	case streak >= 7:
		return "🔥🔥"
	case streak >= 3:
		return "🔥"
	default:
		return "⭐"
	}
}

// StreakMessage returns the encouragement line for a streak count.
func StreakMessage(streak int) string {
	switch {
	case streak >= 30:
		return "Diamond Streak! Legendary!"
	case streak >= 14:
		return "Two weeks strong!"
	case streak >= 7:
		return "One week streak!"
	case streak >= 3:
		return "Building momentum!"
	case streak >= 1:
		return "Day one! Keep it up!"
	default:
		return "Start your streak today!"
	}
}
