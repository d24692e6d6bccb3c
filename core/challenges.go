package core

import "time"

// DailyChallengeDefinition is one entry of the static challenge registry.
// ProgressFn is pure over (current progress, event context) and its result
// is clamped to [0, Target] by AccumulateChallengeProgress.
type DailyChallengeDefinition struct {
	ID          ChallengeID
	Title       string
	Description string
	Icon        string
	Target      int
	XPReward    int
	ProgressFn  func(current int, ctx EventContext) int
}

// DailyChallenges is the static registry keyed by id.
var DailyChallenges = map[ChallengeID]DailyChallengeDefinition{
	"perfect_score": {
		ID: "perfect_score", Title: "Perfect Score", Icon: "💯",
		Description: "Get 100% on any lesson",
		Target:      1, XPReward: 75,
		ProgressFn: func(current int, ctx EventContext) int {
			if ctx.PerfectScore {
				return 1
			}
			return current
		},
	},
	"vocab_learner": {
		ID: "vocab_learner", Title: "Word Hunter", Icon: "📚",
		Description: "Learn 10 new vocabulary words",
		Target:      10, XPReward: 50,
		ProgressFn: func(current int, ctx EventContext) int {
			return current + ctx.VocabularyCount
		},
	},
	"speed_run": {
		ID: "speed_run", Title: "Speed Runner", Icon: "⚡",
		Description: "Complete a lesson in under 8 minutes",
		Target:      1, XPReward: 60,
		ProgressFn: func(current int, ctx EventContext) int {
			if ctx.CompletionTime > 0 && ctx.CompletionTime < 480 {
				return 1
			}
			return current
		},
	},
	"double_trouble": {
		ID: "double_trouble", Title: "Double Trouble", Icon: "🎯",
		Description: "Complete 2 lessons today",
		Target:      2, XPReward: 100,
		ProgressFn: func(current int, _ EventContext) int {
			return current + 1
		},
	},
	"early_bird": {
		ID: "early_bird", Title: "Early Bird", Icon: "🐦",
		Description: "Complete a lesson before 10 AM",
		Target:      1, XPReward: 50,
		ProgressFn: func(current int, ctx EventContext) int {
			if ctx.CompletedAt.Hour() < morningCutoffHour {
				return 1
			}
			return current
		},
	},
	"weekend_warrior": {
		ID: "weekend_warrior", Title: "Weekend Warrior", Icon: "🎮",
		Description: "Learn on Saturday or Sunday",
		Target:      1, XPReward: 75,
		ProgressFn: func(current int, ctx EventContext) int {
			wd := ctx.CompletedAt.Weekday()
			if wd == time.Saturday || wd == time.Sunday {
				return 1
			}
			return current
		},
	},
	"grammar_guru": {
		ID: "grammar_guru", Title: "Grammar Guru", Icon: "📝",
		Description: "Get 100% on grammar exercises",
		Target:      1, XPReward: 60,
		ProgressFn: func(current int, ctx EventContext) int {
			if ctx.GrammarPerfect {
				return 1
			}
			return current
		},
	},
}

// morningCutoffHour ends the early_bird window; after it the Friday slot
// falls back to a challenge that is still achievable.
const morningCutoffHour = 10

// weekdayChallenges maps time.Weekday (Sunday = 0) to the scheduled
// challenge. Saturday and Sunday are overridden to weekend_warrior by
// TodaysChallenge regardless of this table.
var weekdayChallenges = [7]ChallengeID{
	"perfect_score",   // Sunday
	"vocab_learner",   // Monday
	"speed_run",       // Tuesday
	"double_trouble",  // Wednesday
	"grammar_guru",    // Thursday
	"early_bird",      // Friday
	"weekend_warrior", // Saturday
}

// earlyBirdFallback replaces early_bird once the morning cutoff has passed.
const earlyBirdFallback ChallengeID = "vocab_learner"

// TodaysChallenge resolves the challenge scheduled for the given moment.
// Weekends always resolve to weekend_warrior. The result can change
// mid-day (early_bird downgrades after the cutoff), so callers must not
// cache it across calls.
func TodaysChallenge(at time.Time) DailyChallengeDefinition {
	wd := at.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return DailyChallenges["weekend_warrior"]
	}
	id := weekdayChallenges[wd]
	if id == "early_bird" && at.Hour() >= morningCutoffHour {
		id = earlyBirdFallback
	}
	return DailyChallenges[id]
}

// ChallengeState is the per-user, day-scoped progress record. It is cheap
// to recompute and safe to discard across days.
type ChallengeState struct {
	Date        string      `json:"date"`
	ChallengeID ChallengeID `json:"challenge_id"`
	Progress    int         `json:"progress"`
	Completed   bool        `json:"completed"`
}

// ChallengeOutcome reports one accumulation step. JustCompleted is true only
// when this call crossed the target; steady-state completion never re-fires
// the reward.
type ChallengeOutcome struct {
	State         ChallengeState           `json:"state"`
	Challenge     DailyChallengeDefinition `json:"-"`
	JustCompleted bool                     `json:"just_completed"`
	XPEarned      int                      `json:"xp_earned"`
}

// AccumulateChallengeProgress folds one completion event into the stored
// challenge state. Stale state (a different day or a different resolved
// challenge) is reset to zero progress before accumulating.
func AccumulateChallengeProgress(state ChallengeState, ctx EventContext) ChallengeOutcome {
	challenge := TodaysChallenge(ctx.CompletedAt)
	today := ctx.Day()

	if state.Date != today || state.ChallengeID != challenge.ID {
		state = ChallengeState{Date: today, ChallengeID: challenge.ID}
	}

	before := state.Progress
	progress := challenge.ProgressFn(before, ctx)
	if progress < 0 {
		progress = 0
	}
	if progress > challenge.Target {
		progress = challenge.Target
	}
	state.Progress = progress
	state.Completed = progress >= challenge.Target

	out := ChallengeOutcome{State: state, Challenge: challenge}
	if state.Completed && before < challenge.Target {
		out.JustCompleted = true
		out.XPEarned = challenge.XPReward
	}
	return out
}
