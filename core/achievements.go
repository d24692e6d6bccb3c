package core

import "fmt"

// AchievementDefinition is one entry of the static registry. Predicates are
// pure over (projected progress, event context); firing at most once per
// user is enforced by the exclusion check in EvaluateAchievements, never by
// the predicate itself.
type AchievementDefinition struct {
	ID          AchievementID
	Icon        string
	Name        string
	Description string
	XPReward    int
	Predicate   func(p UserProgress, ctx EventContext) bool
}

// Achievements is the static registry, in registration order. Evaluation
// order is this order.
var Achievements = []AchievementDefinition{
	{
		ID: "first_lesson", Icon: "🎯", Name: "First Steps",
		Description: "Complete your first lesson",
		XPReward:    50,
		Predicate:   func(p UserProgress, _ EventContext) bool { return p.TotalLessons >= 1 },
	},
	{
		ID: "perfect_score", Icon: "💯", Name: "Perfectionist",
		Description: "Get 100% on any quiz",
		XPReward:    100,
		Predicate:   func(_ UserProgress, ctx EventContext) bool { return ctx.PerfectScore },
	},
	{
		ID: "speed_demon", Icon: "⚡", Name: "Speed Demon",
		Description: "Complete a lesson in under 5 minutes",
		XPReward:    75,
		Predicate: func(_ UserProgress, ctx EventContext) bool {
			return ctx.CompletionTime > 0 && ctx.CompletionTime < 300
		},
	},
	{
		ID: "week_streak", Icon: "🔥", Name: "Week Warrior",
		Description: "Maintain a 7-day streak",
		XPReward:    100,
		Predicate:   func(p UserProgress, _ EventContext) bool { return p.Streak >= 7 },
	},
	{
		ID: "month_streak", Icon: "💎", Name: "Diamond Streak",
		Description: "Maintain a 30-day streak",
		XPReward:    500,
		Predicate:   func(p UserProgress, _ EventContext) bool { return p.Streak >= 30 },
	},
	{
		ID: "night_owl", Icon: "🦉", Name: "Night Owl",
		Description: "Complete a lesson between 10 PM and 6 AM",
		XPReward:    50,
		// The event's own timestamp, not the evaluation-time clock,
		// decides the window.
		Predicate: func(_ UserProgress, ctx EventContext) bool {
			h := ctx.CompletedAt.Hour()
			return h >= 22 || h < 6
		},
	},
	{
		ID: "early_bird", Icon: "🐦", Name: "Early Bird",
		Description: "Complete a lesson between 6 AM and 9 AM",
		XPReward:    50,
		Predicate: func(_ UserProgress, ctx EventContext) bool {
			h := ctx.CompletedAt.Hour()
			return h >= 6 && h < 9
		},
	},
	{
		ID: "ten_lessons", Icon: "🏆", Name: "Dedicated Learner",
		Description: "Complete 10 lessons",
		XPReward:    200,
		Predicate:   func(p UserProgress, _ EventContext) bool { return p.TotalLessons >= 10 },
	},
	{
		ID: "vocab_collector", Icon: "📚", Name: "Vocab Hoarder",
		Description: "Save 50 vocabulary words",
		XPReward:    150,
		// The running total is the persisted count fetched before this
		// event plus this event's words, so the badge fires on exactly
		// the lesson that crosses the threshold.
		Predicate: func(_ UserProgress, ctx EventContext) bool {
			return ctx.VocabularyBefore+ctx.VocabularyCount >= 50
		},
	},
}

func init() {
	if err := ValidateRegistry(Achievements); err != nil {
		panic(err)
	}
}

// ValidateRegistry checks the static achievement registry once at startup.
func ValidateRegistry(defs []AchievementDefinition) error {
	if len(defs) == 0 {
		return fmt.Errorf("%w: empty achievement registry", ErrInvalidInput)
	}
	seen := make(map[AchievementID]struct{}, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			return fmt.Errorf("%w: achievement with empty id", ErrInvalidInput)
		}
		if _, dup := seen[def.ID]; dup {
			return fmt.Errorf("%w: duplicate achievement id %q", ErrInvalidInput, def.ID)
		}
		seen[def.ID] = struct{}{}
		if def.Predicate == nil {
			return fmt.Errorf("%w: achievement %q has nil predicate", ErrInvalidInput, def.ID)
		}
		if def.XPReward < 0 {
			return fmt.Errorf("%w: achievement %q has negative reward", ErrInvalidInput, def.ID)
		}
	}
	return nil
}

// AchievementByID looks up a registry entry.
func AchievementByID(id AchievementID) (AchievementDefinition, bool) {
	for _, def := range Achievements {
		if def.ID == id {
			return def, true
		}
	}
	return AchievementDefinition{}, false
}

// EvaluateAchievements returns the ids newly unlocked by this event, in
// registration order. Progress is never mutated; ids already present in
// progress.Achievements are skipped, which is what guarantees each
// achievement fires at most once per user.
func EvaluateAchievements(p UserProgress, ctx EventContext) []AchievementID {
	var unlocked []AchievementID
	for _, def := range Achievements {
		if p.HasAchievement(def.ID) {
			continue
		}
		if def.Predicate(p, ctx) {
			unlocked = append(unlocked, def.ID)
		}
	}
	return unlocked
}

// AchievementXP sums the rewards for a set of unlocked ids.
func AchievementXP(ids []AchievementID) int {
	total := 0
	for _, id := range ids {
		if def, ok := AchievementByID(id); ok {
			total += def.XPReward
		}
	}
	return total
}
