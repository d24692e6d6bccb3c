package core

// BadgeID names a collectible badge.
type BadgeID string

// BadgeDefinition is one entry of the badge registry. Badges are a pure
// read-model over progress and lesson history: they carry no XP and are
// recomputed on every evaluation rather than persisted.
type BadgeDefinition struct {
	ID          BadgeID `json:"id"`
	Icon        string  `json:"icon"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	// Secret badges stay hidden in listings until earned.
	Secret bool                                       `json:"secret"`
	Check  func(p UserProgress, ls []LessonRecord) bool `json:"-"`
}

// Badge categories.
const (
	BadgeCategoryMilestones = "milestones"
	BadgeCategoryStreaks    = "streaks"
	BadgeCategoryVocab      = "vocab"
	BadgeCategoryTracks     = "tracks"
	BadgeCategoryLevels     = "levels"
	BadgeCategorySpecial    = "special"
)

func lessonCountAtLeast(n int) func(UserProgress, []LessonRecord) bool {
	return func(p UserProgress, _ []LessonRecord) bool { return p.TotalLessons >= n }
}

func streakAtLeast(n int) func(UserProgress, []LessonRecord) bool {
	return func(p UserProgress, _ []LessonRecord) bool { return p.Streak >= n }
}

func vocabAtLeast(n int) func(UserProgress, []LessonRecord) bool {
	return func(_ UserProgress, ls []LessonRecord) bool { return TotalVocab(ls) >= n }
}

func hasTrackLesson(trackID string) func(UserProgress, []LessonRecord) bool {
	return func(_ UserProgress, ls []LessonRecord) bool {
		for _, l := range ls {
			if t, ok := TrackOf(l.Link, l.Level); ok && t.ID == trackID {
				return true
			}
		}
		return false
	}
}

func levelAtLeast(n int) func(UserProgress, []LessonRecord) bool {
	return func(p UserProgress, _ []LessonRecord) bool { return p.Level >= n }
}

func hasUnlocked(id AchievementID) func(UserProgress, []LessonRecord) bool {
	return func(p UserProgress, _ []LessonRecord) bool { return p.HasAchievement(id) }
}

// Badges is the static badge registry, in display order.
var Badges = []BadgeDefinition{
	{ID: "first_lesson", Icon: "🎯", Name: "First Steps", Description: "Complete your very first lesson", Category: BadgeCategoryMilestones, Check: lessonCountAtLeast(1)},
	{ID: "five_lessons", Icon: "🌟", Name: "Getting Warmed Up", Description: "Complete 5 lessons", Category: BadgeCategoryMilestones, Check: lessonCountAtLeast(5)},
	{ID: "ten_lessons", Icon: "🏆", Name: "Dedicated Learner", Description: "Complete 10 lessons", Category: BadgeCategoryMilestones, Check: lessonCountAtLeast(10)},
	{ID: "twenty_lessons", Icon: "💎", Name: "Cool Dude For Real", Description: "Complete 20 lessons", Category: BadgeCategoryMilestones, Check: lessonCountAtLeast(20)},

	{ID: "streak_3", Icon: "🔥", Name: "On Fire", Description: "3-day learning streak", Category: BadgeCategoryStreaks, Check: streakAtLeast(3)},
	{ID: "streak_7", Icon: "🔥🔥", Name: "Week Warrior", Description: "7 days in a row", Category: BadgeCategoryStreaks, Check: streakAtLeast(7)},
	{ID: "streak_30", Icon: "💥", Name: "Unstoppable", Description: "30-day streak", Category: BadgeCategoryStreaks, Secret: true, Check: streakAtLeast(30)},

	{ID: "vocab_25", Icon: "📚", Name: "Word Collector", Description: "Save 25 vocabulary words", Category: BadgeCategoryVocab, Check: vocabAtLeast(25)},
	{ID: "vocab_50", Icon: "🧠", Name: "Vocab Hoarder", Description: "Save 50 vocabulary words", Category: BadgeCategoryVocab, Check: vocabAtLeast(50)},
	{ID: "vocab_100", Icon: "🎓", Name: "Walking Dictionary", Description: "Save 100 vocabulary words", Category: BadgeCategoryVocab, Secret: true, Check: vocabAtLeast(100)},

	{ID: "track_beginner", Icon: "🌱", Name: "Beginner Explorer", Description: "Complete a Beginner lesson", Category: BadgeCategoryTracks, Check: hasTrackLesson("beginner")},
	{ID: "track_intermediate", Icon: "🚀", Name: "Intermediate Adventurer", Description: "Complete an Intermediate lesson", Category: BadgeCategoryTracks, Check: hasTrackLesson("intermediate")},
	{ID: "track_advanced", Icon: "🎯", Name: "Advanced Achiever", Description: "Complete an Advanced lesson", Category: BadgeCategoryTracks, Check: hasTrackLesson("advanced")},
	{ID: "track_business", Icon: "💼", Name: "Business Boss", Description: "Complete a Business English lesson", Category: BadgeCategoryTracks, Check: hasTrackLesson("business")},
	{ID: "track_tax", Icon: "💰", Name: "Tax Terminator", Description: "Complete a Tax English lesson", Category: BadgeCategoryTracks, Check: hasTrackLesson("tax")},
	{ID: "track_legal", Icon: "⚖️", Name: "Legal Eagle", Description: "Complete a Legal English lesson", Category: BadgeCategoryTracks, Check: hasTrackLesson("legal")},

	{ID: "level_3", Icon: "⚡", Name: "Cool Dude", Description: "Reach Level 3", Category: BadgeCategoryLevels, Check: levelAtLeast(3)},
	{ID: "level_5", Icon: "👑", Name: "English Legend", Description: "Reach Level 5", Category: BadgeCategoryLevels, Secret: true, Check: levelAtLeast(5)},

	{ID: "night_owl", Icon: "🦉", Name: "Night Owl", Description: "Complete a lesson between 10 PM and 6 AM", Category: BadgeCategorySpecial, Secret: true, Check: hasUnlocked("night_owl")},
	{ID: "early_bird", Icon: "🐦", Name: "Early Bird", Description: "Complete a lesson before 9 AM", Category: BadgeCategorySpecial, Secret: true, Check: hasUnlocked("early_bird")},
	{ID: "perfectionist", Icon: "💯", Name: "Perfectionist", Description: "Get 100% on any exercise", Category: BadgeCategorySpecial, Check: hasUnlocked("perfect_score")},
}

// TotalVocab sums the saved vocabulary words across lesson records.
func TotalVocab(lessons []LessonRecord) int {
	total := 0
	for _, l := range lessons {
		total += l.VocabCount
	}
	return total
}

// BadgeStatus pairs a badge with whether the user has earned it.
type BadgeStatus struct {
	Badge  BadgeDefinition `json:"badge"`
	Earned bool            `json:"earned"`
}

// EvaluateBadges recomputes every badge for the user. The result is in
// registry order and always covers the full registry so callers can render
// locked slots.
func EvaluateBadges(p UserProgress, lessons []LessonRecord) []BadgeStatus {
	out := make([]BadgeStatus, 0, len(Badges))
	for _, b := range Badges {
		out = append(out, BadgeStatus{Badge: b, Earned: b.Check(p, lessons)})
	}
	return out
}

// EarnedCount tallies earned badges in an evaluation result.
func EarnedCount(statuses []BadgeStatus) int {
	n := 0
	for _, s := range statuses {
		if s.Earned {
			n++
		}
	}
	return n
}
