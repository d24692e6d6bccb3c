package core

// Result is the full outcome of one lesson-completion calculation. XPEarned
// is the sum of every component below; NewXP and NewLevel already include it.
type Result struct {
	BaseXP        int `json:"base_xp"`
	PerfectBonus  int `json:"perfect_bonus"`
	DailyBonus    int `json:"daily_bonus"`
	StreakBonus   int `json:"streak_bonus"`
	AchievementXP int `json:"achievement_xp"`
	XPEarned      int `json:"xp_earned"`

	NewXP     int  `json:"new_xp"`
	NewLevel  int  `json:"new_level"`
	LeveledUp bool `json:"leveled_up"`
	NewStreak int  `json:"new_streak"`

	Unlocked []AchievementID `json:"unlocked,omitempty"`

	// FirstCompletion is false when the lesson id was completed before.
	// Repeats still earn effort XP but never advance lesson counters.
	FirstCompletion bool `json:"first_completion"`
	TotalLessons    int  `json:"total_lessons"`

	// Progress is the updated snapshot the caller should persist.
	Progress UserProgress `json:"progress"`
}

// CompleteLesson folds one completion event into the user's progress. It is
// pure: no clock, no storage, no randomness. Everything it needs arrives in
// its arguments, and the input progress is never mutated.
//
// Order of operations matters and is fixed: activity XP (base, perfect,
// daily, streak) is summed first, the streak and lesson counters are
// projected, achievements are evaluated against that projection, and only
// then is achievement XP folded into the final total and level.
func CompleteLesson(p UserProgress, ctx EventContext, rw Rewards) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if err := ctx.Validate(); err != nil {
		return Result{}, err
	}
	if err := rw.Validate(); err != nil {
		return Result{}, err
	}

	today := ctx.Day()
	next := p.Clone()

	res := Result{BaseXP: rw.LessonComplete}
	if ctx.PerfectScore {
		res.PerfectBonus = rw.PerfectScore
	}
	if p.LastActivityDate != today {
		res.DailyBonus = rw.DailyBonus
	}

	streak, err := UpdateStreak(p.LastActivityDate, today, p.Streak, rw)
	if err != nil {
		return Result{}, err
	}
	res.StreakBonus = streak.BonusXP
	res.NewStreak = streak.NewStreak

	res.FirstCompletion = !p.HasCompleted(ctx.LessonID)
	if res.FirstCompletion {
		next.CompletedLessons[ctx.LessonID] = struct{}{}
		next.TotalLessons++
	}
	res.TotalLessons = next.TotalLessons

	activityXP := res.BaseXP + res.PerfectBonus + res.DailyBonus + res.StreakBonus

	// Achievements see the post-event projection: the new streak and
	// lesson count, but not yet the new XP (no achievement keys off XP).
	next.Streak = streak.NewStreak
	res.Unlocked = EvaluateAchievements(next, ctx)
	res.AchievementXP = AchievementXP(res.Unlocked)
	for _, id := range res.Unlocked {
		next.Achievements[id] = struct{}{}
	}

	res.XPEarned = activityXP + res.AchievementXP
	res.NewXP = p.XP + res.XPEarned
	level, err := ResolveLevel(res.NewXP)
	if err != nil {
		return Result{}, err
	}
	res.NewLevel = level
	res.LeveledUp = level > p.Level

	next.XP = res.NewXP
	next.Level = level
	next.TotalPoints = p.TotalPoints + activityXP
	next.LastActivityDate = today
	next.Updated = ctx.CompletedAt

	res.Progress = next
	return res, nil
}
