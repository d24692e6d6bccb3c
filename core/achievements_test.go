package core

import (
	"testing"
	"time"
)

func midday(day int) time.Time {
	return time.Date(2024, 3, day, 14, 0, 0, 0, time.UTC)
}

func TestEvaluateAchievementsFirstLesson(t *testing.T) {
	p := NewUserProgress("alice")
	p.TotalLessons = 1
	ctx := EventContext{LessonID: "l1", CompletedAt: midday(15), CompletionTime: 600}

	got := EvaluateAchievements(p, ctx)
	if len(got) != 1 || got[0] != "first_lesson" {
		t.Fatalf("got %v", got)
	}
}

func TestEvaluateAchievementsNeverRefires(t *testing.T) {
	p := NewUserProgress("alice")
	p.TotalLessons = 3
	p.Achievements["first_lesson"] = struct{}{}
	ctx := EventContext{LessonID: "l3", CompletedAt: midday(15), CompletionTime: 600}

	for _, id := range EvaluateAchievements(p, ctx) {
		if id == "first_lesson" {
			t.Fatal("already-unlocked achievement fired again")
		}
	}
}

func TestSpeedDemonRequiresKnownTime(t *testing.T) {
	p := NewUserProgress("alice")
	p.Achievements["first_lesson"] = struct{}{}
	p.TotalLessons = 2

	ctx := EventContext{LessonID: "l2", CompletedAt: midday(15), CompletionTime: 0}
	for _, id := range EvaluateAchievements(p, ctx) {
		if id == "speed_demon" {
			t.Fatal("unknown completion time must not count as fast")
		}
	}

	ctx.CompletionTime = 299
	found := false
	for _, id := range EvaluateAchievements(p, ctx) {
		if id == "speed_demon" {
			found = true
		}
	}
	if !found {
		t.Fatal("299s completion must unlock speed_demon")
	}
}

func TestTimeOfDayAchievements(t *testing.T) {
	p := NewUserProgress("alice")
	p.Achievements["first_lesson"] = struct{}{}
	p.TotalLessons = 2

	cases := []struct {
		hour int
		want AchievementID
	}{
		{23, "night_owl"},
		{2, "night_owl"},
		{7, "early_bird"},
	}
	for _, c := range cases {
		ctx := EventContext{
			LessonID:       "l2",
			CompletedAt:    time.Date(2024, 3, 15, c.hour, 30, 0, 0, time.UTC),
			CompletionTime: 600,
		}
		found := false
		for _, id := range EvaluateAchievements(p, ctx) {
			if id == c.want {
				found = true
			}
		}
		if !found {
			t.Fatalf("hour %d must unlock %s", c.hour, c.want)
		}
	}

	// 9 AM sits in neither window
	ctx := EventContext{LessonID: "l2", CompletedAt: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), CompletionTime: 600}
	for _, id := range EvaluateAchievements(p, ctx) {
		if id == "night_owl" || id == "early_bird" {
			t.Fatalf("9 AM unlocked %s", id)
		}
	}
}

func TestVocabCollectorFiresOnCrossing(t *testing.T) {
	p := NewUserProgress("alice")
	p.Achievements["first_lesson"] = struct{}{}
	p.TotalLessons = 5

	ctx := EventContext{
		LessonID:         "l5",
		CompletedAt:      midday(15),
		CompletionTime:   600,
		VocabularyBefore: 48,
		VocabularyCount:  3,
	}
	found := false
	for _, id := range EvaluateAchievements(p, ctx) {
		if id == "vocab_collector" {
			found = true
		}
	}
	if !found {
		t.Fatal("48+3 crosses 50 and must unlock vocab_collector")
	}

	ctx.VocabularyBefore = 45
	for _, id := range EvaluateAchievements(p, ctx) {
		if id == "vocab_collector" {
			t.Fatal("45+3 is below 50 and must not unlock")
		}
	}
}

func TestStreakAchievements(t *testing.T) {
	p := NewUserProgress("alice")
	p.Achievements["first_lesson"] = struct{}{}
	p.TotalLessons = 8
	p.Streak = 30
	ctx := EventContext{LessonID: "l8", CompletedAt: midday(15), CompletionTime: 600}

	got := map[AchievementID]bool{}
	for _, id := range EvaluateAchievements(p, ctx) {
		got[id] = true
	}
	if !got["week_streak"] || !got["month_streak"] {
		t.Fatalf("streak 30 must unlock both streak achievements, got %v", got)
	}
}

func TestAchievementXP(t *testing.T) {
	if xp := AchievementXP([]AchievementID{"first_lesson", "ten_lessons"}); xp != 250 {
		t.Fatalf("xp = %d, want 250", xp)
	}
	if xp := AchievementXP([]AchievementID{"unknown"}); xp != 0 {
		t.Fatalf("unknown id must contribute 0, got %d", xp)
	}
}

func TestValidateRegistry(t *testing.T) {
	if err := ValidateRegistry(Achievements); err != nil {
		t.Fatalf("production registry must validate: %v", err)
	}
	dup := []AchievementDefinition{
		{ID: "a", Predicate: func(UserProgress, EventContext) bool { return false }},
		{ID: "a", Predicate: func(UserProgress, EventContext) bool { return false }},
	}
	if err := ValidateRegistry(dup); err == nil {
		t.Fatal("duplicate ids must fail")
	}
}
