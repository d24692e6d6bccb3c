package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"lingokit/core"
	"lingokit/engine"
)

func TestProfileRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetProfile(ctx, "alice"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	p := core.NewUserProgress("alice")
	p.XP = 100
	if err := s.SaveProfile(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.XP != 100 || got.Version != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestSaveProfileVersionConflict(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := core.NewUserProgress("alice")
	if err := s.SaveProfile(ctx, p); err != nil {
		t.Fatal(err)
	}

	stale := p // still version 0
	stale.XP = 50
	if err := s.SaveProfile(ctx, stale); !errors.Is(err, engine.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	fresh, _ := s.GetProfile(ctx, "alice")
	fresh.XP = 50
	if err := s.SaveProfile(ctx, fresh); err != nil {
		t.Fatal(err)
	}
}

func TestLessonsDedupeByTitle(t *testing.T) {
	s := New()
	ctx := context.Background()

	ins, err := s.InsertLesson(ctx, "alice", core.LessonRecord{LessonID: "l1", Title: "Emails", VocabCount: 8})
	if err != nil || !ins {
		t.Fatalf("got %v %v", ins, err)
	}
	ins, err = s.InsertLesson(ctx, "alice", core.LessonRecord{LessonID: "l1-again", Title: "Emails", VocabCount: 8})
	if err != nil || ins {
		t.Fatalf("duplicate title must be skipped, got %v %v", ins, err)
	}

	ls, _ := s.Lessons(ctx, "alice")
	if len(ls) != 1 {
		t.Fatalf("got %d lessons", len(ls))
	}
	if n, _ := s.VocabTotal(ctx, "alice"); n != 8 {
		t.Fatalf("vocab total %d", n)
	}
}

func TestChallengeStateAndUnlocks(t *testing.T) {
	s := New()
	ctx := context.Background()

	st, err := s.GetChallengeState(ctx, "alice")
	if err != nil || st.Date != "" {
		t.Fatalf("fresh state must be zero, got %+v %v", st, err)
	}

	st = core.ChallengeState{Date: "2024-03-18", ChallengeID: "vocab_learner", Progress: 4}
	if err := s.SaveChallengeState(ctx, "alice", st); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetChallengeState(ctx, "alice")
	if got != st {
		t.Fatalf("got %+v", got)
	}

	if err := s.LogUnlock(ctx, "alice", "first_lesson", time.Now()); err != nil {
		t.Fatal(err)
	}
	if ids := s.Unlocks("alice"); len(ids) != 1 || ids[0] != "first_lesson" {
		t.Fatalf("got %v", ids)
	}
}
