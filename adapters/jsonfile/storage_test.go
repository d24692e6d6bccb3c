package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lingokit/core"
	"lingokit/engine"
)

func TestStorePersistAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	p := core.NewUserProgress("alice")
	p.XP = 655
	p.Level = 2
	p.Streak = 3
	if err := store.SaveProfile(ctx, p); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	if _, err := store.InsertLesson(ctx, "alice", core.LessonRecord{
		LessonID: "emails", Title: "Business Emails", VocabCount: 12,
	}); err != nil {
		t.Fatalf("insert lesson: %v", err)
	}
	if err := store.LogUnlock(ctx, "alice", "first_lesson", time.Now().UTC()); err != nil {
		t.Fatalf("log unlock: %v", err)
	}
	if err := store.SaveChallengeState(ctx, "alice", core.ChallengeState{
		Date: "2024-03-18", ChallengeID: "vocab_learner", Progress: 5,
	}); err != nil {
		t.Fatalf("save challenge: %v", err)
	}

	// ensure file written
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s", path)
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, err := reloaded.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.XP != 655 || got.Level != 2 || got.Streak != 3 || got.Version != 1 {
		t.Fatalf("profile: %+v", got)
	}
	if n, _ := reloaded.VocabTotal(ctx, "alice"); n != 12 {
		t.Fatalf("vocab total %d", n)
	}
	st, _ := reloaded.GetChallengeState(ctx, "alice")
	if st.Progress != 5 || st.ChallengeID != "vocab_learner" {
		t.Fatalf("challenge: %+v", st)
	}
}

func TestStoreVersionConflictSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	p := core.NewUserProgress("alice")
	if err := store.SaveProfile(ctx, p); err != nil {
		t.Fatal(err)
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	stale := p // version 0, store holds 1
	if err := reloaded.SaveProfile(ctx, stale); !errors.Is(err, engine.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestStoreMissingProfile(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetProfile(context.Background(), "ghost"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreLessonDedupe(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if ins, _ := store.InsertLesson(ctx, "alice", core.LessonRecord{Title: "Emails"}); !ins {
		t.Fatal("first insert must write")
	}
	if ins, _ := store.InsertLesson(ctx, "alice", core.LessonRecord{Title: "Emails"}); ins {
		t.Fatal("duplicate title must be skipped")
	}
}
