package engine

import (
	"context"
	"errors"
	"time"

	"lingokit/core"
)

// ErrNotFound is returned by storage when a profile does not exist.
var ErrNotFound = errors.New("profile not found")

// ErrVersionConflict is returned by SaveProfile when the profile was
// modified since it was read. Callers re-read and retry.
var ErrVersionConflict = errors.New("profile version conflict")

// Storage abstracts persistence for learner state. Implementations must be
// safe for concurrent use.
//
// SaveProfile is a compare-and-swap on UserProgress.Version: the write
// succeeds only when the stored version still equals the incoming one, and
// the stored copy gets Version+1. GetChallengeState returns the zero value
// for users with no state yet.
type Storage interface {
	GetProfile(ctx context.Context, user core.UserID) (core.UserProgress, error)
	SaveProfile(ctx context.Context, p core.UserProgress) error

	// InsertLesson persists a completed lesson, deduplicated per user by
	// lesson title. Reports whether a row was actually written.
	InsertLesson(ctx context.Context, user core.UserID, rec core.LessonRecord) (bool, error)
	Lessons(ctx context.Context, user core.UserID) ([]core.LessonRecord, error)
	// VocabTotal sums saved vocabulary words across the user's lessons.
	VocabTotal(ctx context.Context, user core.UserID) (int, error)

	LogUnlock(ctx context.Context, user core.UserID, id core.AchievementID, at time.Time) error

	GetChallengeState(ctx context.Context, user core.UserID) (core.ChallengeState, error)
	SaveChallengeState(ctx context.Context, user core.UserID, st core.ChallengeState) error
}
