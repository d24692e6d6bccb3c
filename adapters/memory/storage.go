// Package memory provides a concurrent in-memory Storage implementation,
// used in tests and as the default backend for the demo server.
package memory

import (
	"context"
	"sync"
	"time"

	"lingokit/core"
	"lingokit/engine"
)

type unlockEntry struct {
	ID core.AchievementID
	At time.Time
}

// Store is a concurrent in-memory Storage implementation.
type Store struct {
	users sync.Map // map[core.UserID]*userRecord
}

type userRecord struct {
	mu         sync.Mutex
	profile    core.UserProgress
	hasProfile bool
	lessons    []core.LessonRecord
	unlocks    []unlockEntry
	challenge  core.ChallengeState
}

func New() *Store { return &Store{} }

func (s *Store) getOrCreate(user core.UserID) *userRecord {
	if v, ok := s.users.Load(user); ok {
		return v.(*userRecord)
	}
	actual, _ := s.users.LoadOrStore(user, &userRecord{})
	return actual.(*userRecord)
}

func (s *Store) GetProfile(_ context.Context, user core.UserID) (core.UserProgress, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.hasProfile {
		return core.UserProgress{}, engine.ErrNotFound
	}
	return rec.profile.Clone(), nil
}

func (s *Store) SaveProfile(_ context.Context, p core.UserProgress) error {
	rec := s.getOrCreate(p.UserID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.hasProfile && rec.profile.Version != p.Version {
		return engine.ErrVersionConflict
	}
	stored := p.Clone()
	stored.Version = p.Version + 1
	rec.profile = stored
	rec.hasProfile = true
	return nil
}

func (s *Store) InsertLesson(_ context.Context, user core.UserID, lesson core.LessonRecord) (bool, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, l := range rec.lessons {
		if l.Title == lesson.Title {
			return false, nil
		}
	}
	rec.lessons = append(rec.lessons, lesson)
	return true, nil
}

func (s *Store) Lessons(_ context.Context, user core.UserID) ([]core.LessonRecord, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]core.LessonRecord, len(rec.lessons))
	copy(out, rec.lessons)
	return out, nil
}

func (s *Store) VocabTotal(_ context.Context, user core.UserID) (int, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return core.TotalVocab(rec.lessons), nil
}

func (s *Store) LogUnlock(_ context.Context, user core.UserID, id core.AchievementID, at time.Time) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.unlocks = append(rec.unlocks, unlockEntry{ID: id, At: at})
	return nil
}

// Unlocks returns the achievement unlock log for a user, oldest first.
func (s *Store) Unlocks(user core.UserID) []core.AchievementID {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]core.AchievementID, len(rec.unlocks))
	for i, u := range rec.unlocks {
		out[i] = u.ID
	}
	return out
}

func (s *Store) GetChallengeState(_ context.Context, user core.UserID) (core.ChallengeState, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.challenge, nil
}

func (s *Store) SaveChallengeState(_ context.Context, user core.UserID, st core.ChallengeState) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.challenge = st
	return nil
}

var _ engine.Storage = (*Store)(nil)
