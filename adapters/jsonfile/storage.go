// Package jsonfile persists the whole learner state to a single JSON file.
// Suitable for demos and small single-node deployments.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lingokit/core"
	"lingokit/engine"
)

type userData struct {
	Profile   *core.UserProgress  `json:"profile,omitempty"`
	Lessons   []core.LessonRecord `json:"lessons,omitempty"`
	Unlocks   []unlockRow         `json:"unlocks,omitempty"`
	Challenge core.ChallengeState `json:"challenge,omitempty"`
}

type unlockRow struct {
	ID core.AchievementID `json:"id"`
	At time.Time          `json:"at"`
}

// Store persists entire state to a single JSON file behind an in-memory
// cache. Every write rewrites the file atomically via rename.
type Store struct {
	path string
	mu   sync.Mutex
	data map[core.UserID]*userData
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[core.UserID]*userData{}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw map[string]*userData
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		s.data[core.UserID(k)] = v
	}
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	raw := make(map[string]*userData, len(s.data))
	for k, v := range s.data {
		raw[string(k)] = v
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) get(user core.UserID) *userData {
	if d, ok := s.data[user]; ok {
		return d
	}
	d := &userData{}
	s.data[user] = d
	return d
}

func (s *Store) GetProfile(_ context.Context, user core.UserID) (core.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.get(user)
	if d.Profile == nil {
		return core.UserProgress{}, engine.ErrNotFound
	}
	return d.Profile.Clone(), nil
}

func (s *Store) SaveProfile(_ context.Context, p core.UserProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.get(p.UserID)
	if d.Profile != nil && d.Profile.Version != p.Version {
		return engine.ErrVersionConflict
	}
	stored := p.Clone()
	stored.Version = p.Version + 1
	d.Profile = &stored
	return s.persist()
}

func (s *Store) InsertLesson(_ context.Context, user core.UserID, lesson core.LessonRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.get(user)
	for _, l := range d.Lessons {
		if l.Title == lesson.Title {
			return false, nil
		}
	}
	d.Lessons = append(d.Lessons, lesson)
	if err := s.persist(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Lessons(_ context.Context, user core.UserID) ([]core.LessonRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.get(user)
	out := make([]core.LessonRecord, len(d.Lessons))
	copy(out, d.Lessons)
	return out, nil
}

func (s *Store) VocabTotal(_ context.Context, user core.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.TotalVocab(s.get(user).Lessons), nil
}

func (s *Store) LogUnlock(_ context.Context, user core.UserID, id core.AchievementID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.get(user)
	d.Unlocks = append(d.Unlocks, unlockRow{ID: id, At: at})
	return s.persist()
}

func (s *Store) GetChallengeState(_ context.Context, user core.UserID) (core.ChallengeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(user).Challenge, nil
}

func (s *Store) SaveChallengeState(_ context.Context, user core.UserID, st core.ChallengeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(user).Challenge = st
	return s.persist()
}

var _ engine.Storage = (*Store)(nil)
