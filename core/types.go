package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// UserID uniquely identifies a learner in the gamification domain.
type UserID string

// LessonID identifies a lesson page. Completion is deduplicated by it.
type LessonID string

// AchievementID names a one-time-unlockable achievement.
type AchievementID string

// ChallengeID names a daily challenge.
type ChallengeID string

// ErrInvalidInput marks inputs rejected at the engine boundary. The engine
// fails fast on bad input instead of clamping, so upstream bugs surface
// where they happen.
var ErrInvalidInput = errors.New("invalid input")

// DayFormat is the calendar-day layout used everywhere dates are compared.
const DayFormat = "2006-01-02"

// Day renders t as a calendar-day string in t's own location.
func Day(t time.Time) string { return t.Format(DayFormat) }

// ParseDay parses a calendar-day string produced by Day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed date %q", ErrInvalidInput, s)
	}
	return t, nil
}

// UserProgress is a snapshot of a learner's gamification state. The engine
// only ever reads and returns copies; the storage adapter owns the canonical
// record. Level is derived and must always equal ResolveLevel(XP).
type UserProgress struct {
	UserID           UserID                     `json:"user_id"`
	XP               int                        `json:"xp"`
	Level            int                        `json:"level"`
	Streak           int                        `json:"streak"`
	LastActivityDate string                     `json:"last_activity_date,omitempty"`
	TotalLessons     int                        `json:"total_lessons"`
	CompletedLessons map[LessonID]struct{}      `json:"completed_lessons"`
	Achievements     map[AchievementID]struct{} `json:"achievements"`
	// TotalPoints is lifetime XP earned from activity, excluding
	// achievement bonuses.
	TotalPoints int `json:"total_points"`
	// Version is the optimistic-concurrency token owned by storage.
	// SaveProfile rejects a write whose Version is stale.
	Version int64     `json:"version"`
	Updated time.Time `json:"updated"`
}

// NewUserProgress returns the zero-valued progress created on first contact.
func NewUserProgress(user UserID) UserProgress {
	return UserProgress{
		UserID:           user,
		Level:            1,
		CompletedLessons: map[LessonID]struct{}{},
		Achievements:     map[AchievementID]struct{}{},
		Updated:          time.Now().UTC(),
	}
}

// Clone returns a deep copy of the progress to uphold immutability.
func (p UserProgress) Clone() UserProgress {
	cp := p
	cp.CompletedLessons = make(map[LessonID]struct{}, len(p.CompletedLessons))
	for k := range p.CompletedLessons {
		cp.CompletedLessons[k] = struct{}{}
	}
	cp.Achievements = make(map[AchievementID]struct{}, len(p.Achievements))
	for k := range p.Achievements {
		cp.Achievements[k] = struct{}{}
	}
	return cp
}

// HasCompleted reports whether the lesson id was already completed.
func (p UserProgress) HasCompleted(lesson LessonID) bool {
	_, ok := p.CompletedLessons[lesson]
	return ok
}

// HasAchievement reports whether the achievement was already unlocked.
func (p UserProgress) HasAchievement(id AchievementID) bool {
	_, ok := p.Achievements[id]
	return ok
}

// Validate rejects states that can only come from a corrupted store or an
// upstream bug.
func (p UserProgress) Validate() error {
	if p.XP < 0 {
		return fmt.Errorf("%w: negative xp %d", ErrInvalidInput, p.XP)
	}
	if p.Streak < 0 {
		return fmt.Errorf("%w: negative streak %d", ErrInvalidInput, p.Streak)
	}
	if p.TotalLessons < 0 {
		return fmt.Errorf("%w: negative lesson count %d", ErrInvalidInput, p.TotalLessons)
	}
	if p.LastActivityDate != "" {
		if _, err := ParseDay(p.LastActivityDate); err != nil {
			return err
		}
	}
	return nil
}

// EventContext is the ephemeral input bundle for one lesson-completion
// event. All time-of-day and calendar rules read CompletedAt, never the
// wall clock, so evaluation is deterministic and replayable.
type EventContext struct {
	LessonID    LessonID `json:"lesson_id"`
	LessonTitle string   `json:"lesson_title"`
	// LessonLevel is the track label shown on the lesson page, e.g.
	// "Intermediate" or "Business English".
	LessonLevel string `json:"lesson_level,omitempty"`
	LessonLink  string `json:"lesson_link,omitempty"`

	VocabularyCount int `json:"vocabulary_count"`
	// VocabularyBefore is the word count already persisted for this user,
	// fetched before the new lesson is saved. Threshold achievements add
	// it to VocabularyCount so they fire on the exact crossing event.
	VocabularyBefore int `json:"vocabulary_before"`
	GrammarCount     int `json:"grammar_count"`

	PerfectScore   bool `json:"perfect_score"`
	GrammarPerfect bool `json:"grammar_perfect"`
	// CompletionTime is seconds spent on the lesson; 0 means unknown.
	CompletionTime int       `json:"completion_time,omitempty"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Validate rejects malformed event contexts at the boundary.
func (c EventContext) Validate() error {
	if strings.TrimSpace(string(c.LessonID)) == "" {
		return fmt.Errorf("%w: empty lesson id", ErrInvalidInput)
	}
	if c.VocabularyCount < 0 || c.VocabularyBefore < 0 || c.GrammarCount < 0 {
		return fmt.Errorf("%w: negative count in event context", ErrInvalidInput)
	}
	if c.CompletionTime < 0 {
		return fmt.Errorf("%w: negative completion time", ErrInvalidInput)
	}
	if c.CompletedAt.IsZero() {
		return fmt.Errorf("%w: missing completion timestamp", ErrInvalidInput)
	}
	return nil
}

// Day returns the event's calendar day.
func (c EventContext) Day() string { return Day(c.CompletedAt) }

// NormalizeUserID trims and lowercases user identifiers.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}
	return UserID(strings.ToLower(s)), nil
}

// Rewards holds the tunable XP constants. Defaults mirror production.
type Rewards struct {
	LessonComplete    int `json:"lesson_complete"`
	PerfectScore      int `json:"perfect_score"`
	DailyBonus        int `json:"daily_bonus"`
	StreakBonusPerDay int `json:"streak_bonus_per_day"`
	StreakBonusCap    int `json:"streak_bonus_cap"`
	// FirstTrack rewards the first lesson completed in a previously
	// untouched course track.
	FirstTrack int `json:"first_track"`
}

// DefaultRewards returns the production reward schedule.
func DefaultRewards() Rewards {
	return Rewards{
		LessonComplete:    100,
		PerfectScore:      50,
		DailyBonus:        25,
		StreakBonusPerDay: 10,
		StreakBonusCap:    100,
		FirstTrack:        25,
	}
}

// Validate rejects reward schedules that would corrupt XP accounting.
func (r Rewards) Validate() error {
	if r.LessonComplete < 0 || r.PerfectScore < 0 || r.DailyBonus < 0 ||
		r.StreakBonusPerDay < 0 || r.StreakBonusCap < 0 || r.FirstTrack < 0 {
		return fmt.Errorf("%w: negative reward value", ErrInvalidInput)
	}
	if r.StreakBonusCap < r.StreakBonusPerDay {
		return fmt.Errorf("%w: streak bonus cap below per-day rate", ErrInvalidInput)
	}
	return nil
}

// LessonRecord is the persisted shape of a completed lesson. Adapters store
// one row per (user, lesson title).
type LessonRecord struct {
	LessonID     LessonID  `json:"lesson_id"`
	Title        string    `json:"title"`
	Level        string    `json:"level,omitempty"`
	Link         string    `json:"link,omitempty"`
	VocabCount   int       `json:"vocab_count"`
	GrammarCount int       `json:"grammar_count"`
	CompletedAt  time.Time `json:"completed_at"`
}

// RecordFor builds the lesson record persisted for a completion event.
func RecordFor(ctx EventContext) LessonRecord {
	return LessonRecord{
		LessonID:     ctx.LessonID,
		Title:        ctx.LessonTitle,
		Level:        ctx.LessonLevel,
		Link:         ctx.LessonLink,
		VocabCount:   ctx.VocabularyCount,
		GrammarCount: ctx.GrammarCount,
		CompletedAt:  ctx.CompletedAt,
	}
}
