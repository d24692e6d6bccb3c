package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lingokit/core"
)

// saveRetries bounds the optimistic-concurrency retry loop in
// CompleteLesson. Conflicts are rare (two devices finishing lessons for the
// same user at once), so a small bound is plenty.
const saveRetries = 3

// LessonOutcome is the full result of one lesson completion: the pure
// calculation plus the engine-level bonuses that need lesson history or
// challenge state.
type LessonOutcome struct {
	Result core.Result `json:"result"`

	// TrackBonus pays once per course track, on the first lesson ever
	// completed in it.
	TrackBonus int `json:"track_bonus"`

	ChallengeState     core.ChallengeState `json:"challenge_state"`
	ChallengeCompleted bool                `json:"challenge_completed"`
	ChallengeXP        int                 `json:"challenge_xp"`

	// Final totals with every bonus folded in. These, not the ones inside
	// Result, are what was persisted.
	XPEarned  int  `json:"xp_earned"`
	TotalXP   int  `json:"total_xp"`
	Level     int  `json:"level"`
	LeveledUp bool `json:"leveled_up"`
	Streak    int  `json:"streak"`
}

// ProfileSummary is the read-model returned for dashboard rendering.
type ProfileSummary struct {
	Progress      core.UserProgress  `json:"progress"`
	LevelName     string             `json:"level_name"`
	LevelProgress core.LevelProgress `json:"level_progress"`
	StreakEmoji   string             `json:"streak_emoji"`
	StreakMessage string             `json:"streak_message"`
}

// ProgressService orchestrates the pure rules over storage and publishes
// domain events for every state change.
type ProgressService struct {
	storage Storage
	bus     *EventBus
	rewards core.Rewards
	log     *slog.Logger
}

func NewProgressService(storage Storage, bus *EventBus, rewards core.Rewards, log *slog.Logger) (*ProgressService, error) {
	if storage == nil || bus == nil {
		return nil, errors.New("progress service requires storage and bus")
	}
	if err := rewards.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &ProgressService{storage: storage, bus: bus, rewards: rewards, log: log}, nil
}

// Subscribe registers an event handler on the underlying bus.
func (s *ProgressService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

// Rewards returns the active reward schedule.
func (s *ProgressService) Rewards() core.Rewards { return s.rewards }

// Close releases bus resources.
func (s *ProgressService) Close() { s.bus.Close() }

// CompleteLesson runs the whole completion pipeline for one event: load or
// create the profile, fold the event through the pure rules, add the
// first-track and daily-challenge bonuses, and persist under optimistic
// concurrency. Events are published only after the profile write succeeds.
func (s *ProgressService) CompleteLesson(ctx context.Context, user core.UserID, ectx core.EventContext) (LessonOutcome, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return LessonOutcome{}, err
	}
	if err := ectx.Validate(); err != nil {
		return LessonOutcome{}, err
	}

	var lastErr error
	for attempt := 0; attempt < saveRetries; attempt++ {
		out, err := s.completeOnce(ctx, user, ectx)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return LessonOutcome{}, err
		}
		lastErr = err
		s.log.Debug("profile version conflict, retrying", "user", user, "attempt", attempt+1)
	}
	return LessonOutcome{}, fmt.Errorf("complete lesson for %s: %w", user, lastErr)
}

func (s *ProgressService) completeOnce(ctx context.Context, user core.UserID, ectx core.EventContext) (LessonOutcome, error) {
	profile, err := s.storage.GetProfile(ctx, user)
	if errors.Is(err, ErrNotFound) {
		profile = core.NewUserProgress(user)
	} else if err != nil {
		return LessonOutcome{}, err
	}

	// The saved-word total must be read before the new lesson is written so
	// threshold achievements fire on the exact crossing event.
	vocabBefore, err := s.storage.VocabTotal(ctx, user)
	if err != nil {
		return LessonOutcome{}, err
	}
	ectx.VocabularyBefore = vocabBefore

	priorLessons, err := s.storage.Lessons(ctx, user)
	if err != nil {
		return LessonOutcome{}, err
	}

	res, err := core.CompleteLesson(profile, ectx, s.rewards)
	if err != nil {
		return LessonOutcome{}, err
	}

	out := LessonOutcome{Result: res}

	if res.FirstCompletion {
		if track, ok := core.TrackOf(ectx.LessonLink, ectx.LessonLevel); ok {
			if core.CountByTrack(priorLessons)[track.ID] == 0 {
				out.TrackBonus = s.rewards.FirstTrack
			}
		}
	}

	chState, err := s.storage.GetChallengeState(ctx, user)
	if err != nil {
		return LessonOutcome{}, err
	}
	chOut := core.AccumulateChallengeProgress(chState, ectx)
	out.ChallengeState = chOut.State
	out.ChallengeCompleted = chOut.JustCompleted
	out.ChallengeXP = chOut.XPEarned

	next := res.Progress
	next.XP += out.TrackBonus + out.ChallengeXP
	next.TotalPoints += out.TrackBonus + out.ChallengeXP
	level, err := core.ResolveLevel(next.XP)
	if err != nil {
		return LessonOutcome{}, err
	}
	next.Level = level

	out.XPEarned = res.XPEarned + out.TrackBonus + out.ChallengeXP
	out.TotalXP = next.XP
	out.Level = level
	out.LeveledUp = level > profile.Level
	out.Streak = next.Streak

	if err := s.storage.SaveProfile(ctx, next); err != nil {
		return LessonOutcome{}, err
	}

	// Post-commit writes are best effort: the profile is the source of
	// truth and the rest is history that can tolerate a miss.
	if _, err := s.storage.InsertLesson(ctx, user, core.RecordFor(ectx)); err != nil {
		s.log.Error("insert lesson failed", "user", user, "lesson", ectx.LessonID, "err", err)
	}
	for _, id := range res.Unlocked {
		if err := s.storage.LogUnlock(ctx, user, id, ectx.CompletedAt); err != nil {
			s.log.Error("log unlock failed", "user", user, "achievement", id, "err", err)
		}
	}
	if err := s.storage.SaveChallengeState(ctx, user, out.ChallengeState); err != nil {
		s.log.Error("save challenge state failed", "user", user, "err", err)
	}

	s.publishOutcome(ctx, user, ectx, out)

	s.log.Info("lesson completed",
		"user", user,
		"lesson", ectx.LessonID,
		"xp_earned", out.XPEarned,
		"total_xp", out.TotalXP,
		"level", out.Level,
		"streak", out.Streak,
	)
	return out, nil
}

func (s *ProgressService) publishOutcome(ctx context.Context, user core.UserID, ectx core.EventContext, out LessonOutcome) {
	s.bus.Publish(ctx, core.NewLessonCompleted(user, ectx.LessonID, out.XPEarned, out.TotalXP))
	if out.Result.StreakBonus > 0 {
		s.bus.Publish(ctx, core.NewStreakExtended(user, out.Streak, out.Result.StreakBonus))
	}
	for _, id := range out.Result.Unlocked {
		xp := 0
		if def, ok := core.AchievementByID(id); ok {
			xp = def.XPReward
		}
		s.bus.Publish(ctx, core.NewAchievementUnlocked(user, id, xp))
	}
	if out.ChallengeCompleted {
		s.bus.Publish(ctx, core.NewChallengeCompleted(user, out.ChallengeState.ChallengeID, out.ChallengeXP))
	}
	if out.LeveledUp {
		s.bus.Publish(ctx, core.NewLevelUp(user, out.Level, out.TotalXP))
	}
}

// Profile returns the dashboard read-model for a user. Unknown users get a
// fresh zero profile rather than an error, matching first-visit behavior.
func (s *ProgressService) Profile(ctx context.Context, user core.UserID) (ProfileSummary, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return ProfileSummary{}, err
	}
	p, err := s.storage.GetProfile(ctx, user)
	if errors.Is(err, ErrNotFound) {
		p = core.NewUserProgress(user)
	} else if err != nil {
		return ProfileSummary{}, err
	}
	lp, err := core.ProgressToNextLevel(p.XP)
	if err != nil {
		return ProfileSummary{}, err
	}
	return ProfileSummary{
		Progress:      p,
		LevelName:     core.LevelInfo(p.Level).Name,
		LevelProgress: lp,
		StreakEmoji:   core.StreakEmoji(p.Streak),
		StreakMessage: core.StreakMessage(p.Streak),
	}, nil
}

// Badges recomputes the full badge board for a user.
func (s *ProgressService) Badges(ctx context.Context, user core.UserID) ([]core.BadgeStatus, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return nil, err
	}
	p, err := s.storage.GetProfile(ctx, user)
	if errors.Is(err, ErrNotFound) {
		p = core.NewUserProgress(user)
	} else if err != nil {
		return nil, err
	}
	lessons, err := s.storage.Lessons(ctx, user)
	if err != nil {
		return nil, err
	}
	return core.EvaluateBadges(p, lessons), nil
}

// Mastery resolves the per-track mastery ladder for a user.
func (s *ProgressService) Mastery(ctx context.Context, user core.UserID) ([]core.TrackMastery, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return nil, err
	}
	lessons, err := s.storage.Lessons(ctx, user)
	if err != nil {
		return nil, err
	}
	return core.MasteryFor(lessons), nil
}

// TodaysChallenge returns the active challenge and the user's progress
// against it. State from a previous day reads as zero progress.
func (s *ProgressService) TodaysChallenge(ctx context.Context, user core.UserID, at time.Time) (core.ChallengeOutcome, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return core.ChallengeOutcome{}, err
	}
	challenge := core.TodaysChallenge(at)
	st, err := s.storage.GetChallengeState(ctx, user)
	if err != nil {
		return core.ChallengeOutcome{}, err
	}
	if st.Date != core.Day(at) || st.ChallengeID != challenge.ID {
		st = core.ChallengeState{Date: core.Day(at), ChallengeID: challenge.ID}
	}
	return core.ChallengeOutcome{State: st, Challenge: challenge}, nil
}
