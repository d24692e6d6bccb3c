package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// LessonEvent is the request body for CompleteLesson.
type LessonEvent struct {
	LessonID        string    `json:"lesson_id"`
	LessonTitle     string    `json:"lesson_title"`
	LessonLevel     string    `json:"lesson_level,omitempty"`
	LessonLink      string    `json:"lesson_link,omitempty"`
	VocabularyCount int       `json:"vocabulary_count,omitempty"`
	GrammarCount    int       `json:"grammar_count,omitempty"`
	PerfectScore    bool      `json:"perfect_score,omitempty"`
	GrammarPerfect  bool      `json:"grammar_perfect,omitempty"`
	CompletionTime  int       `json:"completion_time,omitempty"`
	CompletedAt     time.Time `json:"completed_at,omitempty"`
}

// LessonOutcome mirrors the public JSON surface of the completion response.
type LessonOutcome struct {
	Result struct {
		BaseXP          int      `json:"base_xp"`
		PerfectBonus    int      `json:"perfect_bonus"`
		DailyBonus      int      `json:"daily_bonus"`
		StreakBonus     int      `json:"streak_bonus"`
		AchievementXP   int      `json:"achievement_xp"`
		Unlocked        []string `json:"unlocked"`
		FirstCompletion bool     `json:"first_completion"`
		TotalLessons    int      `json:"total_lessons"`
	} `json:"result"`
	TrackBonus         int    `json:"track_bonus"`
	ChallengeCompleted bool   `json:"challenge_completed"`
	ChallengeXP        int    `json:"challenge_xp"`
	XPEarned           int    `json:"xp_earned"`
	TotalXP            int    `json:"total_xp"`
	Level              int    `json:"level"`
	LeveledUp          bool   `json:"leveled_up"`
	Streak             int    `json:"streak"`
	ChallengeState     State  `json:"challenge_state"`
	Error              string `json:"-"`
}

// State is per-day challenge progress.
type State struct {
	Date        string `json:"date"`
	ChallengeID string `json:"challenge_id"`
	Progress    int    `json:"progress"`
	Completed   bool   `json:"completed"`
}

// Profile mirrors the dashboard read-model.
type Profile struct {
	Progress struct {
		UserID       string    `json:"user_id"`
		XP           int       `json:"xp"`
		Level        int       `json:"level"`
		Streak       int       `json:"streak"`
		TotalLessons int       `json:"total_lessons"`
		TotalPoints  int       `json:"total_points"`
		Updated      time.Time `json:"updated"`
	} `json:"progress"`
	LevelName     string `json:"level_name"`
	LevelProgress struct {
		Percent         int  `json:"percent"`
		CurrentInLevel  int  `json:"current_in_level"`
		NeededForLevel  int  `json:"needed_for_level"`
		RemainingToNext *int `json:"remaining_to_next"`
	} `json:"level_progress"`
	StreakEmoji   string `json:"streak_emoji"`
	StreakMessage string `json:"streak_message"`
}

// Badge is one entry of the badge board.
type Badge struct {
	Badge struct {
		ID          string `json:"id"`
		Icon        string `json:"icon"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
	} `json:"badge"`
	Earned bool `json:"earned"`
}

// Mastery is one track's mastery status.
type Mastery struct {
	Track struct {
		ID   string `json:"id"`
		Icon string `json:"icon"`
		Name string `json:"name"`
	} `json:"track"`
	Lessons int    `json:"lessons"`
	Title   string `json:"title"`
	NextAt  *int   `json:"next_at"`
}

// Challenge describes the scheduled daily challenge.
type Challenge struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Target      int    `json:"target"`
	XPReward    int    `json:"xp_reward"`
}

// UserChallenge pairs the challenge with the user's progress.
type UserChallenge struct {
	Challenge Challenge `json:"challenge"`
	State     State     `json:"state"`
}

// LeaderboardEntry is one ranked learner.
type LeaderboardEntry struct {
	User  string `json:"user"`
	Score int64  `json:"score"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// Event mirrors the WebSocket event payload.
type Event struct {
	Type        string    `json:"type"`
	Time        time.Time `json:"time"`
	UserID      string    `json:"user_id"`
	LessonID    string    `json:"lesson_id,omitempty"`
	Achievement string    `json:"achievement,omitempty"`
	Challenge   string    `json:"challenge,omitempty"`
	XP          int       `json:"xp,omitempty"`
	TotalXP     int       `json:"total_xp,omitempty"`
	Level       int       `json:"level,omitempty"`
	Streak      int       `json:"streak,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		var ae apiError
		if err := json.NewDecoder(resp.Body).Decode(&ae); err == nil && ae.Message != "" {
			return fmt.Errorf("request failed: status %d: %s", resp.StatusCode, ae.Message)
		}
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyUserID is returned when user id is empty.
var ErrEmptyUserID = errors.New("user id is required")
