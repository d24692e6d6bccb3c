package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventLessonCompleted     EventType = "lesson_completed"
	EventLevelUp             EventType = "level_up"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventStreakExtended      EventType = "streak_extended"
	EventChallengeCompleted  EventType = "challenge_completed"
)

// Event represents an immutable domain event.
type Event struct {
	Type        EventType      `json:"type"`
	Time        time.Time      `json:"time"`
	UserID      UserID         `json:"user_id"`
	LessonID    LessonID       `json:"lesson_id,omitempty"`
	Achievement AchievementID  `json:"achievement,omitempty"`
	Challenge   ChallengeID    `json:"challenge,omitempty"`
	XP          int            `json:"xp,omitempty"`
	TotalXP     int            `json:"total_xp,omitempty"`
	Level       int            `json:"level,omitempty"`
	Streak      int            `json:"streak,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewLessonCompleted(user UserID, lesson LessonID, xp, totalXP int) Event {
	return Event{Type: EventLessonCompleted, Time: time.Now().UTC(), UserID: user, LessonID: lesson, XP: xp, TotalXP: totalXP}
}

func NewLevelUp(user UserID, level, totalXP int) Event {
	return Event{Type: EventLevelUp, Time: time.Now().UTC(), UserID: user, Level: level, TotalXP: totalXP}
}

func NewAchievementUnlocked(user UserID, id AchievementID, xp int) Event {
	return Event{Type: EventAchievementUnlocked, Time: time.Now().UTC(), UserID: user, Achievement: id, XP: xp}
}

func NewStreakExtended(user UserID, streak, bonusXP int) Event {
	return Event{Type: EventStreakExtended, Time: time.Now().UTC(), UserID: user, Streak: streak, XP: bonusXP}
}

func NewChallengeCompleted(user UserID, id ChallengeID, xp int) Event {
	return Event{Type: EventChallengeCompleted, Time: time.Now().UTC(), UserID: user, Challenge: id, XP: xp}
}
