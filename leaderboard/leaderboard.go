// Package leaderboard ranks learners by total XP.
package leaderboard

import (
	"context"

	"lingokit/core"
	"lingokit/engine"
)

// Entry represents a score entry.
type Entry struct {
	User  core.UserID `json:"user"`
	Score int64       `json:"score"`
}

// Board abstracts leaderboard operations.
type Board interface {
	Update(user core.UserID, score int64)
	Remove(user core.UserID)
	TopN(n int) []Entry
	Get(user core.UserID) (Entry, bool)
}

// Follow keeps the board in step with the event stream: every lesson
// completion carries the learner's new XP total. Returns the unsubscribe
// func.
func Follow(board Board, bus *engine.EventBus) func() {
	return bus.Subscribe(core.EventLessonCompleted, func(_ context.Context, ev core.Event) {
		board.Update(ev.UserID, int64(ev.TotalXP))
	})
}
