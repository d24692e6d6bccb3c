// Package analytics aggregates learning KPIs from the domain event stream:
// daily active learners, XP awarded, unlocks, and challenge completions.
package analytics

import (
	"context"
	"sync"
	"time"

	"lingokit/core"
	"lingokit/engine"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// DAU tracks daily active learners keyed by calendar day.
type DAU struct {
	mu   sync.Mutex
	days map[string]map[core.UserID]struct{}
}

func NewDAU() *DAU { return &DAU{days: map[string]map[core.UserID]struct{}{}} }

func (d *DAU) OnEvent(e core.Event) {
	day := e.Time.UTC().Format(core.DayFormat)
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.days[day]
	if m == nil {
		m = map[core.UserID]struct{}{}
		d.days[day] = m
	}
	m[e.UserID] = struct{}{}
}

func (d *DAU) Count(day string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days[day])
}

// DailySummary is one day's aggregated numbers.
type DailySummary struct {
	Day                  string    `json:"day"`
	ActiveLearners       int       `json:"active_learners"`
	LessonsCompleted     int64     `json:"lessons_completed"`
	XPAwarded            int64     `json:"xp_awarded"`
	LevelUps             int64     `json:"level_ups"`
	AchievementsUnlocked int64     `json:"achievements_unlocked"`
	ChallengesCompleted  int64     `json:"challenges_completed"`
	StreaksExtended      int64     `json:"streaks_extended"`
	CreatedAt            time.Time `json:"created_at"`
}

type dayCounters struct {
	learners             map[core.UserID]struct{}
	lessonsCompleted     int64
	xpAwarded            int64
	levelUps             int64
	achievementsUnlocked int64
	challengesCompleted  int64
	streaksExtended      int64
}

// Aggregator folds the event stream into per-day summaries. It keeps
// everything in memory; exports snapshot the current state.
type Aggregator struct {
	mu   sync.RWMutex
	days map[string]*dayCounters
}

func NewAggregator() *Aggregator {
	return &Aggregator{days: map[string]*dayCounters{}}
}

func (a *Aggregator) day(t time.Time) *dayCounters {
	key := t.UTC().Format(core.DayFormat)
	c := a.days[key]
	if c == nil {
		c = &dayCounters{learners: map[core.UserID]struct{}{}}
		a.days[key] = c
	}
	return c
}

func (a *Aggregator) OnEvent(e core.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c := a.day(e.Time)
	c.learners[e.UserID] = struct{}{}
	switch e.Type {
	case core.EventLessonCompleted:
		c.lessonsCompleted++
		c.xpAwarded += int64(e.XP)
	case core.EventLevelUp:
		c.levelUps++
	case core.EventAchievementUnlocked:
		c.achievementsUnlocked++
	case core.EventChallengeCompleted:
		c.challengesCompleted++
	case core.EventStreakExtended:
		c.streaksExtended++
	}
}

// Summary returns the aggregated numbers for one calendar day.
func (a *Aggregator) Summary(day string) DailySummary {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := DailySummary{Day: day, CreatedAt: time.Now().UTC()}
	c := a.days[day]
	if c == nil {
		return out
	}
	out.ActiveLearners = len(c.learners)
	out.LessonsCompleted = c.lessonsCompleted
	out.XPAwarded = c.xpAwarded
	out.LevelUps = c.levelUps
	out.AchievementsUnlocked = c.achievementsUnlocked
	out.ChallengesCompleted = c.challengesCompleted
	out.StreaksExtended = c.streaksExtended
	return out
}

// Days lists the calendar days with any recorded activity, unsorted.
func (a *Aggregator) Days() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.days))
	for day := range a.days {
		out = append(out, day)
	}
	return out
}

// AttachBus feeds every published event into the hook. Returns the
// unsubscribe func.
func AttachBus(h Hook, bus *engine.EventBus) func() {
	return bus.Subscribe(engine.EventAny, func(_ context.Context, ev core.Event) {
		h.OnEvent(ev)
	})
}
