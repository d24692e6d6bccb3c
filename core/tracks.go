package core

import "strings"

// TrackDefinition describes one course track and its mastery ladder.
type TrackDefinition struct {
	ID   string `json:"id"`
	Icon string `json:"icon"`
	Name string `json:"name"`
	Desc string `json:"desc"`
	// URLKey is the path segment that identifies the track in a lesson
	// link, e.g. "/business/".
	URLKey string `json:"url_key"`
	// LevelNames are lowercase aliases matched against the lesson's
	// level label when the link does not identify a track.
	LevelNames []string `json:"level_names"`
	// Titles and Thresholds define the mastery ladder: the learner holds
	// Titles[i] while their lesson count is at or above Thresholds[i].
	Titles     []string `json:"titles"`
	Thresholds []int    `json:"thresholds"`
}

var trackThresholds = []int{0, 1, 3, 6, 10, 15, 20}

// Tracks is the static track table. Order matters: links are matched top to
// bottom, so the more specific tracks come first.
var Tracks = []TrackDefinition{
	{
		ID: "business", URLKey: "/business/", LevelNames: []string{"business"},
		Icon: "💼", Name: "Business English", Desc: "Meetings, emails & negotiations",
		Titles:     []string{"Business Curious", "Business Novice", "Business Apprentice", "Business Practitioner", "Business Pro", "Business Expert", "Business Master"},
		Thresholds: trackThresholds,
	},
	{
		ID: "tax", URLKey: "/tax/", LevelNames: []string{"tax"},
		Icon: "💰", Name: "Tax English", Desc: "Tax terminology & accounting",
		Titles:     []string{"Tax Curious", "Tax Novice", "Tax Apprentice", "Tax Practitioner", "Tax Specialist", "Tax Expert", "Tax Master"},
		Thresholds: trackThresholds,
	},
	{
		ID: "legal", URLKey: "/legal/", LevelNames: []string{"legal"},
		Icon: "⚖️", Name: "Legal English", Desc: "Contracts, law & legal writing",
		Titles:     []string{"Legal Curious", "Legal Novice", "Legal Apprentice", "Legal Practitioner", "Legal Specialist", "Legal Expert", "Legal Master"},
		Thresholds: trackThresholds,
	},
	{
		ID: "advanced", URLKey: "/advanced/", LevelNames: []string{"advanced", "c1", "c2"},
		Icon: "🎯", Name: "Advanced English", Desc: "Idioms, fluency & C1–C2 mastery",
		Titles:     []string{"Advanced Curious", "Advanced Novice", "Advanced Apprentice", "Advanced Practitioner", "Advanced Speaker", "Advanced Expert", "Advanced Master"},
		Thresholds: trackThresholds,
	},
	{
		ID: "intermediate", URLKey: "/intermediate/", LevelNames: []string{"intermediate", "b1", "b2"},
		Icon: "🚀", Name: "Intermediate English", Desc: "Real-world grammar & vocabulary",
		Titles:     []string{"Intermediate Curious", "Intermediate Novice", "Intermediate Apprentice", "Intermediate Practitioner", "Intermediate Speaker", "Intermediate Expert", "Intermediate Master"},
		Thresholds: trackThresholds,
	},
	{
		ID: "beginner", URLKey: "/beginner/", LevelNames: []string{"beginner", "a1", "a2"},
		Icon: "🌱", Name: "Beginner English", Desc: "Foundation vocabulary & grammar",
		Titles:     []string{"Beginner Curious", "Beginner Novice", "Beginner Apprentice", "Beginner Practitioner", "Beginner Speaker", "Beginner Expert", "Beginner Master"},
		Thresholds: trackThresholds,
	},
}

// TrackOf resolves which track a lesson belongs to, matching the lesson
// link against URL keys first, then the level label against the aliases.
// Returns ok=false for lessons outside any known track.
func TrackOf(link, level string) (TrackDefinition, bool) {
	link = strings.ToLower(link)
	level = strings.ToLower(level)
	for _, t := range Tracks {
		if link != "" && strings.Contains(link, t.URLKey) {
			return t, true
		}
	}
	if level != "" {
		for _, t := range Tracks {
			for _, name := range t.LevelNames {
				if strings.Contains(level, name) {
					return t, true
				}
			}
		}
	}
	return TrackDefinition{}, false
}

// TrackMastery is the per-track summary rendered on the dashboard.
type TrackMastery struct {
	Track   TrackDefinition `json:"track"`
	Lessons int             `json:"lessons"`
	Title   string          `json:"title"`
	// NextAt is the lesson count unlocking the next title; nil when the
	// ladder is complete.
	NextAt *int `json:"next_at,omitempty"`
}

// CountByTrack tallies completed lessons per track id.
func CountByTrack(lessons []LessonRecord) map[string]int {
	counts := make(map[string]int, len(Tracks))
	for _, t := range Tracks {
		counts[t.ID] = 0
	}
	for _, l := range lessons {
		if t, ok := TrackOf(l.Link, l.Level); ok {
			counts[t.ID]++
		}
	}
	return counts
}

// MasteryFor resolves the mastery ladder position for every track.
func MasteryFor(lessons []LessonRecord) []TrackMastery {
	counts := CountByTrack(lessons)
	out := make([]TrackMastery, 0, len(Tracks))
	for _, t := range Tracks {
		n := counts[t.ID]
		idx := 0
		for i, th := range t.Thresholds {
			if n >= th {
				idx = i
			}
		}
		m := TrackMastery{Track: t, Lessons: n, Title: t.Titles[idx]}
		if idx+1 < len(t.Thresholds) {
			next := t.Thresholds[idx+1]
			m.NextAt = &next
		}
		out = append(out, m)
	}
	return out
}
