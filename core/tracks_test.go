package core

import (
	"testing"
	"time"
)

func TestTrackOfByLink(t *testing.T) {
	tr, ok := TrackOf("https://example.com/business/emails-101/", "")
	if !ok || tr.ID != "business" {
		t.Fatalf("got %v %v", tr.ID, ok)
	}
	tr, ok = TrackOf("/TAX/vat-basics/", "")
	if !ok || tr.ID != "tax" {
		t.Fatalf("link match must be case-insensitive, got %v %v", tr.ID, ok)
	}
}

func TestTrackOfByLevel(t *testing.T) {
	tr, ok := TrackOf("", "Intermediate B1")
	if !ok || tr.ID != "intermediate" {
		t.Fatalf("got %v %v", tr.ID, ok)
	}
	tr, ok = TrackOf("", "C1 Mastery")
	if !ok || tr.ID != "advanced" {
		t.Fatalf("got %v %v", tr.ID, ok)
	}
	if _, ok := TrackOf("", "Pronunciation Lab"); ok {
		t.Fatal("unknown level must not match a track")
	}
}

func TestTrackOfPrefersLink(t *testing.T) {
	tr, ok := TrackOf("/legal/contracts/", "Beginner")
	if !ok || tr.ID != "legal" {
		t.Fatalf("link must win over level, got %v %v", tr.ID, ok)
	}
}

func trackLessons(trackID string, n int) []LessonRecord {
	ls := make([]LessonRecord, n)
	for i := range ls {
		ls[i] = LessonRecord{
			LessonID:    LessonID(trackID + "-" + string(rune('a'+i))),
			Link:        "/" + trackID + "/lesson/",
			CompletedAt: time.Date(2024, 3, 1+i, 12, 0, 0, 0, time.UTC),
		}
	}
	return ls
}

func TestMasteryFor(t *testing.T) {
	lessons := append(trackLessons("business", 6), trackLessons("beginner", 1)...)
	mastery := MasteryFor(lessons)
	if len(mastery) != len(Tracks) {
		t.Fatalf("mastery must cover all tracks, got %d", len(mastery))
	}

	byID := map[string]TrackMastery{}
	for _, m := range mastery {
		byID[m.Track.ID] = m
	}

	biz := byID["business"]
	if biz.Lessons != 6 || biz.Title != "Business Practitioner" {
		t.Fatalf("business: %+v", biz)
	}
	if biz.NextAt == nil || *biz.NextAt != 10 {
		t.Fatalf("business next threshold: %v", biz.NextAt)
	}

	beg := byID["beginner"]
	if beg.Lessons != 1 || beg.Title != "Beginner Novice" {
		t.Fatalf("beginner: %+v", beg)
	}

	tax := byID["tax"]
	if tax.Lessons != 0 || tax.Title != "Tax Curious" {
		t.Fatalf("untouched track: %+v", tax)
	}
}

func TestMasteryLadderComplete(t *testing.T) {
	mastery := MasteryFor(trackLessons("legal", 20))
	for _, m := range mastery {
		if m.Track.ID != "legal" {
			continue
		}
		if m.Title != "Legal Master" || m.NextAt != nil {
			t.Fatalf("completed ladder: %+v", m)
		}
	}
}
