package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lingokit/adapters/memory"
	"lingokit/core"
	"lingokit/engine"
	"lingokit/leaderboard"
)

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *engine.ProgressService) {
	t.Helper()
	bus := engine.NewEventBus(engine.DispatchSync, nil)
	svc, err := engine.NewProgressService(memory.New(), bus, core.DefaultRewards(), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Close)

	board := leaderboard.NewSkipList()
	off := leaderboard.Follow(board, bus)
	t.Cleanup(off)

	srv := httptest.NewServer(NewMux(svc, Deps{Board: board}, opts))
	t.Cleanup(srv.Close)
	return srv, svc
}

func postLesson(t *testing.T, srv *httptest.Server, user string, body map[string]any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(srv.URL+"/users/"+user+"/lessons", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func lessonBody(title string) map[string]any {
	return map[string]any{
		"lesson_id":        strings.ToLower(title),
		"lesson_title":     title,
		"lesson_level":     "a1",
		"lesson_link":      "lessons/beginner/" + strings.ToLower(title) + ".html",
		"vocabulary_count": 5,
		"perfect_score":    true,
		"completed_at":     time.Date(2024, 3, 18, 14, 0, 0, 0, time.UTC),
	}
}

func TestCompleteLessonRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp := postLesson(t, srv, "Alice", lessonBody("Intro"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out engine.LessonOutcome
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	// base 100 + perfect 50 + daily 25 + first_lesson 50 + perfect_score 100
	// + first track 25
	if out.TotalXP != 350 {
		t.Fatalf("total xp = %d", out.TotalXP)
	}
	if out.TrackBonus != 25 {
		t.Fatalf("track bonus = %d", out.TrackBonus)
	}

	// The profile route must see the same learner under the normalized id.
	got, err := http.Get(srv.URL + "/users/alice")
	if err != nil {
		t.Fatal(err)
	}
	defer got.Body.Close()
	var sum engine.ProfileSummary
	if err := json.NewDecoder(got.Body).Decode(&sum); err != nil {
		t.Fatal(err)
	}
	if sum.Progress.XP != 350 || sum.Progress.TotalLessons != 1 {
		t.Fatalf("profile = %+v", sum.Progress)
	}
	if sum.LevelName == "" {
		t.Fatal("missing level name")
	}
}

func TestCompleteLessonRejectsBadBody(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp, err := http.Post(srv.URL+"/users/alice/lessons", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	// Valid JSON but missing the lesson id fails domain validation.
	resp2 := postLesson(t, srv, "alice", map[string]any{"lesson_title": "x"})
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp2.StatusCode)
	}
	var apiErr apiError
	if err := json.NewDecoder(resp2.Body).Decode(&apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "invalid_input" {
		t.Fatalf("code = %q", apiErr.Code)
	}
}

func TestBadgesAndMasteryRoutes(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	resp := postLesson(t, srv, "bob", lessonBody("Greetings"))
	resp.Body.Close()

	got, err := http.Get(srv.URL + "/users/bob/badges")
	if err != nil {
		t.Fatal(err)
	}
	defer got.Body.Close()
	var badges []core.BadgeStatus
	if err := json.NewDecoder(got.Body).Decode(&badges); err != nil {
		t.Fatal(err)
	}
	if len(badges) != len(core.Badges) {
		t.Fatalf("got %d badges", len(badges))
	}

	got2, err := http.Get(srv.URL + "/users/bob/mastery")
	if err != nil {
		t.Fatal(err)
	}
	defer got2.Body.Close()
	var mastery []core.TrackMastery
	if err := json.NewDecoder(got2.Body).Decode(&mastery); err != nil {
		t.Fatal(err)
	}
	if len(mastery) != len(core.Tracks) {
		t.Fatalf("got %d tracks", len(mastery))
	}
}

func TestChallengesTodayRoute(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/challenges/today")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	want := core.TodaysChallenge(time.Now())
	if body["id"] != string(want.ID) {
		t.Fatalf("id = %v, want %s", body["id"], want.ID)
	}
	if int(body["target"].(float64)) != want.Target {
		t.Fatalf("target = %v", body["target"])
	}
}

func TestLeaderboardRoute(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	postLesson(t, srv, "alice", lessonBody("Intro")).Body.Close()
	postLesson(t, srv, "bob", map[string]any{
		"lesson_id":    "intro",
		"lesson_title": "Intro",
		"completed_at": time.Date(2024, 3, 18, 14, 0, 0, 0, time.UTC),
	}).Body.Close()

	resp, err := http.Get(srv.URL + "/leaderboard?n=5")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var entries []leaderboard.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].User != "alice" {
		t.Fatalf("entries = %+v", entries)
	}

	bad, err := http.Get(srv.URL + "/leaderboard?n=0")
	if err != nil {
		t.Fatal(err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", bad.StatusCode)
	}
}

func TestPathPrefix(t *testing.T) {
	srv, _ := newTestServer(t, Options{PathPrefix: "/api"})

	resp, err := http.Get(srv.URL + "/api/users/alice")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	miss, err := http.Get(srv.URL + "/users/alice")
	if err != nil {
		t.Fatal(err)
	}
	miss.Body.Close()
	if miss.StatusCode != http.StatusNotFound {
		t.Fatalf("unprefixed route should 404, got %d", miss.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, Options{AllowCORSOrigin: "*"})

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/users/alice", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv, _ := newTestServer(t, Options{APIKeys: []string{"secret1"}})

	resp, err := http.Get(srv.URL + "/users/alice")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no key: status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/users/alice", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad key: status = %d", resp2.StatusCode)
	}

	req3, _ := http.NewRequest(http.MethodGet, srv.URL+"/users/alice", nil)
	req3.Header.Set("X-API-Key", "secret1")
	resp3, err := http.DefaultClient.Do(req3)
	if err != nil {
		t.Fatal(err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Fatalf("good key: status = %d", resp3.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{
		RateLimitEnabled: true,
		RateLimitRPM:     60,
		RateLimitBurst:   3,
	})

	var limited bool
	for i := 0; i < 5; i++ {
		resp, err := http.Get(srv.URL + "/users/alice")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatal("expected rate limiting to kick in")
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("body = %v", body)
	}
}

func TestUserChallengeRoute(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/users/alice/challenge")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Challenge struct {
			ID string `json:"id"`
		} `json:"challenge"`
		State core.ChallengeState `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Challenge.ID == "" {
		t.Fatal("missing challenge id")
	}
	if body.State.Progress != 0 {
		t.Fatalf("fresh user progress = %d", body.State.Progress)
	}
}
