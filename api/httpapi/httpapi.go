// Package httpapi exposes the progress engine as a small REST API plus a
// WebSocket event stream, the surface the static site's frontend talks to.
package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	wsadapter "lingokit/adapters/websocket"
	"lingokit/analytics"
	"lingokit/core"
	"lingokit/engine"
	"lingokit/leaderboard"
	"lingokit/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
}

// Deps bundles the optional collaborators next to the progress service.
type Deps struct {
	Hub       *realtime.Hub
	Board     leaderboard.Board
	Analytics *analytics.Aggregator
}

type completeLessonRequest struct {
	LessonID        string `json:"lesson_id"`
	LessonTitle     string `json:"lesson_title"`
	LessonLevel     string `json:"lesson_level"`
	LessonLink      string `json:"lesson_link"`
	VocabularyCount int    `json:"vocabulary_count"`
	GrammarCount    int    `json:"grammar_count"`
	PerfectScore    bool   `json:"perfect_score"`
	GrammarPerfect  bool   `json:"grammar_perfect"`
	CompletionTime  int    `json:"completion_time"`
	// CompletedAt defaults to the server clock when omitted.
	CompletedAt time.Time `json:"completed_at"`
}

func (r completeLessonRequest) toContext() core.EventContext {
	at := r.CompletedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return core.EventContext{
		LessonID:        core.LessonID(r.LessonID),
		LessonTitle:     r.LessonTitle,
		LessonLevel:     r.LessonLevel,
		LessonLink:      r.LessonLink,
		VocabularyCount: r.VocabularyCount,
		GrammarCount:    r.GrammarCount,
		PerfectScore:    r.PerfectScore,
		GrammarPerfect:  r.GrammarPerfect,
		CompletionTime:  r.CompletionTime,
		CompletedAt:     at,
	}
}

// NewMux builds an http.Handler exposing the progress REST API and
// WebSocket stream.
// Routes:
//   - POST {prefix}/users/{id}/lessons
//   - GET  {prefix}/users/{id}
//   - GET  {prefix}/users/{id}/badges
//   - GET  {prefix}/users/{id}/mastery
//   - GET  {prefix}/users/{id}/challenge
//   - GET  {prefix}/challenges/today
//   - GET  {prefix}/leaderboard?n=10
//   - GET  {prefix}/analytics?day=2024-03-18
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws
func NewMux(svc *engine.ProgressService, deps Deps, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/healthz"), func(w http.ResponseWriter, r *http.Request) {
		healthCheck(w, r, svc)
	})

	if deps.Hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(deps.Hub))
	}

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/challenges/today"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		def := core.TodaysChallenge(time.Now())
		writeJSON(w, map[string]any{
			"id":          def.ID,
			"title":       def.Title,
			"description": def.Description,
			"icon":        def.Icon,
			"target":      def.Target,
			"xp_reward":   def.XPReward,
		})
	})

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/leaderboard"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || deps.Board == nil {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		n := 10
		if raw := r.URL.Query().Get("n"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > 100 {
				writeError(w, http.StatusBadRequest, "invalid_n", "n must be in 1..100", nil)
				return
			}
			n = parsed
		}
		writeJSON(w, deps.Board.TopN(n))
	})

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/analytics"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || deps.Analytics == nil {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		day := r.URL.Query().Get("day")
		if day == "" {
			day = core.Day(time.Now().UTC())
		} else if _, err := core.ParseDay(day); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_day", "day must be YYYY-MM-DD", nil)
			return
		}
		writeJSON(w, deps.Analytics.Summary(day))
	})

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/users/"), func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, opts.PathPrefix)
		if path == "" || path[0] != '/' {
			path = "/" + path
		}
		parts := split(path, '/')
		if len(parts) < 2 {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		user, err := core.NormalizeUserID(core.UserID(parts[1]))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
			return
		}

		switch {
		case r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "lessons":
			var req completeLessonRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body", nil)
				return
			}
			out, err := svc.CompleteLesson(r.Context(), user, req.toContext())
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, out)
			return

		case r.Method == http.MethodGet && len(parts) == 2:
			sum, err := svc.Profile(r.Context(), user)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, sum)
			return

		case r.Method == http.MethodGet && len(parts) == 3 && parts[2] == "badges":
			badges, err := svc.Badges(r.Context(), user)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, badges)
			return

		case r.Method == http.MethodGet && len(parts) == 3 && parts[2] == "mastery":
			mastery, err := svc.Mastery(r.Context(), user)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, mastery)
			return

		case r.Method == http.MethodGet && len(parts) == 3 && parts[2] == "challenge":
			out, err := svc.TodaysChallenge(r.Context(), user, time.Now())
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, map[string]any{
				"challenge": map[string]any{
					"id":          out.Challenge.ID,
					"title":       out.Challenge.Title,
					"description": out.Challenge.Description,
					"icon":        out.Challenge.Icon,
					"target":      out.Challenge.Target,
					"xp_reward":   out.Challenge.XPReward,
				},
				"state": out.State,
			})
			return
		}
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	return handler
}

// Helpers

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	case errors.Is(err, engine.ErrVersionConflict):
		writeError(w, http.StatusConflict, "conflict", "concurrent update, retry", nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
	}
}

// healthCheck verifies storage works with a lightweight probe read.
func healthCheck(w http.ResponseWriter, r *http.Request, svc *engine.ProgressService) {
	_, err := svc.Profile(r.Context(), "healthcheck_probe")

	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}
	code := http.StatusOK
	if err != nil {
		code = http.StatusServiceUnavailable
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func split(p string, sep rune) []string {
	var parts []string
	cur := make([]rune, 0, len(p))
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	for _, r := range p {
		if r == sep {
			if len(cur) > 0 {
				parts = append(parts, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Code: code, Message: msg, Details: details})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(next http.Handler, apiKeys []string) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			return
		}
		if _, ok := allowed[key]; !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a simple token-bucket limiter per client key.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiter := newRateLimiter(rpm, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return ""
}

// clientKey uses API key if present, otherwise remote IP.
func clientKey(r *http.Request) string {
	if key := extractAPIKey(r); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimiter struct {
	rpm   float64
	burst float64
	mu    sync.Mutex
	b     map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(rpm, burst int) *rateLimiter {
	return &rateLimiter{
		rpm:   float64(rpm),
		burst: float64(burst),
		b:     make(map[string]*bucket),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.b[key]
	if !ok {
		l.b[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	elapsed := now.Sub(b.last).Minutes()
	b.tokens += elapsed * l.rpm
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	if b.tokens < 1 {
		b.last = now
		return false
	}
	b.tokens--
	b.last = now
	return true
}
