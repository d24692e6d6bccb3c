package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	ws "lingokit/adapters/websocket"
	"lingokit/core"
	"lingokit/engine"
	"lingokit/leaderboard"
	"lingokit/lingo"
	"lingokit/realtime"
)

func main() {
	// Readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(textHandler))

	hub := realtime.NewHub()
	board := leaderboard.NewSkipList()
	svc, err := lingo.New(
		lingo.WithRealtime(hub),
		lingo.WithLeaderboard(board),
		lingo.WithDispatchMode(engine.DispatchAsync),
	)
	if err != nil {
		slog.Error("failed to build service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	http.Handle("/ws", ws.Handler(hub))
	http.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		// routes: POST /users/{id}/lessons, GET /users/{id}
		parts := split(r.URL.Path, '/')
		if len(parts) < 2 {
			http.NotFound(w, r)
			return
		}
		user := core.UserID(parts[1])
		switch r.Method {
		case http.MethodPost:
			if len(parts) >= 3 && parts[2] == "lessons" {
				var ectx core.EventContext
				if err := json.NewDecoder(r.Body).Decode(&ectx); err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				if ectx.CompletedAt.IsZero() {
					ectx.CompletedAt = time.Now().UTC()
				}
				out, err := svc.CompleteLesson(r.Context(), user, ectx)
				if err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				writeJSON(w, out)
				return
			}
		case http.MethodGet:
			sum, err := svc.Profile(r.Context(), user)
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			writeJSON(w, sum)
			return
		}
		http.NotFound(w, r)
	})
	http.HandleFunc("/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, board.TopN(10))
	})

	slog.Info("starting demo server on :8080")

	if err := http.ListenAndServe(":8080", nil); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func split(p string, sep rune) []string {
	var parts []string
	current := make([]rune, 0, len(p))

	for _, r := range p {
		if r == sep {
			if len(current) > 0 {
				parts = append(parts, string(current))
				current = current[:0]
			}
			continue
		}
		current = append(current, r)
	}

	if len(current) > 0 {
		parts = append(parts, string(current))
	}

	return parts
}
