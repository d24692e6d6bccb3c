// Package websocket streams progress events to browser dashboards.
package websocket

import (
	"net/http"
	"time"

	"lingokit/core"
	"lingokit/realtime"

	gorillaws "github.com/gorilla/websocket"
)

// Handler returns an http.Handler that upgrades to WebSocket and streams
// events from the hub. An optional ?user= query scopes the stream to one
// learner's events.
func Handler(hub *realtime.Hub) http.Handler {
	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var id int
		var ch <-chan core.Event
		if raw := r.URL.Query().Get("user"); raw != "" {
			user, err := core.NormalizeUserID(core.UserID(raw))
			if err != nil {
				return
			}
			id, ch = hub.SubscribeUser(256, user)
		} else {
			id, ch = hub.Subscribe(256)
		}
		defer hub.Unsubscribe(id)

		for ev := range ch {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(gorillaws.TextMessage, realtime.MarshalJSON(ev)); err != nil {
				return
			}
		}
	})
}
