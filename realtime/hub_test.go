package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"lingokit/core"
	"lingokit/engine"
)

func TestHubSubscribeBroadcastUnsubscribe(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(1)

	ev := core.NewLessonCompleted("bob", "intro", 100, 100)
	h.Broadcast(context.Background(), ev)

	received := <-ch
	if received.UserID != "bob" || received.Type != core.EventLessonCompleted {
		t.Fatalf("unexpected event: %+v", received)
	}

	h.Unsubscribe(id)
	_, ok := <-ch
	if ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
}

func TestHubUserScopedSubscription(t *testing.T) {
	h := NewHub()
	id, ch := h.SubscribeUser(2, "alice")
	defer h.Unsubscribe(id)

	h.Broadcast(context.Background(), core.NewLevelUp("bob", 2, 600))
	h.Broadcast(context.Background(), core.NewLevelUp("alice", 3, 1600))

	received := <-ch
	if received.UserID != "alice" || received.Level != 3 {
		t.Fatalf("unexpected event: %+v", received)
	}
	select {
	case ev := <-ch:
		t.Fatalf("leaked foreign event: %+v", ev)
	default:
	}
}

func TestHubAttachBus(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(1)
	defer h.Unsubscribe(id)

	bus := engine.NewEventBus(engine.DispatchSync, nil)
	defer bus.Close()
	off := h.AttachBus(bus)
	defer off()

	bus.Publish(context.Background(), core.NewAchievementUnlocked("alice", "first_lesson", 50))
	received := <-ch
	if received.Achievement != "first_lesson" {
		t.Fatalf("unexpected event: %+v", received)
	}
}

func TestMarshalJSON(t *testing.T) {
	ev := core.NewChallengeCompleted("alice", "vocab_learner", 50)
	b := MarshalJSON(ev)
	var out core.Event
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Challenge != "vocab_learner" || out.XP != 50 {
		t.Fatalf("unexpected event: %+v", out)
	}
}
