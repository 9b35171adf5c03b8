package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/clipforge/clipforge/internal/progress"
)

func recv(t *testing.T, ch <-chan progress.Event) progress.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return progress.Event{}
}

func TestSubscribeEmitsConnectedFirst(t *testing.T) {
	hub := progress.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := hub.Subscribe(ctx, "vid-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	ev := recv(t, ch)
	if ev.Status != progress.StatusConnected || ev.Progress != 0 {
		t.Fatalf("first event = %+v, want connected/0", ev)
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	hub := progress.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, _ := hub.Subscribe(ctx, "vid-1")
	b, _ := hub.Subscribe(ctx, "vid-1")
	recv(t, a)
	recv(t, b)

	if err := hub.Publish(ctx, progress.Event{VideoID: "vid-1", Status: "ingesting", Progress: 5}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, ch := range []<-chan progress.Event{a, b} {
		ev := recv(t, ch)
		if ev.Status != "ingesting" || ev.Progress != 5 {
			t.Fatalf("event = %+v", ev)
		}
	}
}

func TestPublishIsScopedToVideoID(t *testing.T) {
	hub := progress.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	other, _ := hub.Subscribe(ctx, "vid-2")
	recv(t, other)

	hub.Publish(ctx, progress.Event{VideoID: "vid-1", Status: "clipping", Progress: 90})

	select {
	case ev := <-other:
		t.Fatalf("subscriber of vid-2 received %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	hub := progress.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub.Publish(ctx, progress.Event{VideoID: "vid-1", Status: "ingesting", Progress: 5})

	ch, _ := hub.Subscribe(ctx, "vid-1")
	if ev := recv(t, ch); ev.Status != progress.StatusConnected {
		t.Fatalf("late subscriber saw replayed event %+v", ev)
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected replay: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelUnsubscribes(t *testing.T) {
	hub := progress.NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	ch, _ := hub.Subscribe(ctx, "vid-1")
	recv(t, ch)
	cancel()

	// The channel closes once the subscription is torn down.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if n := hub.SubscriberCount("vid-1"); n != 0 {
					t.Fatalf("subscriber count = %d after cancel", n)
				}
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}
