package progress

import (
	"context"
	"sync"
)

// Hub is an in-process Broker. A single-process deployment (and the test
// suite) uses it directly; multi-process deployments use the redis broker so
// workers and the API server share one broadcast medium.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{} // videoID → subscriber channels
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.VideoID] {
		// Slow subscribers drop events rather than block the publisher.
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, videoID string) (<-chan Event, error) {
	ch := make(chan Event, 64)

	h.mu.Lock()
	if h.subs[videoID] == nil {
		h.subs[videoID] = make(map[chan Event]struct{})
	}
	h.subs[videoID][ch] = struct{}{}
	h.mu.Unlock()

	ch <- Event{VideoID: videoID, Status: StatusConnected, Progress: 0}

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs[videoID], ch)
		if len(h.subs[videoID]) == 0 {
			delete(h.subs, videoID)
		}
		h.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// SubscriberCount reports the live subscribers for a video.
func (h *Hub) SubscriberCount(videoID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[videoID])
}
