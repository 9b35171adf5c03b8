package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "video-progress:"

// RedisBroker broadcasts events over redis pub/sub so progress published by
// a worker process reaches observers connected to any API process.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(addr string) *RedisBroker {
	return &RedisBroker{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, channelPrefix+ev.VideoID, payload).Err(); err != nil {
		return fmt.Errorf("publish progress: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, videoID string) (<-chan Event, error) {
	pubsub := b.client.Subscribe(ctx, channelPrefix+videoID)
	// Force the subscription onto the wire before reporting connected, so
	// no event published after Subscribe returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe progress: %w", err)
	}

	ch := make(chan Event, 64)
	ch <- Event{VideoID: videoID, Status: StatusConnected, Progress: 0}

	go func() {
		defer close(ch)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("Progress: dropping malformed event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// Close releases the underlying redis connection.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
