package progress

import "context"

// Event is one coarse status update for a video moving through the pipeline.
// Events are ephemeral: the channel never replays history.
type Event struct {
	VideoID  string `json:"video_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// StatusConnected is the synthetic event emitted to every new subscriber so
// observers can tell "not yet started" apart from a silent channel.
const StatusConnected = "connected"

// Broker broadcasts events to any number of live observers. Publish is
// fan-out: every subscriber active at publish time receives the event.
type Broker interface {
	// Publish delivers ev to all current subscribers of ev.VideoID.
	Publish(ctx context.Context, ev Event) error

	// Subscribe returns a channel of events for videoID, beginning with a
	// synthetic connected event. The channel is closed and resources are
	// released when ctx is cancelled.
	Subscribe(ctx context.Context, videoID string) (<-chan Event, error)
}
