package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/clipforge/clipforge/internal/repository"
	"github.com/clipforge/clipforge/internal/retry"
)

// DefaultPlatform receives rendered clips unless the payload says otherwise.
const DefaultPlatform = "youtube"

// PublishHandler hands the rendered asset to the platform collaborator.
// This is the one best-effort stage: a failure is logged and reported but
// never fails the video's pipeline.
type PublishHandler struct {
	publisher PlatformPublisher
	notifier  ProgressPublisher
	runs      *repository.PipelineRepository
}

func NewPublishHandler(publisher PlatformPublisher, notifier ProgressPublisher, runs *repository.PipelineRepository) *PublishHandler {
	return &PublishHandler{publisher: publisher, notifier: notifier, runs: runs}
}

func (h *PublishHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p PublishPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	log.Printf("Job: publishing %s for video %s", p.File, p.VideoID)

	opts := retry.DefaultOptions()
	opts.Retryable = retry.IsTransient
	err := retry.Do(ctx, func(ctx context.Context) error {
		return h.publisher.Publish(ctx, p.UserID, p.File, DefaultPlatform, map[string]string{
			"title":          truncate(p.Caption, 100),
			"description":    p.Caption + "\n\n#Shorts",
			"privacy_status": "private",
		})
	}, opts)
	if err != nil {
		// Best effort: report, record, move on.
		log.Printf("Job: publish failed for %s (non-fatal): %v", p.VideoID, err)
		reportProgress(ctx, h.notifier, p.VideoID, "Publish failed (will not retry)", 100)
		return nil
	}

	log.Printf("Job: published %s", p.File)
	reportProgress(ctx, h.notifier, p.VideoID, "Published!", 100)
	if h.runs != nil {
		_ = h.runs.Complete(p.VideoID)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
