package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clipforge/clipforge/internal/ffmpeg"
	"github.com/clipforge/clipforge/internal/repository"
)

// ClipHandler renders the aspect-ratio variants for one scene and enqueues
// exactly one publish item for the primary (vertical) asset.
type ClipHandler struct {
	codec    Codec
	tracker  SubjectTracker
	queue    Enqueuer
	notifier ProgressPublisher
	runs     *repository.PipelineRepository
	costs    *repository.CostRepository
}

func NewClipHandler(codec Codec, tracker SubjectTracker, queue Enqueuer, notifier ProgressPublisher,
	runs *repository.PipelineRepository, costs *repository.CostRepository) *ClipHandler {
	return &ClipHandler{codec: codec, tracker: tracker, queue: queue, notifier: notifier, runs: runs, costs: costs}
}

func (h *ClipHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ClipPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	log.Printf("Job: clipping %s scene [%.1f, %.1f]", p.VideoID, p.Scene.Start, p.Scene.End)
	reportProgress(ctx, h.notifier, p.VideoID, "Smart cropping and rendering...", 90)

	if err := h.process(ctx, p); err != nil {
		reportProgress(ctx, h.notifier, p.VideoID, "Clip rendering failed", 0)
		if h.runs != nil {
			_ = h.runs.MarkFailed(p.VideoID, string(StageClip), err.Error())
		}
		return fmt.Errorf("clip %s at %.1f: %w", p.VideoID, p.Scene.Start, err)
	}

	reportProgress(ctx, h.notifier, p.VideoID, "Clip ready!", 100)
	return nil
}

func (h *ClipHandler) process(ctx context.Context, p ClipPayload) error {
	duration := p.Scene.Duration()
	verticalPath := p.OutBase + "-vertical.mp4"
	squarePath := p.OutBase + "-square.mp4"

	cropFilter := h.smartCrop(ctx, p)

	if err := h.codec.Render(ctx, p.SegmentPath, verticalPath, p.Scene.Start, duration, ffmpeg.AspectVertical, cropFilter); err != nil {
		return fmt.Errorf("render vertical: %w", err)
	}
	if err := h.codec.Render(ctx, p.SegmentPath, squarePath, p.Scene.Start, duration, ffmpeg.AspectSquare, ""); err != nil {
		return fmt.Errorf("render square: %w", err)
	}
	log.Printf("Job: rendered %s and %s", verticalPath, squarePath)

	payload := PublishPayload{
		Stage:   StagePublish,
		VideoID: p.VideoID,
		UserID:  p.UserID,
		File:    verticalPath,
		Caption: fmt.Sprintf("Clip from %s: %s", p.VideoID, p.Scene.Reason),
	}
	if _, err := h.queue.EnqueueUnique(TaskPublish, payload, SceneDedupKey(p.VideoID, p.Scene.Start),
		asynq.Queue(QueuePublish), asynq.MaxRetry(3), asynq.Timeout(10*time.Minute)); err != nil {
		return fmt.Errorf("enqueue publish: %w", err)
	}

	if h.runs != nil {
		_ = h.runs.AdvanceStage(p.VideoID, string(StagePublish), repository.RunPublishing)
	}
	return nil
}

// smartCrop asks the subject tracker where to center the vertical crop,
// using the probed source dimensions rather than assuming a resolution.
// Any failure falls back to the default center crop.
func (h *ClipHandler) smartCrop(ctx context.Context, p ClipPayload) string {
	if h.tracker == nil {
		return ""
	}

	width, height, err := h.codec.ProbeDimensions(ctx, p.SegmentPath)
	if err != nil {
		log.Printf("Job: probe dimensions failed for %s, using center crop: %v", p.SegmentPath, err)
		return ""
	}

	midpoint := p.Scene.Start + p.Scene.Duration()/2
	centerX, ok, err := h.tracker.TrackSubject(ctx, p.SegmentPath, midpoint)
	if err != nil {
		log.Printf("Job: subject tracking failed for %s, using center crop: %v", p.VideoID, err)
		return ""
	}
	if !ok {
		return ""
	}

	if h.costs != nil {
		h.costs.RecordTracking(p.UserID, p.VideoID, p.Scene.Duration()/60)
	}
	filter := ffmpeg.CropFilter(width, height, centerX)
	log.Printf("Job: smart crop for %s: %s", p.VideoID, filter)
	return filter
}
