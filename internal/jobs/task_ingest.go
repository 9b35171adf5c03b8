package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clipforge/clipforge/internal/planner"
	"github.com/clipforge/clipforge/internal/repository"
	"github.com/clipforge/clipforge/internal/retry"
)

// IngestHandler stages source media, plans segments and fans out one analyze
// item per segment. The fan-out is all-or-nothing: a single failed cut fails
// the whole attempt before anything is enqueued downstream, which keeps the
// ingest step idempotent under queue redelivery.
type IngestHandler struct {
	source      MediaSource
	codec       Codec
	transcriber Transcriber
	regions     RegionFinder
	queue       Enqueuer
	notifier    ProgressPublisher
	runs        *repository.PipelineRepository
	costs       *repository.CostRepository
	tmpDir      string
	padding     float64
}

func NewIngestHandler(source MediaSource, codec Codec, transcriber Transcriber, regions RegionFinder,
	queue Enqueuer, notifier ProgressPublisher, runs *repository.PipelineRepository,
	costs *repository.CostRepository, tmpDir string, padding float64) *IngestHandler {
	return &IngestHandler{
		source: source, codec: codec, transcriber: transcriber, regions: regions,
		queue: queue, notifier: notifier, runs: runs, costs: costs,
		tmpDir: tmpDir, padding: padding,
	}
}

func (h *IngestHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p IngestPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	log.Printf("Job: ingesting video %s", p.VideoID)
	if h.runs != nil {
		if err := h.runs.StartRun(p.VideoID); err != nil {
			log.Printf("Job: failed to record run start for %s: %v", p.VideoID, err)
		}
	}
	reportProgress(ctx, h.notifier, p.VideoID, "Starting ingest...", 5)

	err := h.process(ctx, p)
	if err != nil {
		reportProgress(ctx, h.notifier, p.VideoID, "Ingest failed", 0)
		if h.runs != nil {
			_ = h.runs.MarkFailed(p.VideoID, string(StageIngest), err.Error())
		}
		return fmt.Errorf("ingest %s: %w", p.VideoID, err)
	}
	return nil
}

func (h *IngestHandler) process(ctx context.Context, p IngestPayload) error {
	opts := retry.DefaultOptions()
	opts.Retryable = retry.IsTransient

	var source string
	err := retry.Do(ctx, func(ctx context.Context) error {
		var ferr error
		source, ferr = h.source.Fetch(ctx, p.VideoID)
		return ferr
	}, opts)
	if err != nil {
		return fmt.Errorf("fetch source: %w", err)
	}

	duration, err := h.codec.ProbeDuration(ctx, source)
	if err != nil {
		return fmt.Errorf("probe duration: %w", err)
	}

	segments, err := h.planSegments(ctx, p, source, duration)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		log.Printf("Job: video %s has nothing to process (duration %.1fs)", p.VideoID, duration)
		reportProgress(ctx, h.notifier, p.VideoID, "Nothing to process", 100)
		return nil
	}

	reportProgress(ctx, h.notifier, p.VideoID, fmt.Sprintf("Cutting %d segments...", len(segments)), 60)

	// Fan out the segment cuts; wait for every one before enqueueing so a
	// partial failure never commits a partial set of analyze items.
	paths := make([]string, len(segments))
	errs := make([]error, len(segments))
	var wg sync.WaitGroup
	for i, seg := range segments {
		wg.Add(1)
		go func(i int, seg planner.Segment) {
			defer wg.Done()
			out := filepath.Join(h.tmpDir, fmt.Sprintf("%s-segment-%d.mp4", p.VideoID, seg.Index))
			if err := h.codec.Cut(ctx, source, out, seg.Start, seg.End-seg.Start); err != nil {
				errs[i] = fmt.Errorf("cut segment %d: %w", seg.Index, err)
				return
			}
			paths[i] = out
		}(i, seg)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	for i, seg := range segments {
		payload := AnalyzePayload{
			Stage:        StageAnalyze,
			VideoID:      p.VideoID,
			UserID:       p.UserID,
			SegmentPath:  paths[i],
			SegmentIndex: seg.Index,
		}
		if _, err := h.queue.EnqueueUnique(TaskAnalyze, payload, AnalyzeDedupKey(p.VideoID, seg.Index),
			asynq.Queue(QueueAnalyze), asynq.MaxRetry(3), asynq.Timeout(30*time.Minute)); err != nil {
			return fmt.Errorf("enqueue analyze %d: %w", seg.Index, err)
		}
		log.Printf("Job: enqueued analyze for %s segment %d [%.1f, %.1f]", p.VideoID, seg.Index, seg.Start, seg.End)
	}

	if h.runs != nil {
		_ = h.runs.AdvanceStage(p.VideoID, string(StageAnalyze), repository.RunAnalyzing)
	}
	reportProgress(ctx, h.notifier, p.VideoID, "Segments queued for visual analysis", 70)
	return nil
}

// planSegments prefers the refined audio-first path: transcribe, flag
// high-interest regions and merge them into cut-ready windows. It falls back
// to uniform chunking when the collaborators are absent or find nothing.
func (h *IngestHandler) planSegments(ctx context.Context, p IngestPayload, source string, duration float64) ([]planner.Segment, error) {
	if h.transcriber == nil || h.regions == nil {
		return planner.PlanDefault(duration), nil
	}

	opts := retry.DefaultOptions()
	opts.Retryable = retry.IsTransient

	reportProgress(ctx, h.notifier, p.VideoID, "Extracting audio track...", 10)
	audioPath := filepath.Join(h.tmpDir, p.VideoID+"-full.mp3")
	if err := h.codec.ExtractAudio(ctx, source, audioPath, -1, 0); err != nil {
		return nil, fmt.Errorf("extract audio: %w", err)
	}

	reportProgress(ctx, h.notifier, p.VideoID, "Transcribing audio...", 20)
	var transcript string
	err := retry.Do(ctx, func(ctx context.Context) error {
		var terr error
		transcript, terr = h.transcriber.Transcribe(ctx, audioPath)
		return terr
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	if h.costs != nil {
		h.costs.RecordTranscription(p.UserID, p.VideoID, duration)
	}

	reportProgress(ctx, h.notifier, p.VideoID, "Finding high-interest regions...", 40)
	var regions []planner.InterestRegion
	err = retry.Do(ctx, func(ctx context.Context) error {
		var rerr error
		regions, rerr = h.regions.FindInterestRegions(ctx, transcript)
		return rerr
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("find interest regions: %w", err)
	}
	log.Printf("Job: found %d interest regions in %s", len(regions), p.VideoID)

	if len(regions) == 0 {
		return planner.PlanDefault(duration), nil
	}

	reportProgress(ctx, h.notifier, p.VideoID, "Optimizing segments...", 50)
	merged := planner.MergeRegions(regions, h.padding, duration)
	segments := make([]planner.Segment, len(merged))
	for i, region := range merged {
		segments[i] = planner.Segment{Start: region.Start, End: region.End, Index: i}
	}
	log.Printf("Job: merged into %d segments for %s", len(segments), p.VideoID)
	return segments, nil
}
