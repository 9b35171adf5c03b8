package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clipforge/clipforge/internal/ai"
	"github.com/clipforge/clipforge/internal/repository"
	"github.com/clipforge/clipforge/internal/retry"
	"github.com/clipforge/clipforge/internal/scenes"
)

// AnalyzeHandler scores one segment and enqueues a clip item per scene. A
// segment judged uninteresting yields zero clips, which is a normal outcome.
type AnalyzeHandler struct {
	scorer   SceneScorer
	queue    Enqueuer
	notifier ProgressPublisher
	runs     *repository.PipelineRepository
	costs    *repository.CostRepository
	tmpDir   string
}

func NewAnalyzeHandler(scorer SceneScorer, queue Enqueuer, notifier ProgressPublisher,
	runs *repository.PipelineRepository, costs *repository.CostRepository, tmpDir string) *AnalyzeHandler {
	return &AnalyzeHandler{scorer: scorer, queue: queue, notifier: notifier, runs: runs, costs: costs, tmpDir: tmpDir}
}

func (h *AnalyzeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p AnalyzePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	log.Printf("Job: analyzing %s segment %d", p.VideoID, p.SegmentIndex)
	reportProgress(ctx, h.notifier, p.VideoID, fmt.Sprintf("Analyzing segment %d...", p.SegmentIndex+1), 75)

	if err := h.process(ctx, p); err != nil {
		reportProgress(ctx, h.notifier, p.VideoID, "Analysis failed", 0)
		if h.runs != nil {
			_ = h.runs.MarkFailed(p.VideoID, string(StageAnalyze), err.Error())
		}
		return fmt.Errorf("analyze %s segment %d: %w", p.VideoID, p.SegmentIndex, err)
	}
	return nil
}

func (h *AnalyzeHandler) process(ctx context.Context, p AnalyzePayload) error {
	opts := retry.DefaultOptions()
	opts.Retryable = retry.IsTransient

	var moments []ai.ViralMoment
	err := retry.Do(ctx, func(ctx context.Context) error {
		var serr error
		moments, serr = h.scorer.ScoreSegment(ctx, p.SegmentPath)
		return serr
	}, opts)
	if err != nil {
		return fmt.Errorf("score segment: %w", err)
	}

	list, err := normalizeMoments(moments)
	if err != nil {
		return err
	}

	// Audit snapshot with rounded fields, written before any fan-out so a
	// redelivered item simply overwrites it.
	if data, serr := scenes.Serialize(list); serr == nil {
		auditPath := filepath.Join(h.tmpDir, fmt.Sprintf("%s-segment-%d-scenes.json", p.VideoID, p.SegmentIndex))
		if werr := os.WriteFile(auditPath, data, 0o644); werr != nil {
			log.Printf("Job: failed to write scene audit for %s: %v", p.VideoID, werr)
		}
	}

	if len(list) == 0 {
		log.Printf("Job: segment %d of %s judged uninteresting, no clips", p.SegmentIndex, p.VideoID)
		return nil
	}

	for _, scene := range list {
		payload := ClipPayload{
			Stage:        StageClip,
			VideoID:      p.VideoID,
			UserID:       p.UserID,
			SegmentPath:  p.SegmentPath,
			SegmentIndex: p.SegmentIndex,
			Scene:        scene,
			OutBase:      filepath.Join(h.tmpDir, fmt.Sprintf("%s-segment-%d", p.VideoID, p.SegmentIndex)),
		}
		if _, err := h.queue.EnqueueUnique(TaskClip, payload, SceneDedupKey(p.VideoID, scene.Start),
			asynq.Queue(QueueClip), asynq.MaxRetry(3), asynq.Timeout(30*time.Minute)); err != nil {
			return fmt.Errorf("enqueue clip: %w", err)
		}
		log.Printf("Job: enqueued clip for %s scene [%.1f, %.1f] score %.2f", p.VideoID, scene.Start, scene.End, scene.Score)
	}

	if h.runs != nil {
		_ = h.runs.AdvanceStage(p.VideoID, string(StageClip), repository.RunClipping)
	}
	return nil
}

// normalizeMoments converts the scorer's native verdicts into scenes with
// scores clamped to [0,1]. A malformed verdict is a permanent failure: the
// offending moment is echoed in the error for diagnosis.
func normalizeMoments(moments []ai.ViralMoment) ([]scenes.Scene, error) {
	list := make([]scenes.Scene, 0, len(moments))
	for _, m := range moments {
		start, err := ai.ParseClock(m.StartTime)
		if err != nil {
			return nil, fmt.Errorf("malformed moment %+v: %w", m, err)
		}
		end, err := ai.ParseClock(m.EndTime)
		if err != nil {
			return nil, fmt.Errorf("malformed moment %+v: %w", m, err)
		}
		if end <= start {
			return nil, fmt.Errorf("malformed moment %+v: end not after start", m)
		}

		score := m.ViralScore / 100
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		list = append(list, scenes.Scene{Start: start, End: end, Score: score, Reason: m.Explanation})
	}
	return list, nil
}
