package jobs

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/clipforge/clipforge/internal/ai"
	"github.com/clipforge/clipforge/internal/ffmpeg"
	"github.com/clipforge/clipforge/internal/planner"
	"github.com/clipforge/clipforge/internal/progress"
	"github.com/clipforge/clipforge/internal/scenes"
)

const (
	TaskIngest  = "pipeline:ingest"
	TaskAnalyze = "pipeline:analyze"
	TaskClip    = "pipeline:clip"
	TaskPublish = "pipeline:publish"
)

const (
	QueueIngest  = "ingest"
	QueueAnalyze = "analyze"
	QueueClip    = "clip"
	QueuePublish = "publish"
)

// Stage discriminates the payload variants so consumers can handle every
// shape exhaustively.
type Stage string

const (
	StageIngest  Stage = "ingest"
	StageAnalyze Stage = "analyze"
	StageClip    Stage = "clip"
	StagePublish Stage = "publish"
)

// ──────── Payloads ────────

type IngestPayload struct {
	Stage   Stage  `json:"stage"`
	VideoID string `json:"video_id"`
	UserID  string `json:"user_id,omitempty"`
}

type AnalyzePayload struct {
	Stage        Stage  `json:"stage"`
	VideoID      string `json:"video_id"`
	UserID       string `json:"user_id,omitempty"`
	SegmentPath  string `json:"segment_path"`
	SegmentIndex int    `json:"segment_index"`
}

type ClipPayload struct {
	Stage        Stage        `json:"stage"`
	VideoID      string       `json:"video_id"`
	UserID       string       `json:"user_id,omitempty"`
	SegmentPath  string       `json:"segment_path"`
	SegmentIndex int          `json:"segment_index"`
	Scene        scenes.Scene `json:"scene"`
	OutBase      string       `json:"out_base"`
}

type PublishPayload struct {
	Stage   Stage  `json:"stage"`
	VideoID string `json:"video_id"`
	UserID  string `json:"user_id,omitempty"`
	File    string `json:"file"`
	Caption string `json:"caption"`
}

// ──────── Dedup keys ────────
//
// Dedup keys are pure functions of a queued item's logical coordinates,
// never of wall-clock time or random identifiers, so a crash-and-retry
// upstream collapses onto the same downstream item.

// IngestDedupKey identifies the single ingest item for a video.
func IngestDedupKey(videoID string) string {
	return videoID + ":0"
}

// AnalyzeDedupKey identifies one segment's analyze item by its position.
func AnalyzeDedupKey(videoID string, segmentIndex int) string {
	return fmt.Sprintf("%s:%d", videoID, segmentIndex)
}

// SceneDedupKey identifies clip and publish items by the scene's start time.
func SceneDedupKey(videoID string, sceneStart float64) string {
	return videoID + ":" + strconv.FormatFloat(sceneStart, 'f', -1, 64)
}

// ──────── Collaborator interfaces ────────

// MediaSource stages source media locally.
type MediaSource interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

// Codec is the external codec invocation surface.
type Codec interface {
	ProbeDuration(ctx context.Context, file string) (float64, error)
	ProbeDimensions(ctx context.Context, file string) (width, height int, err error)
	Cut(ctx context.Context, input, output string, start, duration float64) error
	Render(ctx context.Context, input, output string, start, duration float64, profile ffmpeg.AspectProfile, cropFilter string) error
	ExtractAudio(ctx context.Context, input, output string, start, duration float64) error
}

// SceneScorer finds viral moments within one segment.
type SceneScorer interface {
	ScoreSegment(ctx context.Context, segmentPath string) ([]ai.ViralMoment, error)
}

// Transcriber turns an audio track into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// RegionFinder flags high-interest regions in a transcript.
type RegionFinder interface {
	FindInterestRegions(ctx context.Context, transcript string) ([]planner.InterestRegion, error)
}

// SubjectTracker locates the dominant subject for smart cropping. ok is
// false when no subject was found at that timestamp.
type SubjectTracker interface {
	TrackSubject(ctx context.Context, file string, atSec float64) (centerX float64, ok bool, err error)
}

// PlatformPublisher hands a rendered asset to a social platform.
type PlatformPublisher interface {
	Publish(ctx context.Context, userID, assetPath, platform string, metadata map[string]string) error
}

// ProgressPublisher broadcasts per-video status to live observers.
type ProgressPublisher interface {
	Publish(ctx context.Context, ev progress.Event) error
}

// reportProgress publishes a milestone, logging rather than failing the job
// when the broadcast medium is down.
func reportProgress(ctx context.Context, p ProgressPublisher, videoID, status string, pct int) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, progress.Event{VideoID: videoID, Status: status, Progress: pct}); err != nil {
		log.Printf("Job: failed to publish progress for %s: %v", videoID, err)
	}
}

// RegisterHandlers binds every stage handler to its task type.
func RegisterHandlers(q *Queue, ingest *IngestHandler, analyze *AnalyzeHandler, clip *ClipHandler, publish *PublishHandler) {
	q.RegisterHandler(TaskIngest, ingest)
	q.RegisterHandler(TaskAnalyze, analyze)
	q.RegisterHandler(TaskClip, clip)
	q.RegisterHandler(TaskPublish, publish)
}
