// Package ai holds the types exchanged with the external scoring
// collaborators plus deterministic stub implementations. Stubs are wired in
// when MOCK_AI is set and exercised by the pipeline tests; production
// deployments swap in real clients behind the same interfaces.
package ai

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/clipforge/clipforge/internal/planner"
)

// ViralMoment is the scorer's native verdict for one moment: clock-style
// timestamps and a 0-100 interest score. The analyze stage parses and
// normalizes it into a Scene.
type ViralMoment struct {
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	ViralScore  float64 `json:"viral_score"`
	Explanation string  `json:"explanation"`
}

// ParseClock converts "MM:SS" (or a bare seconds value) to seconds.
func ParseClock(value string) (float64, error) {
	if strings.Contains(value, ":") {
		parts := strings.SplitN(value, ":", 2)
		minutes, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", value, err)
		}
		seconds, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", value, err)
		}
		return float64(minutes*60 + seconds), nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return v, nil
}

// ──────── Stub collaborators ────────

// StubScorer returns a fixed set of moments for every segment.
type StubScorer struct {
	Moments []ViralMoment
}

func NewStubScorer() *StubScorer {
	return &StubScorer{Moments: []ViralMoment{
		{StartTime: "00:01", EndTime: "00:06", ViralScore: 92, Explanation: "exciting"},
	}}
}

func (s *StubScorer) ScoreSegment(_ context.Context, segmentPath string) ([]ViralMoment, error) {
	log.Printf("AI: stub scorer returning %d moments for %s", len(s.Moments), segmentPath)
	return s.Moments, nil
}

// StubTranscriber returns a canned transcript.
type StubTranscriber struct{}

func (StubTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	log.Printf("AI: stub transcriber for %s", audioPath)
	return "Mock transcript: this video is about viral marketing. It is very funny and interesting.", nil
}

// StubRegionFinder flags one region at the start of the media.
type StubRegionFinder struct{}

func (StubRegionFinder) FindInterestRegions(_ context.Context, transcript string) ([]planner.InterestRegion, error) {
	log.Printf("AI: stub region finder over %d chars of transcript", len(transcript))
	return []planner.InterestRegion{{Start: 0, End: 10, Reason: "Mock region", Score: 90}}, nil
}

// StubTracker reports the subject dead center of the frame.
type StubTracker struct{}

func (StubTracker) TrackSubject(_ context.Context, path string, atSec float64) (float64, bool, error) {
	log.Printf("AI: stub tracker at %.1fs in %s", atSec, path)
	return 0.5, true, nil
}

// StubPublisher logs instead of uploading.
type StubPublisher struct{}

func (StubPublisher) Publish(_ context.Context, userID, assetPath, platform string, metadata map[string]string) error {
	log.Printf("AI: stub publish of %s to %s for user %s (%d metadata fields)", assetPath, platform, userID, len(metadata))
	return nil
}
