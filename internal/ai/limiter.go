package ai

import (
	"context"

	"golang.org/x/time/rate"
)

// Scorer is the scene-scoring collaborator surface the limiter wraps.
type Scorer interface {
	ScoreSegment(ctx context.Context, segmentPath string) ([]ViralMoment, error)
}

// RateLimitedScorer throttles scoring calls so parallel analyze workers stay
// inside the external model's quota.
type RateLimitedScorer struct {
	inner   Scorer
	limiter *rate.Limiter
}

// NewRateLimitedScorer allows callsPerMinute sustained calls with a burst of
// burst.
func NewRateLimitedScorer(inner Scorer, callsPerMinute float64, burst int) *RateLimitedScorer {
	return &RateLimitedScorer{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(callsPerMinute/60), burst),
	}
}

func (s *RateLimitedScorer) ScoreSegment(ctx context.Context, segmentPath string) ([]ViralMoment, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.ScoreSegment(ctx, segmentPath)
}
