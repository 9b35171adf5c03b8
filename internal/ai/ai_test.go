package ai_test

import (
	"context"
	"testing"

	"github.com/clipforge/clipforge/internal/ai"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"00:00", 0},
		{"00:10", 10},
		{"01:30", 90},
		{"12:05", 725},
		{"42.5", 42.5},
	}
	for _, tc := range cases {
		got, err := ai.ParseClock(tc.in)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseClock(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseClockRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "1:xx", "x:30"} {
		if _, err := ai.ParseClock(in); err == nil {
			t.Fatalf("ParseClock(%q) accepted garbage", in)
		}
	}
}

func TestRateLimitedScorerDelegates(t *testing.T) {
	scorer := ai.NewRateLimitedScorer(ai.NewStubScorer(), 600, 5)
	moments, err := scorer.ScoreSegment(context.Background(), "/tmp/seg.mp4")
	if err != nil {
		t.Fatalf("ScoreSegment: %v", err)
	}
	if len(moments) != 1 || moments[0].Explanation != "exciting" {
		t.Fatalf("moments = %+v", moments)
	}
}
