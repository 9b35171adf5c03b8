package scenes

import (
	"encoding/json"
	"math"
)

// Scene is a scored sub-interval of a segment selected for clip rendering.
// Score is always normalized to [0,1] by the time a Scene is constructed,
// whatever scale the scoring collaborator reports natively.
type Scene struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Duration returns the scene length in seconds.
func (s Scene) Duration() float64 {
	return s.End - s.Start
}

// Serialize renders scenes as indented JSON with time bounds rounded to 3
// decimals and scores to 4, so audit snapshots are stable and diff-friendly.
func Serialize(list []Scene) ([]byte, error) {
	rounded := make([]Scene, len(list))
	for i, s := range list {
		s.Start = round(s.Start, 3)
		s.End = round(s.End, 3)
		s.Score = round(s.Score, 4)
		rounded[i] = s
	}
	return json.MarshalIndent(rounded, "", "  ")
}

func round(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
