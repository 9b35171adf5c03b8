package planner

import "sort"

// InterestRegion is a candidate interval flagged by the content scorer before
// merging and padding. Scores are on the scorer's native 0-100 scale.
type InterestRegion struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}

// MergeRegions collapses sparse flagged regions into padded, non-overlapping
// intervals suitable for cutting. Each region is widened by padding (floored
// at 0, capped at maxDuration); regions whose padded windows touch or overlap
// are merged, keeping the higher score and concatenating the reasons.
// Input values are never mutated; output order is ascending by start.
func MergeRegions(regions []InterestRegion, padding, maxDuration float64) []InterestRegion {
	if len(regions) == 0 {
		return nil
	}

	sorted := make([]InterestRegion, len(regions))
	copy(sorted, regions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	pad := func(r InterestRegion) InterestRegion {
		r.Start -= padding
		if r.Start < 0 {
			r.Start = 0
		}
		r.End += padding
		if r.End > maxDuration {
			r.End = maxDuration
		}
		return r
	}

	var merged []InterestRegion
	current := pad(sorted[0])

	for _, region := range sorted[1:] {
		next := pad(region)
		// Inclusive comparison: back-to-back padded regions merge rather
		// than rendering as two clips with no content gap between them.
		if next.Start <= current.End {
			if next.End > current.End {
				current.End = next.End
			}
			current.Reason = current.Reason + " + " + next.Reason
			if next.Score > current.Score {
				current.Score = next.Score
			}
		} else {
			merged = append(merged, current)
			current = next
		}
	}
	merged = append(merged, current)
	return merged
}
