package planner

// Segment is one bounded slice of source media, the unit of analyze work.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Index int     `json:"index"`
}

const (
	// DefaultMaxLength is the segment length used when chunking long media.
	DefaultMaxLength = 15 * 60

	// DefaultOverlap is the number of seconds consecutive segments share so
	// content spanning a cut boundary is not lost.
	DefaultOverlap = 30

	// singleSegmentThreshold: media at or under 50 minutes is analyzed as a
	// single segment, skipping the chunking overhead entirely.
	singleSegmentThreshold = 50 * 60
)

// Plan splits a media duration into overlapping bounded segments. The output
// is a pure function of the inputs: no I/O, no randomness.
func Plan(duration, maxLength, overlap float64) []Segment {
	if duration <= 0 {
		return nil
	}

	if duration <= singleSegmentThreshold {
		return []Segment{{Start: 0, End: duration, Index: 0}}
	}

	var segments []Segment
	start := 0.0
	index := 0

	for start < duration {
		end := start + maxLength
		if end > duration {
			end = duration
		}
		segments = append(segments, Segment{Start: start, End: end, Index: index})
		if end == duration {
			break
		}
		start = end - overlap
		index++
	}

	return segments
}

// PlanDefault plans with the standard 15-minute segment length and 30-second
// overlap.
func PlanDefault(duration float64) []Segment {
	return Plan(duration, DefaultMaxLength, DefaultOverlap)
}
