package audio

import (
	"fmt"
	"sort"

	"github.com/Sid-Veeravalli/trim-pro/internal/transcript"
)

// Interval is a time range to remove, in milliseconds of the original audio.
type Interval struct {
	StartMs float64 `json:"start_ms"`
	EndMs   float64 `json:"end_ms"`
}

// DurationMs returns the interval length.
func (i Interval) DurationMs() float64 {
	return i.EndMs - i.StartMs
}

// String formats the interval for logs.
func (i Interval) String() string {
	return fmt.Sprintf("[%.1fms-%.1fms)", i.StartMs, i.EndMs)
}

// BuildIntervals converts segments to millisecond intervals sorted by start,
// then by end. Overlapping or adjacent intervals are kept as they are.
func BuildIntervals(segments []transcript.Segment) []Interval {
	intervals := make([]Interval, len(segments))
	for i, seg := range segments {
		intervals[i] = Interval{
			StartMs: seg.Start * 1000,
			EndMs:   seg.End * 1000,
		}
	}

	sort.SliceStable(intervals, func(a, b int) bool {
		if intervals[a].StartMs != intervals[b].StartMs {
			return intervals[a].StartMs < intervals[b].StartMs
		}
		return intervals[a].EndMs < intervals[b].EndMs
	})
	return intervals
}

// FindOverlap reports the first interval in a sorted list that starts before
// an earlier interval has ended. Touching intervals do not overlap.
func FindOverlap(sorted []Interval) (earlier, later Interval, found bool) {
	if len(sorted) < 2 {
		return Interval{}, Interval{}, false
	}

	widest := sorted[0]
	for _, iv := range sorted[1:] {
		if iv.StartMs < widest.EndMs {
			return widest, iv, true
		}
		if iv.EndMs > widest.EndMs {
			widest = iv
		}
	}
	return Interval{}, Interval{}, false
}

// TotalMs sums the lengths of the intervals.
func TotalMs(intervals []Interval) float64 {
	var total float64
	for _, iv := range intervals {
		total += iv.DurationMs()
	}
	return total
}
