package audio

// Splice returns a new buffer with every interval removed from original.
//
// Intervals are applied in the given order, which must be ascending by start
// with no overlaps (see BuildIntervals and FindOverlap). Each interval is
// expressed in original-timeline milliseconds; a running offset of frames
// already cut re-maps it onto the shrinking buffer. Bounds are snapped to the
// nearest frame and clamped to the recording, so a segment ending slightly
// past the end of the audio removes only what is there.
//
// The original buffer is not modified.
func Splice(original *Buffer, intervals []Interval) *Buffer {
	ch := original.Channels()
	total := original.Frames()

	data := make([]int, len(original.pcm.Data))
	copy(data, original.pcm.Data)

	offset := 0
	// cursor is the original frame where the previous removal ended.
	// No removal reaches behind it.
	cursor := 0
	for _, iv := range intervals {
		start := clampFrame(original.frameAt(iv.StartMs), cursor, total)
		end := clampFrame(original.frameAt(iv.EndMs), start, total)
		if end == start {
			continue
		}

		adjustedStart := start - offset
		adjustedEnd := end - offset
		data = append(data[:adjustedStart*ch], data[adjustedEnd*ch:]...)
		offset += adjustedEnd - adjustedStart
		cursor = end
	}

	return original.withData(data)
}

func clampFrame(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
