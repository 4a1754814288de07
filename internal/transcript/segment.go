// Package transcript holds the timestamped output of a transcription engine
// and the strategies used to select segments from it by text.
package transcript

import "fmt"

// Segment is a contiguous span of audio mapped to recognised text.
// Start and End are offsets in seconds from the beginning of the recording.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// String returns a compact representation used in logs and error messages.
func (s Segment) String() string {
	return fmt.Sprintf("%q [%.3fs-%.3fs]", s.Text, s.Start, s.End)
}

// Transcript is the ordered segment list produced for one audio asset.
// Segments arrive in chronological order from the engine; that order is
// not re-checked here.
type Transcript struct {
	AssetID  string    `json:"asset_id"`
	Segments []Segment `json:"segments"`
}

// Clone returns a copy whose segment slice does not alias the receiver's.
func (t Transcript) Clone() Transcript {
	segments := make([]Segment, len(t.Segments))
	copy(segments, t.Segments)
	return Transcript{AssetID: t.AssetID, Segments: segments}
}
