package transcript

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownStrategy is returned by StrategyByName for unsupported names.
var ErrUnknownStrategy = errors.New("transcript: unknown match strategy")

// Matcher decides whether a segment's text selects it for a requested phrase.
type Matcher interface {
	// Name identifies the strategy in configuration and logs.
	Name() string
	// Matches reports whether segmentText is selected by phrase.
	Matches(segmentText, phrase string) bool
}

// Exact selects segments whose text is byte-for-byte equal to the phrase.
// Case and surrounding whitespace are significant.
type Exact struct{}

// Name implements Matcher.
func (Exact) Name() string { return "exact" }

// Matches implements Matcher.
func (Exact) Matches(segmentText, phrase string) bool {
	return segmentText == phrase
}

// Normalized compares text after trimming surrounding whitespace and folding
// case. Whisper emits segments with a leading space, which this ignores.
type Normalized struct{}

// Name implements Matcher.
func (Normalized) Name() string { return "normalized" }

// Matches implements Matcher.
func (Normalized) Matches(segmentText, phrase string) bool {
	return strings.EqualFold(strings.TrimSpace(segmentText), strings.TrimSpace(phrase))
}

// StrategyByName returns the Matcher registered under name.
// An empty name selects Exact.
func StrategyByName(name string) (Matcher, error) {
	switch strings.ToLower(name) {
	case "", "exact":
		return Exact{}, nil
	case "normalized":
		return Normalized{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Hit is one segment selected by one requested phrase.
type Hit struct {
	// Phrase is the requested text that produced the hit.
	Phrase string
	// Index is the position of the segment in the transcript.
	Index int
	// Segment is the selected segment.
	Segment Segment
}

// MatchResult is the outcome of matching phrases against a transcript.
type MatchResult struct {
	// Hits holds every (phrase, segment) pair in phrase order, then segment
	// order. A phrase matching several segments contributes all of them.
	Hits []Hit
	// Missing lists, in request order, every phrase that selected nothing.
	Missing []string
}

// Segments returns the matched segments once each, in transcript order.
// Several phrase occurrences selecting the same segment yield it once.
func (r MatchResult) Segments() []Segment {
	indexes := make([]int, 0, len(r.Hits))
	byIndex := make(map[int]Segment, len(r.Hits))
	for _, h := range r.Hits {
		if _, ok := byIndex[h.Index]; ok {
			continue
		}
		indexes = append(indexes, h.Index)
		byIndex[h.Index] = h.Segment
	}
	slices.Sort(indexes)

	segments := make([]Segment, len(indexes))
	for i, idx := range indexes {
		segments[i] = byIndex[idx]
	}
	return segments
}

// Match scans every segment for every phrase using m.
// It has no side effects; a nil Matcher means Exact.
func Match(m Matcher, segments []Segment, phrases []string) MatchResult {
	if m == nil {
		m = Exact{}
	}

	var result MatchResult
	for _, phrase := range phrases {
		found := false
		for i, seg := range segments {
			if m.Matches(seg.Text, phrase) {
				result.Hits = append(result.Hits, Hit{Phrase: phrase, Index: i, Segment: seg})
				found = true
			}
		}
		if !found {
			result.Missing = append(result.Missing, phrase)
		}
	}
	return result
}
