package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSegments() []Segment {
	return []Segment{
		{Text: "hello world", Start: 1.0, End: 2.0},
		{Text: "um", Start: 2.0, End: 2.2},
		{Text: "goodbye", Start: 5.0, End: 5.5},
		{Text: "um", Start: 7.0, End: 7.3},
	}
}

func TestMatch_AllPhrasesFound(t *testing.T) {
	result := Match(Exact{}, sampleSegments(), []string{"goodbye", "hello world"})

	assert.Empty(t, result.Missing)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "goodbye", result.Hits[0].Phrase)
	assert.Equal(t, 2, result.Hits[0].Index)
	assert.Equal(t, 0, result.Hits[1].Index)
}

func TestMatch_ReportsEveryMissingPhrase(t *testing.T) {
	result := Match(Exact{}, sampleSegments(), []string{"nonexistent phrase", "goodbye", "also missing"})

	assert.Equal(t, []string{"nonexistent phrase", "also missing"}, result.Missing)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "goodbye", result.Hits[0].Segment.Text)
}

func TestMatch_PhraseSelectsAllEqualSegments(t *testing.T) {
	result := Match(Exact{}, sampleSegments(), []string{"um"})

	assert.Empty(t, result.Missing)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, 1, result.Hits[0].Index)
	assert.Equal(t, 3, result.Hits[1].Index)
}

func TestMatch_ExactIsCaseAndWhitespaceSensitive(t *testing.T) {
	segments := []Segment{{Text: " Hello", Start: 0, End: 1}}

	tests := []struct {
		phrase string
		found  bool
	}{
		{" Hello", true},
		{"Hello", false},
		{" hello", false},
		{" Hello ", false},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			result := Match(Exact{}, segments, []string{tt.phrase})
			assert.Equal(t, tt.found, len(result.Missing) == 0)
		})
	}
}

func TestMatch_NormalizedIgnoresCaseAndPadding(t *testing.T) {
	segments := []Segment{{Text: " Hello there.", Start: 0, End: 1}}

	result := Match(Normalized{}, segments, []string{"hello there."})
	assert.Empty(t, result.Missing)

	result = Match(Normalized{}, segments, []string{"hello"})
	assert.Equal(t, []string{"hello"}, result.Missing)
}

func TestMatch_NilMatcherIsExact(t *testing.T) {
	result := Match(nil, sampleSegments(), []string{"Goodbye"})
	assert.Equal(t, []string{"Goodbye"}, result.Missing)
}

func TestMatchResult_SegmentsDeduplicatesInTranscriptOrder(t *testing.T) {
	result := Match(Exact{}, sampleSegments(), []string{"um", "goodbye", "um"})

	require.Len(t, result.Hits, 5)
	segments := result.Segments()
	require.Len(t, segments, 3)
	assert.Equal(t, 2.0, segments[0].Start)
	assert.Equal(t, 5.0, segments[1].Start)
	assert.Equal(t, 7.0, segments[2].Start)
}

func TestStrategyByName(t *testing.T) {
	m, err := StrategyByName("")
	require.NoError(t, err)
	assert.Equal(t, "exact", m.Name())

	m, err = StrategyByName("Normalized")
	require.NoError(t, err)
	assert.Equal(t, "normalized", m.Name())

	_, err = StrategyByName("fuzzy")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
