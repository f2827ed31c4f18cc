package retrieval

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// unitAt returns a 2-d unit vector with cosine sim to {1, 0}.
func unitAt(sim float32) []float32 {
	return []float32{sim, float32(math.Sqrt(1 - float64(sim)*float64(sim)))}
}

func TestRanker_ReactBeatsCoffee(t *testing.T) {
	react := &Cue{Key: "prefers_react", Type: CueTypePreference, Category: "technical", Confidence: 0.9, LastReinforced: testNow}
	coffee := &Cue{Key: "likes_coffee", Type: CueTypePreference, Category: "personal", Confidence: 0.3, LastReinforced: testNow.AddDate(0, 0, -400)}

	r := NewRanker(WithNow(fixedClock))
	// Coffee is given the slightly higher raw similarity.
	results := r.Rank("how do I use react hooks", []float32{1, 0}, []Candidate{
		{Cue: coffee, Vector: unitAt(0.82)},
		{Cue: react, Vector: unitAt(0.80)},
	}, 5)

	require.Len(t, results, 2)
	assert.Equal(t, "prefers_react", results[0].Cue.Key)
	assert.Greater(t, results[0].Relevance, results[1].Relevance)
	assert.Greater(t, results[1].Similarity, results[0].Similarity)
}

func TestRanker_SortedWithKeyTieBreak(t *testing.T) {
	var candidates []Candidate
	for _, key := range []string{"zeta", "alpha", "mid", "beta"} {
		candidates = append(candidates, Candidate{
			Cue:    &Cue{Key: key, Type: CueTypeSkill, Confidence: 0.5, LastReinforced: testNow},
			Vector: unitAt(0.7),
		})
	}
	candidates = append(candidates, Candidate{
		Cue:    &Cue{Key: "top", Type: CueTypeSkill, Confidence: 1, LastReinforced: testNow},
		Vector: unitAt(0.9),
	})

	results := NewRanker(WithNow(fixedClock)).Rank("anything", []float32{1, 0}, candidates, 10)

	keys := make([]string, len(results))
	for i, res := range results {
		keys[i] = res.Cue.Key
	}
	assert.Equal(t, []string{"top", "alpha", "beta", "mid", "zeta"}, keys)
	for i := 1; i < len(results); i++ {
		prev, cur := results[i-1], results[i]
		assert.GreaterOrEqual(t, prev.Relevance, cur.Relevance)
		if prev.Relevance == cur.Relevance {
			assert.Less(t, prev.Cue.Key, cur.Cue.Key)
		}
	}
}

func TestRanker_RelevanceBoundsAndThreshold(t *testing.T) {
	var candidates []Candidate
	sims := []float32{1, 0.9, 0.5, 0.2, 0.1, 0, -0.5, -1}
	for i, sim := range sims {
		candidates = append(candidates, Candidate{
			Cue: &Cue{
				Key:            fmt.Sprintf("cue_%d", i),
				Category:       "technical",
				Confidence:     1 - float64(i%3)/2,
				LastReinforced: testNow.AddDate(0, 0, -i*60),
			},
			Vector: unitAt(sim),
		})
	}

	results := NewRanker(WithNow(fixedClock)).Rank("debug my python code", []float32{1, 0}, candidates, 100)

	require.NotEmpty(t, results)
	for _, res := range results {
		assert.Greater(t, res.Relevance, MinRelevance)
		assert.LessOrEqual(t, res.Relevance, 1.0)
		assert.GreaterOrEqual(t, res.Similarity, -1.0)
		assert.LessOrEqual(t, res.Similarity, 1.0)
	}
	// A perfect technical match with a boost still clamps to 1.
	assert.Equal(t, 1.0, results[0].Relevance)
}

func TestRanker_Limit(t *testing.T) {
	var candidates []Candidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates, Candidate{
			Cue:    &Cue{Key: fmt.Sprintf("k%02d", i), Confidence: 1, LastReinforced: testNow},
			Vector: unitAt(0.9),
		})
	}
	r := NewRanker(WithNow(fixedClock))

	assert.Len(t, r.Rank("q", []float32{1, 0}, candidates, 3), 3)
	assert.Empty(t, r.Rank("q", []float32{1, 0}, candidates, 0))
	assert.Empty(t, r.Rank("q", []float32{1, 0}, nil, 3))
}

func TestRanker_SkipsMismatchedAndZeroVectors(t *testing.T) {
	good := &Cue{Key: "good", Confidence: 1, LastReinforced: testNow}
	candidates := []Candidate{
		{Cue: good, Vector: unitAt(0.9)},
		{Cue: &Cue{Key: "stale", Confidence: 1, LastReinforced: testNow}, Vector: []float32{1, 0, 0}},
		{Cue: &Cue{Key: "silent", Confidence: 1, LastReinforced: testNow}, Vector: []float32{0, 0}},
		{Cue: nil, Vector: unitAt(1)},
	}

	results := NewRanker(WithNow(fixedClock)).Rank("q", []float32{1, 0}, candidates, 10)

	require.Len(t, results, 1)
	assert.Same(t, good, results[0].Cue)
}

func TestRelevanceWeights(t *testing.T) {
	assert.Equal(t, 0.5, ConfidenceWeight(0))
	assert.Equal(t, 1.0, ConfidenceWeight(1))
	assert.Equal(t, 1.0, ConfidenceWeight(7))

	assert.Equal(t, 1.0, RecencyWeight(testNow, testNow))
	assert.Equal(t, 1.0, RecencyWeight(testNow.Add(time.Hour), testNow))
	assert.InDelta(t, 1-73.0/365, RecencyWeight(testNow.AddDate(0, 0, -73), testNow), 1e-9)
	assert.Equal(t, 0.5, RecencyWeight(testNow.AddDate(0, 0, -400), testNow))
	assert.Equal(t, 0.5, RecencyWeight(time.Time{}, testNow))

	cue := &Cue{Confidence: 0.9, LastReinforced: testNow}
	assert.InDelta(t, 0.8*0.95*1.3, Relevance(0.8, cue, testNow, 1.3), 1e-9)
	assert.Equal(t, 0.0, Relevance(-0.9, cue, testNow, 1))
}
