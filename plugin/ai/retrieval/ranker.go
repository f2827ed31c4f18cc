package retrieval

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	aierrors "github.com/hrygo/cuerecall/internal/errors"
	"github.com/hrygo/cuerecall/internal/observability"
)

const (
	// MinRelevance is the exclusive lower bound for a result to be kept.
	MinRelevance = 0.1

	recencyHorizonDays = 365.0
	minRecencyWeight   = 0.5
)

// Candidate pairs a cue with its vector.
type Candidate struct {
	Cue    *Cue
	Vector []float32
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithNow sets the clock used for recency weighting.
func WithNow(now func() time.Time) RankerOption {
	return func(r *Ranker) { r.now = now }
}

// WithBoostRules replaces the category boost rules.
func WithBoostRules(rules ...BoostRule) RankerOption {
	return func(r *Ranker) { r.rules = rules }
}

// Ranker scores candidates against a query vector.
type Ranker struct {
	now   func() time.Time
	rules []BoostRule
}

// NewRanker creates a ranker with the default keyword boosts and the wall clock.
func NewRanker(opts ...RankerOption) *Ranker {
	r := &Ranker{now: time.Now, rules: DefaultBoostRules()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank returns at most limit results with relevance above MinRelevance,
// sorted by relevance descending, then key, type and ID ascending.
func (r *Ranker) Rank(query string, queryVec []float32, candidates []Candidate, limit int) []SearchResult {
	results := make([]SearchResult, 0, len(candidates))
	if limit <= 0 || len(candidates) == 0 {
		return results
	}

	q := NewBoostQuery(query)
	now := r.now()

	for _, c := range candidates {
		if c.Cue == nil {
			continue
		}
		sim, err := Similarity(queryVec, c.Vector)
		if err != nil {
			slog.Debug("skipping candidate with mismatched vector",
				"key", c.Cue.Key,
				observability.LogFieldErrorCode, string(aierrors.GetCodeFromError(err, aierrors.ErrCodeDimensionMismatch)),
				"error", err,
			)
			continue
		}

		relevance := Relevance(sim, c.Cue, now, categoryBoost(r.rules, q, c.Cue))
		if relevance <= MinRelevance {
			continue
		}
		results = append(results, SearchResult{Cue: c.Cue, Similarity: sim, Relevance: relevance})
	}

	slices.SortFunc(results, compareResults)

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func compareResults(a, b SearchResult) int {
	if c := cmp.Compare(b.Relevance, a.Relevance); c != 0 {
		return c
	}
	if c := strings.Compare(a.Cue.Key, b.Cue.Key); c != 0 {
		return c
	}
	if c := strings.Compare(string(a.Cue.Type), string(b.Cue.Type)); c != 0 {
		return c
	}
	return strings.Compare(a.Cue.ID, b.Cue.ID)
}

// Relevance combines similarity with confidence, recency and category boost,
// clamped to [0, 1].
func Relevance(similarity float64, cue *Cue, now time.Time, boost float64) float64 {
	score := similarity * ConfidenceWeight(cue.Confidence) * RecencyWeight(cue.LastReinforced, now) * boost
	return clamp01(score)
}

// ConfidenceWeight maps confidence in [0, 1] to [0.5, 1].
func ConfidenceWeight(confidence float64) float64 {
	return 0.5 + 0.5*clamp01(confidence)
}

// RecencyWeight decays linearly over a year from 1 down to a floor of 0.5.
// Future timestamps count as now.
func RecencyWeight(lastReinforced, now time.Time) float64 {
	days := now.Sub(lastReinforced).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Max(minRecencyWeight, 1-days/recencyHorizonDays)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
