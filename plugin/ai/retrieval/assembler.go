package retrieval

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxSummaryGroups      = 5
	maxKeysPerGroup       = 2
	maxPersonalityFactors = 5
	summarySeparator      = "; "
)

var categoryLabels = map[string]string{
	"technical":     "Technical preferences",
	"communication": "Communication style",
	"personal":      "Personal traits",
}

// Assemble builds a context from ranked results. It performs no I/O.
func Assemble(results []SearchResult) *RAGContext {
	results = slices.DeleteFunc(slices.Clone(results), func(r SearchResult) bool { return r.Cue == nil })
	if len(results) == 0 {
		return EmptyContext()
	}

	rag := &RAGContext{
		Cues:               make([]*Cue, 0, len(results)),
		PersonalityFactors: make([]string, 0, min(len(results), maxPersonalityFactors)),
	}

	var confidenceSum float64
	for _, res := range results {
		rag.Cues = append(rag.Cues, res.Cue)
		if len(rag.PersonalityFactors) < maxPersonalityFactors {
			rag.PersonalityFactors = append(rag.PersonalityFactors, fmt.Sprintf("%s: %s", res.Cue.Type, res.Cue.Key))
		}
		confidenceSum += (res.Relevance + clamp01(res.Cue.Confidence)) / 2
	}

	rag.Summary = summarize(results)
	rag.Confidence = clamp01(confidenceSum / float64(len(results)))
	return rag
}

// summarize groups cue keys by category in order of first appearance.
func summarize(results []SearchResult) string {
	type group struct {
		label string
		keys  []string
	}

	var groups []*group
	byCategory := make(map[string]*group)
	for _, res := range results {
		category := strings.ToLower(strings.TrimSpace(res.Cue.Category))
		g, ok := byCategory[category]
		if !ok {
			if len(groups) == maxSummaryGroups {
				continue
			}
			g = &group{label: categoryLabel(category)}
			byCategory[category] = g
			groups = append(groups, g)
		}
		if len(g.keys) < maxKeysPerGroup && !slices.Contains(g.keys, res.Cue.Key) {
			g.keys = append(g.keys, res.Cue.Key)
		}
	}

	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		parts = append(parts, g.label+": "+strings.Join(g.keys, ", "))
	}
	return strings.Join(parts, summarySeparator)
}

func categoryLabel(category string) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	if category == "" {
		return "General"
	}
	// Casers are stateful; build one per call.
	return cases.Title(language.Und).String(strings.NewReplacer("_", " ", "-", " ").Replace(category))
}
