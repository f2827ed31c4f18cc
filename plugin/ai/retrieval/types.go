// Package retrieval ranks a user's stored personal facts against a query
// and assembles a bounded context summary for prompt construction.
package retrieval

import "time"

// CueType classifies a personal fact.
type CueType string

const (
	CueTypePreference CueType = "preference"
	CueTypeBehavior   CueType = "behavior"
	CueTypePattern    CueType = "pattern"
	CueTypeSkill      CueType = "skill"
	CueTypeContext    CueType = "context"
)

// Valid reports whether t is one of the known cue types.
func (t CueType) Valid() bool {
	switch t {
	case CueTypePreference, CueTypeBehavior, CueTypePattern, CueTypeSkill, CueTypeContext:
		return true
	}
	return false
}

// EvidenceQuality grades the evidence behind a cue.
type EvidenceQuality string

const (
	EvidenceLow    EvidenceQuality = "low"
	EvidenceMedium EvidenceQuality = "medium"
	EvidenceHigh   EvidenceQuality = "high"
)

// Valid reports whether q is one of the known evidence grades.
func (q EvidenceQuality) Valid() bool {
	switch q {
	case EvidenceLow, EvidenceMedium, EvidenceHigh:
		return true
	}
	return false
}

// Cue is a single personal fact owned by one user.
// (Key, Type) is unique per owner.
type Cue struct {
	ID              string
	OwnerID         int32
	Key             string
	Type            CueType
	Category        string
	Payload         map[string]string
	Confidence      float64 // [0, 1]
	EvidenceQuality EvidenceQuality
	FirstObserved   time.Time
	LastReinforced  time.Time
}

// SearchResult is a ranked cue.
type SearchResult struct {
	Cue        *Cue
	Similarity float64 // [-1, 1]
	Relevance  float64 // [0, 1]
}

// RAGContext is the assembled personalization context.
type RAGContext struct {
	Cues               []*Cue
	Summary            string
	PersonalityFactors []string
	Confidence         float64
}

// EmptySummary is the summary used when no cue is relevant.
const EmptySummary = "No personalization context available."

// EmptyContext returns the default context carrying no personalization.
func EmptyContext() *RAGContext {
	return &RAGContext{
		Cues:               []*Cue{},
		Summary:            EmptySummary,
		PersonalityFactors: []string{},
	}
}

// IsEmpty reports whether the context carries no cues.
func (r *RAGContext) IsEmpty() bool {
	return r == nil || len(r.Cues) == 0
}
