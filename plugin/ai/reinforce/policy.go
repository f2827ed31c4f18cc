// Package reinforce applies evidence events to stored cues off the retrieval path.
package reinforce

import "github.com/hrygo/cuerecall/plugin/ai/retrieval"

// Policy maps evidence quality to confidence changes.
type Policy struct {
	// Initial is the confidence of a newly observed cue.
	Initial map[retrieval.EvidenceQuality]float64
	// Step is the fraction of the remaining distance to 1 covered by one reinforcement.
	Step map[retrieval.EvidenceQuality]float64
}

// DefaultPolicy returns the default policy.
func DefaultPolicy() Policy {
	return Policy{
		Initial: map[retrieval.EvidenceQuality]float64{
			retrieval.EvidenceLow:    0.3,
			retrieval.EvidenceMedium: 0.5,
			retrieval.EvidenceHigh:   0.7,
		},
		Step: map[retrieval.EvidenceQuality]float64{
			retrieval.EvidenceLow:    0.05,
			retrieval.EvidenceMedium: 0.1,
			retrieval.EvidenceHigh:   0.2,
		},
	}
}

// InitialConfidence returns the confidence of a new cue. Unknown grades count as low.
func (p Policy) InitialConfidence(q retrieval.EvidenceQuality) float64 {
	return clamp01(p.lookup(p.Initial, q))
}

// Reinforce moves current toward 1. It never lowers confidence.
func (p Policy) Reinforce(current float64, q retrieval.EvidenceQuality) float64 {
	c := clamp01(current)
	return clamp01(c + p.lookup(p.Step, q)*(1-c))
}

func (p Policy) lookup(table map[retrieval.EvidenceQuality]float64, q retrieval.EvidenceQuality) float64 {
	if v, ok := table[q]; ok {
		return v
	}
	return table[retrieval.EvidenceLow]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
