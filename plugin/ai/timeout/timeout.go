// Package timeout defines centralized timeout constants for retrieval operations.
package timeout

import "time"

const (
	// EmbeddingTimeout is the default bound on a single remote embedding call.
	EmbeddingTimeout = 5 * time.Second

	// StoreTimeout is the bound on a single fact store read or write.
	StoreTimeout = 3 * time.Second

	// ReinforceDrainTimeout is how long the reinforcement worker keeps draining after Close.
	ReinforceDrainTimeout = 2 * time.Second

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)
