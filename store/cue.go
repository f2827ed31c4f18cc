package store

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrCueNotFound is returned when a cue lookup matches nothing.
var ErrCueNotFound = errors.New("cue not found")

// Cue is a stored personal fact. (OwnerID, Key, Type) is unique.
type Cue struct {
	ID               int64
	UID              string
	OwnerID          int32
	Key              string
	Type             string // preference/behavior/pattern/skill/context
	Category         string
	Payload          map[string]string // JSON encoded in the database
	Confidence       float64           // 0-1
	EvidenceQuality  string            // low/medium/high
	FirstObservedTs  int64
	LastReinforcedTs int64
}

// FindCue specifies the conditions for finding cues.
type FindCue struct {
	ID       *int64
	UID      *string
	OwnerID  *int32
	Key      *string
	Type     *string
	Category *string
	Limit    int
	Offset   int
}

// UpsertCue creates a cue or updates the one with the same (OwnerID, Key, Type).
// On update, FirstObservedTs is kept and everything else is replaced.
type UpsertCue struct {
	OwnerID         int32
	Key             string
	Type            string
	Category        string
	Payload         map[string]string
	Confidence      float64
	EvidenceQuality string
	ObservedTs      int64 // unix seconds; zero means now
}

// DeleteCue specifies the conditions for deleting cues.
type DeleteCue struct {
	ID      *int64
	OwnerID *int32
	Key     *string
	Type    *string
}

// Validate checks the upsert against the cue invariants.
func (u *UpsertCue) Validate() error {
	if u == nil {
		return errors.New("upsert is nil")
	}
	if strings.TrimSpace(u.Key) == "" {
		return errors.New("cue key is required")
	}
	if strings.TrimSpace(u.Type) == "" {
		return errors.New("cue type is required")
	}
	if u.Confidence < 0 || u.Confidence > 1 {
		return errors.Errorf("cue confidence must be within [0, 1], got %v", u.Confidence)
	}
	return nil
}
