// Package memory adapts persisted cues to the retrieval core.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hrygo/cuerecall/internal/observability"
	"github.com/hrygo/cuerecall/plugin/ai/retrieval"
	"github.com/hrygo/cuerecall/store"
)

// ErrStoreNotConfigured is returned when cue operations are attempted without a store.
var ErrStoreNotConfigured = errors.New("cue store not configured")

// maxListLimit caps a single retrieval read.
const maxListLimit = 1000

// CueStore reads and writes cues for the retrieval core and the reinforcement worker.
type CueStore struct {
	store *store.Store
}

var _ retrieval.FactStore = (*CueStore)(nil)

// NewCueStore creates a cue store over s.
func NewCueStore(s *store.Store) *CueStore {
	return &CueStore{store: s}
}

// ListCues returns the owner's most recently reinforced cues.
func (c *CueStore) ListCues(ctx context.Context, ownerID int32, limit int) ([]*retrieval.Cue, error) {
	if c.store == nil {
		return nil, ErrStoreNotConfigured
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := c.store.ListCues(ctx, &store.FindCue{OwnerID: &ownerID, Limit: limit})
	if err != nil {
		return nil, err
	}

	cues := make([]*retrieval.Cue, 0, len(rows))
	for _, row := range rows {
		cues = append(cues, ToRetrievalCue(row))
	}

	if reqCtx, ok := observability.FromContext(ctx); ok {
		reqCtx.Debug("loaded cues", slog.Int(observability.LogFieldCueCount, len(cues)))
	}
	return cues, nil
}

// FindCue returns the owner's cue with key and type, or nil when there is none.
func (c *CueStore) FindCue(ctx context.Context, ownerID int32, key string, cueType retrieval.CueType) (*retrieval.Cue, error) {
	if c.store == nil {
		return nil, ErrStoreNotConfigured
	}

	typ := string(cueType)
	row, err := c.store.GetCue(ctx, &store.FindCue{OwnerID: &ownerID, Key: &key, Type: &typ})
	if errors.Is(err, store.ErrCueNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ToRetrievalCue(row), nil
}

// UpsertCue writes cue, keyed by (OwnerID, Key, Type). LastReinforced is the observation time.
func (c *CueStore) UpsertCue(ctx context.Context, cue *retrieval.Cue) (*retrieval.Cue, error) {
	if c.store == nil {
		return nil, ErrStoreNotConfigured
	}

	observed := cue.LastReinforced
	if observed.IsZero() {
		observed = time.Now()
	}

	row, err := c.store.UpsertCue(ctx, &store.UpsertCue{
		OwnerID:         cue.OwnerID,
		Key:             cue.Key,
		Type:            string(cue.Type),
		Category:        cue.Category,
		Payload:         cue.Payload,
		Confidence:      cue.Confidence,
		EvidenceQuality: string(cue.EvidenceQuality),
		ObservedTs:      observed.Unix(),
	})
	if err != nil {
		return nil, err
	}
	return ToRetrievalCue(row), nil
}

// DeleteCue removes the owner's cue with key and type.
func (c *CueStore) DeleteCue(ctx context.Context, ownerID int32, key string, cueType retrieval.CueType) error {
	if c.store == nil {
		return ErrStoreNotConfigured
	}
	typ := string(cueType)
	return c.store.DeleteCue(ctx, &store.DeleteCue{OwnerID: &ownerID, Key: &key, Type: &typ})
}

// ToRetrievalCue converts a stored row.
func ToRetrievalCue(row *store.Cue) *retrieval.Cue {
	return &retrieval.Cue{
		ID:              row.UID,
		OwnerID:         row.OwnerID,
		Key:             row.Key,
		Type:            retrieval.CueType(row.Type),
		Category:        row.Category,
		Payload:         row.Payload,
		Confidence:      row.Confidence,
		EvidenceQuality: retrieval.EvidenceQuality(row.EvidenceQuality),
		FirstObserved:   time.Unix(row.FirstObservedTs, 0),
		LastReinforced:  time.Unix(row.LastReinforcedTs, 0),
	}
}
