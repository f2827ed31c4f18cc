package sqlite

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hrygo/cuerecall/store"
)

// placeholder returns a placeholder for SQLite (uses ?)
func placeholder(int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite
func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

const cueColumns = `id, uid, owner_id, key, type, category, payload, confidence, evidence_quality, first_observed_ts, last_reinforced_ts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCue(row rowScanner) (*store.Cue, error) {
	cue := &store.Cue{}
	var payload string
	if err := row.Scan(
		&cue.ID,
		&cue.UID,
		&cue.OwnerID,
		&cue.Key,
		&cue.Type,
		&cue.Category,
		&payload,
		&cue.Confidence,
		&cue.EvidenceQuality,
		&cue.FirstObservedTs,
		&cue.LastReinforcedTs,
	); err != nil {
		return nil, err
	}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &cue.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode cue payload: %w", err)
		}
	}
	return cue, nil
}

func encodePayload(payload map[string]string) (string, error) {
	if len(payload) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode cue payload: %w", err)
	}
	return string(b), nil
}
