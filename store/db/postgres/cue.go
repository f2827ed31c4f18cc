package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/cuerecall/store"
)

func (d *DB) UpsertCue(ctx context.Context, upsert *store.UpsertCue) (*store.Cue, error) {
	payload, err := encodePayload(upsert.Payload)
	if err != nil {
		return nil, err
	}

	fields := []string{"uid", "owner_id", "key", "type", "category", "payload", "confidence", "evidence_quality", "first_observed_ts", "last_reinforced_ts"}
	args := []any{
		shortuuid.New(),
		upsert.OwnerID,
		upsert.Key,
		upsert.Type,
		upsert.Category,
		payload,
		upsert.Confidence,
		upsert.EvidenceQuality,
		upsert.ObservedTs,
		upsert.ObservedTs,
	}

	stmt := `INSERT INTO cue (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (owner_id, key, type) DO UPDATE SET
			category = EXCLUDED.category,
			payload = EXCLUDED.payload,
			confidence = EXCLUDED.confidence,
			evidence_quality = EXCLUDED.evidence_quality,
			last_reinforced_ts = EXCLUDED.last_reinforced_ts
		RETURNING ` + cueColumns

	cue, err := scanCue(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cue: %w", err)
	}
	return cue, nil
}

func (d *DB) ListCues(ctx context.Context, find *store.FindCue) ([]*store.Cue, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "owner_id = "+placeholder(len(args)+1)), append(args, *find.OwnerID)
	}
	if find.Key != nil {
		where, args = append(where, "key = "+placeholder(len(args)+1)), append(args, *find.Key)
	}
	if find.Type != nil {
		where, args = append(where, "type = "+placeholder(len(args)+1)), append(args, *find.Type)
	}
	if find.Category != nil {
		where, args = append(where, "category = "+placeholder(len(args)+1)), append(args, *find.Category)
	}

	query := `SELECT ` + cueColumns + ` FROM cue WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY last_reinforced_ts DESC, id DESC`

	limit := find.Limit
	if limit > 0 {
		if limit > 1000 {
			limit = 1000
		}
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if find.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", find.Offset)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cues: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Cue, 0)
	for rows.Next() {
		cue, err := scanCue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cue: %w", err)
		}
		list = append(list, cue)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cues: %w", err)
	}

	return list, nil
}

func (d *DB) DeleteCue(ctx context.Context, delete *store.DeleteCue) error {
	if delete == nil {
		return fmt.Errorf("delete parameter cannot be nil")
	}

	where, args := []string{}, []any{}
	if delete.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *delete.ID)
	}
	if delete.OwnerID != nil {
		where, args = append(where, "owner_id = "+placeholder(len(args)+1)), append(args, *delete.OwnerID)
	}
	if delete.Key != nil {
		where, args = append(where, "key = "+placeholder(len(args)+1)), append(args, *delete.Key)
	}
	if delete.Type != nil {
		where, args = append(where, "type = "+placeholder(len(args)+1)), append(args, *delete.Type)
	}
	if len(where) == 0 {
		return fmt.Errorf("at least one condition is required to delete cues")
	}

	stmt := `DELETE FROM cue WHERE ` + strings.Join(where, " AND ")
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to delete cue: %w", err)
	}
	return nil
}

const cueColumns = `id, uid, owner_id, key, type, category, payload, confidence, evidence_quality, first_observed_ts, last_reinforced_ts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCue(row rowScanner) (*store.Cue, error) {
	cue := &store.Cue{}
	var payload []byte
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
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &cue.Payload); err != nil {
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
