package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// ReceiverMeta returns all meta key/value pairs for a receiver.
// Values stored as JSON arrays or objects are decoded; plain strings are
// passed through.
func (db *DB) ReceiverMeta(ctx context.Context, receiverID int64) (map[string]any, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT key, value FROM receiver_meta WHERE receiver_id = ?
	`, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to query receiver meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]any)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan meta row: %w", err)
		}
		meta[key] = decodeMetaValue(value)
	}
	return meta, rows.Err()
}

// GetMeta returns a single meta value, or "" when the key is absent.
func (db *DB) GetMeta(ctx context.Context, receiverID int64, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `
		SELECT value FROM receiver_meta WHERE receiver_id = ? AND key = ?
	`, receiverID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query meta key %q: %w", key, err)
	}
	return value, nil
}

// SetMeta upserts a single meta key.
func (db *DB) SetMeta(ctx context.Context, receiverID int64, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO receiver_meta (receiver_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(receiver_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = datetime('now')
	`, receiverID, key, value)
	if err != nil {
		return fmt.Errorf("failed to set meta key %q: %w", key, err)
	}
	return nil
}

// ApplyMetaPatch persists a set of meta updates in one transaction.
// Non-string values (e.g. the discovered input code list) are stored as JSON.
func (db *DB) ApplyMetaPatch(ctx context.Context, receiverID int64, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	return db.Tx(ctx, func(tx *sql.Tx) error {
		for key, raw := range patch {
			value, err := encodeMetaValue(raw)
			if err != nil {
				return fmt.Errorf("failed to encode meta key %q: %w", key, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO receiver_meta (receiver_id, key, value)
				VALUES (?, ?, ?)
				ON CONFLICT(receiver_id, key) DO UPDATE SET
					value = excluded.value,
					updated_at = datetime('now')
			`, receiverID, key, value); err != nil {
				return fmt.Errorf("failed to upsert meta key %q: %w", key, err)
			}
		}
		return nil
	})
}

func encodeMetaValue(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}

// decodeMetaValue turns stored JSON arrays/objects back into structured
// values; anything else stays a string.
func decodeMetaValue(value string) any {
	if len(value) == 0 {
		return ""
	}
	switch value[0] {
	case '[', '{':
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			return decoded
		}
	}
	return value
}
