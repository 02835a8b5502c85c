package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrReceiverNotFound is returned when no receiver matches the query.
var ErrReceiverNotFound = errors.New("receiver not found")

// Receiver is a configured eISCP endpoint plus the local API binding.
type Receiver struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	SerialPort      string `json:"serial_port,omitempty"`
	UseCRLF         bool   `json:"use_crlf"`
	PollIntervalMs  int    `json:"poll_interval_ms"`
	RetryIntervalMs int    `json:"retry_interval_ms"`
	VolumeMaxRaw    int    `json:"volume_max_raw"`
	APIHost         string `json:"api_host"`
	APIPort         int    `json:"api_port"`
	IsActive        bool   `json:"is_active"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

const receiverColumns = `
	id, name, host, port, serial_port, use_crlf,
	poll_interval_ms, retry_interval_ms, volume_max_raw,
	api_host, api_port, is_active, created_at, updated_at
`

func scanReceiver(row interface{ Scan(...any) error }) (*Receiver, error) {
	var r Receiver
	err := row.Scan(
		&r.ID, &r.Name, &r.Host, &r.Port, &r.SerialPort, &r.UseCRLF,
		&r.PollIntervalMs, &r.RetryIntervalMs, &r.VolumeMaxRaw,
		&r.APIHost, &r.APIPort, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetActiveReceiver returns the receiver marked as active.
func (db *DB) GetActiveReceiver(ctx context.Context) (*Receiver, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+receiverColumns+`
		FROM receivers WHERE is_active = 1 LIMIT 1
	`)
	r, err := scanReceiver(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReceiverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active receiver: %w", err)
	}
	return r, nil
}

// GetReceiver returns a receiver by ID.
func (db *DB) GetReceiver(ctx context.Context, id int64) (*Receiver, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+receiverColumns+`
		FROM receivers WHERE id = ?
	`, id)
	r, err := scanReceiver(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReceiverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query receiver: %w", err)
	}
	return r, nil
}

// ListReceivers returns all configured receivers.
func (db *DB) ListReceivers(ctx context.Context) ([]Receiver, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+receiverColumns+`
		FROM receivers ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list receivers: %w", err)
	}
	defer rows.Close()

	var receivers []Receiver
	for rows.Next() {
		r, err := scanReceiver(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receiver: %w", err)
		}
		receivers = append(receivers, *r)
	}
	return receivers, rows.Err()
}

// CreateReceiver inserts a new receiver row and returns its ID.
// Zero-valued intervals and limits fall back to the schema defaults.
func (db *DB) CreateReceiver(ctx context.Context, r *Receiver) (int64, error) {
	if r.Port == 0 {
		r.Port = 60128
	}
	if r.PollIntervalMs == 0 {
		r.PollIntervalMs = 5000
	}
	if r.RetryIntervalMs == 0 {
		r.RetryIntervalMs = 10000
	}
	if r.VolumeMaxRaw == 0 {
		r.VolumeMaxRaw = 160
	}
	if r.APIHost == "" {
		r.APIHost = "0.0.0.0"
	}
	if r.APIPort == 0 {
		r.APIPort = 8080
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO receivers (
			name, host, port, serial_port, use_crlf,
			poll_interval_ms, retry_interval_ms, volume_max_raw,
			api_host, api_port, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Name, r.Host, r.Port, r.SerialPort, r.UseCRLF,
		r.PollIntervalMs, r.RetryIntervalMs, r.VolumeMaxRaw,
		r.APIHost, r.APIPort, r.IsActive)
	if err != nil {
		return 0, fmt.Errorf("failed to create receiver: %w", err)
	}
	return result.LastInsertId()
}

// UpdateReceiver updates an existing receiver row.
func (db *DB) UpdateReceiver(ctx context.Context, r *Receiver) error {
	result, err := db.ExecContext(ctx, `
		UPDATE receivers SET
			name = ?, host = ?, port = ?, serial_port = ?, use_crlf = ?,
			poll_interval_ms = ?, retry_interval_ms = ?, volume_max_raw = ?,
			api_host = ?, api_port = ?, updated_at = datetime('now')
		WHERE id = ?
	`, r.Name, r.Host, r.Port, r.SerialPort, r.UseCRLF,
		r.PollIntervalMs, r.RetryIntervalMs, r.VolumeMaxRaw,
		r.APIHost, r.APIPort, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update receiver: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReceiverNotFound
	}
	return nil
}

// SetActiveReceiver marks the given receiver as active and clears the flag
// on all others.
func (db *DB) SetActiveReceiver(ctx context.Context, id int64) error {
	return db.Tx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM receivers WHERE id = ?`, id).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			return ErrReceiverNotFound
		}
		if _, err := tx.ExecContext(ctx, `UPDATE receivers SET is_active = 0 WHERE is_active = 1`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE receivers SET is_active = 1, updated_at = datetime('now') WHERE id = ?
		`, id); err != nil {
			return err
		}
		return nil
	})
}
