// Package settings provides access to the listener_settings table, the
// durable store for per-listener configuration. Radio parameters written
// over MQTT are persisted here and replayed to listeners on startup, so
// the hardware carries the right settings before the first frame arrives.
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store defines the interface for listener settings persistence.
type Store interface {
	Save(ctx context.Context, listener string, values map[string]string) error
	LoadAll(ctx context.Context) (map[string]map[string]string, error)
	Delete(ctx context.Context, listener string) error
}

// SQLiteStore persists listener settings in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new listener settings store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save upserts the given key/value pairs for a listener. Existing keys
// not present in values are left untouched, matching the merge semantics
// of listener Set: a partial update never clears earlier settings.
func (s *SQLiteStore) Save(ctx context.Context, listener string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	now := time.Now().UTC().Format(time.RFC3339)
	for key, value := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO listener_settings (listener, key, value, updated_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (listener, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			listener, key, value, now,
		); err != nil {
			return fmt.Errorf("upserting setting %s/%s: %w", listener, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing settings: %w", err)
	}
	return nil
}

// LoadAll returns stored settings for every listener, keyed by listener name.
// Used at startup to replay persisted settings before the main loop begins.
func (s *SQLiteStore) LoadAll(ctx context.Context) (map[string]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT listener, key, value FROM listener_settings ORDER BY listener",
	)
	if err != nil {
		return nil, fmt.Errorf("querying all settings: %w", err)
	}
	defer rows.Close()

	all := make(map[string]map[string]string)
	for rows.Next() {
		var listener, key, value string
		if err := rows.Scan(&listener, &key, &value); err != nil {
			return nil, fmt.Errorf("scanning setting row: %w", err)
		}
		if all[listener] == nil {
			all[listener] = make(map[string]string)
		}
		all[listener][key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settings: %w", err)
	}
	return all, nil
}

// Delete removes all stored settings for a listener. Called when persisted
// settings name a listener no longer configured, so stale rows do not
// accumulate. Deleting a listener with no stored settings is a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, listener string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM listener_settings WHERE listener = ?",
		listener,
	); err != nil {
		return fmt.Errorf("deleting settings for %s: %w", listener, err)
	}
	return nil
}
