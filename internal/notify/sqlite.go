package notify

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vakit/internal/model"
)

// SQLiteLog persists the dedup log. Rows are only ever inserted.
type SQLiteLog struct {
	db *sql.DB
}

// OpenSQLiteLog opens (or creates) the database at path.
func OpenSQLiteLog(path string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reminder log: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS reminder_log (
			date           TEXT    NOT NULL,
			event_key      TEXT    NOT NULL,
			offset_minutes INTEGER NOT NULL,
			fired_at       TEXT    NOT NULL,
			PRIMARY KEY (date, event_key, offset_minutes)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create reminder_log: %w", err)
	}
	return &SQLiteLog{db: db}, nil
}

func (s *SQLiteLog) Close() error {
	return s.db.Close()
}

// Load returns the fired keys of the given dates. The gate only looks at
// today and tomorrow, so there is no need to read the whole history.
func (s *SQLiteLog) Load(ctx context.Context, dates ...string) (Log, error) {
	out := make(Log)
	if len(dates) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(dates)), ",")
	args := make([]any, len(dates))
	for i, d := range dates {
		args[i] = d
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, event_key, offset_minutes, fired_at
		FROM reminder_log WHERE date IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder log: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			k       LogKey
			event   string
			firedAt string
		)
		if err := rows.Scan(&k.Date, &event, &k.Offset, &firedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder log: %w", err)
		}
		k.Event = model.EventKey(event)
		t, err := time.Parse(time.RFC3339Nano, firedAt)
		if err != nil {
			return nil, fmt.Errorf("reminder log %s: bad fired_at %q: %w", k, firedAt, err)
		}
		out[k] = t
	}
	return out, rows.Err()
}

// Commit stores entries in one transaction and returns the entries that
// were actually inserted. Keys that are already present keep their
// original fired_at and are left out of the result, so a caller racing
// another process only acts on the keys it won.
func (s *SQLiteLog) Commit(ctx context.Context, entries Log) (Log, error) {
	inserted := make(Log)
	if len(entries) == 0 {
		return inserted, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin reminder log commit: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO reminder_log (date, event_key, offset_minutes, fired_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare reminder log insert: %w", err)
	}
	defer stmt.Close()

	for k, firedAt := range entries {
		res, err := stmt.ExecContext(ctx, k.Date, string(k.Event), k.Offset, firedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s: %w", k, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s: %w", k, err)
		}
		if n == 1 {
			inserted[k] = firedAt
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reminder log: %w", err)
	}
	return inserted, nil
}

// Count returns the number of fired reminders ever recorded.
func (s *SQLiteLog) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reminder_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reminder log: %w", err)
	}
	return n, nil
}
