package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sweeney/pir-stairs/internal/stairs"
)

// SQLiteRepository stores records in a SQLite database.
// Times are stored as unix milliseconds.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at dbPath.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS triggers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts_ms INTEGER NOT NULL,
		direction TEXT NOT NULL,
		pin INTEGER NOT NULL,
		preset INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_triggers_ts ON triggers(ts_ms);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Save inserts r and sets its ID.
func (s *SQLiteRepository) Save(ctx context.Context, r *Record) error {
	query := `INSERT INTO triggers (ts_ms, direction, pin, preset) VALUES (?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query, r.Time.UnixMilli(), string(r.Direction), r.Pin, r.PresetID)
	if err != nil {
		return fmt.Errorf("insert trigger: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get insert id: %w", err)
	}
	r.ID = id
	return nil
}

// Recent returns up to limit records, newest first. A limit <= 0 returns all.
func (s *SQLiteRepository) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	query := `
		SELECT id, ts_ms, direction, pin, preset
		FROM triggers
		ORDER BY ts_ms DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query triggers: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triggers: %w", err)
	}
	return out, nil
}

// Latest returns the newest record.
func (s *SQLiteRepository) Latest(ctx context.Context) (*Record, error) {
	query := `
		SELECT id, ts_ms, direction, pin, preset
		FROM triggers
		ORDER BY ts_ms DESC, id DESC
		LIMIT 1
	`

	r, err := scanRecord(s.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Prune deletes records older than before.
func (s *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM triggers WHERE ts_ms < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete old triggers: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteRepository) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		r         Record
		tsMs      int64
		direction string
	)
	if err := row.Scan(&r.ID, &tsMs, &direction, &r.Pin, &r.PresetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan trigger: %w", err)
	}
	r.Time = time.UnixMilli(tsMs).UTC()
	r.Direction = stairs.Direction(direction)
	return &r, nil
}
