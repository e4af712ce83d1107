// Package journal records which automerge changes a relay has applied, per room. It
// lives in an in-memory sqlite database and dies with the process.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/astromechza/automerge-whiteboard/pkg/doc"
)

// Entry is one journaled change.
type Entry struct {
	doc.ChangeInfo
	Room       string    `json:"room"`
	RecordedAt time.Time `json:"recordedAt"`
}

type Journal struct {
	db *sql.DB
}

// MemoryDSN returns a DSN for a private in-memory database called name.
func MemoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
}

// Open opens the database at dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// an in-memory database only lives as long as a connection to it
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS changes (
		room text not null,
		hash text not null,
		actor text not null,
		seq integer not null,
		deps integer not null,
		recorded_at integer not null,
		primary key (room, hash)
		)`,
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create journal table: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores changes for room. Changes already recorded are ignored.
func (j *Journal) Record(ctx context.Context, room string, changes []doc.ChangeInfo) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("failed to rollback", "err", err)
		}
	}()
	now := time.Now().UnixMilli()
	for _, c := range changes {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO changes (room, hash, actor, seq, deps, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
			room, c.Hash, c.Actor, c.Seq, c.Deps, now,
		); err != nil {
			return fmt.Errorf("failed to record %s: %w", c.Hash, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// List returns the newest limit entries for room, oldest first. A limit of zero or
// less returns everything.
func (j *Journal) List(ctx context.Context, room string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT hash, actor, seq, deps, recorded_at FROM (
			SELECT rowid, hash, actor, seq, deps, recorded_at FROM changes WHERE room = ? ORDER BY rowid DESC LIMIT ?
		) ORDER BY rowid ASC`,
		room, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close", "err", err)
		}
	}(rows)

	out := make([]Entry, 0)
	for rows.Next() {
		var (
			e  Entry
			at int64
		)
		if err := rows.Scan(&e.Hash, &e.Actor, &e.Seq, &e.Deps, &at); err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		e.Room = room
		e.RecordedAt = time.UnixMilli(at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns how many changes are recorded for room.
func (j *Journal) Count(ctx context.Context, room string) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT count(*) FROM changes WHERE room = ?`, room).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}
