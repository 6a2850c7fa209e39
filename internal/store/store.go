// Package store keeps a sqlite translation memory so re-uploaded pages are
// not sent to the model twice, plus a short history of runs.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/thywilljoshua/urdu-link/internal/domain"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; dispatch workers share this handle.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translation_memory (
		unit_key TEXT NOT NULL,
		quality TEXT NOT NULL,
		payload_kind TEXT NOT NULL,
		original_text TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		usage_count INTEGER DEFAULT 1,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (unit_key, quality)
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		quality TEXT NOT NULL,
		total_units INTEGER NOT NULL,
		records INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		error TEXT,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Scope is what a remembered translation depends on besides the content.
type Scope struct {
	Quality domain.Quality
	// Model is the backend model; a changed model never reuses old answers.
	Model string
}

// UnitKey identifies a unit's content for one model: the image bytes for
// pages and images, the NFC-normalized text for extracted text.
func UnitKey(u domain.WorkUnit, model string) string {
	h := sha256.New()
	h.Write([]byte("model:" + model + "\n"))
	switch u.Kind {
	case domain.RawText:
		h.Write([]byte("text:"))
		h.Write([]byte(norm.NFC.String(u.Text)))
	default:
		h.Write([]byte("image:"))
		h.Write(u.Payload)
	}
	return hex.EncodeToString(h.Sum(nil))
}

type Entry struct {
	Original   string
	Translated string
}

// Lookup returns a remembered translation and bumps its usage count.
func (s *Store) Lookup(ctx context.Context, u domain.WorkUnit, sc Scope) (Entry, bool, error) {
	key := UnitKey(u, sc.Model)
	var e Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT original_text, translated_text FROM translation_memory WHERE unit_key = ? AND quality = ?`,
		key, string(sc.Quality)).Scan(&e.Original, &e.Translated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE translation_memory SET usage_count = usage_count + 1, last_used = ? WHERE unit_key = ? AND quality = ?`,
		time.Now(), key, string(sc.Quality))
	return e, true, err
}

// Remember stores a translation. Placeholder answers are not stored.
func (s *Store) Remember(ctx context.Context, u domain.WorkUnit, sc Scope, e Entry) error {
	if e.Translated == "" || e.Translated == domain.PlaceholderTranslation {
		return nil
	}
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO translation_memory (unit_key, quality, payload_kind, original_text, translated_text, usage_count, last_used, created_at) VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		UnitKey(u, sc.Model), string(sc.Quality), u.Kind.String(), e.Original, e.Translated, now, now)
	return err
}

type Stats struct {
	Entries    int64 `json:"entries"`
	TotalHits  int64 `json:"total_hits"`
	Runs       int64 `json:"runs"`
	FailedRuns int64 `json:"failed_runs"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(usage_count - 1), 0) FROM translation_memory`).Scan(&st.Entries, &st.TotalHits)
	if err != nil {
		return st, err
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) FROM runs`).Scan(&st.Runs, &st.FailedRuns)
	return st, err
}

// Clear drops all remembered translations and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Run is one finished translation run.
type Run struct {
	ID         string
	Status     string
	Quality    domain.Quality
	TotalUnits int
	Records    int
	Warnings   int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

func (s *Store) RecordRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, status, quality, total_units, records, warnings, error, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Status, string(r.Quality), r.TotalUnits, r.Records, r.Warnings, r.Error, r.StartedAt, r.FinishedAt)
	return err
}

// RecentRuns lists the newest runs first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, quality, total_units, records, warnings, COALESCE(error, ''), started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var q string
		if err := rows.Scan(&r.ID, &r.Status, &q, &r.TotalUnits, &r.Records, &r.Warnings, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.Quality = domain.Quality(q)
		out = append(out, r)
	}
	return out, rows.Err()
}
