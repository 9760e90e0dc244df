package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	DefaultSQLitePath = "hr-interviewer.db"

	recordColumns = "id, name, score, confidence, interview_question, job_title, job_requirements, feedback, created_at, updated_at"
)

// SQLite stores records in a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultSQLitePath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database at %q: %w", path, err)
	}
	// Limit SQLite to a single open connection to avoid "database is locked" errors
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database at %q: %w", path, err)
	}

	if err := migrateSQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Create(ctx context.Context, r Record) (string, error) {
	r, err := prepare(r)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO interview_results ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.Name, r.Score, r.Confidence, r.InterviewQuestion, r.JobTitle, r.JobRequirements, r.Feedback,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}

	return r.ID, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM interview_results WHERE id = ?", id)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}

	return r, nil
}

func (s *SQLite) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM interview_results ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *r)
	}

	return records, rows.Err()
}

func (s *SQLite) Update(ctx context.Context, id string, p Patch) (*Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM interview_results WHERE id = ?", id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}

	p.Apply(r)
	r.UpdatedAt = now()

	_, err = tx.ExecContext(ctx,
		`UPDATE interview_results SET name = ?, score = ?, confidence = ?, interview_question = ?,
			job_title = ?, job_requirements = ?, feedback = ?, updated_at = ? WHERE id = ?`,
		r.Name, r.Score, r.Confidence, r.InterviewQuestion, r.JobTitle, r.JobRequirements, r.Feedback,
		formatTime(r.UpdatedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update record %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var r Record
	var created, updated string

	err := row.Scan(&r.ID, &r.Name, &r.Score, &r.Confidence, &r.InterviewQuestion, &r.JobTitle,
		&r.JobRequirements, &r.Feedback, &created, &updated)
	if err != nil {
		return nil, err
	}

	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &r, nil
}

// formatTime uses a fixed-width layout so that text ordering matches time ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}
