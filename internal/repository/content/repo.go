// Package content persists content records in SQLite.
package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/feedrank/feedrank/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS contents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	type TEXT NOT NULL,
	metrics TEXT NOT NULL DEFAULT '{}',
	published_at TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contents_type ON contents(type);
CREATE INDEX IF NOT EXISTS idx_contents_published_at ON contents(published_at);
`

// Open opens (or creates) the SQLite database at path and ensures the
// schema exists. Use ":memory:" for tests.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create contents schema: %w", err)
	}
	return db, nil
}

// Repo is the SQLite-backed content store.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a content repository over an opened database.
func New(db *sql.DB) *Repo {
	return &Repo{db: db, now: time.Now}
}

// WithClock overrides the time source used for updated_at. Test hook.
func (r *Repo) WithClock(now func() time.Time) *Repo {
	r.now = now
	return r
}

// Search returns records filtered by an optional case-insensitive keyword
// (substring over title or tags) and an optional exact type, combined with
// AND. Empty filters match everything. Results come back in stable store
// order.
func (r *Repo) Search(ctx context.Context, keyword, contentType string) ([]domain.Content, error) {
	query := `SELECT id, title, type, metrics, published_at, tags, updated_at FROM contents`
	var (
		clauses []string
		args    []any
	)
	if keyword != "" {
		clauses = append(clauses, `(title LIKE ? OR tags LIKE ?)`)
		pattern := "%" + keyword + "%"
		args = append(args, pattern, pattern)
	}
	if contentType != "" {
		clauses = append(clauses, `type = ?`)
		args = append(args, contentType)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search contents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contents []domain.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contents: %w", err)
	}
	return contents, nil
}

// Get returns one record by id.
func (r *Repo) Get(ctx context.Context, id string) (domain.Content, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, type, metrics, published_at, tags, updated_at FROM contents WHERE id = ?`, id)
	c, err := scanContent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Content{}, domain.ErrContentNotFound
		}
		return domain.Content{}, err
	}
	return c, nil
}

// Upsert inserts the record or overwrites all fields of an existing record
// with the same id, touching updated_at.
func (r *Repo) Upsert(ctx context.Context, c domain.Content) error {
	metrics, err := json.Marshal(c.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics for %s: %w", c.ID, err)
	}
	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags for %s: %w", c.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO contents (id, title, type, metrics, published_at, tags, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			type = excluded.type,
			metrics = excluded.metrics,
			published_at = excluded.published_at,
			tags = excluded.tags,
			updated_at = excluded.updated_at`,
		c.ID, c.Title, string(c.Type), string(metrics),
		c.PublishedAt.UTC().Format(time.RFC3339Nano),
		string(tags), r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert content %s: %w", c.ID, err)
	}
	return nil
}

// Count returns the number of stored records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contents: %w", err)
	}
	return n, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanContent(s scanner) (domain.Content, error) {
	var c domain.Content
	var typ, metrics, published, tags, updated string
	if err := s.Scan(&c.ID, &c.Title, &typ, &metrics, &published, &tags, &updated); err != nil {
		if err == sql.ErrNoRows {
			return domain.Content{}, err
		}
		return domain.Content{}, fmt.Errorf("scan content: %w", err)
	}

	c.Type = domain.Type(typ)
	if err := json.Unmarshal([]byte(metrics), &c.Metrics); err != nil {
		return domain.Content{}, fmt.Errorf("parse metrics for %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return domain.Content{}, fmt.Errorf("parse tags for %s: %w", c.ID, err)
	}

	publishedAt, err := time.Parse(time.RFC3339Nano, published)
	if err != nil {
		return domain.Content{}, fmt.Errorf("parse published_at for %s: %w", c.ID, err)
	}
	c.PublishedAt = publishedAt

	updatedAt, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return domain.Content{}, fmt.Errorf("parse updated_at for %s: %w", c.ID, err)
	}
	c.UpdatedAt = updatedAt

	return c, nil
}
