// Package subscriber persists notification subscribers in SQLite.
package subscriber

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/feedrank/feedrank/internal/notify"
)

const schema = `
CREATE TABLE IF NOT EXISTS subscribers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	phone TEXT,
	channels TEXT NOT NULL DEFAULT '["email"]',
	levels TEXT NOT NULL DEFAULT '["error","success"]',
	active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);
`

// InitSchema ensures the subscribers table exists.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create subscribers schema: %w", err)
	}
	return nil
}

// Repo is the SQLite-backed subscriber store.
type Repo struct {
	db *sql.DB
}

// New creates a subscriber repository over an opened database.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Add stores a subscriber. The email must be unique.
func (r *Repo) Add(ctx context.Context, s notify.Subscriber) error {
	channels, err := json.Marshal(s.Channels)
	if err != nil {
		return fmt.Errorf("marshal channels: %w", err)
	}
	levels, err := json.Marshal(s.Levels)
	if err != nil {
		return fmt.Errorf("marshal levels: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO subscribers (name, email, phone, channels, levels, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.Name, s.Email, s.Phone, string(channels), string(levels), s.Active,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert subscriber %s: %w", s.Email, err)
	}
	return nil
}

// ActiveSubscribers returns every subscriber flagged active.
func (r *Repo) ActiveSubscribers(ctx context.Context) ([]notify.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, email, phone, channels, levels FROM subscribers WHERE active = 1`)
	if err != nil {
		return nil, fmt.Errorf("query active subscribers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []notify.Subscriber
	for rows.Next() {
		var s notify.Subscriber
		var phone sql.NullString
		var channels, levels string
		if err := rows.Scan(&s.Name, &s.Email, &phone, &channels, &levels); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		s.Phone = phone.String
		s.Active = true
		if err := json.Unmarshal([]byte(channels), &s.Channels); err != nil {
			return nil, fmt.Errorf("parse channels for %s: %w", s.Email, err)
		}
		if err := json.Unmarshal([]byte(levels), &s.Levels); err != nil {
			return nil, fmt.Errorf("parse levels for %s: %w", s.Email, err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return subs, nil
}
