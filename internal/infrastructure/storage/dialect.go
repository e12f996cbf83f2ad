package storage

import (
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect struct {
	Driver      string
	Placeholder sq.PlaceholderFormat
	schema      []string
	tags        func([]string) (any, error)
	boolTrue    any
	boolFalse   any
}

// Postgres is the production backend (lib/pq).
var Postgres = Dialect{
	Driver:      "postgres",
	Placeholder: sq.Dollar,
	tags: func(tags []string) (any, error) {
		return pq.Array(tags), nil
	},
	boolTrue:  true,
	boolFalse: false,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS topic_content (
			id BIGSERIAL PRIMARY KEY,
			topic TEXT NOT NULL,
			age_range TEXT NOT NULL DEFAULT 'all',
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			content_summary TEXT NOT NULL DEFAULT '',
			source_domain TEXT NOT NULL DEFAULT '',
			publication_date TIMESTAMPTZ,
			image_url TEXT NOT NULL DEFAULT '',
			reading_time INTEGER NOT NULL DEFAULT 0,
			tags TEXT[] NOT NULL DEFAULT '{}',
			author TEXT NOT NULL DEFAULT '',
			quality_score DOUBLE PRECISION NOT NULL CHECK (quality_score >= 0 AND quality_score <= 1),
			refresh_cycle INTEGER NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS topic_content_active_url
			ON topic_content (topic, age_range, url) WHERE is_active`,
		`CREATE INDEX IF NOT EXISTS topic_content_created ON topic_content (created_at)`,
		`CREATE TABLE IF NOT EXISTS content_refresh_log (
			id BIGSERIAL PRIMARY KEY,
			topic TEXT NOT NULL,
			age_range TEXT NOT NULL DEFAULT 'all',
			articles_added INTEGER NOT NULL DEFAULT 0,
			articles_removed INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			refresh_cycle INTEGER NOT NULL,
			refresh_date TIMESTAMPTZ NOT NULL
		)`,
	},
}

// SQLite is the embedded backend (modernc.org/sqlite) used for local runs and tests.
var SQLite = Dialect{
	Driver:      "sqlite",
	Placeholder: sq.Question,
	tags: func(tags []string) (any, error) {
		if tags == nil {
			tags = []string{}
		}
		raw, err := json.Marshal(tags)
		if err != nil {
			return nil, fmt.Errorf("encode tags: %w", err)
		}
		return string(raw), nil
	},
	boolTrue:  1,
	boolFalse: 0,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS topic_content (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic TEXT NOT NULL,
			age_range TEXT NOT NULL DEFAULT 'all',
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			content_summary TEXT NOT NULL DEFAULT '',
			source_domain TEXT NOT NULL DEFAULT '',
			publication_date DATETIME,
			image_url TEXT NOT NULL DEFAULT '',
			reading_time INTEGER NOT NULL DEFAULT 0,
			tags TEXT NOT NULL DEFAULT '[]',
			author TEXT NOT NULL DEFAULT '',
			quality_score REAL NOT NULL CHECK (quality_score >= 0 AND quality_score <= 1),
			refresh_cycle INTEGER NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS topic_content_active_url
			ON topic_content (topic, age_range, url) WHERE is_active = 1`,
		`CREATE INDEX IF NOT EXISTS topic_content_created ON topic_content (created_at)`,
		`CREATE TABLE IF NOT EXISTS content_refresh_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic TEXT NOT NULL,
			age_range TEXT NOT NULL DEFAULT 'all',
			articles_added INTEGER NOT NULL DEFAULT 0,
			articles_removed INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			refresh_cycle INTEGER NOT NULL,
			refresh_date DATETIME NOT NULL
		)`,
	},
}

// DialectFor resolves a driver name from configuration.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "postgresql", "":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// conflictClause skips rows that would duplicate an active (topic, age_range, url).
func (d Dialect) conflictClause() string {
	if d.Driver == SQLite.Driver {
		return "ON CONFLICT (topic, age_range, url) WHERE is_active = 1 DO NOTHING"
	}
	return "ON CONFLICT (topic, age_range, url) WHERE is_active DO NOTHING"
}
