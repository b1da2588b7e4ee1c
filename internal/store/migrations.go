package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "articles: tracked articles with their keyword snapshot",
		SQL: `
CREATE TABLE articles (
    id             INTEGER PRIMARY KEY,
    title          TEXT NOT NULL,
    url            TEXT NOT NULL UNIQUE,
    description    TEXT NOT NULL DEFAULT '',
    category       TEXT NOT NULL DEFAULT 'general',

    -- JSON object keyword -> importance, fixed at insert
    keywords       TEXT NOT NULL DEFAULT '{}',

    source         TEXT NOT NULL DEFAULT '',
    published_at   INTEGER,
    sent_at        INTEGER NOT NULL
);

CREATE INDEX idx_articles_sent_at ON articles(sent_at DESC);
`,
	},
	{
		Version:     2,
		Description: "article_clicks: append-only engagement log",
		SQL: `
CREATE TABLE article_clicks (
    id             INTEGER PRIMARY KEY,
    article_url    TEXT NOT NULL,
    clicked_at     INTEGER NOT NULL
);

CREATE INDEX idx_clicks_url     ON article_clicks(article_url);
CREATE INDEX idx_clicks_clicked ON article_clicks(clicked_at DESC);
`,
	},
	{
		Version:     3,
		Description: "keyword_weights: decayed interest per keyword",
		SQL: `
CREATE TABLE keyword_weights (
    keyword        TEXT PRIMARY KEY,
    weight         REAL NOT NULL CHECK (weight >= 0),
    last_updated   INTEGER NOT NULL
);

CREATE INDEX idx_weights_weight ON keyword_weights(weight DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
