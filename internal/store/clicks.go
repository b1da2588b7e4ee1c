package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lazypower/newsletter/internal/domain"
)

// RecordClick appends a click on url and rewrites the weights of every
// keyword in the article's snapshot, all in one transaction. The updater
// sees the current rows read in a single batch; its result is written with
// one prepared upsert.
func (db *DB) RecordClick(ctx context.Context, url string, at time.Time, update domain.WeightUpdater) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.TxError{Op: "record click", Err: fmt.Errorf("begin: %w", err)}
	}

	if err := recordClick(ctx, tx, url, at, update); err != nil {
		tx.Rollback()
		if errors.Is(err, domain.ErrUnknownArticle) {
			return err
		}
		return &domain.TxError{Op: "record click", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &domain.TxError{Op: "record click", Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

func recordClick(ctx context.Context, tx *sql.Tx, url string, at time.Time, update domain.WeightUpdater) error {
	var raw string
	err := tx.QueryRowContext(ctx, "SELECT keywords FROM articles WHERE url = ?", url).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownArticle, url)
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	snapshot, err := decodeSnapshot(raw)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO article_clicks (article_url, clicked_at) VALUES (?, ?)",
		url, at.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert click: %w", err)
	}

	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, domain.NormalizeKeyword(k))
	}
	existing, err := loadWeights(ctx, tx, keys)
	if err != nil {
		return err
	}

	rows, err := update(snapshot, existing, at)
	if err != nil {
		return fmt.Errorf("update weights: %w", err)
	}
	return upsertWeights(ctx, tx, rows)
}

// loadWeights reads the rows for keys with one IN query.
func loadWeights(ctx context.Context, tx *sql.Tx, keys []string) (map[string]domain.KeywordWeight, error) {
	out := make(map[string]domain.KeywordWeight, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	sort.Strings(keys)

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	rows, err := tx.QueryContext(ctx,
		"SELECT keyword, weight, last_updated FROM keyword_weights WHERE keyword IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kw domain.KeywordWeight
		var updated int64
		if err := rows.Scan(&kw.Keyword, &kw.Weight, &updated); err != nil {
			return nil, fmt.Errorf("scan weight: %w", err)
		}
		kw.LastUpdated = time.UnixMilli(updated)
		out[kw.Keyword] = kw
	}
	return out, rows.Err()
}

func upsertWeights(ctx context.Context, tx *sql.Tx, rows []domain.KeywordWeight) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO keyword_weights (keyword, weight, last_updated) VALUES (?, ?, ?)
		ON CONFLICT(keyword) DO UPDATE SET weight = excluded.weight, last_updated = excluded.last_updated
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		key := domain.NormalizeKeyword(r.Keyword)
		if key == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, key, r.Weight, r.LastUpdated.UnixMilli()); err != nil {
			return fmt.Errorf("upsert weight %q: %w", key, err)
		}
	}
	return nil
}

// ClickCount returns how many clicks url has received.
func (db *DB) ClickCount(ctx context.Context, url string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM article_clicks WHERE article_url = ?", url).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count clicks: %w", err)
	}
	return n, nil
}

// Clicks returns the most recent clicks, newest first.
func (db *DB) Clicks(ctx context.Context, limit int) ([]domain.Click, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, article_url, clicked_at FROM article_clicks
		ORDER BY clicked_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list clicks: %w", err)
	}
	defer rows.Close()

	var out []domain.Click
	for rows.Next() {
		var c domain.Click
		var at int64
		if err := rows.Scan(&c.ID, &c.URL, &at); err != nil {
			return nil, fmt.Errorf("scan click: %w", err)
		}
		c.ClickedAt = time.UnixMilli(at)
		out = append(out, c)
	}
	return out, rows.Err()
}
