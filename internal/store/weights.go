package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lazypower/newsletter/internal/domain"
)

// GetWeight returns the stored weight for keyword, or 0 when it has none.
func (db *DB) GetWeight(ctx context.Context, keyword string) (float64, error) {
	var w float64
	err := db.QueryRowContext(ctx,
		"SELECT weight FROM keyword_weights WHERE keyword = ?", domain.NormalizeKeyword(keyword),
	).Scan(&w)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get weight: %w", err)
	}
	return w, nil
}

// AllWeights returns every stored weight keyed by keyword.
func (db *DB) AllWeights(ctx context.Context) (map[string]float64, error) {
	rows, err := db.QueryContext(ctx, "SELECT keyword, weight FROM keyword_weights")
	if err != nil {
		return nil, fmt.Errorf("list weights: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var k string
		var w float64
		if err := rows.Scan(&k, &w); err != nil {
			return nil, fmt.Errorf("scan weight: %w", err)
		}
		out[k] = w
	}
	return out, rows.Err()
}

// TopKeywords returns the n heaviest keywords, ties ordered by keyword.
// n <= 0 returns all of them.
func (db *DB) TopKeywords(ctx context.Context, n int) ([]domain.KeywordWeight, error) {
	if n <= 0 {
		n = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT keyword, weight, last_updated FROM keyword_weights
		ORDER BY weight DESC, keyword ASC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("top keywords: %w", err)
	}
	defer rows.Close()

	var out []domain.KeywordWeight
	for rows.Next() {
		var kw domain.KeywordWeight
		var updated int64
		if err := rows.Scan(&kw.Keyword, &kw.Weight, &updated); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		kw.LastUpdated = time.UnixMilli(updated)
		out = append(out, kw)
	}
	return out, rows.Err()
}
