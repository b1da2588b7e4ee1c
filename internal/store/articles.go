package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lazypower/newsletter/internal/domain"
)

// TrackArticle inserts a new article with its keyword snapshot. A URL that is
// already tracked is left untouched and ErrDuplicateArticle is returned.
func (db *DB) TrackArticle(ctx context.Context, a *domain.Article) error {
	kw := a.Keywords
	if kw == nil {
		kw = map[string]float64{}
	}
	snapshot, err := json.Marshal(kw)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}

	sentAt := a.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	category := a.Category
	if category == "" {
		category = domain.DefaultCategory
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO articles (title, url, description, category, keywords, source, published_at, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING
	`, a.Title, a.URL, a.Description, category, string(snapshot), a.Source, nullMillis(a.PublishedAt), sentAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateArticle, a.URL)
	}

	a.ID, _ = result.LastInsertId()
	a.Category = category
	a.SentAt = sentAt
	return nil
}

// GetArticle returns the tracked article for url, or ErrUnknownArticle.
func (db *DB) GetArticle(ctx context.Context, url string) (*domain.Article, error) {
	var (
		a           domain.Article
		snapshot    string
		publishedAt sql.NullInt64
		sentAt      int64
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, title, url, description, category, keywords, source, published_at, sent_at
		FROM articles WHERE url = ?
	`, url).Scan(&a.ID, &a.Title, &a.URL, &a.Description, &a.Category, &snapshot, &a.Source, &publishedAt, &sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownArticle, url)
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}

	if a.Keywords, err = decodeSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("article %s: %w", url, err)
	}
	if publishedAt.Valid {
		a.PublishedAt = time.UnixMilli(publishedAt.Int64)
	}
	a.SentAt = time.UnixMilli(sentAt)
	return &a, nil
}

// ArticleCount returns the number of tracked articles.
func (db *DB) ArticleCount(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

func decodeSnapshot(raw string) (map[string]float64, error) {
	kw := map[string]float64{}
	if err := json.Unmarshal([]byte(raw), &kw); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedSnapshot, err)
	}
	return kw, nil
}

func nullMillis(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}
