package domain

import (
	"context"
	"strings"
	"time"
)

// DefaultCategory is assigned to articles tracked without a category.
const DefaultCategory = "general"

// Article is a news article as seen by the interest engine. Keywords holds the
// keyword-importance snapshot fixed when the article is first tracked.
type Article struct {
	ID          int64
	Title       string
	URL         string
	Description string
	Category    string
	Keywords    map[string]float64
	Source      string
	PublishedAt time.Time
	SentAt      time.Time
}

// Text returns the text keywords are extracted from: title and description.
func (a Article) Text() string {
	return strings.TrimSpace(a.Title + " " + a.Description)
}

// KeywordWeight is the learned, time-decayed interest in a single keyword.
type KeywordWeight struct {
	Keyword     string
	Weight      float64
	LastUpdated time.Time
}

// Click is a single engagement event on a tracked article.
type Click struct {
	ID        int64
	URL       string
	ClickedAt time.Time
}

// NormalizeKeyword returns the storage key for a keyword.
func NormalizeKeyword(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// WeightUpdater computes the new keyword rows for one engagement event.
// snapshot is the clicked article's keyword importances, existing holds the
// current rows for those keywords (absent keys have no record yet). The store
// calls it inside the click transaction and persists every returned row; a
// non-nil error rolls the whole click back.
type WeightUpdater func(snapshot map[string]float64, existing map[string]KeywordWeight, now time.Time) ([]KeywordWeight, error)

// Repository is the durable interest store. Implementations must be safe for
// concurrent use; each write method is a single atomic transaction.
type Repository interface {
	// TrackArticle inserts the article if its URL is new. Returns
	// ErrDuplicateArticle (and writes nothing) when the URL already exists.
	TrackArticle(ctx context.Context, a *Article) error
	// RecordClick appends a click for url and applies update to the
	// article's keywords in the same transaction.
	RecordClick(ctx context.Context, url string, at time.Time, update WeightUpdater) error
	GetArticle(ctx context.Context, url string) (*Article, error)
	GetWeight(ctx context.Context, keyword string) (float64, error)
	AllWeights(ctx context.Context) (map[string]float64, error)
	TopKeywords(ctx context.Context, n int) ([]KeywordWeight, error)
	ClickCount(ctx context.Context, url string) (int, error)
	ArticleCount(ctx context.Context) (int, error)
	Close() error
}
