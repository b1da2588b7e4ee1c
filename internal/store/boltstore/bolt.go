// Package boltstore is a domain.Repository on an embedded bbolt file. Each
// relation lives in its own bucket and every write runs in one db.Update.
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/lazypower/newsletter/internal/domain"
)

var (
	bucketArticles = []byte("articles")
	bucketClicks   = []byte("article_clicks")
	bucketWeights  = []byte("keyword_weights")
)

// DB is a bbolt-backed repository.
type DB struct {
	bolt *bolt.DB
	Path string
}

var _ domain.Repository = (*DB)(nil)

type articleRecord struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	URL         string          `json:"url"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category"`
	Keywords    json.RawMessage `json:"keywords"`
	Source      string          `json:"source,omitempty"`
	PublishedAt int64           `json:"published_at,omitempty"`
	SentAt      int64           `json:"sent_at"`
}

type clickRecord struct {
	URL       string `json:"url"`
	ClickedAt int64  `json:"clicked_at"`
}

type weightRecord struct {
	Weight      float64 `json:"weight"`
	LastUpdated int64   `json:"last_updated"`
}

// Open opens (or creates) the bolt file at path and its buckets.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	bdb, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}

	err = bdb.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketArticles, bucketClicks, bucketWeights} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return nil, err
	}
	return &DB{bolt: bdb, Path: path}, nil
}

// Close releases the file lock.
func (db *DB) Close() error { return db.bolt.Close() }

// TrackArticle stores a new article; ErrDuplicateArticle when the URL exists.
func (db *DB) TrackArticle(ctx context.Context, a *domain.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}
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

	var id int64
	err = db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketArticles)
		if b.Get([]byte(a.URL)) != nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateArticle, a.URL)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = int64(seq)

		rec := articleRecord{
			ID:          id,
			Title:       a.Title,
			URL:         a.URL,
			Description: a.Description,
			Category:    category,
			Keywords:    snapshot,
			Source:      a.Source,
			SentAt:      sentAt.UnixMilli(),
		}
		if !a.PublishedAt.IsZero() {
			rec.PublishedAt = a.PublishedAt.UnixMilli()
		}
		buf, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(a.URL), buf)
	})
	if err != nil {
		return fmt.Errorf("track article: %w", err)
	}

	a.ID = id
	a.Category = category
	a.SentAt = sentAt
	return nil
}

// GetArticle returns the tracked article for url, or ErrUnknownArticle.
func (db *DB) GetArticle(ctx context.Context, url string) (*domain.Article, error) {
	var a *domain.Article
	err := db.bolt.View(func(tx *bolt.Tx) error {
		rec, kw, err := readArticle(tx, url)
		if err != nil {
			return err
		}
		a = &domain.Article{
			ID:          rec.ID,
			Title:       rec.Title,
			URL:         rec.URL,
			Description: rec.Description,
			Category:    rec.Category,
			Keywords:    kw,
			Source:      rec.Source,
			SentAt:      time.UnixMilli(rec.SentAt),
		}
		if rec.PublishedAt != 0 {
			a.PublishedAt = time.UnixMilli(rec.PublishedAt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func readArticle(tx *bolt.Tx, url string) (articleRecord, map[string]float64, error) {
	var rec articleRecord
	raw := tx.Bucket(bucketArticles).Get([]byte(url))
	if raw == nil {
		return rec, nil, fmt.Errorf("%w: %s", domain.ErrUnknownArticle, url)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, nil, fmt.Errorf("%w: %w", domain.ErrMalformedSnapshot, err)
	}
	kw := map[string]float64{}
	if err := json.Unmarshal(rec.Keywords, &kw); err != nil {
		return rec, nil, fmt.Errorf("%w: %w", domain.ErrMalformedSnapshot, err)
	}
	return rec, kw, nil
}

// ArticleCount returns the number of tracked articles.
func (db *DB) ArticleCount(ctx context.Context) (int, error) {
	var n int
	err := db.bolt.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketArticles).Stats().KeyN
		return nil
	})
	return n, err
}

// RecordClick appends a click and rewrites the article's keyword weights in
// one bolt write transaction.
func (db *DB) RecordClick(ctx context.Context, url string, at time.Time, update domain.WeightUpdater) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := db.bolt.Update(func(tx *bolt.Tx) error {
		_, snapshot, err := readArticle(tx, url)
		if err != nil {
			return err
		}

		clicks := tx.Bucket(bucketClicks)
		seq, err := clicks.NextSequence()
		if err != nil {
			return err
		}
		buf, err := json.Marshal(clickRecord{URL: url, ClickedAt: at.UnixMilli()})
		if err != nil {
			return err
		}
		if err := clicks.Put(clickKey(url, seq), buf); err != nil {
			return fmt.Errorf("insert click: %w", err)
		}

		weights := tx.Bucket(bucketWeights)
		existing := make(map[string]domain.KeywordWeight, len(snapshot))
		for k := range snapshot {
			key := domain.NormalizeKeyword(k)
			if kw, ok, err := readWeight(weights, key); err != nil {
				return err
			} else if ok {
				existing[key] = kw
			}
		}

		rows, err := update(snapshot, existing, at)
		if err != nil {
			return fmt.Errorf("update weights: %w", err)
		}
		for _, r := range rows {
			key := domain.NormalizeKeyword(r.Keyword)
			if key == "" {
				continue
			}
			buf, err := json.Marshal(weightRecord{Weight: r.Weight, LastUpdated: r.LastUpdated.UnixMilli()})
			if err != nil {
				return err
			}
			if err := weights.Put([]byte(key), buf); err != nil {
				return fmt.Errorf("put weight %q: %w", key, err)
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrUnknownArticle) {
		return err
	}
	return &domain.TxError{Op: "record click", Err: err}
}

// clickKey is url, a NUL separator and the big-endian sequence so one
// url's clicks are contiguous and ordered.
func clickKey(url string, seq uint64) []byte {
	k := make([]byte, 0, len(url)+9)
	k = append(k, url...)
	k = append(k, 0)
	return binary.BigEndian.AppendUint64(k, seq)
}

func readWeight(b *bolt.Bucket, key string) (domain.KeywordWeight, bool, error) {
	raw := b.Get([]byte(key))
	if raw == nil {
		return domain.KeywordWeight{}, false, nil
	}
	var rec weightRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.KeywordWeight{}, false, fmt.Errorf("decode weight %q: %w", key, err)
	}
	return domain.KeywordWeight{Keyword: key, Weight: rec.Weight, LastUpdated: time.UnixMilli(rec.LastUpdated)}, true, nil
}

// ClickCount returns how many clicks url has received.
func (db *DB) ClickCount(ctx context.Context, url string) (int, error) {
	prefix := append([]byte(url), 0)
	n := 0
	err := db.bolt.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketClicks).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// GetWeight returns the stored weight for keyword, or 0 when it has none.
func (db *DB) GetWeight(ctx context.Context, keyword string) (float64, error) {
	var w float64
	err := db.bolt.View(func(tx *bolt.Tx) error {
		kw, _, err := readWeight(tx.Bucket(bucketWeights), domain.NormalizeKeyword(keyword))
		w = kw.Weight
		return err
	})
	return w, err
}

// AllWeights returns every stored weight keyed by keyword.
func (db *DB) AllWeights(ctx context.Context) (map[string]float64, error) {
	all, err := db.allRows()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(all))
	for _, kw := range all {
		out[kw.Keyword] = kw.Weight
	}
	return out, nil
}

// TopKeywords returns the n heaviest keywords, ties ordered by keyword.
// n <= 0 returns all of them.
func (db *DB) TopKeywords(ctx context.Context, n int) ([]domain.KeywordWeight, error) {
	all, err := db.allRows()
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Weight != all[j].Weight {
			return all[i].Weight > all[j].Weight
		}
		return all[i].Keyword < all[j].Keyword
	})
	if n > 0 && n < len(all) {
		all = all[:n]
	}
	return all, nil
}

func (db *DB) allRows() ([]domain.KeywordWeight, error) {
	var out []domain.KeywordWeight
	err := db.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWeights)
		return b.ForEach(func(k, _ []byte) error {
			kw, _, err := readWeight(b, string(k))
			if err != nil {
				return err
			}
			out = append(out, kw)
			return nil
		})
	})
	return out, err
}
