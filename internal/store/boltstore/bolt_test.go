package boltstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/lazypower/newsletter/internal/domain"
	"github.com/lazypower/newsletter/internal/domain/repotest"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "newsletter.bolt"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return db
}

func TestRepositoryContract(t *testing.T) {
	repotest.Run(t, repotest.Harness{
		New: func(t *testing.T) domain.Repository { return openTemp(t) },
		CorruptSnapshot: func(t *testing.T, repo domain.Repository, url string) {
			t.Helper()
			err := repo.(*DB).bolt.Update(func(tx *bolt.Tx) error {
				return tx.Bucket(bucketArticles).Put([]byte(url), []byte(`{"url":"`+url+`","keywords":"oops"}`))
			})
			if err != nil {
				t.Fatalf("corrupt snapshot: %v", err)
			}
		},
	})
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsletter.bolt")
	ctx := context.Background()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.TrackArticle(ctx, &domain.Article{Title: "t", URL: "https://ex.com/a", Keywords: map[string]float64{"go": 1}}); err != nil {
		t.Fatalf("TrackArticle: %v", err)
	}
	if err := db.RecordClick(ctx, "https://ex.com/a", time.Now(), repotest.Additive); err != nil {
		t.Fatalf("RecordClick: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	n, err := db.ArticleCount(ctx)
	if err != nil {
		t.Fatalf("ArticleCount: %v", err)
	}
	if n != 1 {
		t.Errorf("ArticleCount = %d, want 1", n)
	}
	w, err := db.GetWeight(ctx, "GO")
	if err != nil {
		t.Fatalf("GetWeight: %v", err)
	}
	if w != 1 {
		t.Errorf("GetWeight = %v, want 1", w)
	}
}

func TestClickKeysDoNotCollideOnPrefix(t *testing.T) {
	db := openTemp(t)
	defer db.Close()
	ctx := context.Background()

	for _, url := range []string{"https://ex.com/a", "https://ex.com/ab"} {
		if err := db.TrackArticle(ctx, &domain.Article{Title: "t", URL: url}); err != nil {
			t.Fatalf("TrackArticle: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := db.RecordClick(ctx, "https://ex.com/ab", time.Now(), repotest.Additive); err != nil {
			t.Fatalf("RecordClick: %v", err)
		}
	}

	n, err := db.ClickCount(ctx, "https://ex.com/a")
	if err != nil {
		t.Fatalf("ClickCount: %v", err)
	}
	if n != 0 {
		t.Errorf("ClickCount(a) = %d, want 0", n)
	}
	n, err = db.ClickCount(ctx, "https://ex.com/ab")
	if err != nil {
		t.Fatalf("ClickCount: %v", err)
	}
	if n != 3 {
		t.Errorf("ClickCount(ab) = %d, want 3", n)
	}
}
