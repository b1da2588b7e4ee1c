package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lazypower/newsletter/internal/domain"
	"github.com/lazypower/newsletter/internal/domain/repotest"
)

func TestRepositoryContractMemory(t *testing.T) {
	repotest.Run(t, repotest.Harness{
		New: func(t *testing.T) domain.Repository {
			db, err := OpenMemory()
			if err != nil {
				t.Fatalf("OpenMemory: %v", err)
			}
			return db
		},
		CorruptSnapshot: corrupt,
	})
}

func TestRepositoryContractFile(t *testing.T) {
	repotest.Run(t, repotest.Harness{
		New: func(t *testing.T) domain.Repository {
			db, err := Open(filepath.Join(t.TempDir(), "newsletter.db"))
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			return db
		},
		CorruptSnapshot: corrupt,
	})
}

func corrupt(t *testing.T, repo domain.Repository, url string) {
	t.Helper()
	if _, err := repo.(*DB).Exec("UPDATE articles SET keywords = '{oops' WHERE url = ?", url); err != nil {
		t.Fatalf("corrupt snapshot: %v", err)
	}
}

func TestTrackArticleDefaults(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	a := &domain.Article{Title: "t", URL: "https://ex.com/a"}
	if err := db.TrackArticle(ctx, a); err != nil {
		t.Fatalf("TrackArticle: %v", err)
	}
	if a.Category != domain.DefaultCategory {
		t.Errorf("Category = %q, want %q", a.Category, domain.DefaultCategory)
	}
	if a.SentAt.IsZero() {
		t.Error("SentAt not set")
	}

	got, err := db.GetArticle(ctx, a.URL)
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if got.Keywords == nil || len(got.Keywords) != 0 {
		t.Errorf("Keywords = %v, want empty map", got.Keywords)
	}
	if !got.PublishedAt.IsZero() {
		t.Errorf("PublishedAt = %v, want zero", got.PublishedAt)
	}
}

func TestGetArticleMalformed(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	if err := db.TrackArticle(ctx, &domain.Article{Title: "t", URL: "https://ex.com/a"}); err != nil {
		t.Fatalf("TrackArticle: %v", err)
	}
	corrupt(t, db, "https://ex.com/a")

	_, err = db.GetArticle(ctx, "https://ex.com/a")
	if !errors.Is(err, domain.ErrMalformedSnapshot) {
		t.Errorf("GetArticle err = %v, want ErrMalformedSnapshot", err)
	}
}

func TestClicksNewestFirst(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	for _, url := range []string{"https://ex.com/a", "https://ex.com/b"} {
		if err := db.TrackArticle(ctx, &domain.Article{Title: "t", URL: url}); err != nil {
			t.Fatalf("TrackArticle: %v", err)
		}
	}
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if err := db.RecordClick(ctx, "https://ex.com/a", base, repotest.Additive); err != nil {
		t.Fatalf("RecordClick: %v", err)
	}
	if err := db.RecordClick(ctx, "https://ex.com/b", base.Add(time.Minute), repotest.Additive); err != nil {
		t.Fatalf("RecordClick: %v", err)
	}

	clicks, err := db.Clicks(ctx, 10)
	if err != nil {
		t.Fatalf("Clicks: %v", err)
	}
	if len(clicks) != 2 {
		t.Fatalf("len(clicks) = %d, want 2", len(clicks))
	}
	if clicks[0].URL != "https://ex.com/b" {
		t.Errorf("clicks[0].URL = %q, want https://ex.com/b", clicks[0].URL)
	}
	if !clicks[1].ClickedAt.Equal(base) {
		t.Errorf("clicks[1].ClickedAt = %v, want %v", clicks[1].ClickedAt, base)
	}
}
