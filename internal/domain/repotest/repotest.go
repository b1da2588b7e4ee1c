// Package repotest is a conformance suite for domain.Repository
// implementations.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/newsletter/internal/domain"
)

// Harness describes a backend under test.
type Harness struct {
	// New returns an empty repository. The suite closes it.
	New func(t *testing.T) domain.Repository
	// CorruptSnapshot overwrites the stored keyword snapshot of url with
	// undecodable data. Optional.
	CorruptSnapshot func(t *testing.T, repo domain.Repository, url string)
}

// Additive blends like the engine with no decay: a new keyword gets its
// importance, an existing one gains half of it.
func Additive(snapshot map[string]float64, existing map[string]domain.KeywordWeight, now time.Time) ([]domain.KeywordWeight, error) {
	out := make([]domain.KeywordWeight, 0, len(snapshot))
	for k, i := range snapshot {
		w := i
		if cur, ok := existing[k]; ok {
			w = cur.Weight + i*0.5
		}
		out = append(out, domain.KeywordWeight{Keyword: k, Weight: w, LastUpdated: now})
	}
	return out, nil
}

func article(url string, kw map[string]float64) *domain.Article {
	return &domain.Article{
		Title:    "title " + url,
		URL:      url,
		Category: "tech",
		Keywords: kw,
		Source:   "Wire",
		SentAt:   time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

// Run executes the suite.
func Run(t *testing.T, h Harness) {
	open := func(t *testing.T) domain.Repository {
		repo := h.New(t)
		t.Cleanup(func() { repo.Close() })
		return repo
	}
	ctx := context.Background()
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

	t.Run("TrackIsIdempotent", func(t *testing.T) {
		repo := open(t)
		first := article("https://ex.com/a", map[string]float64{"go": 0.5, "rust": 0.25})
		require.NoError(t, repo.TrackArticle(ctx, first))
		assert.NotZero(t, first.ID)

		second := article("https://ex.com/a", map[string]float64{"python": 1})
		err := repo.TrackArticle(ctx, second)
		assert.ErrorIs(t, err, domain.ErrDuplicateArticle)

		n, err := repo.ArticleCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := repo.GetArticle(ctx, "https://ex.com/a")
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"go": 0.5, "rust": 0.25}, got.Keywords)
		assert.Equal(t, "tech", got.Category)
		assert.Equal(t, "Wire", got.Source)
		assert.True(t, got.SentAt.Equal(first.SentAt))
	})

	t.Run("GetUnknownArticle", func(t *testing.T) {
		repo := open(t)
		_, err := repo.GetArticle(ctx, "https://ex.com/missing")
		assert.ErrorIs(t, err, domain.ErrUnknownArticle)
	})

	t.Run("ClickUnknownArticle", func(t *testing.T) {
		repo := open(t)
		err := repo.RecordClick(ctx, "https://ex.com/missing", now, Additive)
		assert.ErrorIs(t, err, domain.ErrUnknownArticle)

		n, err := repo.ClickCount(ctx, "https://ex.com/missing")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("FirstClickCreatesWeights", func(t *testing.T) {
		repo := open(t)
		require.NoError(t, repo.TrackArticle(ctx, article("https://ex.com/a", map[string]float64{"go": 0.4})))
		require.NoError(t, repo.RecordClick(ctx, "https://ex.com/a", now, Additive))

		w, err := repo.GetWeight(ctx, "go")
		require.NoError(t, err)
		assert.InDelta(t, 0.4, w, 1e-12)

		w, err = repo.GetWeight(ctx, "absent")
		require.NoError(t, err)
		assert.Zero(t, w)

		n, err := repo.ClickCount(ctx, "https://ex.com/a")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		top, err := repo.TopKeywords(ctx, 5)
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.True(t, top[0].LastUpdated.Equal(now), "last updated %v", top[0].LastUpdated)
	})

	t.Run("UpdaterSeesExistingRows", func(t *testing.T) {
		repo := open(t)
		require.NoError(t, repo.TrackArticle(ctx, article("https://ex.com/a", map[string]float64{"go": 0.4})))
		require.NoError(t, repo.TrackArticle(ctx, article("https://ex.com/b", map[string]float64{"go": 0.2, "wasm": 0.6})))
		require.NoError(t, repo.RecordClick(ctx, "https://ex.com/a", now, Additive))

		var seen map[string]domain.KeywordWeight
		var snap map[string]float64
		spy := func(s map[string]float64, existing map[string]domain.KeywordWeight, at time.Time) ([]domain.KeywordWeight, error) {
			snap, seen = s, existing
			return Additive(s, existing, at)
		}
		require.NoError(t, repo.RecordClick(ctx, "https://ex.com/b", now.Add(time.Hour), spy))

		assert.Equal(t, map[string]float64{"go": 0.2, "wasm": 0.6}, snap)
		require.Len(t, seen, 1)
		assert.InDelta(t, 0.4, seen["go"].Weight, 1e-12)
		assert.True(t, seen["go"].LastUpdated.Equal(now))

		all, err := repo.AllWeights(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, all["go"], 1e-12)
		assert.InDelta(t, 0.6, all["wasm"], 1e-12)
	})

	t.Run("UpdaterErrorRollsBack", func(t *testing.T) {
		repo := open(t)
		require.NoError(t, repo.TrackArticle(ctx, article("https://ex.com/a", map[string]float64{"go": 0.4})))
		require.NoError(t, repo.RecordClick(ctx, "https://ex.com/a", now, Additive))

		boom := errors.New("boom")
		failing := func(map[string]float64, map[string]domain.KeywordWeight, time.Time) ([]domain.KeywordWeight, error) {
			return nil, boom
		}
		err := repo.RecordClick(ctx, "https://ex.com/a", now.Add(time.Hour), failing)
		require.ErrorIs(t, err, boom)
		var txErr *domain.TxError
		assert.ErrorAs(t, err, &txErr)

		n, err := repo.ClickCount(ctx, "https://ex.com/a")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		w, err := repo.GetWeight(ctx, "go")
		require.NoError(t, err)
		assert.InDelta(t, 0.4, w, 1e-12)
	})

	t.Run("MalformedSnapshot", func(t *testing.T) {
		if h.CorruptSnapshot == nil {
			t.Skip("backend cannot corrupt snapshots")
		}
		repo := open(t)
		require.NoError(t, repo.TrackArticle(ctx, article("https://ex.com/a", map[string]float64{"go": 0.4})))
		h.CorruptSnapshot(t, repo, "https://ex.com/a")

		err := repo.RecordClick(ctx, "https://ex.com/a", now, Additive)
		assert.ErrorIs(t, err, domain.ErrMalformedSnapshot)

		n, err := repo.ClickCount(ctx, "https://ex.com/a")
		require.NoError(t, err)
		assert.Zero(t, n)

		w, err := repo.GetWeight(ctx, "go")
		require.NoError(t, err)
		assert.Zero(t, w)
	})

	t.Run("TopKeywordsOrdering", func(t *testing.T) {
		repo := open(t)
		require.NoError(t, repo.TrackArticle(ctx, article("https://ex.com/a", map[string]float64{
			"beta": 0.3, "alpha": 0.3, "gamma": 0.9, "delta": 0.1,
		})))
		require.NoError(t, repo.RecordClick(ctx, "https://ex.com/a", now, Additive))

		top, err := repo.TopKeywords(ctx, 3)
		require.NoError(t, err)
		require.Len(t, top, 3)
		assert.Equal(t, "gamma", top[0].Keyword)
		assert.Equal(t, "alpha", top[1].Keyword)
		assert.Equal(t, "beta", top[2].Keyword)

		all, err := repo.TopKeywords(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 4)
		assert.Equal(t, "delta", all[3].Keyword)
	})

	t.Run("ConcurrentDisjointClicks", func(t *testing.T) {
		repo := open(t)
		const n = 10
		for i := 0; i < n; i++ {
			url := fmt.Sprintf("https://ex.com/%d", i)
			kw := map[string]float64{fmt.Sprintf("kw%d", i): 0.1 * float64(i+1)}
			require.NoError(t, repo.TrackArticle(ctx, article(url, kw)))
		}

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- repo.RecordClick(ctx, fmt.Sprintf("https://ex.com/%d", i), now, Additive)
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		all, err := repo.AllWeights(ctx)
		require.NoError(t, err)
		require.Len(t, all, n)
		for i := 0; i < n; i++ {
			assert.InDelta(t, 0.1*float64(i+1), all[fmt.Sprintf("kw%d", i)], 1e-12)
		}
	})

	t.Run("ConcurrentClicksSameArticle", func(t *testing.T) {
		repo := open(t)
		require.NoError(t, repo.TrackArticle(ctx, article("https://ex.com/a", map[string]float64{"go": 0.2})))

		const n = 8
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.RecordClick(ctx, "https://ex.com/a", now, Additive)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		// first click sets i, each later one adds i/2: no update is lost
		w, err := repo.GetWeight(ctx, "go")
		require.NoError(t, err)
		assert.InDelta(t, 4.5*0.2, w, 1e-9)

		clicks, err := repo.ClickCount(ctx, "https://ex.com/a")
		require.NoError(t, err)
		assert.Equal(t, n, clicks)
	})
}
