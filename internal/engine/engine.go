package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lazypower/newsletter/internal/analyzer"
	"github.com/lazypower/newsletter/internal/domain"
	"github.com/lazypower/newsletter/internal/logger"
)

// Engine ties keyword extraction, the interest store and the decay model
// together.
type Engine struct {
	Repo     domain.Repository
	Analyzer *analyzer.Analyzer
	Params   Params
	log      logger.Logger
	now      func() time.Time
}

// New creates a new Engine. A nil logger discards output.
func New(repo domain.Repository, an *analyzer.Analyzer, params Params, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Engine{
		Repo:     repo,
		Analyzer: an,
		Params:   params,
		log:      log,
		now:      time.Now,
	}
}

// SetClock replaces the engine's time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// ExtractKeywords returns the keyword importances of text.
func (e *Engine) ExtractKeywords(text string) (map[string]float64, error) {
	return e.Analyzer.Extract(text)
}

// TrackArticle records an article the reader was shown. Its keywords are
// extracted from title and description unless already set. Tracking a URL
// twice is a no-op and reports tracked=false.
func (e *Engine) TrackArticle(ctx context.Context, a *domain.Article) (tracked bool, err error) {
	a.URL = strings.TrimSpace(a.URL)
	if a.URL == "" {
		return false, errors.New("article url is empty")
	}
	if a.Keywords == nil {
		if a.Keywords, err = e.Analyzer.Extract(a.Text()); err != nil {
			return false, fmt.Errorf("extract keywords: %w", err)
		}
	}
	if a.SentAt.IsZero() {
		a.SentAt = e.now()
	}

	err = e.Repo.TrackArticle(ctx, a)
	if errors.Is(err, domain.ErrDuplicateArticle) {
		e.log.DebugObj("article already tracked", "article_duplicate", map[string]any{
			"url": a.URL,
		})
		return false, nil
	}
	if err != nil {
		e.log.ErrorObj("track article failed", "article_track_error", map[string]any{
			"url":   a.URL,
			"error": err.Error(),
		})
		return false, err
	}

	e.log.InfoObj("article tracked", "article_tracked", map[string]any{
		"url":      a.URL,
		"keywords": len(a.Keywords),
	})
	return true, nil
}

// RecordClick registers engagement with a tracked article and folds its
// keywords into the interest model.
func (e *Engine) RecordClick(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("click url is empty")
	}

	err := e.Repo.RecordClick(ctx, url, e.now(), e.Params.Updater())
	if errors.Is(err, domain.ErrUnknownArticle) {
		e.log.WarnObj("click on untracked article", "click_unknown", map[string]any{
			"url": url,
		})
		return err
	}
	if err != nil {
		e.log.ErrorObj("record click failed", "click_error", map[string]any{
			"url":   url,
			"error": err.Error(),
		})
		return err
	}

	e.log.InfoObj("click recorded", "click_recorded", map[string]any{
		"url": url,
	})
	return nil
}

// ArticleScore extracts the article's keywords and scores them against the
// current interest model.
func (e *Engine) ArticleScore(ctx context.Context, a domain.Article) (float64, error) {
	kw, err := e.Analyzer.Extract(a.Text())
	if err != nil {
		return 0, fmt.Errorf("extract keywords: %w", err)
	}
	weights, err := e.Repo.AllWeights(ctx)
	if err != nil {
		return 0, fmt.Errorf("load weights: %w", err)
	}
	return Score(kw, weights, e.Params.DefaultWeight), nil
}

// TopKeywords returns the n strongest interests.
func (e *Engine) TopKeywords(ctx context.Context, n int) ([]domain.KeywordWeight, error) {
	return e.Repo.TopKeywords(ctx, n)
}

// Weight returns the learned weight of one keyword, 0 when never clicked.
func (e *Engine) Weight(ctx context.Context, keyword string) (float64, error) {
	return e.Repo.GetWeight(ctx, keyword)
}

// Ranked is an article with its interest score.
type Ranked struct {
	Article  domain.Article
	Keywords map[string]float64
	Score    float64
}

// Rank scores articles against one snapshot of the interest model and
// returns them best first. Equal scores keep input order.
func (e *Engine) Rank(ctx context.Context, articles []domain.Article) ([]Ranked, error) {
	weights, err := e.Repo.AllWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}

	out := make([]Ranked, 0, len(articles))
	for _, a := range articles {
		kw, err := e.Analyzer.Extract(a.Text())
		if err != nil {
			return nil, fmt.Errorf("extract keywords for %s: %w", a.URL, err)
		}
		out = append(out, Ranked{Article: a, Keywords: kw, Score: Score(kw, weights, e.Params.DefaultWeight)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
