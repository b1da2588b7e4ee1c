package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lazypower/newsletter/internal/domain"
	"github.com/lazypower/newsletter/internal/engine"
	"github.com/lazypower/newsletter/internal/logger"
)

// DefaultLimit is the number of articles in a digest.
const DefaultLimit = 7

// DefaultTechDomains classify articles as "tech"; everything else is "science".
var DefaultTechDomains = []string{"techcrunch.com", "wired.com", "theverge.com", "arstechnica.com"}

// Item is one selected article.
type Item struct {
	Title       string             `json:"title"`
	URL         string             `json:"url"`
	TrackingURL string             `json:"tracking_url"`
	Description string             `json:"description,omitempty"`
	Source      string             `json:"source,omitempty"`
	Category    string             `json:"category"`
	Score       float64            `json:"score"`
	Keywords    map[string]float64 `json:"keywords"`
}

// Digest is one day's selection.
type Digest struct {
	GeneratedAt time.Time `json:"generated_at"`
	Items       []Item    `json:"items"`
}

// Selector ranks candidates and tracks the ones it picks.
type Selector struct {
	Engine      *engine.Engine
	Limit       int
	PublicURL   string
	TechDomains []string
	Log         logger.Logger
}

// Select ranks candidates against one snapshot of the interest model, keeps
// the best Limit and tracks each of them so later clicks can be attributed.
func (s *Selector) Select(ctx context.Context, candidates []domain.Article) (*Digest, error) {
	log := s.Log
	if log == nil {
		log = logger.NopLogger{}
	}
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	domains := s.TechDomains
	if domains == nil {
		domains = DefaultTechDomains
	}

	ranked, err := s.Engine.Rank(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	d := &Digest{GeneratedAt: time.Now(), Items: make([]Item, 0, len(ranked))}
	for _, r := range ranked {
		a := r.Article
		if a.Category == "" {
			a.Category = Categorize(a.URL, domains)
		}
		a.Keywords = r.Keywords
		if _, err := s.Engine.TrackArticle(ctx, &a); err != nil {
			return nil, fmt.Errorf("track %s: %w", a.URL, err)
		}
		d.Items = append(d.Items, Item{
			Title:       a.Title,
			URL:         a.URL,
			TrackingURL: TrackingURL(s.PublicURL, a.URL),
			Description: a.Description,
			Source:      a.Source,
			Category:    a.Category,
			Score:       r.Score,
			Keywords:    r.Keywords,
		})
	}

	log.InfoObj("digest selected", "digest_selected", map[string]any{
		"candidates": len(candidates),
		"selected":   len(d.Items),
	})
	return d, nil
}

// TrackingURL wraps articleURL in the click-tracking redirect at base.
func TrackingURL(base, articleURL string) string {
	return strings.TrimRight(base, "/") + "/track?url=" + url.QueryEscape(articleURL)
}

// Categorize returns "tech" when the article's host is or is under one of
// domains, "science" otherwise.
func Categorize(articleURL string, domains []string) string {
	u, err := url.Parse(articleURL)
	if err != nil {
		return "science"
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return "tech"
		}
	}
	return "science"
}

// Write stores d as dir/digest-YYYY-MM-DD.json and returns the path.
func Write(dir string, d *Digest) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, "digest-"+d.GeneratedAt.Format("2006-01-02")+".json")
	buf, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode digest: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", fmt.Errorf("write digest: %w", err)
	}
	return path, nil
}
