// Package digest picks the daily selection of articles: it decodes candidate
// feeds, ranks them against the interest model, tracks the winners and runs
// on a cron schedule.
package digest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lazypower/newsletter/internal/domain"
)

// feedArticle is one NewsAPI-shaped entry.
type feedArticle struct {
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Source      domain.Source `json:"source"`
	PublishedAt string        `json:"publishedAt"`
}

// removedTitle marks entries NewsAPI has withdrawn.
const removedTitle = "[Removed]"

// DecodeFeed reads candidate articles from either a JSON array or an object
// with an "articles" array. Entries without a URL or withdrawn by the
// provider are dropped, as are repeated URLs.
func DecodeFeed(r io.Reader) ([]domain.Article, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var entries []feedArticle
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode feed: %w", err)
		}
	} else {
		var wrapper struct {
			Articles []feedArticle `json:"articles"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("decode feed: %w", err)
		}
		entries = wrapper.Articles
	}

	seen := make(map[string]struct{}, len(entries))
	out := make([]domain.Article, 0, len(entries))
	for _, e := range entries {
		url := strings.TrimSpace(e.URL)
		if url == "" || strings.TrimSpace(e.Title) == removedTitle {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}

		a := domain.Article{
			Title:       strings.TrimSpace(e.Title),
			URL:         url,
			Description: strings.TrimSpace(e.Description),
			Category:    strings.TrimSpace(e.Category),
			Source:      e.Source.Name(),
		}
		if e.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, e.PublishedAt); err == nil {
				a.PublishedAt = t
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// LoadFeed decodes the feed file at path.
func LoadFeed(path string) ([]domain.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()
	return DecodeFeed(f)
}
