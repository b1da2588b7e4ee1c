package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/newsletter/internal/analyzer"
	"github.com/lazypower/newsletter/internal/domain"
	"github.com/lazypower/newsletter/internal/engine"
	"github.com/lazypower/newsletter/internal/store"
)

// wordTagger tags each word as a noun, separated so no phrases form.
type wordTagger struct{}

func (wordTagger) Tag(text string) (analyzer.Tagged, error) {
	var out analyzer.Tagged
	for _, w := range strings.Fields(text) {
		out.Tokens = append(out.Tokens, analyzer.Token{Text: w, Tag: "NN"}, analyzer.Token{Text: ";", Tag: ":"})
	}
	return out, nil
}

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	an := analyzer.New(wordTagger{}, analyzer.NewVocabulary(nil, nil), analyzer.Options{})
	return engine.New(db, an, engine.DefaultParams(), nil)
}

func TestSelectRanksAndTracks(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	// learn an interest in golang
	_, err := e.TrackArticle(ctx, &domain.Article{Title: "golang", URL: "https://seed"})
	require.NoError(t, err)
	require.NoError(t, e.RecordClick(ctx, "https://seed"))

	var candidates []domain.Article
	for i := 0; i < 9; i++ {
		candidates = append(candidates, domain.Article{Title: fmt.Sprintf("topic%d", i), URL: fmt.Sprintf("https://science.org/%d", i)})
	}
	candidates = append(candidates, domain.Article{Title: "golang", URL: "https://www.wired.com/go"})

	sel := &Selector{Engine: e, PublicURL: "https://news.example.com/"}
	d, err := sel.Select(ctx, candidates)
	require.NoError(t, err)
	require.Len(t, d.Items, DefaultLimit)

	top := d.Items[0]
	assert.Equal(t, "https://www.wired.com/go", top.URL)
	assert.Equal(t, "tech", top.Category)
	assert.InDelta(t, 1.0, top.Score, 1e-12)
	assert.Equal(t, "https://news.example.com/track?url=https%3A%2F%2Fwww.wired.com%2Fgo", top.TrackingURL)
	assert.Equal(t, "science", d.Items[1].Category)
	assert.Equal(t, "https://science.org/0", d.Items[1].URL)

	n, err := e.Repo.ArticleCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1+DefaultLimit, n)

	tracked, err := e.Repo.GetArticle(ctx, "https://www.wired.com/go")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"golang": 1}, tracked.Keywords)
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, "tech", Categorize("https://techcrunch.com/x", DefaultTechDomains))
	assert.Equal(t, "tech", Categorize("https://www.theverge.com/x", DefaultTechDomains))
	assert.Equal(t, "science", Categorize("https://notwired.com/x", DefaultTechDomains))
	assert.Equal(t, "science", Categorize("::bad", DefaultTechDomains))
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	d := &Digest{
		GeneratedAt: time.Date(2024, 7, 4, 22, 0, 0, 0, time.UTC),
		Items:       []Item{{Title: "a", URL: "https://a", Category: "tech"}},
	}
	path, err := Write(dir, d)
	require.NoError(t, err)
	assert.Equal(t, "digest-2024-07-04.json", path[len(dir)+1:])

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var back Digest
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "https://a", back.Items[0].URL)
}
