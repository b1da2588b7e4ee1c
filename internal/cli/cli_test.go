package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/newsletter/internal/analyzer"
)

// wordTagger tags each word as a noun, separated so no phrases form.
type wordTagger struct{}

func (wordTagger) Tag(text string) (analyzer.Tagged, error) {
	var out analyzer.Tagged
	for _, w := range strings.Fields(text) {
		out.Tokens = append(out.Tokens, analyzer.Token{Text: w, Tag: "NN"}, analyzer.Token{Text: ",", Tag: ","})
	}
	return out, nil
}

func useWordTagger(t *testing.T) {
	t.Helper()
	orig := newTagger
	newTagger = func() analyzer.Tagger { return wordTagger{} }
	t.Cleanup(func() { newTagger = orig })
}

// writeConfig writes a config pointing at a fresh database under a temp dir.
func writeConfig(t *testing.T, driver, extra string) string {
	t.Helper()
	dir := t.TempDir()
	ext := ".db"
	if driver == "bolt" {
		ext = ".bolt"
	}
	cfg := "database:\n  driver: " + driver + "\n  path: " + filepath.Join(dir, "newsletter"+ext) + "\n" +
		"log:\n  level: error\n  format: console\n" + extra
	path := filepath.Join(dir, "newsletter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func run(t *testing.T, cfg, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	if cfg != "" {
		args = append(args, "--config", cfg)
	}
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "newsletter dev")
}

func TestExtractFromArgsAndStdin(t *testing.T) {
	useWordTagger(t)
	cfg := writeConfig(t, "sqlite", "")

	out, err := run(t, cfg, "", "extract", "rust", "rust", "compiler")
	require.NoError(t, err)
	assert.Equal(t, "rust: 0.667\ncompiler: 0.333\n", out)

	out, err = run(t, cfg, "quantum chips", "extract", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"quantum":0.5,"chips":0.5}`, out)
}

func TestFormatWeightRounds(t *testing.T) {
	assert.Equal(t, "0.667", formatWeight(2.0/3))
	assert.Equal(t, "0.333", formatWeight(1.0/3))
	assert.Equal(t, "0.500", formatWeight(0.5))
	assert.Equal(t, "1.250", formatWeight(1.25))
}

func TestTrackClickKeywords(t *testing.T) {
	for _, driver := range []string{"sqlite", "bolt"} {
		t.Run(driver, func(t *testing.T) {
			useWordTagger(t)
			cfg := writeConfig(t, driver, "")

			out, err := run(t, cfg, "", "track", "https://example.com/a", "--title", "rust compiler")
			require.NoError(t, err)
			assert.Contains(t, out, "tracked #")
			assert.Contains(t, out, "rust: 0.500")

			out, err = run(t, cfg, "", "track", "https://example.com/a", "--title", "other words")
			require.NoError(t, err)
			assert.Contains(t, out, "already tracked")

			out, err = run(t, cfg, "", "click", "https://example.com/a")
			require.NoError(t, err)
			assert.Contains(t, out, "1 total")

			out, err = run(t, cfg, "", "keywords")
			require.NoError(t, err)
			assert.Contains(t, out, "KEYWORD")
			assert.Contains(t, out, "rust")
			assert.Contains(t, out, "compiler")

			out, err = run(t, cfg, "", "score", "--title", "rust")
			require.NoError(t, err)
			assert.Equal(t, "0.5000\n", out)
		})
	}
}

func TestHistory(t *testing.T) {
	useWordTagger(t)
	cfg := writeConfig(t, "sqlite", "")

	_, err := run(t, cfg, "", "track", "https://example.com/a", "--title", "rust")
	require.NoError(t, err)
	_, err = run(t, cfg, "", "click", "https://example.com/a")
	require.NoError(t, err)

	out, err := run(t, cfg, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com/a")

	bolt := writeConfig(t, "bolt", "")
	_, err = run(t, bolt, "", "history")
	require.Error(t, err)
}

func TestClickUnknownFails(t *testing.T) {
	useWordTagger(t)
	cfg := writeConfig(t, "sqlite", "")

	_, err := run(t, cfg, "", "click", "https://example.com/missing")
	require.Error(t, err)
}

func TestKeywordsEmpty(t *testing.T) {
	useWordTagger(t)
	cfg := writeConfig(t, "sqlite", "")

	out, err := run(t, cfg, "", "keywords")
	require.NoError(t, err)
	assert.Contains(t, out, "No interests learned yet")
}

func TestScoreNeedsText(t *testing.T) {
	useWordTagger(t)
	cfg := writeConfig(t, "sqlite", "")

	_, err := run(t, cfg, "", "score")
	require.Error(t, err)
}

const spool = `{"articles":[
 {"title":"rust compiler","url":"https://wired.com/rust","source":{"name":"Wired"}},
 {"title":"ocean currents","url":"https://example.org/ocean","source":"Science Daily"}
]}`

func writeSpool(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spool.json")
	require.NoError(t, os.WriteFile(path, []byte(spool), 0644))
	return path
}

func TestDigestWritesOutput(t *testing.T) {
	useWordTagger(t)
	cfg := writeConfig(t, "sqlite", "")
	outDir := t.TempDir()

	out, err := run(t, cfg, "", "digest", "--spool", writeSpool(t), "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "[tech] rust compiler")
	assert.Contains(t, out, "[science] ocean currents")
	assert.Contains(t, out, "/track?url=https%3A%2F%2Fwired.com%2Frust")
	assert.Contains(t, out, "wrote ")

	files, err := filepath.Glob(filepath.Join(outDir, "digest-*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestDigestRequiresSpool(t *testing.T) {
	useWordTagger(t)
	cfg := writeConfig(t, "sqlite", "")

	_, err := run(t, cfg, "", "digest")
	require.Error(t, err)
}

func TestTrainLearnsFromYes(t *testing.T) {
	useWordTagger(t)
	cfg := writeConfig(t, "sqlite", "digest:\n  spool_file: "+writeSpool(t)+"\n")

	out, err := run(t, cfg, "y\nq\n", "train")
	require.NoError(t, err)
	assert.Contains(t, out, "Title: rust compiler")
	assert.Contains(t, out, "Source: Wired (unknown)")
	assert.Equal(t, 1, strings.Count(out, "✓ Added to interests"))
	assert.Contains(t, out, "Learned from 1 article(s)")
	assert.Contains(t, out, "rust: 0.500")
}

func TestTrainSkipsNoAndReasksOnGarbage(t *testing.T) {
	useWordTagger(t)
	cfg := writeConfig(t, "sqlite", "digest:\n  spool_file: "+writeSpool(t)+"\n")

	out, err := run(t, cfg, "n\nmaybe\ny\n", "train")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "Would you read this?"))
	assert.Contains(t, out, "Learned from 1 article(s)")
	assert.Contains(t, out, "ocean: 0.500")
	assert.NotContains(t, out, "rust:")
}
