// Package analyzer turns free text into a weighted keyword map: named
// entities, lemmatized content words and multi-word noun phrases, ranked by
// frequency.
package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// DefaultMaxKeywords is how many keywords Extract keeps when Options leaves
// MaxKeywords unset.
const DefaultMaxKeywords = 10

// Options tune extraction.
type Options struct {
	// MaxKeywords caps the result size. Zero or negative selects DefaultMaxKeywords.
	MaxKeywords int
	// NormalizePhrases counts noun phrases in the weight denominator. When
	// false the denominator is entities plus reduced tokens only, so phrase
	// weights are inflated relative to single words.
	NormalizePhrases bool
}

// Analyzer extracts keyword importances from text.
type Analyzer struct {
	tagger Tagger
	vocab  *Vocabulary
	opts   Options
}

// New returns an Analyzer. A nil tagger selects prose; a nil vocabulary
// selects DefaultVocabulary.
func New(tagger Tagger, vocab *Vocabulary, opts Options) *Analyzer {
	if tagger == nil {
		tagger = NewProseTagger()
	}
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if opts.MaxKeywords <= 0 {
		opts.MaxKeywords = DefaultMaxKeywords
	}
	return &Analyzer{tagger: tagger, vocab: vocab, opts: opts}
}

// Vocabulary returns the vocabulary the analyzer filters with.
func (a *Analyzer) Vocabulary() *Vocabulary { return a.vocab }

// Extract returns up to MaxKeywords lowercase keywords mapped to their
// relative frequency. Empty or stopword-only text yields an empty map.
func (a *Analyzer) Extract(text string) (map[string]float64, error) {
	out := make(map[string]float64)
	if strings.TrimSpace(text) == "" {
		return out, nil
	}

	tagged, err := a.tagger.Tag(text)
	if err != nil {
		return nil, fmt.Errorf("tag text: %w", err)
	}

	var c counter
	base := 0

	for _, ent := range tagged.Entities {
		if !a.vocab.AllowsEntity(ent.Label) {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(ent.Text))
		if key == "" {
			continue
		}
		c.add(key)
		base++
	}

	for _, tok := range tagged.Tokens {
		word := strings.ToLower(tok.Text)
		if word == "" || isPunct(word) || a.vocab.IsStopword(word) {
			continue
		}
		root := Reduce(word, tok.Tag)
		if root == "" {
			continue
		}
		c.add(root)
		base++
	}

	phrases := a.nounPhrases(tagged.Tokens)
	for _, p := range phrases {
		c.add(p)
	}

	denom := base
	if a.opts.NormalizePhrases {
		denom += len(phrases)
	}
	if denom == 0 {
		return out, nil
	}

	for _, e := range c.top(a.opts.MaxKeywords) {
		out[e.key] = float64(e.count) / float64(denom)
	}
	return out, nil
}

// nounPhrases returns maximal adjective/noun runs of two or more tokens that
// end in a noun and contain no stopword.
func (a *Analyzer) nounPhrases(tokens []Token) []string {
	var phrases []string
	var run []Token

	flush := func() {
		// trim trailing adjectives so the phrase ends in a noun
		for len(run) > 0 && classify(run[len(run)-1].Tag) != posNoun {
			run = run[:len(run)-1]
		}
		if len(run) >= 2 {
			words := make([]string, 0, len(run))
			ok := true
			for _, t := range run {
				w := strings.ToLower(t.Text)
				if a.vocab.IsStopword(w) || isPunct(w) {
					ok = false
					break
				}
				words = append(words, w)
			}
			if ok {
				phrases = append(phrases, strings.Join(words, " "))
			}
		}
		run = run[:0]
	}

	for _, t := range tokens {
		switch classify(t.Tag) {
		case posNoun, posAdjective:
			run = append(run, t)
		default:
			flush()
		}
	}
	flush()
	return phrases
}

// isPunct reports whether s consists only of punctuation or symbols.
func isPunct(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

type entry struct {
	key   string
	count int
	first int
}

// counter tallies keys remembering first-seen order.
type counter struct {
	index   map[string]int
	entries []entry
}

func (c *counter) add(key string) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if i, ok := c.index[key]; ok {
		c.entries[i].count++
		return
	}
	c.index[key] = len(c.entries)
	c.entries = append(c.entries, entry{key: key, count: 1, first: len(c.entries)})
}

// top returns the n most frequent entries, earlier first occurrence winning ties.
func (c *counter) top(n int) []entry {
	sorted := make([]entry, len(c.entries))
	copy(sorted, c.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].first < sorted[j].first
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
