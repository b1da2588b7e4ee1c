package analyzer

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed stopwords.txt
var defaultStopwords string

// DefaultEntityLabels are the named-entity categories kept as keywords:
// organizations, products, locations, people, creative works and events.
var DefaultEntityLabels = []string{"ORG", "PRODUCT", "GPE", "LOC", "PERSON", "WORK_OF_ART", "EVENT"}

// Vocabulary is the static configuration the analyzer filters with.
type Vocabulary struct {
	stopwords    map[string]struct{}
	entityLabels map[string]struct{}
}

// vocabularyFile is the YAML layout accepted by LoadVocabulary.
type vocabularyFile struct {
	Stopwords        []string `yaml:"stopwords"`
	ReplaceStopwords bool     `yaml:"replace_stopwords"`
	EntityLabels     []string `yaml:"entity_labels"`
}

// DefaultVocabulary returns the embedded English stopword list and the
// default entity labels.
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{
		stopwords:    make(map[string]struct{}),
		entityLabels: make(map[string]struct{}),
	}
	v.addStopwords(parseWordList(defaultStopwords))
	v.setEntityLabels(DefaultEntityLabels)
	return v
}

// NewVocabulary builds a vocabulary from explicit lists. A nil labels slice
// selects DefaultEntityLabels.
func NewVocabulary(stopwords, labels []string) *Vocabulary {
	v := &Vocabulary{
		stopwords:    make(map[string]struct{}),
		entityLabels: make(map[string]struct{}),
	}
	v.addStopwords(stopwords)
	if labels == nil {
		labels = DefaultEntityLabels
	}
	v.setEntityLabels(labels)
	return v
}

// LoadVocabulary reads a YAML vocabulary file. Its stopwords extend the
// embedded list unless replace_stopwords is set; entity_labels, when present,
// replace the defaults. Environment variables in the file are expanded.
func LoadVocabulary(path string) (*Vocabulary, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("vocabulary file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}

	var vf vocabularyFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &vf); err != nil {
		return nil, fmt.Errorf("decode vocabulary file: %w", err)
	}

	v := DefaultVocabulary()
	if vf.ReplaceStopwords {
		v.stopwords = make(map[string]struct{})
	}
	v.addStopwords(vf.Stopwords)
	if len(vf.EntityLabels) > 0 {
		v.setEntityLabels(vf.EntityLabels)
	}
	return v, nil
}

// IsStopword reports whether w (any case) is a stopword.
func (v *Vocabulary) IsStopword(w string) bool {
	_, ok := v.stopwords[strings.ToLower(w)]
	return ok
}

// AllowsEntity reports whether entities with the given label become keywords.
func (v *Vocabulary) AllowsEntity(label string) bool {
	_, ok := v.entityLabels[strings.ToUpper(label)]
	return ok
}

// StopwordCount returns the number of stopwords.
func (v *Vocabulary) StopwordCount() int { return len(v.stopwords) }

func (v *Vocabulary) addStopwords(words []string) {
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			v.stopwords[w] = struct{}{}
		}
	}
}

func (v *Vocabulary) setEntityLabels(labels []string) {
	v.entityLabels = make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l = strings.ToUpper(strings.TrimSpace(l)); l != "" {
			v.entityLabels[l] = struct{}{}
		}
	}
}

// parseWordList splits a newline separated list, skipping blanks and # comments.
func parseWordList(s string) []string {
	var words []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words
}
