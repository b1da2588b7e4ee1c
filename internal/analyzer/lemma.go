package analyzer

import (
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// posClass is the coarse grammatical role keywords are drawn from.
type posClass int

const (
	posOther posClass = iota
	posNoun
	posVerb
	posAdjective
)

// classify maps a Penn Treebank tag to its coarse role.
func classify(tag string) posClass {
	switch {
	case strings.HasPrefix(tag, "NN"):
		return posNoun
	case strings.HasPrefix(tag, "VB"):
		return posVerb
	case strings.HasPrefix(tag, "JJ"):
		return posAdjective
	}
	return posOther
}

// english loads the golem dictionary on first use.
var english = sync.OnceValues(func() (*golem.Lemmatizer, error) {
	return golem.New(en.New())
})

// Reduce returns the base form of a lowercase word for its tag: plural nouns
// become singular, inflected verbs become the infinitive, comparative and
// superlative adjectives become the positive. Other tags return "".
func Reduce(word, tag string) string {
	switch classify(tag) {
	case posNoun:
		if tag == "NNS" || tag == "NNPS" {
			return lemma(word, singular)
		}
		return word
	case posVerb:
		if tag == "VB" || tag == "VBP" {
			return word
		}
		return lemma(word, nil)
	case posAdjective:
		if tag == "JJR" || tag == "JJS" {
			return lemma(word, nil)
		}
		return word
	}
	return ""
}

// lemma looks w up in the dictionary. Words it does not know go through
// fallback, or are returned unchanged when fallback is nil.
func lemma(w string, fallback func(string) string) string {
	l, err := english()
	if err == nil && l.InDict(w) {
		return l.Lemma(w)
	}
	if fallback != nil {
		return fallback(w)
	}
	return w
}

// singular strips regular plural endings from words outside the dictionary,
// mostly product and company names.
func singular(w string) string {
	switch {
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return w
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "sses"), strings.HasSuffix(w, "ches"),
		strings.HasSuffix(w, "shes"), strings.HasSuffix(w, "xes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "s") && len(w) > 3:
		return w[:len(w)-1]
	}
	return w
}
