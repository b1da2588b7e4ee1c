package analyzer

import (
	"fmt"
	"sync"

	"github.com/jdkato/prose/v2"
)

// Token is a single word with its Penn Treebank part-of-speech tag.
type Token struct {
	Text string
	Tag  string
}

// Entity is a named-entity span with its category label.
type Entity struct {
	Text  string
	Label string
}

// Tagged is the result of running a Tagger over a text.
type Tagged struct {
	Tokens   []Token
	Entities []Entity
}

// Tagger tokenizes text, tags each token and recognizes named entities.
type Tagger interface {
	Tag(text string) (Tagged, error)
}

// ProseTagger tags text with prose's tokenizer, averaged-perceptron POS
// tagger and entity recognizer.
type ProseTagger struct {
	mu sync.Mutex
}

// NewProseTagger returns the default Tagger.
func NewProseTagger() *ProseTagger {
	return &ProseTagger{}
}

// Tag implements Tagger. Calls are serialized; prose models are not shared
// across goroutines.
func (p *ProseTagger) Tag(text string) (Tagged, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return Tagged{}, fmt.Errorf("prose document: %w", err)
	}

	toks := doc.Tokens()
	ents := doc.Entities()
	out := Tagged{
		Tokens:   make([]Token, 0, len(toks)),
		Entities: make([]Entity, 0, len(ents)),
	}
	for _, tok := range toks {
		out.Tokens = append(out.Tokens, Token{Text: tok.Text, Tag: tok.Tag})
	}
	for _, ent := range ents {
		out.Entities = append(out.Entities, Entity{Text: ent.Text, Label: ent.Label})
	}
	return out, nil
}
