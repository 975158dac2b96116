// Package postprocess provides the language-independent punctuation passes
// that run before classification and after verbalization.
package postprocess

import (
	"fmt"

	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/rewrite"
)

var (
	openers = fst.Runes("([{«“‘¿¡")
	closers = fst.Runes(")]}»”’")

	// trailing marks attach to the preceding word.
	trailing = closers.Union(fst.Runes(".,!?;:%…"))
)

// PunctuationPre returns the rules that pad brackets with spaces so that
// their content is classified on its own, e.g. "[25]" becomes "[ 25 ]".
//
// Order: spaces after openers first, then spaces before closers.
func PunctuationPre() []rewrite.Rule {
	return []rewrite.Rule{
		{Name: "space_after_opener", Pairs: []rewrite.Pair{{Out: " "}}, Left: rewrite.Set(openers)},
		{Name: "space_before_closer", Pairs: []rewrite.Pair{{Out: " "}}, Right: rewrite.Set(closers)},
	}
}

// PunctuationPost returns the rules that undo verbalizer spacing around
// punctuation, e.g. "( one ) !" becomes "(one)!".
//
// Order matters and makes the chain idempotent: the first rule removes
// runs of spaces and spaces before trailing marks, the second removes the
// single space left after an opener.
func PunctuationPost() []rewrite.Rule {
	space := fst.Runes(" ")
	return []rewrite.Rule{
		rewrite.Replace("drop_space_before_mark", " ", "", nil, rewrite.Set(trailing.Union(space))),
		rewrite.Replace("drop_space_after_opener", " ", "", rewrite.Set(openers), nil),
	}
}

// Processor applies a compiled rewrite chain.
type Processor struct {
	chain []*fst.FST
}

// New compiles rules into a processor. Rules run in the given order.
func New(rules ...rewrite.Rule) (*Processor, error) {
	chain, err := rewrite.Chain(rules...)
	if err != nil {
		return nil, fmt.Errorf("postprocess: %w", err)
	}
	return &Processor{chain: chain}, nil
}

// FromChain wraps an already compiled chain.
func FromChain(chain []*fst.FST) *Processor {
	return &Processor{chain: chain}
}

// Process rewrites s.
func (p *Processor) Process(s string) (string, error) {
	if p == nil {
		return s, nil
	}
	return rewrite.Apply(s, p.chain)
}
