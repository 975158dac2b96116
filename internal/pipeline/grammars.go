// Package pipeline assembles grammar packs into the sentence-level
// classifier and verbalizer transducers and runs text through them.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/grammar"
	"github.com/MrWong99/spokenform/pkg/rewrite"
)

// ErrEmptyLattice is returned when a stage has no accepting path for its
// input.
var ErrEmptyLattice = errors.New("pipeline: empty lattice")

// Grammars holds the compiled machines of one language. It is immutable
// and safe to share.
type Grammars struct {
	Language string `msgpack:"language"`

	// Pre is the language's pre-pass rewrite chain, applied in order.
	Pre []*fst.FST `msgpack:"pre"`

	Classify  *fst.FST `msgpack:"classify"`
	Verbalize *fst.FST `msgpack:"verbalize"`

	// Post is the language's post-pass rewrite chain, applied in order.
	Post []*fst.FST `msgpack:"post"`

	// Packs lists the pack names that went into the machines.
	Packs []string `msgpack:"packs"`
}

// Compile builds the sentence grammars for set:
//
//  1. Each pack's classifier is weighted with the pack weight, and the
//     packs plus the word fallback are unioned and framed as
//     `tokens { … }`.
//  2. Punctuation tokens may attach to either side of a token without
//     whitespace; other tokens are separated by whitespace, which is
//     collapsed to one space.
//  3. The verbalizer unions the pack verbalizers, strips the token frame
//     and keeps a single space between tokens.
func Compile(set *grammar.PackSet) (*Grammars, error) {
	if set == nil || (len(set.Packs) == 0 && set.Word == nil && set.Punctuation == nil) {
		return nil, fmt.Errorf("%w: empty pack set", grammar.ErrCompilation)
	}
	pre, err := rewrite.Chain(set.PreProcess...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s pre-process: %w", grammar.ErrCompilation, set.Language, err)
	}
	post, err := rewrite.Chain(set.PostProcess...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s post-process: %w", grammar.ErrCompilation, set.Language, err)
	}

	classify := classifier(set)
	if classify.IsEmpty() {
		return nil, fmt.Errorf("%w: %s: classifier accepts nothing", grammar.ErrCompilation, set.Language)
	}
	verbalize := verbalizer(set)
	if verbalize.IsEmpty() {
		return nil, fmt.Errorf("%w: %s: verbalizer accepts nothing", grammar.ErrCompilation, set.Language)
	}

	return &Grammars{
		Language:  set.Language,
		Pre:       pre,
		Classify:  classify,
		Verbalize: verbalize,
		Post:      post,
		Packs:     set.Names(),
	}, nil
}

func frame(body *fst.FST) *fst.FST {
	return fst.Concat(fst.Insert("tokens { "), body, fst.Insert(" }"))
}

func classifier(set *grammar.PackSet) *fst.FST {
	var classes []*fst.FST
	for _, p := range set.Packs {
		classes = append(classes, fst.AddWeight(p.Classify, p.Weight))
	}
	if set.Word != nil {
		classes = append(classes, fst.AddWeight(set.Word.Classify, set.Word.Weight))
	}

	space := fst.Concat(fst.Plus(fst.DeleteSet(grammar.Space)), fst.Insert(" "))
	gap := []*fst.FST{space}

	var body *fst.FST
	switch {
	case set.Punctuation == nil:
		token := frame(fst.Union(classes...))
		body = fst.Concat(token, fst.Star(fst.Concat(space, token)))
	default:
		punct := frame(fst.AddWeight(set.Punctuation.Classify, set.Punctuation.Weight))
		gap = append(gap, fst.Concat(fst.Insert(" "), punct, fst.Insert(" ")))
		sep := fst.Union(gap...)

		var unit *fst.FST
		if len(classes) > 0 {
			token := frame(fst.Union(classes...))
			unit = fst.Concat(
				fst.Star(fst.Concat(punct, fst.Insert(" "))),
				token,
				fst.Star(fst.Concat(fst.Insert(" "), punct)),
			)
			unit = fst.Union(unit, punct)
		} else {
			unit = punct
		}
		body = fst.Concat(unit, fst.Star(fst.Concat(sep, unit)))
	}

	return fst.Optimize(fst.Concat(grammar.DeleteSpaces(), body, grammar.DeleteSpaces()))
}

func verbalizer(set *grammar.PackSet) *fst.FST {
	var classes []*fst.FST
	for _, p := range set.Packs {
		classes = append(classes, p.Verbalize)
	}
	if set.Punctuation != nil {
		classes = append(classes, set.Punctuation.Verbalize)
	}
	if set.Word != nil {
		classes = append(classes, set.Word.Verbalize)
	}
	token := fst.Concat(fst.Delete("tokens { "), fst.Union(classes...), fst.Delete(" }"))
	return fst.Optimize(fst.Concat(token, fst.Star(fst.Concat(fst.Accept(" "), token))))
}
