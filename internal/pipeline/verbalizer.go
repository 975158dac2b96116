package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/MrWong99/spokenform/pkg/fst"
)

// VerbalizerOption configures a Verbalizer.
type VerbalizerOption func(*Verbalizer)

// WithCache memoises up to size verbalization results for ttl. Failed
// attempts are remembered too, since most field-order variants fail.
func WithCache(size int, ttl time.Duration) VerbalizerOption {
	return func(v *Verbalizer) {
		if size > 0 {
			v.cache = expirable.NewLRU[string, result](size, nil, ttl)
		}
	}
}

type result struct {
	text string
	ok   bool
}

// Verbalizer turns tagged serializations into spoken text.
type Verbalizer struct {
	grammar *fst.FST
	cache   *expirable.LRU[string, result]
}

// NewVerbalizer returns a verbalizer over the compiled grammars.
func NewVerbalizer(g *Grammars, opts ...VerbalizerOption) *Verbalizer {
	v := &Verbalizer{grammar: g.Verbalize}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verbalize returns the minimum-weight spoken form of tagged, or
// ErrEmptyLattice when no verbalizer accepts it in this field order.
func (v *Verbalizer) Verbalize(tagged string) (string, error) {
	if v.cache != nil {
		if r, ok := v.cache.Get(tagged); ok {
			if !r.ok {
				return "", fmt.Errorf("%w: verbalize (cached)", ErrEmptyLattice)
			}
			return r.text, nil
		}
	}
	p, err := fst.ShortestPath(fst.Apply(tagged, v.grammar))
	switch {
	case errors.Is(err, fst.ErrNoPath):
		v.remember(tagged, result{})
		return "", fmt.Errorf("%w: verbalize", ErrEmptyLattice)
	case err != nil:
		return "", fmt.Errorf("pipeline: verbalize: %w", err)
	}
	v.remember(tagged, result{text: p.Output, ok: true})
	return p.Output, nil
}

func (v *Verbalizer) remember(key string, r result) {
	if v.cache != nil {
		v.cache.Add(key, r)
	}
}
