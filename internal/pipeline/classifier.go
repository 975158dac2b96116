package pipeline

import (
	"errors"
	"fmt"

	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/rewrite"
)

// Classifier tags raw text with semiotic classes.
type Classifier struct {
	pre     []*fst.FST
	grammar *fst.FST
}

// NewClassifier returns a classifier over the compiled grammars.
func NewClassifier(g *Grammars) *Classifier {
	return &Classifier{pre: g.Pre, grammar: g.Classify}
}

// Classify runs the pre-pass rewrites and the sentence grammar over text and
// returns the minimum-weight tagged serialization together with its weight.
// It returns ErrEmptyLattice when the grammar rejects the text.
func (c *Classifier) Classify(text string) (string, float64, error) {
	text, err := rewrite.Apply(text, c.pre)
	if err != nil {
		return "", 0, fmt.Errorf("pipeline: pre-process: %w", err)
	}
	p, err := fst.ShortestPath(fst.Apply(text, c.grammar))
	if errors.Is(err, fst.ErrNoPath) {
		return "", 0, fmt.Errorf("%w: classify %q", ErrEmptyLattice, text)
	}
	if err != nil {
		return "", 0, fmt.Errorf("pipeline: classify: %w", err)
	}
	return p.Output, p.Weight, nil
}
