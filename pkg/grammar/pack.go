// Package grammar defines grammar packs, the per-class transducer pairs a
// language supplies to the normalization pipeline, and the building blocks
// packs are written with.
package grammar

import (
	"errors"
	"fmt"

	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/rewrite"
)

// ErrCompilation is returned when a pack cannot be built.
var ErrCompilation = errors.New("grammar: compilation failed")

// Pack is the grammar for one semiotic class.
//
// Classify maps raw text to the tagged body of one token, `class { items}`.
// Verbalize maps that body back to spoken words. Weight is added to every
// classification path; lower weights win.
type Pack struct {
	Name      string
	Weight    float64
	Classify  *fst.FST
	Verbalize *fst.FST
}

// PackSet is the complete grammar of one language.
type PackSet struct {
	Language string

	// Packs are the semiotic classes, in tie-break order.
	Packs []Pack

	// Punctuation tags punctuation runs. Optional.
	Punctuation *Pack

	// Word is the catch-all for any other non-space run. Optional; without
	// it, text no pack matches fails to classify.
	Word *Pack

	// PreProcess rules run, in order, on the input before classification.
	PreProcess []rewrite.Rule

	// PostProcess rules run, in order, on the verbalized text.
	PostProcess []rewrite.Rule
}

// NewPack validates the machines and returns the pack. Both machines must
// accept something.
func NewPack(name string, weight float64, classify, verbalize *fst.FST) (Pack, error) {
	switch {
	case name == "":
		return Pack{}, fmt.Errorf("%w: pack without a name", ErrCompilation)
	case classify == nil || verbalize == nil:
		return Pack{}, fmt.Errorf("%w: %s: missing transducer", ErrCompilation, name)
	}
	classify, verbalize = fst.Optimize(classify), fst.Optimize(verbalize)
	if classify.IsEmpty() {
		return Pack{}, fmt.Errorf("%w: %s: classifier accepts nothing", ErrCompilation, name)
	}
	if verbalize.IsEmpty() {
		return Pack{}, fmt.Errorf("%w: %s: verbalizer accepts nothing", ErrCompilation, name)
	}
	return Pack{Name: name, Weight: weight, Classify: classify, Verbalize: verbalize}, nil
}

// Build runs fn and turns both returned errors and panics raised by
// rule compilation into ErrCompilation errors naming the pack.
func Build(name string, weight float64, fn func() (classify, verbalize *fst.FST, err error)) (p Pack, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrCompilation, name, r)
		}
	}()
	c, v, err := fn()
	if err != nil {
		if errors.Is(err, ErrCompilation) {
			return Pack{}, err
		}
		return Pack{}, fmt.Errorf("%w: %s: %w", ErrCompilation, name, err)
	}
	return NewPack(name, weight, c, v)
}

// Names returns the pack names in order, including the optional packs.
func (s *PackSet) Names() []string {
	names := make([]string, 0, len(s.Packs)+2)
	for _, p := range s.Packs {
		names = append(names, p.Name)
	}
	if s.Punctuation != nil {
		names = append(names, s.Punctuation.Name)
	}
	if s.Word != nil {
		names = append(names, s.Word.Name)
	}
	return names
}
