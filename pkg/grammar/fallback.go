package grammar

import "github.com/MrWong99/spokenform/pkg/fst"

// Default weights of the interleaving packs. Both are far above any
// semiotic class so they only win when nothing else matches.
const (
	PunctuationWeight = 2.1
	WordWeight        = 100
)

// PunctuationPack tags a run of symbols from punct and reads it back
// verbatim.
func PunctuationPack(punct fst.RuneSet) (Pack, error) {
	return Build("punctuation", PunctuationWeight, func() (*fst.FST, *fst.FST, error) {
		classify := Wrap("punctuation", Field("name", fst.Plus(Escape(punct))))
		verbalize := Unwrap("punctuation", Read("name", nil))
		return classify, verbalize, nil
	})
}

// WordPack tags any run of non-space symbols and reads it back verbatim.
// It guarantees that classification never dead-ends.
func WordPack() (Pack, error) {
	return Build("word", WordWeight, func() (*fst.FST, *fst.FST, error) {
		classify := Wrap("word", Field("name", fst.Plus(Escape(NotSpace))))
		verbalize := Unwrap("word", Read("name", nil))
		return classify, verbalize, nil
	})
}
