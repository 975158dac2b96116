package en

import (
	"maps"
	"slices"

	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/grammar"
)

// letters are the symbols spoken words are spelled with.
var letters = fst.Range('a', 'z')

// numbers holds the number graphs shared by the packs. All of them map
// digits to words except ordinal, which maps cardinal words to ordinal
// words.
type numbers struct {
	digit    *fst.FST // 1-9
	anyDigit *fst.FST // 0-9, zero included
	n10to99  *fst.FST
	n1to99   *fst.FST
	n1to999  *fst.FST

	// cardinal reads any integer below one quadrillion without leading
	// zeros, with optional thousands commas.
	cardinal *fst.FST

	// digits reads a digit string one digit at a time.
	digits *fst.FST

	// decimal reads "3.14" as "three point one four".
	decimal *fst.FST

	// scale accepts a written scale word such as "million".
	scale *fst.FST

	ordinal *fst.FST
}

func newNumbers(lx *lexicon) *numbers {
	n := &numbers{}
	n.digit = grammar.Words(lx.Digits)
	n.anyDigit = fst.Union(n.digit, fst.Cross("0", lx.Zero))

	tens := fst.Concat(grammar.Words(lx.Tens), fst.Union(
		fst.Delete("0"),
		fst.Concat(grammar.InsertSpace(), n.digit),
	))
	n.n10to99 = fst.Union(grammar.Words(lx.Teens), tens)
	n.n1to99 = fst.Union(n.digit, n.n10to99)

	hundred := fst.Concat(n.digit, fst.Insert(" hundred"), fst.Union(
		fst.Delete("00"),
		fst.Concat(fst.Delete("0"), grammar.InsertSpace(), n.digit),
		fst.Concat(grammar.InsertSpace(), n.n10to99),
	))
	n.n1to999 = fst.Union(n.n1to99, hundred)

	// Three digits, not all zero, leading zeros allowed.
	group := fst.Union(
		fst.Concat(fst.Delete("00"), n.digit),
		fst.Concat(fst.Delete("0"), n.n10to99),
		hundred,
	)
	comma := fst.Optional(fst.Delete(","))

	// tail consumes the remaining groups below scale i and emits their
	// words, scale words included.
	tail := fst.Union(
		fst.Concat(comma, fst.Delete("000")),
		fst.Concat(comma, grammar.InsertSpace(), group),
	)
	cardinal := []*fst.FST{fst.Cross("0", lx.Zero), n.n1to999}
	for i, scale := range lx.Scales {
		cardinal = append(cardinal, fst.Concat(n.n1to999, fst.Insert(" "+scale), tail))
		if i == len(lx.Scales)-1 {
			break
		}
		tail = fst.Union(
			fst.Concat(comma, fst.Delete("000"), tail),
			fst.Concat(comma, grammar.InsertSpace(), group, fst.Insert(" "+scale), tail),
		)
	}
	n.cardinal = fst.Optimize(fst.Union(cardinal...))

	n.digits = fst.Concat(n.anyDigit, fst.Star(fst.Concat(grammar.InsertSpace(), n.anyDigit)))
	n.decimal = fst.Concat(
		fst.Optional(fst.Concat(n.cardinal, grammar.InsertSpace())),
		fst.Cross(".", "point "),
		n.digits,
	)
	n.scale = fst.AcceptAny(lx.Scales...)

	n.ordinal = ordinalWords(lx.Ordinals)
	return n
}

// ordinalWords rewrites the last word of a cardinal reading into its
// ordinal form: irregular words from the table, "-y" to "-ieth", and "-th"
// appended otherwise.
func ordinalWords(irregular map[string]string) *fst.FST {
	word := fst.Plus(fst.AcceptSet(letters))
	endsInY := fst.Concat(fst.Star(fst.AcceptSet(letters)), fst.Accept("y"))
	keys := slices.Sorted(maps.Keys(irregular))

	last := fst.Union(
		grammar.Words(irregular),
		fst.Concat(fst.Star(fst.AcceptSet(letters)), fst.Cross("y", "ieth")),
		fst.Concat(fst.Difference(word, fst.Union(fst.AcceptAny(keys...), endsInY)), fst.Insert("th")),
	)
	prefix := fst.Concat(fst.Plus(fst.AcceptSet(letters.Union(fst.Runes(" ")))), fst.Accept(" "))
	return fst.Optimize(fst.Concat(fst.Optional(prefix), last))
}

// restrict limits g to the digit strings accepted by pattern.
func restrict(pattern, g *fst.FST) *fst.FST {
	return fst.Optimize(fst.Compose(pattern, g))
}

// digitIn accepts one digit in [lo, hi].
func digitIn(lo, hi rune) *fst.FST { return fst.AcceptSet(fst.Range(lo, hi)) }
