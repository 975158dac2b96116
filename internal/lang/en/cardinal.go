package en

import (
	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/grammar"
)

// Pack weights. The default semiotic weight is 1.1; more specific formats
// sit slightly below it and loose ones slightly above.
const (
	weightWhitelist = 1.01
	weightTelephone = 1.05
	weightDate      = 1.09
	weightDefault   = 1.1
	weightLoose     = 1.12
)

// readNumber verbalizes the fields a cardinal or decimal reading is made of.
func readNumber() *fst.FST {
	return fst.Concat(grammar.ReadNegative("minus"), fst.Union(
		grammar.Read("integer", nil),
		fst.Concat(
			fst.Optional(fst.Concat(grammar.Read("integer_part", nil), grammar.InsertSpace())),
			fst.Insert("point "),
			grammar.Read("fractional_part", nil),
		),
	))
}

func cardinalPack(n *numbers) (grammar.Pack, error) {
	return grammar.Build("cardinal", weightDefault, func() (*fst.FST, *fst.FST, error) {
		classify := grammar.Wrap("cardinal", fst.Concat(grammar.Negative(), grammar.Field("integer", n.cardinal)))
		verbalize := grammar.Unwrap("cardinal", fst.Concat(grammar.ReadNegative("minus"), grammar.Read("integer", nil)))
		return classify, verbalize, nil
	})
}

// ordinalPack classifies "21st" as the cardinal reading of 21 and turns it
// into "twenty first" on the way out. The suffix must agree with the
// number.
func ordinalPack(n *numbers) (grammar.Pack, error) {
	return grammar.Build("ordinal", weightDefault, func() (*fst.FST, *fst.FST, error) {
		digits := fst.Star(grammar.Digit())
		notOne := fst.AcceptSet(grammar.Digits.Minus(fst.Runes("1")))
		// endsIn accepts digit strings ending in d but not in 1d.
		endsIn := func(d string) *fst.FST {
			return fst.Union(
				fst.Accept(d),
				fst.Concat(digits, notOne, fst.Accept(d)),
			)
		}
		st, nd, rd := endsIn("1"), endsIn("2"), endsIn("3")
		th := fst.Difference(fst.Plus(grammar.Digit()), fst.Union(st, nd, rd))

		number := fst.Union(
			fst.Concat(restrict(st, n.cardinal), fst.Delete("st")),
			fst.Concat(restrict(nd, n.cardinal), fst.Delete("nd")),
			fst.Concat(restrict(rd, n.cardinal), fst.Delete("rd")),
			fst.Concat(restrict(th, n.cardinal), fst.Delete("th")),
		)
		classify := grammar.Wrap("ordinal", grammar.Field("integer", number))
		verbalize := grammar.Unwrap("ordinal", grammar.Read("integer", n.ordinal))
		return classify, verbalize, nil
	})
}

func decimalPack(n *numbers) (grammar.Pack, error) {
	return grammar.Build("decimal", weightDefault, func() (*fst.FST, *fst.FST, error) {
		classify := grammar.Wrap("decimal", fst.Concat(
			grammar.Negative(),
			fst.Optional(grammar.Field("integer_part", n.cardinal)),
			fst.Delete("."),
			grammar.Field("fractional_part", n.digits),
			fst.Optional(fst.Concat(fst.Delete(" "), grammar.Field("quantity", n.scale))),
		))
		verbalize := grammar.Unwrap("decimal", fst.Concat(
			readNumber(),
			fst.Optional(fst.Concat(grammar.InsertSpace(), grammar.Read("quantity", nil))),
		))
		return classify, verbalize, nil
	})
}

// fractionPack reads "3/4" as "three fourths" and "1 1/2" as "one and one
// half".
func fractionPack(n *numbers) (grammar.Pack, error) {
	return grammar.Build("fraction", weightDefault, func() (*fst.FST, *fst.FST, error) {
		classify := grammar.Wrap("fraction", fst.Concat(
			grammar.Negative(),
			fst.Optional(fst.Concat(grammar.Field("integer_part", n.cardinal), fst.Delete(" "))),
			grammar.Field("numerator", n.cardinal),
			fst.Delete("/"),
			grammar.Field("denominator", n.cardinal),
		))

		words := fst.Plus(fst.AcceptSet(letters.Union(fst.Runes(" "))))
		other := fst.Compose(fst.Difference(words, fst.AcceptAny("two", "four")), n.ordinal)
		singular := fst.Union(fst.Cross("two", "half"), fst.Cross("four", "quarter"), other)
		plural := fst.Union(fst.Cross("two", "halves"), fst.Cross("four", "quarters"), fst.Concat(other, fst.Insert("s")))

		verbalize := grammar.Unwrap("fraction", fst.Concat(
			grammar.ReadNegative("minus"),
			fst.Optional(fst.Concat(grammar.Read("integer_part", nil), fst.Insert(" and "))),
			fst.Union(
				fst.Concat(grammar.Read("numerator", fst.Accept("one")), grammar.InsertSpace(), grammar.Read("denominator", singular)),
				fst.Concat(
					grammar.Read("numerator", fst.Difference(grammar.Value(), fst.Accept("one"))),
					grammar.InsertSpace(),
					grammar.Read("denominator", plural),
				),
			),
		))
		return classify, verbalize, nil
	})
}
