package en

import (
	"maps"
	"slices"

	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/grammar"
)

// moneyPack reads "$5.50" as "five dollars and fifty cents". The classifier
// emits the currency before the amount, as written; the verbalizer wants
// the amount first, which the field-order search finds.
func moneyPack(n *numbers, currencies []currency) (grammar.Pack, error) {
	return grammar.Build("money", weightDefault, func() (*fst.FST, *fst.FST, error) {
		one := grammar.Field("integer_part", fst.Cross("1", "one"))
		many := grammar.Field("integer_part", fst.Difference(n.cardinal, fst.AcceptAny("0", "1")))
		zero := grammar.Field("integer_part", restrict(fst.Accept("0"), n.cardinal))
		quantity := fst.Concat(
			grammar.Field("integer_part", fst.Union(n.cardinal, n.decimal)),
			fst.Delete(" "),
			grammar.Field("quantity", n.scale),
		)
		cents := fst.Union(
			fst.Concat(fst.Delete("0"), restrict(digitIn('2', '9'), n.digit)),
			n.n10to99,
		)
		noCents := fst.Optional(fst.Delete(".00"))

		var alts []*fst.FST
		for _, c := range currencies {
			sym := func(name string) *fst.FST { return grammar.Field("currency_maj", fst.Cross(c.Symbol, name)) }
			major := fst.Union(fst.Concat(sym(c.MajorSingular), one), fst.Concat(sym(c.Major), many))
			alts = append(alts,
				fst.Concat(sym(c.Major), zero, noCents),
				fst.Concat(sym(c.Major), quantity),
			)
			if c.Minor == "" {
				alts = append(alts, fst.Concat(major, noCents))
				continue
			}
			minor := fst.Union(
				fst.Concat(
					grammar.Field("fractional_part", fst.Cross("01", "one")),
					grammar.Field("currency_min", fst.Insert(c.MinorSingular)),
				),
				fst.Concat(
					grammar.Field("fractional_part", cents),
					grammar.Field("currency_min", fst.Insert(c.Minor)),
				),
			)
			alts = append(alts,
				fst.Concat(major, fst.Optional(fst.Union(
					fst.Delete(".00"),
					fst.Concat(fst.Delete("."), minor),
				))),
				// "$0.50" is read as cents alone.
				fst.Concat(fst.Delete(c.Symbol+"0."), minor),
			)
		}
		classify := grammar.Wrap("money", fst.Union(alts...))

		major := fst.Concat(
			grammar.Read("integer_part", nil),
			fst.Optional(fst.Concat(grammar.InsertSpace(), grammar.Read("quantity", nil))),
			grammar.InsertSpace(),
			grammar.Read("currency_maj", nil),
		)
		minor := fst.Concat(grammar.Read("fractional_part", nil), grammar.InsertSpace(), grammar.Read("currency_min", nil))
		verbalize := grammar.Unwrap("money", fst.Union(
			fst.Concat(major, fst.Optional(fst.Concat(fst.Insert(" and "), minor))),
			minor,
		))
		return classify, verbalize, nil
	})
}

// measurePack reads "5 kg" as "five kilograms". The number is a nested
// cardinal or decimal node.
func measurePack(n *numbers, units map[string]unit) (grammar.Pack, error) {
	return grammar.Build("measure", weightDefault, func() (*fst.FST, *fst.FST, error) {
		singular := make(map[string]string, len(units))
		plural := make(map[string]string, len(units))
		for _, k := range slices.Sorted(maps.Keys(units)) {
			singular[k] = units[k].Singular
			plural[k] = units[k].Plural
		}
		nested := func(class string, body *fst.FST) *fst.FST {
			return fst.Concat(fst.Insert(class+" { "), grammar.Negative(), body, fst.Insert("} "))
		}
		unitsField := func(m map[string]string) *fst.FST {
			return fst.Concat(fst.Optional(fst.Delete(" ")), grammar.Field("units", grammar.Words(m)))
		}

		decimal := nested("decimal", fst.Concat(
			fst.Optional(grammar.Field("integer_part", n.cardinal)),
			fst.Delete("."),
			grammar.Field("fractional_part", n.digits),
		))
		classify := grammar.Wrap("measure", fst.Union(
			fst.Concat(nested("cardinal", grammar.Field("integer", fst.Cross("1", "one"))), unitsField(singular)),
			fst.Concat(nested("cardinal", grammar.Field("integer", fst.Difference(n.cardinal, fst.Accept("1")))), unitsField(plural)),
			fst.Concat(decimal, unitsField(plural)),
		))

		number := fst.Union(
			grammar.Nested("cardinal", readNumber()),
			grammar.Nested("decimal", readNumber()),
		)
		verbalize := grammar.Unwrap("measure", fst.Concat(number, grammar.InsertSpace(), grammar.Read("units", nil)))
		return classify, verbalize, nil
	})
}
