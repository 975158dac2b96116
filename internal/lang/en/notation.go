package en

import (
	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/grammar"
)

// telephonePack reads North American numbers digit by digit in groups:
// "(555) 123-4567", "555.123.4567", "+1 555 123 4567".
func telephonePack(n *numbers) (grammar.Pack, error) {
	return grammar.Build("telephone", weightTelephone, func() (*fst.FST, *fst.FST, error) {
		group := func(k int) *fst.FST {
			parts := []*fst.FST{n.anyDigit}
			for range k - 1 {
				parts = append(parts, grammar.InsertSpace(), n.anyDigit)
			}
			return fst.Concat(parts...)
		}
		sep := fst.Concat(fst.Union(fst.Delete("-"), fst.Delete("."), fst.Delete(" ")), fst.Insert(", "))
		area := fst.Union(
			fst.Concat(fst.Delete("("), group(3), fst.Delete(")"), fst.Optional(fst.Delete(" ")), fst.Insert(", ")),
			fst.Concat(group(3), sep),
		)
		number := grammar.Field("number_part", fst.Concat(area, group(3), sep, group(4)))
		country := grammar.Field("country_code", restrict(
			fst.Concat(digitIn('1', '9'), fst.Closure(grammar.Digit(), 0, 2)), n.cardinal))

		classify := grammar.Wrap("telephone", fst.Concat(
			fst.Optional(fst.Concat(fst.Delete("+"), country, fst.Union(fst.Delete(" "), fst.Delete("-")))),
			number,
		))
		verbalize := grammar.Unwrap("telephone", fst.Concat(
			fst.Optional(fst.Concat(fst.Insert("plus "), grammar.Read("country_code", nil), fst.Insert(", "))),
			grammar.Read("number_part", nil),
		))
		return classify, verbalize, nil
	})
}

// rangePack reads "10-20" as "ten to twenty".
func rangePack(n *numbers) (grammar.Pack, error) {
	return grammar.Build("range", weightDefault, func() (*fst.FST, *fst.FST, error) {
		classify := grammar.Wrap("range", fst.Concat(
			grammar.Field("from", n.cardinal),
			fst.Union(fst.Delete("-"), fst.Delete("–")),
			grammar.Field("to", n.cardinal),
		))
		verbalize := grammar.Unwrap("range", fst.Concat(
			grammar.Read("from", nil), fst.Insert(" to "), grammar.Read("to", nil),
		))
		return classify, verbalize, nil
	})
}

// mathPack reads simple expressions such as "2 + 3 = 5" into one field.
func mathPack(n *numbers, operators map[string]string) (grammar.Pack, error) {
	return grammar.Build("math", weightLoose, func() (*fst.FST, *fst.FST, error) {
		operand := fst.Concat(fst.Optional(fst.Cross("-", "minus ")), fst.Union(n.cardinal, n.decimal))
		space := fst.Optional(fst.Delete(" "))
		op := fst.Concat(space, grammar.InsertSpace(), grammar.Words(operators), grammar.InsertSpace(), space)
		expr := fst.Concat(operand, fst.Plus(fst.Concat(op, operand)))

		classify := grammar.Wrap("math", grammar.Field("expression", expr))
		verbalize := grammar.Unwrap("math", grammar.Read("expression", nil))
		return classify, verbalize, nil
	})
}

// exponent reads "^3", "^-2" and superscript digits such as "²".
func exponent(n *numbers, superscripts map[string]string) *fst.FST {
	sign := fst.Optional(fst.Cross("-", "minus "))
	raised := fst.Concat(
		fst.Optional(fst.Cross("⁻", "minus ")),
		fst.Compose(fst.Plus(grammar.Words(superscripts)), n.cardinal),
	)
	return fst.Union(fst.Concat(fst.Delete("^"), sign, n.cardinal), raised)
}

// powerPack reads "10^3" and "2²" as "ten to the power of three".
func powerPack(n *numbers, superscripts map[string]string) (grammar.Pack, error) {
	return grammar.Build("power", weightDefault, func() (*fst.FST, *fst.FST, error) {
		classify := grammar.Wrap("power", fst.Concat(
			grammar.Negative(),
			grammar.Field("base", n.cardinal),
			grammar.Field("exponent", exponent(n, superscripts)),
		))
		verbalize := grammar.Unwrap("power", fst.Concat(
			grammar.ReadNegative("minus"),
			grammar.Read("base", nil),
			fst.Insert(" to the power of "),
			grammar.Read("exponent", nil),
		))
		return classify, verbalize, nil
	})
}

// scientificPack reads "6.02e23" and "3.2×10^5" as a mantissa times a
// power of ten.
func scientificPack(n *numbers, superscripts map[string]string) (grammar.Pack, error) {
	return grammar.Build("scientific", weightDefault, func() (*fst.FST, *fst.FST, error) {
		mantissa := fst.Concat(fst.Optional(fst.Cross("-", "minus ")), fst.Union(n.cardinal, n.decimal))
		space := fst.Optional(fst.Delete(" "))
		times := fst.Concat(space, fst.Union(fst.Delete("×"), fst.Delete("x"), fst.Delete("*")), space, fst.Delete("10"))
		e := fst.Concat(
			fst.Union(fst.Delete("e"), fst.Delete("E")),
			fst.Optional(fst.Delete("+")),
			fst.Optional(fst.Cross("-", "minus ")),
			n.cardinal,
		)
		classify := grammar.Wrap("scientific", fst.Concat(
			grammar.Field("mantissa", mantissa),
			grammar.Field("exponent", fst.Union(e, fst.Concat(times, exponent(n, superscripts)))),
		))
		verbalize := grammar.Unwrap("scientific", fst.Concat(
			grammar.Read("mantissa", nil),
			fst.Insert(" times ten to the power of "),
			grammar.Read("exponent", nil),
		))
		return classify, verbalize, nil
	})
}

// serialPack spells letter runs and reads the number in codes such as
// "B-52" or "4K".
func serialPack(n *numbers) (grammar.Pack, error) {
	return grammar.Build("serial", weightLoose, func() (*fst.FST, *fst.FST, error) {
		latin := fst.AcceptSet(letters.Union(fst.Range('A', 'Z')))
		spelled := fst.Concat(latin, fst.Star(fst.Concat(grammar.InsertSpace(), latin)))
		number := fst.Union(n.cardinal, fst.AddWeight(n.digits, 0.01))
		join := fst.Concat(fst.Optional(fst.Delete("-")), grammar.InsertSpace())

		classify := grammar.Wrap("serial", grammar.Field("value", fst.Union(
			fst.Concat(spelled, join, number),
			fst.Concat(number, join, spelled),
		)))
		verbalize := grammar.Unwrap("serial", grammar.Read("value", nil))
		return classify, verbalize, nil
	})
}
