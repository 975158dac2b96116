package grammar

import (
	"maps"
	"slices"
	"unicode"

	"github.com/MrWong99/spokenform/pkg/fst"
)

// Common symbol classes.
var (
	Digits = fst.Range('0', '9')
	Lower  = fst.FromTable(unicode.Lower)
	Upper  = fst.FromTable(unicode.Upper)
	Alpha  = fst.FromTable(unicode.Letter)
	Space  = fst.FromTable(unicode.White_Space)

	NotSpace = Space.Complement()

	// escaped are the symbols written with a backslash inside tagged values.
	escaped = fst.Runes(`"\`)

	// Punct is Unicode punctuation plus the ASCII symbols.
	Punct = fst.FromTable(unicode.P).Union(fst.Runes("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"))
)

// Digit accepts one ASCII digit.
func Digit() *fst.FST { return fst.AcceptSet(Digits) }

// InsertSpace emits a single space.
func InsertSpace() *fst.FST { return fst.Insert(" ") }

// DeleteSpaces consumes any run of whitespace, including none.
func DeleteSpaces() *fst.FST { return fst.Star(fst.DeleteSet(Space)) }

// Field emits `name: "` value `" ` around the output of value.
func Field(name string, value *fst.FST) *fst.FST {
	return fst.Concat(fst.Insert(name+`: "`), value, fst.Insert(`" `))
}

// Wrap emits the `class { items}` body of a token around body, whose output
// must be a sequence of fields.
func Wrap(class string, body *fst.FST) *fst.FST {
	return fst.Concat(fst.Insert(class+" { "), body, fst.Insert("}"))
}

// Escape copies one symbol of rs, escaping the characters that delimit
// tagged values.
func Escape(rs fst.RuneSet) *fst.FST {
	alts := []*fst.FST{fst.AcceptSet(rs.Minus(escaped))}
	if rs.Contains('"') {
		alts = append(alts, fst.Cross(`"`, `\"`))
	}
	if rs.Contains('\\') {
		alts = append(alts, fst.Cross(`\`, `\\`))
	}
	return fst.Union(alts...)
}

// Value consumes a non-empty tagged value and emits it unescaped.
func Value() *fst.FST {
	return fst.Plus(fst.Union(
		fst.AcceptSet(escaped.Complement()),
		fst.Cross(`\"`, `"`),
		fst.Cross(`\\`, `\`),
	))
}

// Read consumes the field `name: "…" ` and emits the output of value applied
// to its content. A nil value copies the unescaped content.
func Read(name string, value *fst.FST) *fst.FST {
	if value == nil {
		value = Value()
	}
	return fst.Concat(fst.Delete(name+`: "`), value, fst.Delete(`" `))
}

// Skip consumes the field `name: "…" ` and emits nothing.
func Skip(name string) *fst.FST {
	return Read(name, fst.Compose(Value(), fst.Plus(fst.DeleteSet(fst.AnyRune()))))
}

// PreserveOrder consumes an optional trailing preserve_order flag.
func PreserveOrder() *fst.FST {
	return fst.Optional(fst.Delete("preserve_order: true "))
}

// Unwrap consumes `class { ` body `}` where body consumes the items.
func Unwrap(class string, body *fst.FST) *fst.FST {
	return fst.Concat(fst.Delete(class+" { "), body, PreserveOrder(), fst.Delete("}"))
}

// Nested consumes a nested item `name { ` body `} `.
func Nested(name string, body *fst.FST) *fst.FST {
	return fst.Concat(fst.Delete(name+" { "), body, PreserveOrder(), fst.Delete("} "))
}

// Negative emits the leading negative flag when the input starts with a
// minus sign.
func Negative() *fst.FST {
	return fst.Optional(fst.Cross("-", `negative: "true" `))
}

// ReadNegative turns an optional negative flag into word.
func ReadNegative(word string) *fst.FST {
	return fst.Optional(fst.Cross(`negative: "true" `, word+" "))
}

// Words maps each written form to its spoken form.
func Words(m map[string]string) *fst.FST {
	pairs := make([][2]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		pairs = append(pairs, [2]string{k, m[k]})
	}
	return fst.StringMap(pairs)
}
