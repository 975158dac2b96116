package en

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/MrWong99/spokenform/internal/registry"
	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/grammar"
)

// monthNames maps written month names and their three-letter abbreviations
// to the spoken name. Cased input expects title case ("May", "Sep."),
// lower-cased input expects lower case.
func monthNames(months []string, inputCase registry.InputCase) map[string]string {
	title := cases.Title(language.English)
	m := make(map[string]string, 3*len(months))
	for _, name := range months {
		written, abbr := name, name
		if len(abbr) > 3 {
			abbr = abbr[:3]
		}
		if inputCase == registry.Cased {
			written, abbr = title.String(written), title.String(abbr)
		}
		m[written] = name
		m[abbr] = name
		if abbr != written {
			m[abbr+"."] = name
		}
	}
	return m
}

// monthNumbers maps "1" to "12" and "01" to "09" to month names.
func monthNumbers(months []string) map[string]string {
	m := make(map[string]string, 21)
	for i, name := range months {
		k := strconv.Itoa(i + 1)
		m[k] = name
		if len(k) == 1 {
			m["0"+k] = name
		}
	}
	return m
}

// year reads four-digit years the way they are spoken: "1999" as
// "nineteen ninety nine", "1905" as "nineteen oh five", "1900" as
// "nineteen hundred", and 2000 to 2009 as "two thousand five".
func year(n *numbers) *fst.FST {
	century := restrict(fst.Concat(digitIn('1', '2'), grammar.Digit()), n.n10to99)
	generic := fst.Concat(century, fst.Union(
		fst.Cross("00", " hundred"),
		fst.Concat(grammar.InsertSpace(), n.n10to99),
		fst.Concat(fst.Delete("0"), fst.Insert(" oh "), n.digit),
	))
	millennium := fst.Concat(fst.Cross("20", "two thousand"), fst.Union(
		fst.Delete("00"),
		fst.Concat(fst.Delete("0"), grammar.InsertSpace(), n.digit),
	))
	return fst.Union(millennium, fst.AddWeight(generic, 0.01))
}

// datePack reads ISO, US numeric and written dates. Fields are emitted in
// written order and spoken month first.
func datePack(n *numbers, months []string, inputCase registry.InputCase) (grammar.Pack, error) {
	return grammar.Build("date", weightDate, func() (*fst.FST, *fst.FST, error) {
		dayDigits := fst.Union(
			fst.Concat(fst.Optional(fst.Delete("0")), digitIn('1', '9')),
			fst.Concat(digitIn('1', '2'), grammar.Digit()),
			fst.Concat(fst.Accept("3"), digitIn('0', '1')),
		)
		day := grammar.Field("day", fst.Optimize(fst.Compose(restrict(dayDigits, n.cardinal), n.ordinal)))
		daySuffixed := fst.Concat(day, fst.Optional(fst.Union(fst.Delete("st"), fst.Delete("nd"), fst.Delete("rd"), fst.Delete("th"))))
		month := grammar.Field("month", grammar.Words(monthNumbers(months)))
		name := grammar.Field("month", grammar.Words(monthNames(months, inputCase)))
		yr := grammar.Field("year", year(n))
		commaYear := fst.Concat(fst.Optional(fst.Delete(",")), fst.Delete(" "), yr)

		the, of := "the ", "of "
		if inputCase == registry.Cased {
			the = "The "
		}
		classify := grammar.Wrap("date", fst.Union(
			fst.Concat(yr, fst.Delete("-"), month, fst.Delete("-"), day),
			fst.Concat(month, fst.Delete("/"), day, fst.Delete("/"), yr),
			fst.Concat(name, fst.Delete(" "), daySuffixed, fst.Optional(commaYear)),
			fst.Concat(name, fst.Delete(" "), yr),
			fst.Concat(
				fst.Optional(fst.Union(fst.Delete(the), fst.Delete(strings.ToLower(the)))),
				daySuffixed, fst.Delete(" "), fst.Optional(fst.Delete(of)),
				name, fst.Optional(commaYear),
			),
		))

		verbalize := grammar.Unwrap("date", fst.Concat(
			grammar.Read("month", nil),
			fst.Optional(fst.Concat(grammar.InsertSpace(), grammar.Read("day", nil))),
			fst.Optional(fst.Concat(grammar.InsertSpace(), grammar.Read("year", nil))),
		))
		return classify, verbalize, nil
	})
}

// timePack reads clock times with optional seconds, am/pm suffix and zone.
func timePack(n *numbers, zones map[string]string) (grammar.Pack, error) {
	return grammar.Build("time", weightDefault, func() (*fst.FST, *fst.FST, error) {
		hour24 := restrict(fst.Union(
			fst.Concat(fst.Optional(fst.Delete("0")), grammar.Digit()),
			fst.Concat(fst.Accept("1"), grammar.Digit()),
			fst.Concat(fst.Accept("2"), digitIn('0', '3')),
		), n.cardinal)
		hour12 := restrict(fst.Union(
			fst.Concat(fst.Optional(fst.Delete("0")), digitIn('1', '9')),
			fst.Concat(fst.Accept("1"), digitIn('0', '2')),
		), n.cardinal)
		sixty := fst.Union(
			fst.Concat(fst.Delete("0"), fst.Insert("oh "), n.digit),
			restrict(fst.Concat(digitIn('1', '5'), grammar.Digit()), n.n10to99),
		)

		minutes := grammar.Field("minutes", sixty)
		seconds := fst.Union(
			fst.Concat(fst.Delete(":"), grammar.Field("seconds", sixty)),
			fst.Delete(":00"),
		)
		suffix := fst.Concat(fst.Optional(fst.Delete(" ")), grammar.Field("suffix", grammar.Words(map[string]string{
			"am": "a m", "a.m.": "a m", "AM": "a m", "A.M.": "a m",
			"pm": "p m", "p.m.": "p m", "PM": "p m", "P.M.": "p m",
		})))
		zone := fst.Optional(fst.Concat(fst.Delete(" "), grammar.Field("zone", grammar.Words(zones))))

		clock := fst.Concat(
			grammar.Field("hours", hour24), fst.Delete(":"),
			fst.Union(minutes, fst.Concat(fst.Delete("00"), grammar.Field("minutes", fst.Insert("o'clock")))),
			fst.Optional(seconds),
		)
		meridiem := fst.Concat(
			grammar.Field("hours", hour12),
			fst.Optional(fst.Concat(fst.Delete(":"), fst.Union(minutes, fst.Delete("00")))),
			suffix,
		)
		classify := grammar.Wrap("time", fst.Concat(fst.Union(clock, meridiem), zone))

		optional := func(prefix, name, suffix string) *fst.FST {
			return fst.Optional(fst.Concat(fst.Insert(prefix), grammar.Read(name, nil), fst.Insert(suffix)))
		}
		verbalize := grammar.Unwrap("time", fst.Concat(
			grammar.Read("hours", nil),
			optional(" ", "minutes", ""),
			optional(" and ", "seconds", " seconds"),
			optional(" ", "suffix", ""),
			optional(" ", "zone", ""),
		))
		return classify, verbalize, nil
	})
}
