// Package en provides the English grammar packs.
//
// Every semiotic class the engine knows has a pack here: cardinal, ordinal,
// decimal, fraction, money, measure, date, time, telephone, range, math,
// power, scientific, serial and whitelist. The vocabulary lives in an
// embedded YAML lexicon.
package en

import (
	"fmt"
	"strings"

	"github.com/MrWong99/spokenform/internal/registry"
	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/grammar"
	"github.com/MrWong99/spokenform/pkg/rewrite"
)

// Language is the registry code of this pack set.
const Language = "en"

// Register adds the English factory to r.
func Register(r *registry.Registry) {
	r.Register(Language, New)
}

// New builds the English pack set.
func New(opts registry.Options) (*grammar.PackSet, error) {
	if opts.InputCase == "" {
		opts.InputCase = registry.Cased
	}
	if !opts.InputCase.IsValid() {
		return nil, fmt.Errorf("en: invalid input case %q", opts.InputCase)
	}
	lx, err := loadLexicon()
	if err != nil {
		return nil, err
	}
	var extra map[string]string
	if opts.WhitelistPath != "" {
		if extra, err = LoadWhitelist(opts.WhitelistPath); err != nil {
			return nil, err
		}
	}

	n := newNumbers(lx)
	builders := []func() (grammar.Pack, error){
		func() (grammar.Pack, error) { return whitelistPack(whitelistEntries(lx.Whitelist, extra, opts.InputCase)) },
		func() (grammar.Pack, error) { return telephonePack(n) },
		func() (grammar.Pack, error) { return datePack(n, lx.Months, opts.InputCase) },
		func() (grammar.Pack, error) { return timePack(n, lx.TimeZones) },
		func() (grammar.Pack, error) { return moneyPack(n, lx.Currencies) },
		func() (grammar.Pack, error) { return measurePack(n, lx.Units) },
		func() (grammar.Pack, error) { return scientificPack(n, lx.Superscripts) },
		func() (grammar.Pack, error) { return powerPack(n, lx.Superscripts) },
		func() (grammar.Pack, error) { return fractionPack(n) },
		func() (grammar.Pack, error) { return decimalPack(n) },
		func() (grammar.Pack, error) { return ordinalPack(n) },
		func() (grammar.Pack, error) { return rangePack(n) },
		func() (grammar.Pack, error) { return cardinalPack(n) },
		func() (grammar.Pack, error) { return mathPack(n, lx.Math) },
		func() (grammar.Pack, error) { return serialPack(n) },
	}
	set := &grammar.PackSet{Language: Language, PreProcess: preProcess(lx.Currencies)}
	for _, build := range builders {
		p, err := build()
		if err != nil {
			return nil, err
		}
		set.Packs = append(set.Packs, p)
	}

	punct, err := grammar.PunctuationPack(grammar.Punct)
	if err != nil {
		return nil, err
	}
	word, err := grammar.WordPack()
	if err != nil {
		return nil, err
	}
	set.Punctuation, set.Word = &punct, &word
	return set, nil
}

// preProcess returns the rewrites run ahead of classification, in order:
//
//  1. "$150-$200" becomes "$150 to $200" so both amounts are read as money.
//  2. A hyphen joining a digit and a letter becomes a space ("3-D").
//  3. An em dash becomes a space.
//  4. A glued "=" between digits gets spaces on both sides.
func preProcess(currencies []currency) []rewrite.Rule {
	var symbols strings.Builder
	for _, c := range currencies {
		symbols.WriteString(c.Symbol)
	}
	digits := rewrite.Set(grammar.Digits)
	equals := rewrite.Set(fst.Runes("="))
	return []rewrite.Rule{
		rewrite.Replace("money_range", "-", " to ", digits, rewrite.Set(fst.Runes(symbols.String()))),
		rewrite.Replace("joiner_hyphen", "-", " ", digits, rewrite.Set(grammar.Alpha)),
		rewrite.Replace("em_dash", "—", " ", nil, nil),
		{Name: "space_before_equals", Pairs: []rewrite.Pair{{Out: " "}}, Left: digits, Right: equals},
		{Name: "space_after_equals", Pairs: []rewrite.Pair{{Out: " "}}, Left: equals, Right: digits},
	}
}
