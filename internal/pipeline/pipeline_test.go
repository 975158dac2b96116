package pipeline_test

import (
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/spokenform/internal/pipeline"
	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/grammar"
	"github.com/MrWong99/spokenform/pkg/rewrite"
)

// mustPack returns a function that unwraps a pack constructor result,
// failing t on error.
func mustPack(t *testing.T) func(grammar.Pack, error) grammar.Pack {
	return func(p grammar.Pack, err error) grammar.Pack {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
}

// toyCardinal reads numbers below one thousand with a hundred suffix.
func toyCardinal(t *testing.T) grammar.Pack {
	t.Helper()
	return mustPack(t)(grammar.Build("cardinal", 1.1, func() (*fst.FST, *fst.FST, error) {
		unit := grammar.Words(map[string]string{
			"1": "one", "2": "two", "3": "three", "4": "four", "5": "five",
			"6": "six", "7": "seven", "8": "eight", "9": "nine",
		})
		hundreds := fst.Concat(unit, fst.Insert(" hundred"), fst.Union(
			fst.Delete("00"),
			fst.Concat(fst.Delete("0"), fst.Insert(" "), unit),
		))
		number := fst.Union(hundreds, unit, fst.Cross("0", "zero"))
		classify := grammar.Wrap("cardinal", fst.Concat(grammar.Negative(), grammar.Field("integer", number)))
		verbalize := grammar.Unwrap("cardinal", fst.Concat(grammar.ReadNegative("minus"), grammar.Read("integer", nil)))
		return classify, verbalize, nil
	}))
}

func packSet(t *testing.T, withWord bool, extra ...grammar.Pack) *grammar.PackSet {
	t.Helper()
	punct := mustPack(t)(grammar.PunctuationPack(grammar.Punct))
	set := &grammar.PackSet{
		Language:    "toy",
		Packs:       append([]grammar.Pack{toyCardinal(t)}, extra...),
		Punctuation: &punct,
	}
	if withWord {
		word := mustPack(t)(grammar.WordPack())
		set.Word = &word
	}
	return set
}

func compile(t *testing.T, set *grammar.PackSet) *pipeline.Grammars {
	t.Helper()
	g, err := pipeline.Compile(set)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return g
}

func TestClassifyAndVerbalize(t *testing.T) {
	t.Parallel()

	g := compile(t, packSet(t, true))
	c := pipeline.NewClassifier(g)
	v := pipeline.NewVerbalizer(g)

	tests := []struct {
		in     string
		tagged string
		spoken string
	}{
		{
			in:     "205",
			tagged: `tokens { cardinal { integer: "two hundred five" } }`,
			spoken: "two hundred five",
		},
		{
			in:     "  -3   apples ",
			tagged: `tokens { cardinal { negative: "true" integer: "three" } } tokens { word { name: "apples" } }`,
			spoken: "minus three apples",
		},
		{
			in:     "(7)!",
			tagged: `tokens { punctuation { name: "(" } } tokens { cardinal { integer: "seven" } } tokens { punctuation { name: ")!" } }`,
			spoken: "( seven )!",
		},
		{
			in:     "?",
			tagged: `tokens { punctuation { name: "?" } }`,
			spoken: "?",
		},
	}
	for _, tt := range tests {
		tagged, _, err := c.Classify(tt.in)
		if err != nil {
			t.Fatalf("Classify(%q): %v", tt.in, err)
		}
		if tagged != tt.tagged {
			t.Errorf("Classify(%q):\n got %s\nwant %s", tt.in, tagged, tt.tagged)
			continue
		}
		spoken, err := v.Verbalize(tagged)
		if err != nil {
			t.Fatalf("Verbalize(%s): %v", tagged, err)
		}
		if spoken != tt.spoken {
			t.Errorf("Verbalize(%s) = %q, want %q", tagged, spoken, tt.spoken)
		}
	}
}

func TestLowerWeightWins(t *testing.T) {
	t.Parallel()

	mk := func(name string, w float64) grammar.Pack {
		return mustPack(t)(grammar.NewPack(name, w,
			grammar.Wrap(name, grammar.Field("v", fst.Accept("xyz"))),
			grammar.Unwrap(name, grammar.Read("v", nil)),
		))
	}
	cheap, dear := mk("cheap", 0.5), mk("dear", 0.9)

	for _, packs := range [][]grammar.Pack{{cheap, dear}, {dear, cheap}} {
		g := compile(t, packSet(t, true, packs...))
		tagged, w, err := pipeline.NewClassifier(g).Classify("xyz")
		if err != nil {
			t.Fatal(err)
		}
		if want := `tokens { cheap { v: "xyz" } }`; tagged != want {
			t.Errorf("got %s, want %s", tagged, want)
		}
		if w > 0.5+1e-9 || w < 0.5-1e-9 {
			t.Errorf("weight = %v, want 0.5", w)
		}
	}
}

func TestEmptyLattice(t *testing.T) {
	t.Parallel()

	g := compile(t, packSet(t, false))
	_, _, err := pipeline.NewClassifier(g).Classify("😀😀")
	if !errors.Is(err, pipeline.ErrEmptyLattice) {
		t.Errorf("err = %v, want ErrEmptyLattice", err)
	}
	_, err = pipeline.NewVerbalizer(g).Verbalize(`tokens { unknown { x: "y" } }`)
	if !errors.Is(err, pipeline.ErrEmptyLattice) {
		t.Errorf("err = %v, want ErrEmptyLattice", err)
	}
}

func TestPreProcessRunsFirst(t *testing.T) {
	t.Parallel()

	set := packSet(t, true)
	set.PreProcess = []rewrite.Rule{
		rewrite.Replace("digit_hyphen_letter", "-", " ", rewrite.Set(grammar.Digits), rewrite.Set(grammar.Alpha)),
	}
	c := pipeline.NewClassifier(compile(t, set))

	tagged, _, err := c.Classify("5-X")
	if err != nil {
		t.Fatal(err)
	}
	if want := `tokens { cardinal { integer: "five" } } tokens { word { name: "X" } }`; tagged != want {
		t.Errorf("got %s, want %s", tagged, want)
	}
}

func TestVerbalizerCache(t *testing.T) {
	t.Parallel()

	v := pipeline.NewVerbalizer(compile(t, packSet(t, true)), pipeline.WithCache(16, time.Minute))
	for range 2 {
		got, err := v.Verbalize(`tokens { cardinal { integer: "five" } }`)
		if err != nil || got != "five" {
			t.Errorf("got %q, %v", got, err)
		}
		if _, err := v.Verbalize(`tokens { cardinal { bogus: "five" } }`); !errors.Is(err, pipeline.ErrEmptyLattice) {
			t.Errorf("err = %v", err)
		}
	}
}

func TestCompileRejectsEmptySet(t *testing.T) {
	t.Parallel()

	if _, err := pipeline.Compile(&grammar.PackSet{Language: "none"}); !errors.Is(err, grammar.ErrCompilation) {
		t.Errorf("err = %v, want ErrCompilation", err)
	}
}
