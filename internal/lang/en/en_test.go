package en_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/MrWong99/spokenform/internal/lang/en"
	"github.com/MrWong99/spokenform/internal/registry"
	"github.com/MrWong99/spokenform/pkg/fst"
	"github.com/MrWong99/spokenform/pkg/grammar"
	"github.com/MrWong99/spokenform/pkg/rewrite"
)

var casedSet = sync.OnceValues(func() (*grammar.PackSet, error) {
	return en.New(registry.Options{InputCase: registry.Cased})
})

func pack(t *testing.T, name string) grammar.Pack {
	t.Helper()
	set, err := casedSet()
	if err != nil {
		t.Fatalf("en.New: %v", err)
	}
	for _, p := range set.Packs {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no pack %q", name)
	return grammar.Pack{}
}

type packCase struct {
	in     string
	tagged string
	// spoken is checked against the verbalization of ordered, or of tagged
	// when ordered is empty.
	ordered string
	spoken  string
}

func runPack(t *testing.T, name string, tests []packCase) {
	t.Helper()
	p := pack(t, name)
	for _, tt := range tests {
		tagged, err := fst.Rewrite(tt.in, p.Classify)
		if err != nil {
			t.Errorf("%s: classify %q: %v", name, tt.in, err)
			continue
		}
		if tagged != tt.tagged {
			t.Errorf("%s: classify %q =\n  %s\nwant\n  %s", name, tt.in, tagged, tt.tagged)
			continue
		}
		src := tt.tagged
		if tt.ordered != "" {
			src = tt.ordered
		}
		spoken, err := fst.Rewrite(src, p.Verbalize)
		if err != nil {
			t.Errorf("%s: verbalize %q: %v", name, src, err)
			continue
		}
		if spoken != tt.spoken {
			t.Errorf("%s: verbalize %q = %q, want %q", name, src, spoken, tt.spoken)
		}
	}
}

func TestCardinal(t *testing.T) {
	t.Parallel()
	runPack(t, "cardinal", []packCase{
		{in: "0", tagged: `cardinal { integer: "zero" }`, spoken: "zero"},
		{in: "205", tagged: `cardinal { integer: "two hundred five" }`, spoken: "two hundred five"},
		{in: "-42", tagged: `cardinal { negative: "true" integer: "forty two" }`, spoken: "minus forty two"},
		{in: "1,234", tagged: `cardinal { integer: "one thousand two hundred thirty four" }`, spoken: "one thousand two hundred thirty four"},
		{in: "2000005", tagged: `cardinal { integer: "two million five" }`, spoken: "two million five"},
		{in: "12,000,300", tagged: `cardinal { integer: "twelve million three hundred" }`, spoken: "twelve million three hundred"},
	})
}

func TestOrdinal(t *testing.T) {
	t.Parallel()
	runPack(t, "ordinal", []packCase{
		{in: "1st", tagged: `ordinal { integer: "one" }`, spoken: "first"},
		{in: "3rd", tagged: `ordinal { integer: "three" }`, spoken: "third"},
		{in: "11th", tagged: `ordinal { integer: "eleven" }`, spoken: "eleventh"},
		{in: "12th", tagged: `ordinal { integer: "twelve" }`, spoken: "twelfth"},
		{in: "22nd", tagged: `ordinal { integer: "twenty two" }`, spoken: "twenty second"},
		{in: "40th", tagged: `ordinal { integer: "forty" }`, spoken: "fortieth"},
		{in: "101st", tagged: `ordinal { integer: "one hundred one" }`, spoken: "one hundred first"},
	})

	p := pack(t, "ordinal")
	for _, bad := range []string{"21th", "11st", "2rd"} {
		if _, err := fst.Rewrite(bad, p.Classify); !errors.Is(err, fst.ErrNoPath) {
			t.Errorf("classify %q: err = %v, want ErrNoPath", bad, err)
		}
	}
}

func TestDecimalAndFraction(t *testing.T) {
	t.Parallel()
	runPack(t, "decimal", []packCase{
		{in: "3.14", tagged: `decimal { integer_part: "three" fractional_part: "one four" }`, spoken: "three point one four"},
		{in: "-0.5", tagged: `decimal { negative: "true" integer_part: "zero" fractional_part: "five" }`, spoken: "minus zero point five"},
		{in: ".5", tagged: `decimal { fractional_part: "five" }`, spoken: "point five"},
		{in: "1.5 million", tagged: `decimal { integer_part: "one" fractional_part: "five" quantity: "million" }`, spoken: "one point five million"},
	})
	runPack(t, "fraction", []packCase{
		{in: "1/2", tagged: `fraction { numerator: "one" denominator: "two" }`, spoken: "one half"},
		{in: "3/4", tagged: `fraction { numerator: "three" denominator: "four" }`, spoken: "three quarters"},
		{in: "1/3", tagged: `fraction { numerator: "one" denominator: "three" }`, spoken: "one third"},
		{in: "2 5/8", tagged: `fraction { integer_part: "two" numerator: "five" denominator: "eight" }`, spoken: "two and five eighths"},
	})
}

func TestMoney(t *testing.T) {
	t.Parallel()
	runPack(t, "money", []packCase{
		{
			in:      "$5.50",
			tagged:  `money { currency_maj: "dollars" integer_part: "five" fractional_part: "fifty" currency_min: "cents" }`,
			ordered: `money { integer_part: "five" currency_maj: "dollars" fractional_part: "fifty" currency_min: "cents" }`,
			spoken:  "five dollars and fifty cents",
		},
		{
			in:      "$1",
			tagged:  `money { currency_maj: "dollar" integer_part: "one" }`,
			ordered: `money { integer_part: "one" currency_maj: "dollar" }`,
			spoken:  "one dollar",
		},
		{
			in:     "$0.01",
			tagged: `money { fractional_part: "one" currency_min: "cent" }`,
			spoken: "one cent",
		},
		{
			in:      "£3.05",
			tagged:  `money { currency_maj: "pounds" integer_part: "three" fractional_part: "five" currency_min: "pence" }`,
			ordered: `money { integer_part: "three" currency_maj: "pounds" fractional_part: "five" currency_min: "pence" }`,
			spoken:  "three pounds and five pence",
		},
		{
			in:      "$2 million",
			tagged:  `money { currency_maj: "dollars" integer_part: "two" quantity: "million" }`,
			ordered: `money { integer_part: "two" quantity: "million" currency_maj: "dollars" }`,
			spoken:  "two million dollars",
		},
	})

	// The classifier's own field order is not speakable.
	p := pack(t, "money")
	if _, err := fst.Rewrite(`money { currency_maj: "dollars" integer_part: "five" }`, p.Verbalize); !errors.Is(err, fst.ErrNoPath) {
		t.Errorf("verbalize in written order: err = %v, want ErrNoPath", err)
	}
}

func TestMeasure(t *testing.T) {
	t.Parallel()
	runPack(t, "measure", []packCase{
		{in: "5 kg", tagged: `measure { cardinal { integer: "five" } units: "kilograms" }`, spoken: "five kilograms"},
		{in: "1kg", tagged: `measure { cardinal { integer: "one" } units: "kilogram" }`, spoken: "one kilogram"},
		{in: "2.5 km", tagged: `measure { decimal { integer_part: "two" fractional_part: "five" } units: "kilometers" }`, spoken: "two point five kilometers"},
		{in: "50%", tagged: `measure { cardinal { integer: "fifty" } units: "percent" }`, spoken: "fifty percent"},
		{in: "-3 °C", tagged: `measure { cardinal { negative: "true" integer: "three" } units: "degrees celsius" }`, spoken: "minus three degrees celsius"},
	})
}

func TestDate(t *testing.T) {
	t.Parallel()
	runPack(t, "date", []packCase{
		{
			in:      "2024-05-07",
			tagged:  `date { year: "twenty twenty four" month: "may" day: "seventh" }`,
			ordered: `date { month: "may" day: "seventh" year: "twenty twenty four" }`,
			spoken:  "may seventh twenty twenty four",
		},
		{in: "01/15/1999", tagged: `date { month: "january" day: "fifteenth" year: "nineteen ninety nine" }`, spoken: "january fifteenth nineteen ninety nine"},
		{in: "March 3rd, 2005", tagged: `date { month: "march" day: "third" year: "two thousand five" }`, spoken: "march third two thousand five"},
		{in: "Sep. 1900", tagged: `date { month: "september" year: "nineteen hundred" }`, spoken: "september nineteen hundred"},
		{in: "1905-12-31", tagged: `date { year: "nineteen oh five" month: "december" day: "thirty first" }`,
			ordered: `date { month: "december" day: "thirty first" year: "nineteen oh five" }`,
			spoken:  "december thirty first nineteen oh five"},
		{
			in:      "4 July",
			tagged:  `date { day: "fourth" month: "july" }`,
			ordered: `date { month: "july" day: "fourth" }`,
			spoken:  "july fourth",
		},
	})
}

func TestTime(t *testing.T) {
	t.Parallel()
	runPack(t, "time", []packCase{
		{in: "12:30", tagged: `time { hours: "twelve" minutes: "thirty" }`, spoken: "twelve thirty"},
		{in: "12:30:30", tagged: `time { hours: "twelve" minutes: "thirty" seconds: "thirty" }`, spoken: "twelve thirty and thirty seconds"},
		{in: "3:05 pm", tagged: `time { hours: "three" minutes: "oh five" suffix: "p m" }`, spoken: "three oh five p m"},
		{in: "7pm", tagged: `time { hours: "seven" suffix: "p m" }`, spoken: "seven p m"},
		{in: "14:00", tagged: `time { hours: "fourteen" minutes: "o'clock" }`, spoken: "fourteen o'clock"},
		{in: "9:15 UTC", tagged: `time { hours: "nine" minutes: "fifteen" zone: "u t c" }`, spoken: "nine fifteen u t c"},
	})
}

func TestNotation(t *testing.T) {
	t.Parallel()
	runPack(t, "telephone", []packCase{
		{in: "(555) 123-4567", tagged: `telephone { number_part: "five five five, one two three, four five six seven" }`,
			spoken: "five five five, one two three, four five six seven"},
		{in: "+1 555.123.4567", tagged: `telephone { country_code: "one" number_part: "five five five, one two three, four five six seven" }`,
			spoken: "plus one, five five five, one two three, four five six seven"},
	})
	runPack(t, "range", []packCase{
		{in: "10-20", tagged: `range { from: "ten" to: "twenty" }`, spoken: "ten to twenty"},
	})
	runPack(t, "math", []packCase{
		{in: "2 + 3 = 5", tagged: `math { expression: "two plus three equals five" }`, spoken: "two plus three equals five"},
		{in: "6×7", tagged: `math { expression: "six times seven" }`, spoken: "six times seven"},
	})
	runPack(t, "power", []packCase{
		{in: "10^3", tagged: `power { base: "ten" exponent: "three" }`, spoken: "ten to the power of three"},
		{in: "2²", tagged: `power { base: "two" exponent: "two" }`, spoken: "two to the power of two"},
	})
	runPack(t, "scientific", []packCase{
		{in: "6.02e23", tagged: `scientific { mantissa: "six point zero two" exponent: "twenty three" }`,
			spoken: "six point zero two times ten to the power of twenty three"},
		{in: "1.5×10^-3", tagged: `scientific { mantissa: "one point five" exponent: "minus three" }`,
			spoken: "one point five times ten to the power of minus three"},
	})
	runPack(t, "serial", []packCase{
		{in: "B-52", tagged: `serial { value: "B fifty two" }`, spoken: "B fifty two"},
		{in: "4K", tagged: `serial { value: "four K" }`, spoken: "four K"},
		{in: "A01", tagged: `serial { value: "A zero one" }`, spoken: "A zero one"},
	})
}

func TestWhitelist(t *testing.T) {
	t.Parallel()
	runPack(t, "whitelist", []packCase{
		{in: "Dr.", tagged: `whitelist { name: "doctor" }`, spoken: "doctor"},
		{in: "e.g.", tagged: `whitelist { name: "for example" }`, spoken: "for example"},
	})

	path := filepath.Join(t.TempDir(), "extra.tsv")
	if err := os.WriteFile(path, []byte("# extra entries\nNASA\tnasa\n\nDr.\tdoc\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	set, err := en.New(registry.Options{InputCase: registry.LowerCased, WhitelistPath: path})
	if err != nil {
		t.Fatal(err)
	}
	var wl grammar.Pack
	for _, p := range set.Packs {
		if p.Name == "whitelist" {
			wl = p
		}
	}
	tests := []struct{ in, want string }{
		{"nasa", `whitelist { name: "nasa" }`},
		{"NASA", `whitelist { name: "nasa" }`},
		{"dr.", `whitelist { name: "doc" }`},
		{"mr.", `whitelist { name: "mister" }`},
	}
	for _, tt := range tests {
		got, err := fst.Rewrite(tt.in, wl.Classify)
		if err != nil || got != tt.want {
			t.Errorf("lower-cased whitelist %q = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestReadWhitelist(t *testing.T) {
	t.Parallel()

	got, err := en.ReadWhitelist(strings.NewReader("a\tb\r\n# c\td\n\n  x \t y z \n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["a"] != "b" || got["x"] != "y z" {
		t.Errorf("got %v", got)
	}
	if _, err := en.ReadWhitelist(strings.NewReader("no tab here\n")); err == nil {
		t.Error("expected error for a line without a tab")
	}
	if _, err := en.LoadWhitelist(filepath.Join(t.TempDir(), "missing.tsv")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestPreProcess(t *testing.T) {
	t.Parallel()

	set, err := casedSet()
	if err != nil {
		t.Fatal(err)
	}
	chain, err := rewrite.Chain(set.PreProcess...)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct{ in, want string }{
		{"$150-$200", "$150 to $200"},
		{"3-D", "3 D"},
		{"3.14-X", "3.14 X"},
		{"2=3", "2 = 3"},
		{"B-52", "B-52"},
		{"10-20", "10-20"},
		{"wait—what", "wait what"},
	}
	for _, tt := range tests {
		got, err := rewrite.Apply(tt.in, chain)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("pre-process %q = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	t.Parallel()

	if _, err := en.New(registry.Options{InputCase: "shouting"}); err == nil {
		t.Error("expected error for an invalid input case")
	}
	if _, err := en.New(registry.Options{WhitelistPath: filepath.Join(t.TempDir(), "nope.tsv")}); err == nil {
		t.Error("expected error for a missing whitelist")
	}
}
