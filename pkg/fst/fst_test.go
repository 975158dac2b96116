package fst_test

import (
	"errors"
	"math"
	"testing"
	"unicode"

	"github.com/MrWong99/spokenform/pkg/fst"
)

func rewrite(t *testing.T, text string, cascade ...*fst.FST) (string, bool) {
	t.Helper()
	out, err := fst.Rewrite(text, cascade...)
	if errors.Is(err, fst.ErrNoPath) {
		return "", false
	}
	if err != nil {
		t.Fatalf("Rewrite(%q): %v", text, err)
	}
	return out, true
}

func TestRuneSet(t *testing.T) {
	t.Parallel()

	digits := fst.Range('0', '9')
	if !digits.Contains('5') || digits.Contains('a') {
		t.Error("digit membership wrong")
	}
	merged := fst.NewRuneSet(fst.RuneRange{Lo: 'a', Hi: 'c'}, fst.RuneRange{Lo: 'd', Hi: 'f'}, fst.RuneRange{Lo: 'x', Hi: 'w'})
	if len(merged.Ranges) != 1 || merged.Ranges[0] != (fst.RuneRange{Lo: 'a', Hi: 'f'}) {
		t.Errorf("adjacent ranges not merged: %+v", merged.Ranges)
	}
	comp := digits.Complement()
	if comp.Contains('3') || !comp.Contains('x') || !comp.Contains(unicode.MaxRune) {
		t.Error("complement membership wrong")
	}
	if !comp.Complement().Equal(digits) {
		t.Error("double complement differs")
	}
	if got := digits.Intersect(fst.Runes("19az")); !got.Equal(fst.Runes("19")) {
		t.Errorf("intersect = %+v", got.Ranges)
	}
	if got := fst.AnyRune().Minus(fst.AnyRune()); !got.IsEmpty() {
		t.Errorf("any minus any not empty: %+v", got.Ranges)
	}
	if r, ok := fst.Runes("q").Single(); !ok || r != 'q' {
		t.Errorf("Single = %q, %v", r, ok)
	}
	if got := fst.Runes("zyx").Min(); got != 'x' {
		t.Errorf("Min = %q", got)
	}
}

func TestConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		f      *fst.FST
		input  string
		want   string
		accept bool
	}{
		{"accept", fst.Accept("abc"), "abc", "abc", true},
		{"accept rejects prefix", fst.Accept("abc"), "ab", "", false},
		{"cross longer output", fst.Cross("1", "one"), "1", "one", true},
		{"cross longer input", fst.Cross("one", "1"), "one", "1", true},
		{"insert", fst.Insert("x"), "", "x", true},
		{"delete", fst.Delete("x"), "x", "", true},
		{"accept set", fst.AcceptSet(fst.Range('0', '9')), "7", "7", true},
		{"accept set rejects", fst.AcceptSet(fst.Range('0', '9')), "a", "", false},
		{"delete set", fst.DeleteSet(fst.Runes(",.")), ",", "", true},
		{"cross set", fst.CrossSet(fst.Range('a', 'z'), "<L>"), "q", "<L>", true},
		{"string map", fst.StringMap([][2]string{{"1", "one"}, {"2", "two"}}), "2", "two", true},
		{"empty", fst.Empty(), "", "", false},
		{"epsilon", fst.EpsilonMachine(), "", "", true},
		{"epsilon rejects", fst.EpsilonMachine(), "a", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := rewrite(t, tt.input, tt.f)
			if ok != tt.accept {
				t.Fatalf("accept = %v, want %v", ok, tt.accept)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClosure(t *testing.T) {
	t.Parallel()

	a := fst.Accept("a")
	tests := []struct {
		min, max int
		input    string
		accept   bool
	}{
		{0, 1, "", true},
		{0, 1, "a", true},
		{0, 1, "aa", false},
		{2, 3, "a", false},
		{2, 3, "aa", true},
		{2, 3, "aaa", true},
		{2, 3, "aaaa", false},
		{1, -1, "", false},
		{1, -1, "aaaaaaa", true},
		{3, 2, "aaa", false},
	}
	for _, tt := range tests {
		_, ok := rewrite(t, tt.input, fst.Closure(a, tt.min, tt.max))
		if ok != tt.accept {
			t.Errorf("Closure(a, %d, %d) on %q: accept = %v, want %v", tt.min, tt.max, tt.input, ok, tt.accept)
		}
	}

	if _, ok := rewrite(t, "", fst.Star(a)); !ok {
		t.Error("Star should accept empty")
	}
	if _, ok := rewrite(t, "", fst.Plus(a)); ok {
		t.Error("Plus should reject empty")
	}
}

func TestUnionPrefersLowerWeight(t *testing.T) {
	t.Parallel()

	cheap := fst.AddWeight(fst.Cross("12", "twelve"), 1)
	dear := fst.AddWeight(fst.Concat(fst.Cross("1", "one "), fst.Cross("2", "two")), 2)

	for _, f := range []*fst.FST{fst.Union(cheap, dear), fst.Union(dear, cheap)} {
		p, err := fst.ShortestPath(fst.Apply("12", f))
		if err != nil {
			t.Fatal(err)
		}
		if p.Output != "twelve" || math.Abs(p.Weight-1) > 1e-9 {
			t.Errorf("got %q at %v, want twelve at 1", p.Output, p.Weight)
		}
		if p.Input != "12" {
			t.Errorf("input = %q", p.Input)
		}
	}
}

func TestShortestPathTieBreak(t *testing.T) {
	t.Parallel()

	// Equal weight: the earlier union operand wins.
	f := fst.Union(fst.Cross("x", "alpha"), fst.Cross("x", "omega"))
	if got, _ := rewrite(t, "x", f); got != "alpha" {
		t.Errorf("tie = %q, want alpha", got)
	}
	f = fst.Union(fst.Cross("x", "omega"), fst.Cross("x", "alpha"))
	if got, _ := rewrite(t, "x", f); got != "omega" {
		t.Errorf("tie = %q, want omega", got)
	}

	// Equal weight: fewer labelled arcs wins over operand order.
	long := fst.Concat(fst.Cross("x", "l"), fst.Insert("ong"))
	short := fst.Cross("x", "s")
	if got, _ := rewrite(t, "x", fst.Union(long, short)); got != "s" {
		t.Errorf("tie = %q, want s", got)
	}
}

func TestShortestPathNegativeWeights(t *testing.T) {
	t.Parallel()

	f := fst.Union(
		fst.AddWeight(fst.Cross("a", "plain"), 0),
		fst.AddWeight(fst.Cross("a", "bonus"), -0.1),
	)
	p, err := fst.ShortestPath(fst.Apply("a", f))
	if err != nil {
		t.Fatal(err)
	}
	if p.Output != "bonus" || math.Abs(p.Weight+0.1) > 1e-9 {
		t.Errorf("got %q at %v", p.Output, p.Weight)
	}
}

func TestShortestPathNegativeCycle(t *testing.T) {
	t.Parallel()

	loop := &fst.FST{
		States: []fst.State{
			{Arcs: []fst.Arc{{In: 'a', Out: 'a', Weight: -1, Next: 0}}, Final: 0},
		},
	}
	if _, err := fst.ShortestPath(loop); !errors.Is(err, fst.ErrNegativeCycle) {
		t.Errorf("err = %v, want ErrNegativeCycle", err)
	}
	if _, err := fst.ShortestPath(fst.Empty()); !errors.Is(err, fst.ErrNoPath) {
		t.Errorf("err = %v, want ErrNoPath", err)
	}
}

func TestComposeChains(t *testing.T) {
	t.Parallel()

	digit := fst.StringMap([][2]string{{"1", "one"}, {"2", "two"}})
	upper := fst.Star(fst.Union(
		fst.StringMap([][2]string{{"o", "O"}, {"t", "T"}}),
		fst.AcceptSet(fst.Range('a', 'z').Minus(fst.Runes("ot"))),
	))
	got, ok := rewrite(t, "2", fst.Compose(digit, upper))
	if !ok || got != "TwO" {
		t.Errorf("compose = %q, %v", got, ok)
	}
	if _, ok := rewrite(t, "3", fst.Compose(digit, upper)); ok {
		t.Error("compose accepted unmapped input")
	}
}

func TestComposeClassIntersection(t *testing.T) {
	t.Parallel()

	letters := fst.Plus(fst.AcceptSet(fst.Range('a', 'z')))
	vowelsToStar := fst.Star(fst.Union(
		fst.CrossSet(fst.Runes("aeiou"), "*"),
		fst.AcceptSet(fst.AnyRune().Minus(fst.Runes("aeiou"))),
	))
	f := fst.Compose(letters, vowelsToStar)
	if got, _ := rewrite(t, "hello", f); got != "h*ll*" {
		t.Errorf("got %q", got)
	}
	if _, ok := rewrite(t, "Hello", f); ok {
		t.Error("uppercase should be rejected by the letter class")
	}
}

func TestDifference(t *testing.T) {
	t.Parallel()

	digits := fst.Plus(fst.AcceptSet(fst.Range('0', '9')))
	sevenPlus := fst.Closure(fst.AcceptSet(fst.Range('0', '9')), 7, -1)
	short := fst.Difference(digits, sevenPlus)

	tests := []struct {
		input  string
		accept bool
	}{
		{"1", true},
		{"123456", true},
		{"1234567", false},
		{"123456789", false},
		{"12a", false},
	}
	for _, tt := range tests {
		if _, ok := rewrite(t, tt.input, short); ok != tt.accept {
			t.Errorf("%q: accept = %v, want %v", tt.input, ok, tt.accept)
		}
	}

	// Outputs and weights of the left operand survive.
	spell := fst.AddWeight(fst.StringMap([][2]string{{"0", "zero"}, {"1", "one"}}), 3)
	p, err := fst.ShortestPath(fst.Apply("1", fst.Difference(spell, fst.Accept("0"))))
	if err != nil || p.Output != "one" || math.Abs(p.Weight-3) > 1e-9 {
		t.Errorf("got %+v, %v", p, err)
	}
	if _, ok := rewrite(t, "0", fst.Difference(spell, fst.Accept("0"))); ok {
		t.Error("excluded string accepted")
	}
}

func TestOptimizePreservesRelation(t *testing.T) {
	t.Parallel()

	g := fst.Union(
		fst.AddWeight(fst.Closure(fst.Cross("a", "b"), 1, 3), 0.5),
		fst.AddWeight(fst.Concat(fst.Accept("a"), fst.Star(fst.Cross("a", "c"))), 1),
	)
	opt := fst.Optimize(g)
	if opt.NumStates() > g.NumStates() {
		t.Errorf("optimize grew the machine: %d -> %d states", g.NumStates(), opt.NumStates())
	}
	for _, in := range []string{"a", "aa", "aaa", "aaaa", "b", ""} {
		p1, err1 := fst.ShortestPath(fst.Apply(in, g))
		p2, err2 := fst.ShortestPath(fst.Apply(in, opt))
		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("%q: errors differ: %v vs %v", in, err1, err2)
		}
		if err1 == nil && (p1.Output != p2.Output || math.Abs(p1.Weight-p2.Weight) > 1e-9) {
			t.Errorf("%q: %+v vs %+v", in, p1, p2)
		}
	}
}

func TestConnectTrimsDeadStates(t *testing.T) {
	t.Parallel()

	f := fst.Union(fst.Accept("ok"), fst.Compose(fst.Accept("x"), fst.Accept("y")))
	c := fst.Connect(f)
	if c.NumStates() >= f.NumStates() {
		t.Errorf("Connect kept %d of %d states", c.NumStates(), f.NumStates())
	}
	if !fst.Connect(fst.Compose(fst.Accept("x"), fst.Accept("y"))).IsEmpty() {
		t.Error("disjoint composition should be empty")
	}
}
