// Package rewrite compiles context-dependent string rewrite rules into
// transducers.
//
// A compiled rule performs obligatory, leftmost, longest-match replacement:
// scanning the input left to right, every occurrence of a pattern whose
// preceding input symbol is in the left context and whose following input
// symbol is in the right context is replaced, and everything else is copied
// through unchanged. Contexts are single-symbol classes checked on the
// input. A nil context matches anything, including the string edges; a
// non-nil context never matches at an edge.
package rewrite

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/MrWong99/spokenform/pkg/fst"
)

// ErrInvalidRule is returned for rules that cannot be compiled.
var ErrInvalidRule = errors.New("rewrite: invalid rule")

// Pair maps one pattern to its replacement. An empty In marks an insertion
// rule, which must have exactly one pair.
type Pair struct {
	In  string
	Out string
}

// Rule is a set of alternative replacements sharing one pair of contexts.
type Rule struct {
	// Name identifies the rule in errors and logs.
	Name string

	Pairs []Pair

	// Left restricts the symbol preceding a match. Nil means unconstrained.
	Left *fst.RuneSet

	// Right restricts the symbol following a match. Nil means unconstrained.
	Right *fst.RuneSet
}

// Replace is shorthand for a single-pair rule.
func Replace(name, in, out string, left, right *fst.RuneSet) Rule {
	return Rule{Name: name, Pairs: []Pair{{In: in, Out: out}}, Left: left, Right: right}
}

// Set returns a pointer to rs for use as a rule context.
func Set(rs fst.RuneSet) *fst.RuneSet { return &rs }

// Compile builds the transducer for r.
func Compile(r Rule) (*fst.FST, error) {
	c, err := newCompiler(r)
	if err != nil {
		return nil, err
	}
	return c.build()
}

// MustCompile is like Compile but panics on error. Intended for rules
// fixed at build time.
func MustCompile(r Rule) *fst.FST {
	f, err := Compile(r)
	if err != nil {
		panic(err)
	}
	return f
}

// Chain compiles rules in order. Later rules see the output of earlier ones
// when the chain is applied.
func Chain(rules ...Rule) ([]*fst.FST, error) {
	out := make([]*fst.FST, 0, len(rules))
	for _, r := range rules {
		f, err := Compile(r)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Apply runs a compiled chain over text.
func Apply(text string, chain []*fst.FST) (string, error) {
	if len(chain) == 0 {
		return text, nil
	}
	out, err := fst.Rewrite(text, chain...)
	if err != nil {
		return "", fmt.Errorf("rewrite: apply: %w", err)
	}
	return out, nil
}

type pattern struct {
	in  []rune
	out []rune
}

type compiler struct {
	rule     Rule
	patterns []pattern
	insert   []rune
	isInsert bool

	// alphabet lists every rune occurring in a pattern; each gets its own
	// arc. classes partition the remaining runes by context membership.
	alphabet []rune
	classes  []fst.RuneSet

	states []fst.State
	ids    map[string]int32
	queue  []simState
}

// simState is a compiled state: whether the left context holds at the
// start of buf, and buf, the input held back while a match is undecided.
type simState struct {
	left bool
	buf  []rune
}

func (s simState) key() string {
	if s.left {
		return "1" + string(s.buf)
	}
	return "0" + string(s.buf)
}

func newCompiler(r Rule) (*compiler, error) {
	if len(r.Pairs) == 0 {
		return nil, fmt.Errorf("%w: %s: no pairs", ErrInvalidRule, r.Name)
	}
	c := &compiler{rule: r, ids: make(map[string]int32)}
	for _, p := range r.Pairs {
		if p.In == "" {
			if len(r.Pairs) != 1 {
				return nil, fmt.Errorf("%w: %s: insertion must be the only pair", ErrInvalidRule, r.Name)
			}
			c.isInsert = true
			c.insert = []rune(p.Out)
			continue
		}
		c.patterns = append(c.patterns, pattern{in: []rune(p.In), out: []rune(p.Out)})
	}

	var seen fst.RuneSet
	for _, p := range c.patterns {
		for _, ch := range p.in {
			if !seen.Contains(ch) {
				seen = seen.Union(fst.Runes(string(ch)))
				c.alphabet = append(c.alphabet, ch)
			}
		}
	}

	left, right := fst.AnyRune(), fst.AnyRune()
	if r.Left != nil {
		left = *r.Left
	}
	if r.Right != nil {
		right = *r.Right
	}
	rest := seen.Complement()
	for _, part := range []fst.RuneSet{
		rest.Intersect(left).Intersect(right),
		rest.Intersect(left).Minus(right),
		rest.Minus(left).Intersect(right),
		rest.Minus(left).Minus(right),
	} {
		if !part.IsEmpty() {
			c.classes = append(c.classes, part)
		}
	}
	return c, nil
}

func (c *compiler) leftOK(r rune) bool  { return c.rule.Left == nil || c.rule.Left.Contains(r) }
func (c *compiler) rightOK(r rune) bool { return c.rule.Right == nil || c.rule.Right.Contains(r) }

func hasPrefix(s, p []rune) bool {
	if len(p) > len(s) {
		return false
	}
	for i := range p {
		if s[i] != p[i] {
			return false
		}
	}
	return true
}

// run applies the rule to s starting in left-context state left. Unless
// final, it stops at the first position where a match cannot be decided
// without more input and returns the undecided suffix.
func (c *compiler) run(left bool, s []rune, final bool) (out []rune, st simState) {
	i := 0
	for i < len(s) {
		if c.isInsert {
			if left && c.rightOK(s[i]) {
				out = append(out, c.insert...)
			}
			out = append(out, s[i])
			left = c.leftOK(s[i])
			i++
			continue
		}
		if !left {
			out = append(out, s[i])
			left = c.leftOK(s[i])
			i++
			continue
		}

		tail := s[i:]
		best, pending := -1, false
		for k, p := range c.patterns {
			switch {
			case hasPrefix(tail, p.in):
				n := len(p.in)
				switch {
				case c.rule.Right == nil:
				case n < len(tail):
					if !c.rightOK(tail[n]) {
						continue
					}
				case !final:
					pending = true
					continue
				default:
					continue
				}
				if best < 0 || n > len(c.patterns[best].in) {
					best = k
				}
			case !final && hasPrefix(p.in, tail):
				pending = true
			}
		}
		if pending {
			return out, simState{left: left, buf: append([]rune(nil), tail...)}
		}
		if best >= 0 {
			p := c.patterns[best]
			out = append(out, p.out...)
			left = c.leftOK(p.in[len(p.in)-1])
			i += len(p.in)
			continue
		}
		out = append(out, s[i])
		left = c.leftOK(s[i])
		i++
	}
	if final && c.isInsert && left && c.rule.Right == nil {
		out = append(out, c.insert...)
	}
	return out, simState{left: left}
}

func (c *compiler) addState() int32 {
	c.states = append(c.states, fst.State{Final: math.Inf(1)})
	return int32(len(c.states) - 1)
}

func (c *compiler) state(s simState) int32 {
	k := s.key()
	if id, ok := c.ids[k]; ok {
		return id
	}
	id := c.addState()
	c.ids[k] = id
	c.queue = append(c.queue, s)
	return id
}

func (c *compiler) addArc(from int32, a fst.Arc) {
	c.states[from].Arcs = append(c.states[from].Arcs, a)
}

// emitChain adds epsilon-input arcs from `from` emitting out and returns the
// last state of the chain.
func (c *compiler) emitChain(from int32, out []rune) int32 {
	cur := from
	for _, r := range out {
		next := c.addState()
		c.addArc(cur, fst.Arc{In: fst.Epsilon, Out: r, Next: next})
		cur = next
	}
	return cur
}

func (c *compiler) build() (*fst.FST, error) {
	start := c.state(simState{left: c.rule.Left == nil})
	for len(c.queue) > 0 {
		s := c.queue[0]
		c.queue = c.queue[1:]
		if err := c.expand(s); err != nil {
			return nil, err
		}
	}
	classes := make([]fst.RuneSet, len(c.classes))
	copy(classes, c.classes)
	return &fst.FST{States: c.states, Start: start, Classes: classes}, nil
}

func (c *compiler) expand(s simState) error {
	src := c.ids[s.key()]

	for _, r := range c.alphabet {
		out, next := c.run(s.left, append(append([]rune(nil), s.buf...), r), false)
		dst := c.state(next)
		first := fst.Epsilon
		if len(out) > 0 {
			first = out[0]
			out = out[1:]
		}
		if len(out) == 0 {
			c.addArc(src, fst.Arc{In: r, Out: first, Next: dst})
			continue
		}
		mid := c.addState()
		c.addArc(src, fst.Arc{In: r, Out: first, Next: mid})
		end := c.emitChain(mid, out[:len(out)-1])
		c.addArc(end, fst.Arc{In: fst.Epsilon, Out: out[len(out)-1], Next: dst})
	}

	for i, cls := range c.classes {
		rep := cls.Min()
		out, next := c.run(s.left, append(append([]rune(nil), s.buf...), rep), false)
		if len(out) == 0 || out[len(out)-1] != rep || len(next.buf) != 0 {
			return fmt.Errorf("%w: %s: symbol outside patterns was held back", ErrInvalidRule, c.rule.Name)
		}
		dst := c.state(next)
		end := c.emitChain(src, out[:len(out)-1])
		c.addArc(end, fst.Arc{Class: int32(i + 1), Out: fst.Identity, Next: dst})
	}

	out, _ := c.run(s.left, s.buf, true)
	if len(out) == 0 {
		c.states[src].Final = 0
		return nil
	}
	end := c.emitChain(src, out)
	c.states[end].Final = 0
	return nil
}

// String describes r for logs.
func (r Rule) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteString(": ")
	for i, p := range r.Pairs {
		if i > 0 {
			b.WriteString(" | ")
		}
		fmt.Fprintf(&b, "%q -> %q", p.In, p.Out)
	}
	return b.String()
}
