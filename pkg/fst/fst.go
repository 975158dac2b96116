// Package fst implements weighted finite-state transducers over Unicode code
// points in the tropical semiring.
//
// A path's weight is the sum of its arc weights plus the final weight of the
// state it ends in. Lower weights are preferred. Transducers are immutable
// once built: every operation returns a fresh machine and never mutates its
// operands, so a built grammar can be shared between goroutines.
//
// Arcs may consume a whole [RuneSet] (a class) instead of a single rune, and
// may emit [Identity] to copy the consumed rune. This keeps "any letter"
// machines a few arcs large even though the alphabet is all of Unicode.
package fst

import (
	"math"
	"unicode/utf8"
)

// Special arc labels. Real symbols are non-negative code points.
const (
	// Epsilon consumes or emits nothing.
	Epsilon rune = -1

	// Identity is only valid as an output label. It emits the rune consumed
	// by the same arc.
	Identity rune = -2
)

// Arc is a weighted transition.
type Arc struct {
	// In is the consumed symbol. Ignored when Class is non-zero.
	In rune `msgpack:"i"`

	// Out is the emitted symbol, Epsilon or Identity.
	Out rune `msgpack:"o"`

	// Class is a 1-based index into FST.Classes. Zero means In is a concrete
	// symbol.
	Class int32 `msgpack:"c"`

	Weight float64 `msgpack:"w"`
	Next   int32   `msgpack:"n"`
}

// State holds the outgoing arcs of a state and its final weight. A final
// weight of +Inf marks a non-final state.
type State struct {
	Arcs  []Arc   `msgpack:"a"`
	Final float64 `msgpack:"f"`
}

// IsFinal reports whether s accepts.
func (s State) IsFinal() bool { return !math.IsInf(s.Final, 1) }

// FST is a weighted finite-state transducer.
type FST struct {
	States  []State   `msgpack:"s"`
	Start   int32     `msgpack:"st"`
	Classes []RuneSet `msgpack:"cl"`
}

// NumStates returns the number of states.
func (f *FST) NumStates() int { return len(f.States) }

// NumArcs returns the total number of arcs.
func (f *FST) NumArcs() int {
	n := 0
	for _, s := range f.States {
		n += len(s.Arcs)
	}
	return n
}

// IsEmpty reports whether f accepts nothing. Only reliable on connected
// machines; use [Connect] first otherwise.
func (f *FST) IsEmpty() bool {
	if len(f.States) == 0 {
		return true
	}
	if len(f.States) == 1 && !f.States[0].IsFinal() && len(f.States[0].Arcs) == 0 {
		return true
	}
	return false
}

// inputIsEpsilon reports whether a consumes nothing.
func inputIsEpsilon(a Arc) bool { return a.Class == 0 && a.In == Epsilon }

// isEpsilon reports whether a neither consumes nor emits.
func isEpsilon(a Arc) bool { return inputIsEpsilon(a) && a.Out == Epsilon }

// class returns the rune set consumed by a, which must be a class arc.
func (f *FST) class(a Arc) RuneSet { return f.Classes[a.Class-1] }

// consumes reports whether a can consume r.
func (f *FST) consumes(a Arc, r rune) bool {
	if a.Class != 0 {
		return f.class(a).Contains(r)
	}
	return a.In == r
}

// ── builder ─────────────────────────────────────────────────────────────────

type builder struct {
	states  []State
	classes []RuneSet
	classIx map[string]int32
}

func newBuilder() *builder {
	return &builder{classIx: make(map[string]int32)}
}

func (b *builder) addState() int32 {
	b.states = append(b.states, State{Final: math.Inf(1)})
	return int32(len(b.states) - 1)
}

func (b *builder) setFinal(s int32, w float64) { b.states[s].Final = w }

func (b *builder) addArc(s int32, a Arc) {
	b.states[s].Arcs = append(b.states[s].Arcs, a)
}

// classID interns rs and returns its 1-based index.
func (b *builder) classID(rs RuneSet) int32 {
	k := rs.key()
	if id, ok := b.classIx[k]; ok {
		return id
	}
	b.classes = append(b.classes, rs)
	id := int32(len(b.classes))
	b.classIx[k] = id
	return id
}

// symbolArc builds an arc consuming rs, collapsing singletons to concrete
// symbols.
func (b *builder) symbolArc(rs RuneSet, out rune, w float64, next int32) Arc {
	if r, ok := rs.Single(); ok {
		if out == Identity {
			out = r
		}
		return Arc{In: r, Out: out, Weight: w, Next: next}
	}
	return Arc{Class: b.classID(rs), Out: out, Weight: w, Next: next}
}

// embed copies f into the builder and returns the offset of its states.
func (b *builder) embed(f *FST) int32 {
	off := int32(len(b.states))
	remap := make([]int32, len(f.Classes))
	for i, c := range f.Classes {
		remap[i] = b.classID(c)
	}
	for _, s := range f.States {
		arcs := make([]Arc, len(s.Arcs))
		for i, a := range s.Arcs {
			a.Next += off
			if a.Class != 0 {
				a.Class = remap[a.Class-1]
			}
			arcs[i] = a
		}
		b.states = append(b.states, State{Arcs: arcs, Final: s.Final})
	}
	return off
}

func (b *builder) build(start int32) *FST {
	return &FST{States: b.states, Start: start, Classes: b.classes}
}

// ── constructors ────────────────────────────────────────────────────────────

// Empty returns a machine that accepts nothing.
func Empty() *FST {
	return &FST{States: []State{{Final: math.Inf(1)}}}
}

// EpsilonMachine returns a machine that accepts only the empty string.
func EpsilonMachine() *FST {
	return &FST{States: []State{{Final: 0}}}
}

// Accept returns an acceptor for exactly s.
func Accept(s string) *FST {
	return Cross(s, s)
}

// Cross returns a transducer mapping exactly in to exactly out. Symbols are
// aligned left to right and the shorter side is padded with epsilons.
func Cross(in, out string) *FST {
	b := newBuilder()
	cur := b.addState()
	start := cur
	for in != "" || out != "" {
		ir, or := Epsilon, Epsilon
		if in != "" {
			var n int
			ir, n = utf8.DecodeRuneInString(in)
			in = in[n:]
		}
		if out != "" {
			var n int
			or, n = utf8.DecodeRuneInString(out)
			out = out[n:]
		}
		next := b.addState()
		b.addArc(cur, Arc{In: ir, Out: or, Next: next})
		cur = next
	}
	b.setFinal(cur, 0)
	return b.build(start)
}

// Insert returns a transducer that consumes nothing and emits s.
func Insert(s string) *FST { return Cross("", s) }

// Delete returns a transducer that consumes s and emits nothing.
func Delete(s string) *FST { return Cross(s, "") }

// AcceptSet returns an acceptor for any single rune in rs.
func AcceptSet(rs RuneSet) *FST { return mapSet(rs, Identity) }

// DeleteSet returns a transducer consuming any single rune in rs and
// emitting nothing.
func DeleteSet(rs RuneSet) *FST { return mapSet(rs, Epsilon) }

// CrossSet returns a transducer consuming any single rune in rs and emitting
// out.
func CrossSet(rs RuneSet, out string) *FST {
	first := Epsilon
	rest := out
	if out != "" {
		var n int
		first, n = utf8.DecodeRuneInString(out)
		rest = out[n:]
	}
	return Concat(mapSet(rs, first), Insert(rest))
}

func mapSet(rs RuneSet, out rune) *FST {
	if rs.IsEmpty() {
		return Empty()
	}
	b := newBuilder()
	s := b.addState()
	t := b.addState()
	b.setFinal(t, 0)
	b.addArc(s, b.symbolArc(rs, out, 0, t))
	return b.build(s)
}

// StringMap returns the union of Cross(p[0], p[1]) over pairs. Earlier pairs
// win exact weight ties.
func StringMap(pairs [][2]string) *FST {
	fs := make([]*FST, len(pairs))
	for i, p := range pairs {
		fs[i] = Cross(p[0], p[1])
	}
	return Union(fs...)
}

// AcceptAny returns an acceptor for any of the given strings.
func AcceptAny(ss ...string) *FST {
	fs := make([]*FST, len(ss))
	for i, s := range ss {
		fs[i] = Accept(s)
	}
	return Union(fs...)
}
