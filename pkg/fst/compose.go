package fst

import "math"

// Compose returns the composition of a and b: for every path mapping x to y
// in a and y to z in b, the result maps x to z with the summed weight.
//
// Only state pairs reachable from the pair of start states are built, so
// composing a short literal acceptor with a large grammar stays cheap. A
// sequencing filter makes sure each combination of epsilon moves is taken
// on exactly one path. The result is trimmed with [Connect].
func Compose(a, b *FST) *FST {
	c := &composer{
		a:   a,
		b:   b,
		out: newBuilder(),
		ids: make(map[pairState]int32),
		idx: make(map[int32]*stateIndex),
	}
	start := c.state(pairState{a: a.Start, b: b.Start})
	for len(c.queue) > 0 {
		p := c.queue[0]
		c.queue = c.queue[1:]
		c.expand(p)
	}
	return Connect(c.out.build(start))
}

type pairState struct {
	a, b int32
	// filter is 1 after b moved alone; a may not move alone until both
	// machines move together again.
	filter uint8
}

// stateIndex groups the consuming arcs of a large b state by input symbol.
type stateIndex struct {
	byRune    map[rune][]int
	classArcs []int
}

// indexThreshold is the arc count above which a b state is indexed.
const indexThreshold = 8

type composer struct {
	a, b  *FST
	out   *builder
	ids   map[pairState]int32
	queue []pairState
	idx   map[int32]*stateIndex
}

func (c *composer) state(p pairState) int32 {
	if id, ok := c.ids[p]; ok {
		return id
	}
	id := c.out.addState()
	c.ids[p] = id
	c.queue = append(c.queue, p)
	fa, fb := c.a.States[p.a].Final, c.b.States[p.b].Final
	if !math.IsInf(fa, 1) && !math.IsInf(fb, 1) {
		c.out.setFinal(id, fa+fb)
	}
	return id
}

func (c *composer) expand(p pairState) {
	src := c.ids[p]
	sb := c.b.States[p.b]

	for _, ea := range c.a.States[p.a].Arcs {
		if ea.Out == Epsilon {
			if p.filter != 0 {
				continue
			}
			next := c.state(pairState{a: ea.Next, b: p.b})
			arc := Arc{In: ea.In, Out: Epsilon, Weight: ea.Weight, Next: next}
			if ea.Class != 0 {
				arc.Class = c.out.classID(c.a.class(ea))
			}
			c.out.addArc(src, arc)
			continue
		}
		c.matchArc(src, p, ea)
	}

	for _, eb := range sb.Arcs {
		if !inputIsEpsilon(eb) {
			continue
		}
		out := eb.Out
		if out == Identity {
			out = Epsilon
		}
		next := c.state(pairState{a: p.a, b: eb.Next, filter: 1})
		c.out.addArc(src, Arc{In: Epsilon, Out: out, Weight: eb.Weight, Next: next})
	}
}

// matchArc pairs ea, whose output is a real symbol or Identity, with every
// consuming arc of b's current state that accepts it.
func (c *composer) matchArc(src int32, p pairState, ea Arc) {
	arcs := c.b.States[p.b].Arcs

	// Concrete output symbol from a.
	if ea.Class == 0 || ea.Out != Identity {
		r := ea.Out
		if r == Identity {
			r = ea.In
		}
		for _, i := range c.candidates(p.b, r) {
			eb := arcs[i]
			if !c.b.consumes(eb, r) {
				continue
			}
			out := eb.Out
			if out == Identity {
				out = r
			}
			next := c.state(pairState{a: ea.Next, b: eb.Next})
			arc := Arc{In: ea.In, Out: out, Weight: ea.Weight + eb.Weight, Next: next}
			if ea.Class != 0 {
				arc.Class = c.out.classID(c.a.class(ea))
			}
			c.out.addArc(src, arc)
		}
		return
	}

	// a copies a class of input symbols through: intersect with b's labels.
	set := c.a.class(ea)
	for _, eb := range arcs {
		if inputIsEpsilon(eb) {
			continue
		}
		w := ea.Weight + eb.Weight
		if eb.Class == 0 {
			if !set.Contains(eb.In) {
				continue
			}
			out := eb.Out
			if out == Identity {
				out = eb.In
			}
			next := c.state(pairState{a: ea.Next, b: eb.Next})
			c.out.addArc(src, Arc{In: eb.In, Out: out, Weight: w, Next: next})
			continue
		}
		both := set.Intersect(c.b.class(eb))
		if both.IsEmpty() {
			continue
		}
		next := c.state(pairState{a: ea.Next, b: eb.Next})
		c.out.addArc(src, c.out.symbolArc(both, eb.Out, w, next))
	}
}

// candidates returns the indices, in arc order, of b's arcs at state q that
// may consume r.
func (c *composer) candidates(q int32, r rune) []int {
	arcs := c.b.States[q].Arcs
	if len(arcs) <= indexThreshold {
		all := make([]int, 0, len(arcs))
		for i, a := range arcs {
			if !inputIsEpsilon(a) {
				all = append(all, i)
			}
		}
		return all
	}
	ix, ok := c.idx[q]
	if !ok {
		ix = &stateIndex{byRune: make(map[rune][]int)}
		for i, a := range arcs {
			switch {
			case inputIsEpsilon(a):
			case a.Class != 0:
				ix.classArcs = append(ix.classArcs, i)
			default:
				ix.byRune[a.In] = append(ix.byRune[a.In], i)
			}
		}
		c.idx[q] = ix
	}
	return mergeSorted(ix.byRune[r], ix.classArcs)
}

func mergeSorted(x, y []int) []int {
	out := make([]int, 0, len(x)+len(y))
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		if x[i] < y[j] {
			out = append(out, x[i])
			i++
		} else {
			out = append(out, y[j])
			j++
		}
	}
	out = append(out, x[i:]...)
	return append(out, y[j:]...)
}
