package fst

import "math"

// Union returns a machine accepting the union of the relations of fs. When
// two operands produce the same path weight, the earlier operand wins.
func Union(fs ...*FST) *FST {
	if len(fs) == 0 {
		return Empty()
	}
	b := newBuilder()
	start := b.addState()
	for _, f := range fs {
		off := b.embed(f)
		b.addArc(start, Arc{In: Epsilon, Out: Epsilon, Next: f.Start + off})
	}
	return b.build(start)
}

// Concat returns the concatenation of fs in order. Concat() accepts only the
// empty string.
func Concat(fs ...*FST) *FST {
	if len(fs) == 0 {
		return EpsilonMachine()
	}
	if len(fs) == 1 {
		return fs[0]
	}
	b := newBuilder()
	offs := make([]int32, len(fs))
	for i, f := range fs {
		offs[i] = b.embed(f)
	}
	for i := 0; i < len(fs)-1; i++ {
		next := fs[i+1].Start + offs[i+1]
		for s := range fs[i].States {
			id := int32(s) + offs[i]
			st := &b.states[id]
			if !st.IsFinal() {
				continue
			}
			b.addArc(id, Arc{In: Epsilon, Out: Epsilon, Weight: st.Final, Next: next})
			st.Final = math.Inf(1)
		}
	}
	return b.build(fs[0].Start + offs[0])
}

// Star returns the Kleene closure of f.
func Star(f *FST) *FST {
	b := newBuilder()
	start := b.addState()
	b.setFinal(start, 0)
	off := b.embed(f)
	b.addArc(start, Arc{In: Epsilon, Out: Epsilon, Next: f.Start + off})
	for s := range f.States {
		id := int32(s) + off
		st := &b.states[id]
		if !st.IsFinal() {
			continue
		}
		b.addArc(id, Arc{In: Epsilon, Out: Epsilon, Weight: st.Final, Next: start})
		st.Final = math.Inf(1)
	}
	return b.build(start)
}

// Plus returns one or more repetitions of f.
func Plus(f *FST) *FST { return Concat(f, Star(f)) }

// Optional returns f or the empty string. f is preferred on exact ties.
func Optional(f *FST) *FST { return Union(f, EpsilonMachine()) }

// Closure returns between min and max repetitions of f. A negative max means
// unbounded. max < min (with max >= 0) yields Empty.
func Closure(f *FST, min, max int) *FST {
	if min < 0 {
		min = 0
	}
	if max >= 0 && max < min {
		return Empty()
	}
	parts := make([]*FST, 0, min+1)
	for range min {
		parts = append(parts, f)
	}
	switch {
	case max < 0:
		parts = append(parts, Star(f))
	case max > min:
		// Nested optionals keep every repetition count on a single path.
		tail := Optional(f)
		for range max - min - 1 {
			tail = Optional(Concat(f, tail))
		}
		parts = append(parts, tail)
	}
	return Concat(parts...)
}

// AddWeight returns f with w added to every accepting path.
func AddWeight(f *FST, w float64) *FST {
	if w == 0 {
		return f
	}
	g := clone(f)
	for i := range g.States {
		if g.States[i].IsFinal() {
			g.States[i].Final += w
		}
	}
	return g
}

// Project returns the input acceptor of f.
func Project(f *FST) *FST {
	b := newBuilder()
	b.embed(f)
	for s := range b.states {
		for i, a := range b.states[s].Arcs {
			if a.Class != 0 {
				a.Out = Identity
			} else {
				a.Out = a.In
			}
			b.states[s].Arcs[i] = a
		}
	}
	return b.build(f.Start)
}

func clone(f *FST) *FST {
	b := newBuilder()
	b.embed(f)
	return b.build(f.Start)
}

// Connect removes states that are not on some path from the start state to
// a final state. The result accepts the same weighted relation.
func Connect(f *FST) *FST {
	n := len(f.States)
	if n == 0 {
		return Empty()
	}

	access := make([]bool, n)
	stack := []int32{f.Start}
	access[f.Start] = true
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, a := range f.States[s].Arcs {
			if !access[a.Next] {
				access[a.Next] = true
				stack = append(stack, a.Next)
			}
		}
	}

	rev := make([][]int32, n)
	for s, st := range f.States {
		if !access[s] {
			continue
		}
		for _, a := range st.Arcs {
			rev[a.Next] = append(rev[a.Next], int32(s))
		}
	}
	coaccess := make([]bool, n)
	for s, st := range f.States {
		if access[s] && st.IsFinal() {
			coaccess[s] = true
			stack = append(stack, int32(s))
		}
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range rev[s] {
			if !coaccess[p] {
				coaccess[p] = true
				stack = append(stack, p)
			}
		}
	}
	if !coaccess[f.Start] {
		return Empty()
	}

	ids := make([]int32, n)
	b := newBuilder()
	for s := range f.States {
		ids[s] = -1
		if coaccess[s] {
			ids[s] = b.addState()
		}
	}
	for s, st := range f.States {
		if ids[s] < 0 {
			continue
		}
		b.setFinal(ids[s], st.Final)
		for _, a := range st.Arcs {
			if ids[a.Next] < 0 {
				continue
			}
			a.Next = ids[a.Next]
			if a.Class != 0 {
				a.Class = b.classID(f.class(a))
			}
			b.addArc(ids[s], a)
		}
	}
	return b.build(ids[f.Start])
}

// RmEpsilon removes arcs that neither consume nor emit. Weighted relations
// are preserved; arcs keep their relative order so tie-breaking by
// construction order still favours earlier alternatives.
func RmEpsilon(f *FST) *FST {
	n := len(f.States)
	b := newBuilder()
	for range n {
		b.addState()
	}
	for q := range f.States {
		order, dist := epsClosure(f, int32(q))
		final := math.Inf(1)
		for _, p := range order {
			d := dist[p]
			st := f.States[p]
			if st.IsFinal() && d+st.Final < final {
				final = d + st.Final
			}
			for _, a := range st.Arcs {
				if isEpsilon(a) {
					continue
				}
				if a.Class != 0 {
					a.Class = b.classID(f.class(a))
				}
				a.Weight += d
				b.addArc(int32(q), a)
			}
		}
		b.setFinal(int32(q), final)
	}
	return b.build(f.Start)
}

// epsClosure returns the states reachable from q over pure epsilon arcs in
// discovery order, with their shortest epsilon distance.
func epsClosure(f *FST, q int32) ([]int32, map[int32]float64) {
	dist := map[int32]float64{q: 0}
	order := []int32{q}
	queue := []int32{q}
	inQueue := map[int32]bool{q: true}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		inQueue[s] = false
		for _, a := range f.States[s].Arcs {
			if !isEpsilon(a) {
				continue
			}
			nd := dist[s] + a.Weight
			old, seen := dist[a.Next]
			if seen && nd >= old {
				continue
			}
			if !seen {
				order = append(order, a.Next)
			}
			dist[a.Next] = nd
			if !inQueue[a.Next] {
				inQueue[a.Next] = true
				queue = append(queue, a.Next)
			}
		}
	}
	return order, dist
}

// Optimize returns an equivalent machine with pure epsilon arcs removed and
// useless states trimmed. The weighted relation is unchanged, so composing
// with an optimized machine yields the same shortest path weight.
func Optimize(f *FST) *FST {
	return Connect(RmEpsilon(Connect(f)))
}
