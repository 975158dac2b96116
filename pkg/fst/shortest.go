package fst

import (
	"errors"
	"math"
	"strings"
)

var (
	// ErrNoPath is returned when a machine accepts nothing.
	ErrNoPath = errors.New("fst: no accepting path")

	// ErrNegativeCycle is returned when shortest distances are unbounded.
	ErrNegativeCycle = errors.New("fst: negative weight cycle")
)

// weightEpsilon is the tolerance for treating two path weights as equal.
const weightEpsilon = 1e-9

// Path is one accepting path of a transducer.
type Path struct {
	Input  string
	Output string
	Weight float64
}

// cost orders candidate paths: lowest weight, then fewest labelled arcs,
// then fewest arcs overall.
type cost struct {
	w       float64
	labels  int
	arcs    int
	reached bool
}

func (c cost) less(o cost) bool {
	switch {
	case !c.reached:
		return false
	case !o.reached:
		return true
	case c.w < o.w-weightEpsilon:
		return true
	case c.w > o.w+weightEpsilon:
		return false
	case c.labels != o.labels:
		return c.labels < o.labels
	}
	return c.arcs < o.arcs
}

func (c cost) same(o cost) bool {
	return c.reached && o.reached &&
		math.Abs(c.w-o.w) <= weightEpsilon && c.labels == o.labels && c.arcs == o.arcs
}

func (c cost) extend(a Arc) cost {
	n := cost{w: c.w + a.Weight, labels: c.labels, arcs: c.arcs + 1, reached: true}
	if !isEpsilon(a) {
		n.labels++
	}
	return n
}

// ShortestPath returns the minimum-weight accepting path of f.
//
// Ties between equal-weight paths are broken deterministically: the path with
// fewer non-epsilon arcs wins, then the path with fewer arcs, and finally the
// path taking the earliest arc in construction order at the first state
// where the candidates diverge. Since [Union] keeps operand order, earlier
// union operands win exact ties.
//
// Negative arc weights are allowed. A negative cycle on an accepting path
// yields ErrNegativeCycle.
func ShortestPath(f *FST) (Path, error) {
	dist, err := distanceToFinal(f)
	if err != nil {
		return Path{}, err
	}
	if len(dist) == 0 || !dist[f.Start].reached {
		return Path{}, ErrNoPath
	}

	var in, out strings.Builder
	q := f.Start
	for {
		st := f.States[q]
		if st.IsFinal() && dist[q].same(cost{w: st.Final, reached: true}) {
			break
		}
		advanced := false
		for _, a := range st.Arcs {
			if !dist[a.Next].extend(a).same(dist[q]) {
				continue
			}
			sym := a.In
			if a.Class != 0 {
				sym = f.class(a).Min()
			}
			if sym >= 0 {
				in.WriteRune(sym)
			}
			switch {
			case a.Out == Identity:
				out.WriteRune(sym)
			case a.Out >= 0:
				out.WriteRune(a.Out)
			}
			q = a.Next
			advanced = true
			break
		}
		if !advanced {
			// Unreachable when dist is consistent.
			return Path{}, ErrNoPath
		}
	}
	return Path{Input: in.String(), Output: out.String(), Weight: dist[f.Start].w}, nil
}

// distanceToFinal computes, for every state, the best cost of reaching an
// accepting state. It relaxes arcs backwards from the final states with a
// FIFO work queue, so negative weights are fine as long as no cycle is
// negative.
func distanceToFinal(f *FST) ([]cost, error) {
	n := len(f.States)
	if n == 0 {
		return nil, nil
	}
	type revArc struct {
		from int32
		arc  Arc
	}
	rev := make([][]revArc, n)
	for s, st := range f.States {
		for _, a := range st.Arcs {
			rev[a.Next] = append(rev[a.Next], revArc{from: int32(s), arc: a})
		}
	}

	dist := make([]cost, n)
	inQueue := make([]bool, n)
	updates := make([]int, n)
	var queue []int32
	for s, st := range f.States {
		if st.IsFinal() {
			dist[s] = cost{w: st.Final, reached: true}
			inQueue[s] = true
			queue = append(queue, int32(s))
		}
	}
	for len(queue) > 0 {
		q := queue[0]
		queue = queue[1:]
		inQueue[q] = false
		for _, r := range rev[q] {
			cand := dist[q].extend(r.arc)
			if !cand.less(dist[r.from]) {
				continue
			}
			dist[r.from] = cand
			updates[r.from]++
			if updates[r.from] > n {
				return nil, ErrNegativeCycle
			}
			if !inQueue[r.from] {
				inQueue[r.from] = true
				queue = append(queue, r.from)
			}
		}
	}
	return dist, nil
}

// Apply composes the literal acceptor for text with each machine in turn and
// returns the resulting lattice. An empty lattice means text is rejected.
func Apply(text string, cascade ...*FST) *FST {
	lattice := Accept(text)
	for _, f := range cascade {
		lattice = Compose(lattice, f)
		if lattice.IsEmpty() {
			return lattice
		}
	}
	return lattice
}

// Rewrite applies the cascade to text and returns the best output.
func Rewrite(text string, cascade ...*FST) (string, error) {
	p, err := ShortestPath(Apply(text, cascade...))
	if err != nil {
		return "", err
	}
	return p.Output, nil
}
