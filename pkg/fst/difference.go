package fst

import (
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Difference returns a restricted to input strings that b does not accept.
// Only b's input side matters and its weights are ignored. a's weights and
// outputs are kept.
//
// b is determinised by subset construction, so it should be a small
// machine such as a digit pattern.
func Difference(a, b *FST) *FST {
	return Compose(complement(b), a)
}

// complement returns a deterministic acceptor for every string not in the
// input projection of f.
func complement(f *FST) *FST {
	d := &determinizer{f: f, ids: make(map[string]int32), out: newBuilder()}
	start := d.subset(d.closure([]int32{f.Start}))
	for len(d.queue) > 0 {
		set := d.queue[0]
		d.queue = d.queue[1:]
		d.expand(set)
	}
	return d.out.build(start)
}

type determinizer struct {
	f     *FST
	ids   map[string]int32
	queue [][]int32
	out   *builder
}

func subsetKey(set []int32) string {
	var b strings.Builder
	for _, s := range set {
		b.WriteString(strconv.Itoa(int(s)))
		b.WriteByte(',')
	}
	return b.String()
}

// subset interns a sorted state set. Sets containing a final state of f are
// non-final in the complement; all others, including the empty sink, accept.
func (d *determinizer) subset(set []int32) int32 {
	k := subsetKey(set)
	if id, ok := d.ids[k]; ok {
		return id
	}
	id := d.out.addState()
	d.ids[k] = id
	final := true
	for _, s := range set {
		if d.f.States[s].IsFinal() {
			final = false
			break
		}
	}
	if final {
		d.out.setFinal(id, 0)
	}
	d.queue = append(d.queue, set)
	return id
}

// closure extends set with everything reachable over input-epsilon arcs.
func (d *determinizer) closure(set []int32) []int32 {
	seen := make(map[int32]bool, len(set))
	stack := slices.Clone(set)
	for _, s := range set {
		seen[s] = true
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, a := range d.f.States[s].Arcs {
			if inputIsEpsilon(a) && !seen[a.Next] {
				seen[a.Next] = true
				stack = append(stack, a.Next)
			}
		}
	}
	out := make([]int32, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// expand emits one class arc per distinct successor subset. The rune range
// is cut into elementary intervals on which every label of the subset
// behaves uniformly, so the arcs cover all of Unicode exactly once.
func (d *determinizer) expand(set []int32) {
	src := d.ids[subsetKey(set)]

	cuts := []rune{0, unicode.MaxRune + 1}
	for _, s := range set {
		for _, a := range d.f.States[s].Arcs {
			switch {
			case inputIsEpsilon(a):
			case a.Class != 0:
				for _, r := range d.f.class(a).Ranges {
					cuts = append(cuts, r.Lo, r.Hi+1)
				}
			default:
				cuts = append(cuts, a.In, a.In+1)
			}
		}
	}
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)

	var order []string
	targets := make(map[string][]int32)
	ranges := make(map[string][]RuneRange)
	for i := 0; i+1 < len(cuts); i++ {
		lo, hi := cuts[i], cuts[i+1]-1
		var next []int32
		for _, s := range set {
			for _, a := range d.f.States[s].Arcs {
				if !inputIsEpsilon(a) && d.f.consumes(a, lo) {
					next = append(next, a.Next)
				}
			}
		}
		slices.Sort(next)
		next = slices.Compact(next)
		if len(next) > 0 {
			next = d.closure(next)
		}
		k := subsetKey(next)
		if _, ok := targets[k]; !ok {
			order = append(order, k)
			targets[k] = next
		}
		ranges[k] = append(ranges[k], RuneRange{Lo: lo, Hi: hi})
	}

	for _, k := range order {
		dst := d.subset(targets[k])
		d.out.addArc(src, d.out.symbolArc(NewRuneSet(ranges[k]...), Identity, 0, dst))
	}
}
