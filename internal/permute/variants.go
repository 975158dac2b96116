package permute

import (
	"iter"
	"strings"

	"github.com/MrWong99/spokenform/pkg/tokens"
)

// Variants enumerates the serializations of chunk under every combination
// of field orders.
//
// The orderable nodes of the chunk, taken in pre-order, form an odometer:
// the last node varies fastest, and each node steps through the orderings of
// its field positions in lexicographic order starting from the original one.
// The first variant is therefore always the chunk as classified. Nodes that
// preserve their order, and everything below them, are emitted as is.
//
// Each iteration works on its own copy of chunk, so the caller may modify
// chunk while iterating.
func Variants(chunk []tokens.Token) iter.Seq[string] {
	return func(yield func(string) bool) {
		snapshot := make([]tokens.Token, len(chunk))
		for i := range chunk {
			snapshot[i] = chunk[i].Clone()
		}
		e := newEnumerator(snapshot)
		for {
			if !yield(e.serialize()) {
				return
			}
			if !e.advance() {
				return
			}
		}
	}
}

// slot is one orderable node and its current ordering.
type slot struct {
	node  *tokens.Node
	order []int
}

type enumerator struct {
	chunk []tokens.Token
	slots []slot
	index map[*tokens.Node]int
}

func newEnumerator(chunk []tokens.Token) *enumerator {
	e := &enumerator{chunk: chunk, index: make(map[*tokens.Node]int)}
	for i := range chunk {
		stack := []*tokens.Node{&chunk[i].Node}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if n == nil || n.PreserveOrder {
				continue
			}
			if len(n.Fields) > 1 {
				e.index[n] = len(e.slots)
				e.slots = append(e.slots, slot{node: n, order: identity(len(n.Fields))})
			}
			// Push children in reverse so they pop in field order.
			for j := len(n.Fields) - 1; j >= 0; j-- {
				if n.Fields[j].Kind == tokens.Nested {
					stack = append(stack, n.Fields[j].Nested)
				}
			}
		}
	}
	return e
}

func identity(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// nextPermutation advances p to its lexicographic successor and reports
// false, leaving p sorted again, when p was the last permutation.
func nextPermutation(p []int) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		reverse(p)
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	reverse(p[i+1:])
	return true
}

func reverse(p []int) {
	for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
		p[i], p[j] = p[j], p[i]
	}
}

// advance steps the odometer and reports false after the last variant.
func (e *enumerator) advance() bool {
	for i := len(e.slots) - 1; i >= 0; i-- {
		if nextPermutation(e.slots[i].order) {
			return true
		}
	}
	return false
}

func (e *enumerator) order(n *tokens.Node) []int {
	if i, ok := e.index[n]; ok {
		return e.slots[i].order
	}
	return nil
}

// serialize writes the chunk under the current orderings in the same
// format as tokens.Serialize.
func (e *enumerator) serialize() string {
	var b strings.Builder
	for i := range e.chunk {
		if i > 0 {
			b.WriteByte(' ')
		}
		t := &e.chunk[i]
		reordered := tokens.Token{Class: t.Class, Node: e.reorder(&t.Node)}
		tokens.WriteToken(&b, reordered)
	}
	return b.String()
}

// reorder returns a shallow rebuild of n with every orderable node's fields
// in their current order. Untouched subtrees are shared, not copied.
func (e *enumerator) reorder(root *tokens.Node) tokens.Node {
	type frame struct {
		src *tokens.Node
		dst *tokens.Node
	}
	out := tokens.Node{}
	stack := []frame{{src: root, dst: &out}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		f.dst.PreserveOrder = f.src.PreserveOrder
		if f.src.PreserveOrder {
			f.dst.Fields = f.src.Fields
			continue
		}
		ord := e.order(f.src)
		f.dst.Fields = make([]tokens.Field, len(f.src.Fields))
		for j := range f.src.Fields {
			k := j
			if ord != nil {
				k = ord[j]
			}
			field := f.src.Fields[k]
			if field.Kind == tokens.Nested && field.Nested != nil {
				child := &tokens.Node{}
				stack = append(stack, frame{src: field.Nested, dst: child})
				field.Nested = child
			}
			f.dst.Fields[j] = field
		}
	}
	return out
}

// Count returns the number of variants of chunk, saturating like Estimate.
func Count(chunk []tokens.Token) uint64 {
	total := uint64(1)
	for i := range chunk {
		total = mulSat(total, Estimate(&chunk[i].Node))
	}
	return total
}
