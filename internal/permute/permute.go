// Package permute searches field orders of token trees.
//
// The tagged serialization does not record which field order a verbalizer
// expects, so every ordering of every node may have to be tried. Estimate
// counts those orderings, Split keeps them bounded by cutting a sentence
// into chunks, and Variants enumerates them in a fixed order.
package permute

import (
	"errors"
	"fmt"
	"math"

	"github.com/MrWong99/spokenform/pkg/tokens"
)

// ErrBoundExceeded is returned when a single token has more orderings than
// the configured bound allows. It signals a bound that is too small, not
// bad input.
var ErrBoundExceeded = errors.New("permute: permutation bound exceeded")

// DefaultBound is the default maximum number of orderings tried per chunk.
const DefaultBound = 729

func mulSat(a, b uint64) uint64 {
	if a != 0 && b > math.MaxUint64/a {
		return math.MaxUint64
	}
	return a * b
}

func factorial(k int) uint64 {
	f := uint64(1)
	for i := 2; i <= k; i++ {
		f = mulSat(f, uint64(i))
	}
	return f
}

// Estimate returns the number of field orderings of n: k! for its k fields
// times the estimates of its nested nodes, or 1 when n preserves its order.
// The result saturates at math.MaxUint64.
func Estimate(n *tokens.Node) uint64 {
	total := uint64(1)
	stack := []*tokens.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == nil || cur.PreserveOrder {
			continue
		}
		total = mulSat(total, factorial(len(cur.Fields)))
		for _, f := range cur.Fields {
			if f.Kind == tokens.Nested {
				stack = append(stack, f.Nested)
			}
		}
	}
	return total
}

// Split cuts toks into consecutive chunks whose combined estimate stays
// within bound. Chunks are filled greedily left to right and partition toks
// exactly. A token whose own estimate exceeds bound fails the whole call
// with ErrBoundExceeded.
func Split(toks []tokens.Token, bound uint64) ([][]tokens.Token, error) {
	est := make([]uint64, len(toks))
	for i := range toks {
		est[i] = Estimate(&toks[i].Node)
		if est[i] > bound {
			return nil, fmt.Errorf("%w: token %d (%s) has %d orderings, bound is %d",
				ErrBoundExceeded, i, toks[i].Class, est[i], bound)
		}
	}

	var chunks [][]tokens.Token
	var cur []tokens.Token
	p := uint64(1)
	for i, t := range toks {
		if len(cur) > 0 && mulSat(p, est[i]) > bound {
			chunks = append(chunks, cur)
			cur, p = nil, 1
		}
		cur = append(cur, t)
		p = mulSat(p, est[i])
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks, nil
}
