package tokens

import "strings"

var valueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Serialize renders tokens in the tagged format. It is the inverse of Parse.
// Double quotes and backslashes inside string values are escaped with a
// backslash.
func Serialize(toks []Token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 {
			b.WriteByte(' ')
		}
		WriteToken(&b, t)
	}
	return b.String()
}

// WriteToken renders a single token.
func WriteToken(b *strings.Builder, t Token) {
	b.WriteString("tokens { ")
	b.WriteString(t.Class)
	b.WriteString(" { ")
	writeItems(b, &t.Node)
	b.WriteString("} }")
}

// writeItems renders the fields of n, each followed by a space. Nested
// nodes are expanded with an explicit stack so depth never grows the Go
// stack.
func writeItems(b *strings.Builder, n *Node) {
	type frame struct {
		node *Node
		next int
	}
	stack := []frame{{node: n}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.node.Fields) {
			if top.node.PreserveOrder {
				b.WriteString("preserve_order: true ")
			}
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				b.WriteString("} ")
			}
			continue
		}
		f := top.node.Fields[top.next]
		top.next++
		switch f.Kind {
		case String:
			b.WriteString(f.Name)
			b.WriteString(`: "`)
			valueEscaper.WriteString(b, f.Str)
			b.WriteString(`" `)
		case Bool:
			b.WriteString(f.Name)
			if f.Bool {
				b.WriteString(": true ")
			} else {
				b.WriteString(": false ")
			}
		case Nested:
			b.WriteString(f.Name)
			b.WriteString(" { ")
			child := f.Nested
			if child == nil {
				child = &Node{}
			}
			stack = append(stack, frame{node: child})
		}
	}
}
