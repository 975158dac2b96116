// Package tokens defines the token tree produced by classification and its
// tagged text serialization.
//
// A serialized sentence is a sequence of tokens separated by single spaces:
//
//	tokens { date { month: "may" day: "5" preserve_order: true } }
//
// Field order is significant. It is the default verbalization order and is
// preserved by both [Parse] and [Serialize].
package tokens

import "github.com/brunoga/deep"

// Kind tells which value a Field holds.
type Kind uint8

const (
	String Kind = iota
	Bool
	Nested
)

// Field is one named value of a Node. Exactly one of Str, Bool or Nested is
// meaningful, selected by Kind.
type Field struct {
	Name   string
	Kind   Kind
	Str    string
	Bool   bool
	Nested *Node
}

// Node is an ordered list of fields. PreserveOrder marks the order as
// required: the node and everything below it are never reordered.
type Node struct {
	Fields        []Field
	PreserveOrder bool
}

// Token is a top-level node tagged with its semiotic class.
type Token struct {
	Class string
	Node
}

// Str returns a string field.
func Str(name, value string) Field { return Field{Name: name, Kind: String, Str: value} }

// Flag returns a boolean field.
func Flag(name string, value bool) Field { return Field{Name: name, Kind: Bool, Bool: value} }

// Sub returns a nested field.
func Sub(name string, fields ...Field) Field {
	return Field{Name: name, Kind: Nested, Nested: &Node{Fields: fields}}
}

// New returns a token of class with the given fields.
func New(class string, fields ...Field) Token {
	return Token{Class: class, Node: Node{Fields: fields}}
}

// Get returns the first field called name.
func (n *Node) Get(name string) (Field, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Clone returns a deep copy of t that shares no memory with it.
func (t Token) Clone() Token {
	return deep.MustCopy(t)
}
