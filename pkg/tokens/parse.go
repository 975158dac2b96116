package tokens

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxDepth is the nesting limit used by Parse.
const DefaultMaxDepth = 16

var (
	// ErrParse wraps every syntax error.
	ErrParse = errors.New("tokens: parse error")

	// ErrTooDeep is returned together with ErrParse when nesting exceeds
	// the parser's limit.
	ErrTooDeep = errors.New("tokens: nesting too deep")
)

// Parser reads the tagged serialization.
type Parser struct {
	// MaxDepth bounds node nesting below a token. Zero means
	// DefaultMaxDepth.
	MaxDepth int
}

// Parse parses s with the default depth limit.
func Parse(s string) ([]Token, error) {
	return Parser{}.Parse(s)
}

// Parse parses a sentence of tokens. Whitespace between lexical items is
// free-form; field order is kept exactly as read.
func (p Parser) Parse(s string) ([]Token, error) {
	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	sc := &scanner{src: s}
	var out []Token
	for {
		sc.skipSpace()
		if sc.eof() {
			return out, nil
		}
		t, err := sc.token(maxDepth)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrParse, s.pos, fmt.Sprintf(format, args...))
}

func (s *scanner) peek() byte {
	s.skipSpace()
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) expect(c byte) error {
	if s.peek() != c {
		return s.errorf("expected %q", c)
	}
	s.pos++
	return nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '-' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (s *scanner) ident() (string, error) {
	s.skipSpace()
	start := s.pos
	for s.pos < len(s.src) && isIdentByte(s.src[s.pos]) {
		s.pos++
	}
	if start == s.pos {
		return "", s.errorf("expected identifier")
	}
	return s.src[start:s.pos], nil
}

func (s *scanner) quoted() (string, error) {
	if err := s.expect('"'); err != nil {
		return "", err
	}
	var b strings.Builder
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch c {
		case '"':
			s.pos++
			return b.String(), nil
		case '\\':
			if s.pos+1 >= len(s.src) {
				return "", s.errorf("dangling escape")
			}
			s.pos++
			c = s.src[s.pos]
		}
		b.WriteByte(c)
		s.pos++
	}
	return "", s.errorf("unterminated string")
}

// token reads `tokens { class { items } }`. Nested nodes are tracked on an
// explicit stack bounded by maxDepth.
func (s *scanner) token(maxDepth int) (Token, error) {
	kw, err := s.ident()
	if err != nil {
		return Token{}, err
	}
	if kw != "tokens" {
		return Token{}, s.errorf("expected \"tokens\", got %q", kw)
	}
	if err := s.expect('{'); err != nil {
		return Token{}, err
	}
	class, err := s.ident()
	if err != nil {
		return Token{}, err
	}
	if err := s.expect('{'); err != nil {
		return Token{}, err
	}

	tok := Token{Class: class}
	stack := []*Node{&tok.Node}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		switch s.peek() {
		case 0:
			return Token{}, s.errorf("unexpected end of input")
		case '}':
			s.pos++
			stack = stack[:len(stack)-1]
			continue
		}

		name, err := s.ident()
		if err != nil {
			return Token{}, err
		}
		switch s.peek() {
		case ':':
			s.pos++
			if s.peek() == '"' {
				v, err := s.quoted()
				if err != nil {
					return Token{}, err
				}
				top.Fields = append(top.Fields, Str(name, v))
				continue
			}
			word, err := s.ident()
			if err != nil {
				return Token{}, err
			}
			var b bool
			switch word {
			case "true":
				b = true
			case "false":
			default:
				return Token{}, s.errorf("expected quoted value or boolean, got %q", word)
			}
			if name == "preserve_order" {
				top.PreserveOrder = b
				continue
			}
			top.Fields = append(top.Fields, Flag(name, b))
		case '{':
			s.pos++
			// stack holds the token root plus one node per nesting level.
			if len(stack) > maxDepth {
				return Token{}, fmt.Errorf("%w: %w: limit %d at offset %d", ErrParse, ErrTooDeep, maxDepth, s.pos)
			}
			child := &Node{}
			top.Fields = append(top.Fields, Field{Name: name, Kind: Nested, Nested: child})
			stack = append(stack, child)
		default:
			return Token{}, s.errorf("expected ':' or '{' after %q", name)
		}
	}
	if err := s.expect('}'); err != nil {
		return Token{}, err
	}
	return tok, nil
}
