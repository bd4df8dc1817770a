package formula

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// Expression is a compiled variable reference or arithmetic formula
type Expression struct {
	source string
	root   node
	refs   []string
}

// Compile parses a reference. A bare name or [bracketed] name is a simple
// reference; anything else is treated as a formula over + - * / and
// parentheses.
func Compile(expr string) (*Expression, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	if p.peek().kind == tokEOF {
		return nil, fmt.Errorf("empty expression")
	}

	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at position %d", tok.text, tok.pos)
	}

	return &Expression{source: expr, root: root, refs: collectRefs(tokens)}, nil
}

// Eval evaluates the expression against a statistics record. A simple
// reference returns the raw looked-up value, so string statistics survive;
// inside arithmetic every operand is coerced to a number.
func (e *Expression) Eval(stats Stats) Value {
	if id, ok := e.root.(identNode); ok {
		return stats.Lookup(id.name)
	}
	return e.root.eval(stats)
}

// References returns the variable names used, in first-seen order
func (e *Expression) References() []string {
	out := make([]string, len(e.refs))
	copy(out, e.refs)
	return out
}

// IsSimple reports whether the expression is a single variable lookup
func (e *Expression) IsSimple() bool {
	_, ok := e.root.(identNode)
	return ok
}

func (e *Expression) String() string {
	return e.source
}

// Evaluate compiles and evaluates in one step, reporting parse failures
func Evaluate(expr string, stats Stats) (Value, error) {
	compiled, err := Compile(expr)
	if err != nil {
		return NA(), err
	}
	return compiled.Eval(stats), nil
}

// Resolve evaluates a reference and never fails: anything that cannot be
// parsed or computed is NA.
func Resolve(ref string, stats Stats) Value {
	v, err := Evaluate(ref, stats)
	if err != nil {
		return NA()
	}
	return v
}

// References lists the variable names a reference depends on. Unparseable
// references depend on nothing.
func References(ref string) []string {
	compiled, err := Compile(ref)
	if err != nil {
		return nil
	}
	return compiled.refs
}

func collectRefs(tokens []token) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, tok := range tokens {
		if tok.kind == tokIdent && !seen[tok.text] {
			seen[tok.text] = true
			refs = append(refs, tok.text)
		}
	}
	return refs
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func tokenize(expr string) ([]token, error) {
	runes := []rune(expr)
	var tokens []token

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '+' || r == '-' || r == '*' || r == '/':
			tokens = append(tokens, token{kind: tokOp, text: string(r), pos: i})
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == '[':
			end := i + 1
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			if end >= len(runes) {
				return nil, fmt.Errorf("unterminated variable at position %d", i)
			}
			name := strings.TrimSpace(string(runes[i+1 : end]))
			if name == "" {
				return nil, fmt.Errorf("empty variable at position %d", i)
			}
			tokens = append(tokens, token{kind: tokIdent, text: name, pos: i})
			i = end + 1
		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q at position %d", text, start)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, num: num, pos: start})
		case isIdentStart(r):
			start := i
			for i < len(runes) && isIdentPart(runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[start:i]), pos: start})
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", r, i)
		}
	}

	tokens = append(tokens, token{kind: tokEOF, pos: len(runes)})
	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

// expr := term (('+' | '-') term)*
func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.text[0], left: left, right: right}
	}
}

// term := unary (('*' | '/') unary)*
func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.text[0], left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	tok := p.peek()
	if tok.kind == tokOp && (tok.text == "-" || tok.text == "+") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{negate: tok.text == "-", operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return numberNode{value: tok.num}, nil
	case tokIdent:
		return identNode{name: tok.text}, nil
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis at position %d", closing.pos)
		}
		return inner, nil
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected %q at position %d", tok.text, tok.pos)
	}
}

type node interface {
	eval(stats Stats) Value
}

type numberNode struct {
	value float64
}

func (n numberNode) eval(Stats) Value {
	return Number(n.value)
}

type identNode struct {
	name string
}

func (n identNode) eval(stats Stats) Value {
	return stats.Lookup(n.name).Coerce()
}

type unaryNode struct {
	negate  bool
	operand node
}

func (n unaryNode) eval(stats Stats) Value {
	v, ok := n.operand.eval(stats).AsFloat()
	if !ok {
		return NA()
	}
	if n.negate {
		return Number(-v)
	}
	return Number(v)
}

type binaryNode struct {
	op          byte
	left, right node
}

func (n binaryNode) eval(stats Stats) Value {
	l, ok := n.left.eval(stats).AsFloat()
	if !ok {
		return NA()
	}
	r, ok := n.right.eval(stats).AsFloat()
	if !ok {
		return NA()
	}

	switch n.op {
	case '+':
		return Number(l + r)
	case '-':
		return Number(l - r)
	case '*':
		return Number(l * r)
	case '/':
		if r == 0 {
			return NA()
		}
		return Number(l / r)
	default:
		return NA()
	}
}
