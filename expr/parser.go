package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
)

// ErrSyntax is wrapped by every error Parse returns.
var ErrSyntax = errors.New("expr: syntax error")

// maxDepth bounds nesting so hostile input cannot exhaust the stack.
const maxDepth = 200

type parser struct {
	s     scanner.Scanner
	tok   rune
	text  string
	pos   scanner.Position
	depth int
	errs  []string
}

// Parse turns src into a syntax tree. It does not resolve names; an unknown
// identifier is only reported when the tree is compiled.
func Parse(src string) (Node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	p := &parser{}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats
	p.s.Error = func(_ *scanner.Scanner, msg string) { p.errs = append(p.errs, msg) }
	p.next()

	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok != scanner.EOF {
		return nil, p.errorf("unexpected %q", p.text)
	}
	if len(p.errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrSyntax, p.errs[0])
	}
	return n, nil
}

// MustParse is like Parse but panics on error. Intended for tests and tables.
func MustParse(src string) Node {
	n, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return n
}

func (p *parser) next() {
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
	p.pos = p.s.Position
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w at column %d: %s", ErrSyntax, p.pos.Column, fmt.Sprintf(format, args...))
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return p.errorf("expression nested too deeply")
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

// expr := term (('+' | '-') term)*
func (p *parser) parseExpr() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.tok == '+' || p.tok == '-' {
		op := OpAdd
		if p.tok == '-' {
			op = OpSub
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// term := unary (('*' | '/' | '//' | '%') unary)*
func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch {
		case p.tok == '*' && p.s.Peek() != '*':
			op = OpMul
		case p.tok == '/' && p.s.Peek() == '/':
			p.next()
			op = OpFloorDiv
		case p.tok == '/':
			op = OpDiv
		case p.tok == '%':
			op = OpMod
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

// unary := ('+' | '-') unary | power
func (p *parser) parseUnary() (Node, error) {
	if p.tok == '-' || p.tok == '+' {
		op := OpNeg
		if p.tok == '+' {
			op = OpPos
		}
		p.next()
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Operand: operand}, nil
	}
	return p.parsePower()
}

// power := primary ('**' unary)?
//
// The exponent binds tighter than a leading minus on the left (-x**2 is
// -(x**2)) and is right associative.
func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	switch {
	case p.tok == '*' && p.s.Peek() == '*':
		p.next()
	case p.tok == '^':
	default:
		return base, nil
	}
	p.next()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: OpPow, Left: base, Right: exp}, nil
}

// primary := number | name ('(' args ')')? | '(' expr ')'
func (p *parser) parsePrimary() (Node, error) {
	switch p.tok {
	case scanner.Int, scanner.Float:
		v, err := strconv.ParseFloat(p.text, 64)
		if err != nil {
			return nil, p.errorf("bad number %q", p.text)
		}
		p.next()
		return &Number{Value: v}, nil

	case scanner.Ident:
		id := Ident{Name: p.text}
		p.next()
		if p.tok == '.' {
			p.next()
			if p.tok != scanner.Ident {
				return nil, p.errorf("expected name after %q", id.Name+".")
			}
			id = Ident{Qualifier: id.Name, Name: p.text}
			p.next()
		}
		if p.tok != '(' {
			return &id, nil
		}
		p.next()
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &Call{Func: id, Args: args}, nil

	case '(':
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok != ')' {
			return nil, p.errorf("expected ')'")
		}
		p.next()
		return inner, nil

	case scanner.EOF:
		return nil, p.errorf("unexpected end of expression")
	}
	return nil, p.errorf("unexpected %q", p.text)
}

func (p *parser) parseArgs() ([]Node, error) {
	if p.tok == ')' {
		p.next()
		return nil, nil
	}
	var args []Node
	for {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		switch p.tok {
		case ',':
			p.next()
		case ')':
			p.next()
			return args, nil
		default:
			return nil, p.errorf("expected ',' or ')' in argument list")
		}
	}
}
