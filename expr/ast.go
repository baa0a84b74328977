// Package expr parses the small formula language accepted by the Monte Carlo
// engine and evaluates it over a fixed set of bound variables.
//
// The grammar is a subset of the usual calculator syntax:
//   - numeric literals (1, 2.5, .5, 1e-3)
//   - identifiers, optionally qualified by a namespace: x, pi, math.sin, np.exp
//   - unary + and -
//   - binary + - * / // % and ** (^ is accepted as a synonym for **)
//   - calls with one or more comma separated arguments
//
// Nothing outside the whitelist in namespace.go can be resolved, so a formula
// can never reach anything but arithmetic.
package expr

import (
	"strconv"
	"strings"
)

// ============================================================
// Operators
// ============================================================

type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpNeg
	OpPos
)

var opText = map[Op]string{
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpDiv:      "/",
	OpFloorDiv: "//",
	OpMod:      "%",
	OpPow:      "**",
	OpNeg:      "-",
	OpPos:      "+",
}

func (o Op) String() string { return opText[o] }

// ============================================================
// Nodes
// ============================================================

// Node is a parsed sub-expression.
type Node interface {
	String() string
	node()
}

// Number is a numeric literal.
type Number struct {
	Value float64
}

// Ident is a possibly qualified name such as x, pi or math.sin.
type Ident struct {
	Qualifier string
	Name      string
}

// Unary applies OpNeg or OpPos to its operand.
type Unary struct {
	Op      Op
	Operand Node
}

// Binary applies an arithmetic operator to two operands.
type Binary struct {
	Op          Op
	Left, Right Node
}

// Call applies a named function to its arguments.
type Call struct {
	Func Ident
	Args []Node
}

func (*Number) node() {}
func (*Ident) node()  {}
func (*Unary) node()  {}
func (*Binary) node() {}
func (*Call) node()   {}

func (n *Number) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }

func (id *Ident) String() string {
	if id.Qualifier == "" {
		return id.Name
	}
	return id.Qualifier + "." + id.Name
}

func (u *Unary) String() string { return u.Op.String() + wrap(u.Operand) }

func (b *Binary) String() string {
	return wrap(b.Left) + " " + b.Op.String() + " " + wrap(b.Right)
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Func.String() + "(" + strings.Join(args, ", ") + ")"
}

func wrap(n Node) string {
	switch n.(type) {
	case *Binary, *Unary:
		return "(" + n.String() + ")"
	}
	return n.String()
}

// Walk calls fn for n and every node below it, parents first.
func Walk(n Node, fn func(Node)) {
	fn(n)
	switch v := n.(type) {
	case *Unary:
		Walk(v.Operand, fn)
	case *Binary:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
	case *Call:
		for _, a := range v.Args {
			Walk(a, fn)
		}
	}
}
