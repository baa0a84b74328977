package symbolic

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/njchilds90/montecarlo/expr"
)

// ErrUnsupported is returned by FromNode for syntax or names that have no
// symbolic counterpart (floor division, modulo, floor, min, ...).
var ErrUnsupported = errors.New("symbolic: unsupported construct")

type converter func(args []Expr) (Expr, bool)

func unary(f func(Expr) Expr) converter {
	return func(args []Expr) (Expr, bool) {
		if len(args) != 1 {
			return nil, false
		}
		return f(args[0]), true
	}
}

func logBase(base Expr) func(Expr) Expr {
	return func(u Expr) Expr { return MulOf(LnOf(u), PowOf(LnOf(base), N(-1))) }
}

// renames maps canonical evaluator names onto kernel constructors.
// log10(u) becomes ln(u)/ln(10), sqrt(u) becomes u^(1/2) and so on.
var renames = map[string]converter{
	"sin":   unary(SinOf),
	"cos":   unary(CosOf),
	"tan":   unary(TanOf),
	"asin":  unary(AsinOf),
	"acos":  unary(AcosOf),
	"atan":  unary(AtanOf),
	"sinh":  unary(SinhOf),
	"cosh":  unary(CoshOf),
	"tanh":  unary(TanhOf),
	"exp":   unary(ExpOf),
	"ln":    unary(LnOf),
	"sqrt":  unary(SqrtOf),
	"fabs":  unary(AbsOf),
	"log10": unary(logBase(N(10))),
	"log2":  unary(logBase(N(2))),
	"log": func(args []Expr) (Expr, bool) {
		switch len(args) {
		case 1:
			return LnOf(args[0]), true
		case 2:
			return logBase(args[1])(args[0]), true
		}
		return nil, false
	},
	"pow": func(args []Expr) (Expr, bool) {
		if len(args) != 2 {
			return nil, false
		}
		return PowOf(args[0], args[1]), true
	},
}

// builtinRenames are host built-ins that have an exact counterpart.
var builtinRenames = map[string]converter{
	"abs": unary(AbsOf),
}

var constRenames = map[string]Expr{
	"pi":  Pi,
	"π":   Pi,
	"e":   E,
	"tau": MulOf(N(2), Pi),
}

// FromNode converts a parsed expression into a kernel expression. Names in
// vars become symbols; everything else must be a whitelisted math name with
// a symbolic counterpart.
func FromNode(n expr.Node, vars ...string) (Expr, error) {
	bound := make(map[string]bool, len(vars))
	for _, v := range vars {
		bound[v] = true
	}
	return fromNode(n, bound)
}

// Parse is FromNode over source text.
func Parse(src string, vars ...string) (Expr, error) {
	n, err := expr.Parse(src)
	if err != nil {
		return nil, err
	}
	return FromNode(n, vars...)
}

func fromNode(n expr.Node, bound map[string]bool) (Expr, error) {
	switch v := n.(type) {
	case *expr.Number:
		return exactNumber(v.Value)

	case *expr.Ident:
		if v.Qualifier == "" && bound[v.Name] {
			return S(v.Name), nil
		}
		if name, ok := expr.CanonicalName(*v); ok {
			if c, ok := constRenames[name]; ok {
				return c, nil
			}
		}
		return nil, fmt.Errorf("%w: name %s", ErrUnsupported, v)

	case *expr.Unary:
		x, err := fromNode(v.Operand, bound)
		if err != nil {
			return nil, err
		}
		if v.Op == expr.OpNeg {
			return MulOf(N(-1), x), nil
		}
		return x, nil

	case *expr.Binary:
		l, err := fromNode(v.Left, bound)
		if err != nil {
			return nil, err
		}
		r, err := fromNode(v.Right, bound)
		if err != nil {
			return nil, err
		}
		switch v.Op {
		case expr.OpAdd:
			return AddOf(l, r), nil
		case expr.OpSub:
			return AddOf(l, MulOf(N(-1), r)), nil
		case expr.OpMul:
			return MulOf(l, r), nil
		case expr.OpDiv:
			if rn, ok := r.(*Num); ok && rn.IsZero() {
				return nil, fmt.Errorf("%w: division by zero", ErrUnsupported)
			}
			return MulOf(l, PowOf(r, N(-1))), nil
		case expr.OpPow:
			return PowOf(l, r), nil
		}
		return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, v.Op)

	case *expr.Call:
		conv, ok := lookupConverter(v.Func)
		if !ok {
			return nil, fmt.Errorf("%w: function %s", ErrUnsupported, &v.Func)
		}
		args := make([]Expr, len(v.Args))
		for i, a := range v.Args {
			x, err := fromNode(a, bound)
			if err != nil {
				return nil, err
			}
			args[i] = x
		}
		out, ok := conv(args)
		if !ok {
			return nil, fmt.Errorf("%w: %s with %d arguments", ErrUnsupported, &v.Func, len(args))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: node %T", ErrUnsupported, n)
}

func lookupConverter(id expr.Ident) (converter, bool) {
	if name, ok := expr.CanonicalName(id); ok {
		c, ok := renames[name]
		return c, ok
	}
	if id.Qualifier == "" {
		c, ok := builtinRenames[id.Name]
		return c, ok
	}
	return nil, false
}

// exactNumber reads a literal through its shortest decimal form so that
// 0.1 becomes 1/10 rather than the nearest binary fraction.
func exactNumber(f float64) (Expr, error) {
	if _, ok := numFromFloat(f); !ok {
		return nil, fmt.Errorf("%w: literal %v", ErrUnsupported, f)
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if !ok {
		return NFloat(f), nil
	}
	return &Num{val: r}, nil
}
