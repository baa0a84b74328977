package expr

import (
	"fmt"
	"math"
)

type evalFn func(vals []float64) (float64, error)

// Program is a compiled expression bound to an ordered list of variables.
// It is immutable and safe for concurrent use.
type Program struct {
	src  string
	ns   Namespace
	vars []string
	eval evalFn
}

// Compile parses src and resolves every name against ns and vars. The
// returned Program takes variable values in the order vars were given.
func Compile(src string, ns Namespace, vars ...string) (*Program, error) {
	n, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return CompileNode(n, ns, vars...)
}

// CompileNode is Compile for an already parsed tree.
func CompileNode(n Node, ns Namespace, vars ...string) (*Program, error) {
	c := &compiler{ns: ns, slots: make(map[string]int, len(vars))}
	for i, v := range vars {
		c.slots[v] = i
	}
	fn, err := c.compile(n)
	if err != nil {
		return nil, err
	}
	return &Program{src: n.String(), ns: ns, vars: append([]string(nil), vars...), eval: fn}, nil
}

// Eval evaluates the program. vals must line up with the variables the
// program was compiled with. Any non-finite intermediate result is reported
// as ErrDomain.
func (p *Program) Eval(vals ...float64) (float64, error) {
	if len(vals) != len(p.vars) {
		return 0, fmt.Errorf("%w: program takes %d variables, got %d", ErrArity, len(p.vars), len(vals))
	}
	return p.eval(vals)
}

// Vars returns the variable names in slot order.
func (p *Program) Vars() []string { return append([]string(nil), p.vars...) }

// Namespace reports the namespace the program was resolved against.
func (p *Program) Namespace() Namespace { return p.ns }

func (p *Program) String() string { return p.src }

type compiler struct {
	ns    Namespace
	slots map[string]int
}

func finite(op string, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s produced %v", ErrDomain, op, v)
	}
	return v, nil
}

func (c *compiler) compile(n Node) (evalFn, error) {
	switch v := n.(type) {
	case *Number:
		val := v.Value
		return func([]float64) (float64, error) { return val, nil }, nil

	case *Ident:
		if v.Qualifier == "" {
			if slot, ok := c.slots[v.Name]; ok {
				return func(vals []float64) (float64, error) { return vals[slot], nil }, nil
			}
		}
		if val, ok := c.ns.lookupConst(*v); ok {
			return func([]float64) (float64, error) { return val, nil }, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownName, v)

	case *Unary:
		operand, err := c.compile(v.Operand)
		if err != nil {
			return nil, err
		}
		if v.Op == OpPos {
			return operand, nil
		}
		return func(vals []float64) (float64, error) {
			x, err := operand(vals)
			if err != nil {
				return 0, err
			}
			return -x, nil
		}, nil

	case *Binary:
		left, err := c.compile(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.compile(v.Right)
		if err != nil {
			return nil, err
		}
		apply := binaryOps[v.Op]
		op := v.Op.String()
		return func(vals []float64) (float64, error) {
			a, err := left(vals)
			if err != nil {
				return 0, err
			}
			b, err := right(vals)
			if err != nil {
				return 0, err
			}
			r, err := apply(a, b)
			if err != nil {
				return 0, err
			}
			return finite(op, r)
		}, nil

	case *Call:
		f, ok := c.ns.lookupFunc(v.Func)
		if !ok {
			if _, isVar := c.slots[v.Func.Name]; isVar || c.isConst(v.Func) {
				return nil, fmt.Errorf("%w: %s is not callable", ErrUnknownName, &v.Func)
			}
			return nil, fmt.Errorf("%w: %s", ErrUnknownName, &v.Func)
		}
		if len(v.Args) < f.minArgs || (f.maxArgs >= 0 && len(v.Args) > f.maxArgs) {
			return nil, fmt.Errorf("%w: %s takes %s, got %d", ErrArity, &v.Func, arityText(f), len(v.Args))
		}
		args := make([]evalFn, len(v.Args))
		for i, a := range v.Args {
			fn, err := c.compile(a)
			if err != nil {
				return nil, err
			}
			args[i] = fn
		}
		name := v.Func.String()
		return func(vals []float64) (float64, error) {
			in := make([]float64, len(args))
			for i, a := range args {
				x, err := a(vals)
				if err != nil {
					return 0, err
				}
				in[i] = x
			}
			r, err := f.fn(in)
			if err != nil {
				return 0, err
			}
			return finite(name, r)
		}, nil
	}
	return nil, fmt.Errorf("%w: unsupported node %T", ErrSyntax, n)
}

func (c *compiler) isConst(id Ident) bool {
	_, ok := c.ns.lookupConst(id)
	return ok
}

func arityText(f function) string {
	switch {
	case f.maxArgs < 0:
		return fmt.Sprintf("at least %d arguments", f.minArgs)
	case f.minArgs == f.maxArgs && f.minArgs == 1:
		return "1 argument"
	case f.minArgs == f.maxArgs:
		return fmt.Sprintf("%d arguments", f.minArgs)
	}
	return fmt.Sprintf("%d to %d arguments", f.minArgs, f.maxArgs)
}

var binaryOps = map[Op]func(a, b float64) (float64, error){
	OpAdd: func(a, b float64) (float64, error) { return a + b, nil },
	OpSub: func(a, b float64) (float64, error) { return a - b, nil },
	OpMul: func(a, b float64) (float64, error) { return a * b, nil },
	OpDiv: func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("%w: division by zero", ErrDomain)
		}
		return a / b, nil
	},
	OpFloorDiv: func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("%w: division by zero", ErrDomain)
		}
		return math.Floor(a / b), nil
	},
	// Modulo takes the sign of the divisor.
	OpMod: func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("%w: modulo by zero", ErrDomain)
		}
		r := math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return r, nil
	},
	OpPow: func(a, b float64) (float64, error) {
		if a == 0 && b < 0 {
			return 0, fmt.Errorf("%w: zero to a negative power", ErrDomain)
		}
		return math.Pow(a, b), nil
	},
}
