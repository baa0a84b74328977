package montecarlo

import (
	"sort"

	"github.com/njchilds90/montecarlo/expr"
)

// Program is an expression compiled for repeated evaluation under the
// two-tier policy: the Strict namespace first, then Lenient.
type Program struct {
	src             string
	vars            []string
	strict, lenient *expr.Program
	err             error
}

// Compile parses src once and resolves it against both namespaces. It never
// fails; an expression that cannot be compiled yields a Program whose every
// evaluation reports the compile error.
func Compile(src string, vars ...string) *Program {
	p := &Program{src: src, vars: append([]string(nil), vars...)}
	n, err := expr.Parse(src)
	if err != nil {
		p.err = err
		return p
	}
	if p.strict, err = expr.CompileNode(n, expr.Strict, vars...); err != nil {
		p.err = err
	}
	if p.lenient, err = expr.CompileNode(n, expr.Lenient, vars...); err != nil && p.err == nil {
		p.err = err
	}
	return p
}

// Eval evaluates with the Strict namespace and retries once with Lenient.
// The error is the first failure seen.
func (p *Program) Eval(vals ...float64) (float64, error) {
	first := p.err
	for _, tier := range []*expr.Program{p.strict, p.lenient} {
		if tier == nil {
			continue
		}
		v, err := tier.Eval(vals...)
		if err == nil {
			return v, nil
		}
		if first == nil {
			first = err
		}
	}
	return 0, first
}

// Value is Eval with every failure mapped to 0.
func (p *Program) Value(vals ...float64) float64 {
	v, err := p.Eval(vals...)
	if err != nil {
		return 0
	}
	return v
}

// Err reports why the expression could not be compiled under either
// namespace, or nil when at least one tier compiled.
func (p *Program) Err() error {
	if p.strict != nil || p.lenient != nil {
		return nil
	}
	return p.err
}

func (p *Program) String() string { return p.src }

// Evaluate computes src with the given variable bindings. Any failure yields
// 0; it never returns an error.
func Evaluate(src string, vars map[string]float64) float64 {
	v, err := EvaluateErr(src, vars)
	if err != nil {
		return 0
	}
	return v
}

// EvaluateErr is Evaluate that also reports why an evaluation failed.
func EvaluateErr(src string, vars map[string]float64) (float64, error) {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	vals := make([]float64, len(names))
	for i, k := range names {
		vals[i] = vars[k]
	}
	return Compile(src, names...).Eval(vals...)
}
