package symbolic

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ============================================================
// Integration (rule-based)
// ============================================================

// Integrate returns an antiderivative of expr with respect to varName.
// ok is false when no rule applies; the caller must not guess in that case.
//
// Supported shapes are polynomials, constant multiples, sums, products and
// integer powers that expand to polynomials, and the elementary functions
// of a linear argument (sin(2x+1), exp(-x), (3x-1)^-2, ...). On top of
// those it knows:
//
//   - products and squares of sin and cos of linear arguments, by the
//     product-to-sum identities
//   - x^n times sin, cos, exp, sinh or cosh of a linear argument, by parts
//   - the reciprocal of a quadratic with no real roots, as an arctangent
//
// Everything else is unknown, including rational functions that need
// partial fractions, products of two transcendental factors other than
// sin and cos (exp(x)*sin(x)), x^n times a logarithm or inverse
// trigonometric function, and any function of a non-linear argument.
func Integrate(expr Expr, varName string) (Expr, bool) {
	expr = expr.Simplify()
	if !DependsOn(expr, varName) {
		return MulOf(expr, S(varName)), true
	}
	switch v := expr.(type) {
	case *Sym:
		return MulOf(F(1, 2), PowOf(S(varName), N(2))), true

	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			intT, ok := Integrate(t, varName)
			if !ok {
				return nil, false
			}
			terms[i] = intT
		}
		return AddOf(terms...), true

	case *Mul:
		consts := []Expr{}
		rest := []Expr{}
		for _, f := range v.factors {
			if DependsOn(f, varName) {
				rest = append(rest, f)
			} else {
				consts = append(consts, f)
			}
		}
		if len(consts) > 0 {
			var inner Expr
			if len(rest) == 1 {
				inner = rest[0]
			} else {
				inner = &Mul{factors: rest}
			}
			intInner, ok := Integrate(inner, varName)
			if !ok {
				return nil, false
			}
			return MulOf(append(consts, intInner)...), true
		}
		if len(v.factors) == 2 {
			if anti, ok := integrateProduct(v.factors[0], v.factors[1], varName); ok {
				return anti, true
			}
		}
		return integrateExpanded(v, varName)

	case *Pow:
		return integratePow(v, varName)

	case *Func:
		return integrateFunc(v, varName)
	}
	return nil, false
}

// integrateExpanded retries after distributing products and integer powers.
func integrateExpanded(e Expr, varName string) (Expr, bool) {
	expanded := Expand(e)
	if expanded.Equal(e) {
		return nil, false
	}
	if _, ok := expanded.(*Add); !ok {
		return nil, false
	}
	return Integrate(expanded, varName)
}

// linearSlope returns du/dx when u is linear in varName with a nonzero,
// x-free slope.
func linearSlope(u Expr, varName string) (Expr, bool) {
	k := Diff(u, varName)
	if DependsOn(k, varName) {
		return nil, false
	}
	if n, ok := k.(*Num); ok && n.IsZero() {
		return nil, false
	}
	return k, true
}

func over(e, k Expr) Expr { return MulOf(e, PowOf(k, N(-1))) }

func integratePow(p *Pow, varName string) (Expr, bool) {
	baseDep := DependsOn(p.base, varName)
	expDep := DependsOn(p.exp, varName)

	switch {
	case baseDep && !expDep:
		if k, ok := linearSlope(p.base, varName); ok {
			if n, ok := p.exp.(*Num); ok && n.IsNegOne() {
				return over(LnOf(AbsOf(p.base)), k), true
			}
			newExp := AddOf(p.exp, N(1))
			return over(PowOf(p.base, newExp), MulOf(newExp, k)), true
		}
		n, ok := p.exp.(*Num)
		if !ok {
			break
		}
		if n.Equal(N(2)) {
			if anti, ok := productToSum(p.base, p.base, varName); ok {
				return anti, true
			}
		}
		if n.IsNegOne() {
			return reciprocalQuadratic(p.base, varName)
		}
		if n.IsInteger() && n.IsPositive() {
			return integrateExpanded(p, varName)
		}

	case !baseDep && expDep:
		if k, ok := linearSlope(p.exp, varName); ok {
			return over(p, MulOf(LnOf(p.base), k)), true
		}
	}
	return nil, false
}

// integrateProduct handles a product of exactly two x-dependent factors.
func integrateProduct(f, g Expr, varName string) (Expr, bool) {
	if anti, ok := productToSum(f, g, varName); ok {
		return anti, true
	}
	if anti, ok := byParts(f, g, varName); ok {
		return anti, true
	}
	return byParts(g, f, varName)
}

// productToSum rewrites sin(u)cos(v), sin(u)sin(v) and cos(u)cos(v) with
// linear u and v as a sum of single sines and cosines.
func productToSum(f, g Expr, varName string) (Expr, bool) {
	ff, ok1 := f.(*Func)
	gf, ok2 := g.(*Func)
	if !ok1 || !ok2 {
		return nil, false
	}
	if ff.name == "cos" && gf.name == "sin" {
		ff, gf = gf, ff
	}
	u, v := ff.arg, gf.arg
	if _, ok := linearSlope(u, varName); !ok {
		return nil, false
	}
	if _, ok := linearSlope(v, varName); !ok {
		return nil, false
	}
	sum := AddOf(u, v)
	diff := AddOf(u, MulOf(N(-1), v))
	var rewritten Expr
	switch {
	case ff.name == "sin" && gf.name == "cos":
		rewritten = MulOf(F(1, 2), AddOf(SinOf(sum), SinOf(diff)))
	case ff.name == "sin" && gf.name == "sin":
		rewritten = MulOf(F(1, 2), AddOf(CosOf(diff), MulOf(N(-1), CosOf(sum))))
	case ff.name == "cos" && gf.name == "cos":
		rewritten = MulOf(F(1, 2), AddOf(CosOf(diff), CosOf(sum)))
	default:
		return nil, false
	}
	return Integrate(Expand(rewritten), varName)
}

// maxPartsDegree caps the power of x reduced by repeated integration by parts.
const maxPartsDegree = 10

// byParts integrates x^n * g(u) for a linear u as x^n*G - ∫ n*x^(n-1)*G,
// where G is an antiderivative of g. Each step lowers n by one.
func byParts(p, g Expr, varName string) (Expr, bool) {
	if !isMonomial(p, varName) {
		return nil, false
	}
	gf, ok := g.(*Func)
	if !ok {
		return nil, false
	}
	switch gf.name {
	case "sin", "cos", "exp", "sinh", "cosh":
	default:
		return nil, false
	}
	ga, ok := integrateFunc(gf, varName)
	if !ok {
		return nil, false
	}
	rest, ok := Integrate(MulOf(Diff(p, varName), ga), varName)
	if !ok {
		return nil, false
	}
	return AddOf(MulOf(p, ga), MulOf(N(-1), rest)), true
}

// isMonomial reports whether e is x or x^n for a positive integer n no
// larger than maxPartsDegree.
func isMonomial(e Expr, varName string) bool {
	switch v := e.(type) {
	case *Sym:
		return v.name == varName
	case *Pow:
		s, ok := v.base.(*Sym)
		if !ok || s.name != varName {
			return false
		}
		n, ok := v.exp.(*Num)
		return ok && n.IsInteger() && n.IsPositive() && n.Float64() <= maxPartsDegree
	}
	return false
}

// reciprocalQuadratic integrates 1/(a*x^2 + b*x + c) when 4ac - b^2 > 0:
//
//	2/sqrt(4ac - b^2) * atan((2ax + b)/sqrt(4ac - b^2))
func reciprocalQuadratic(q Expr, varName string) (Expr, bool) {
	d1 := Diff(q, varName)
	d2 := Diff(d1, varName)
	if DependsOn(d2, varName) {
		return nil, false
	}
	twoA, ok := d2.Eval()
	if !ok || twoA.IsZero() {
		return nil, false
	}
	b, ok := Sub(d1, varName, N(0)).Eval()
	if !ok {
		return nil, false
	}
	c, ok := Sub(q, varName, N(0)).Eval()
	if !ok {
		return nil, false
	}
	a := numMul(twoA, F(1, 2))
	x := S(varName)
	quad := AddOf(MulOf(a, PowOf(x, N(2))), MulOf(b, x), c)
	if rem, ok := Expand(AddOf(q, MulOf(N(-1), quad))).(*Num); !ok || !rem.IsZero() {
		return nil, false
	}
	disc := numAdd(numMul(N(4), numMul(a, c)), numMul(N(-1), numMul(b, b)))
	if !disc.IsPositive() {
		return nil, false
	}
	r := SqrtOf(disc)
	u := over(AddOf(MulOf(twoA, x), b), r)
	return MulOf(N(2), PowOf(r, N(-1)), AtanOf(u)), true
}

func integrateFunc(f *Func, varName string) (Expr, bool) {
	u := f.arg
	k, ok := linearSlope(u, varName)
	if !ok {
		return nil, false
	}
	var anti Expr
	switch f.name {
	case "sin":
		anti = MulOf(N(-1), CosOf(u))
	case "cos":
		anti = SinOf(u)
	case "tan":
		anti = MulOf(N(-1), LnOf(AbsOf(CosOf(u))))
	case "exp":
		anti = ExpOf(u)
	case "sinh":
		anti = CoshOf(u)
	case "cosh":
		anti = SinhOf(u)
	case "tanh":
		anti = LnOf(CoshOf(u))
	case "ln":
		anti = AddOf(MulOf(u, LnOf(u)), MulOf(N(-1), u))
	case "asin":
		anti = AddOf(MulOf(u, AsinOf(u)), SqrtOf(AddOf(N(1), MulOf(N(-1), PowOf(u, N(2))))))
	case "acos":
		anti = AddOf(MulOf(u, AcosOf(u)), MulOf(N(-1), SqrtOf(AddOf(N(1), MulOf(N(-1), PowOf(u, N(2)))))))
	case "atan":
		anti = AddOf(MulOf(u, AtanOf(u)), MulOf(F(-1, 2), LnOf(AddOf(N(1), PowOf(u, N(2))))))
	case "abs":
		anti = MulOf(F(1, 2), u, AbsOf(u))
	default:
		return nil, false
	}
	return over(anti, k), true
}

// ============================================================
// Definite integrals
// ============================================================

// scanPoints is the grid used to look for poles and domain violations.
const scanPoints = 1024

// Definite evaluates ∫[a,b] expr d(varName) in closed form as F(b) - F(a).
// ok is false when no antiderivative is known, when the integrand has a
// pole or leaves its real domain inside [a,b], or when the result is not
// finite.
func Definite(expr Expr, varName string, a, b float64) (float64, bool) {
	anti, ok := Integrate(expr, varName)
	if !ok {
		return 0, false
	}
	if !Integrable(expr, varName, a, b) {
		return 0, false
	}
	fb, ok := valueAt(anti, varName, b)
	if !ok {
		return 0, false
	}
	fa, ok := valueAt(anti, varName, a)
	if !ok {
		return 0, false
	}
	r := fb - fa
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// valueAt substitutes x exactly so polynomial antiderivatives stay rational.
func valueAt(e Expr, varName string, x float64) (float64, bool) {
	xn, ok := numFromFloat(x)
	if !ok {
		return 0, false
	}
	v, ok := Sub(e, varName, xn).Eval()
	if !ok {
		return 0, false
	}
	return v.Float64(), true
}

// Integrable reports whether expr is finite and real on the open interval
// (a, b) as far as a grid scan can tell, and has no non-integrable pole at
// either endpoint. Bases raised to negative powers, logarithm arguments
// and the cosine under a tangent are checked for sign changes between grid
// points, which catches poles the grid itself steps over.
func Integrable(expr Expr, varName string, a, b float64) bool {
	xs := floats.Span(make([]float64, scanPoints+1), a, b)
	for _, x := range xs[1 : len(xs)-1] {
		if _, ok := Float(expr, varName, x); !ok {
			return false
		}
	}
	ok := true
	walk(expr, func(e Expr) {
		if !ok {
			return
		}
		switch v := e.(type) {
		case *Pow:
			n, isNum := v.exp.Eval()
			if !isNum || !DependsOn(v.base, varName) {
				return
			}
			p := n.Float64()
			if p < 0 {
				ok = noPole(v.base, varName, xs, p <= -1)
			}
			if ok && !n.IsInteger() {
				ok = nonNegative(v.base, varName, xs)
			}
		case *Func:
			if !DependsOn(v.arg, varName) {
				return
			}
			switch v.name {
			case "ln":
				// ln has an integrable singularity at an endpoint zero.
				ok = noPole(v.arg, varName, xs, false) && nonNegative(v.arg, varName, xs)
			case "tan":
				ok = noPole(CosOf(v.arg), varName, xs, true)
			}
		}
	})
	return ok
}

// noPole reports whether g keeps one strict sign on the interior of xs.
// strictEnds additionally rejects a zero at either endpoint.
func noPole(g Expr, varName string, xs []float64, strictEnds bool) bool {
	last := len(xs) - 1
	prev := 0.0
	for i, x := range xs {
		y, ok := Float(g, varName, x)
		interior := i > 0 && i < last
		switch {
		case !ok && interior:
			return false
		case !ok || y == 0:
			if interior || strictEnds {
				return false
			}
			continue
		}
		if prev != 0 && (prev < 0) != (y < 0) {
			return false
		}
		prev = y
	}
	return true
}

func nonNegative(g Expr, varName string, xs []float64) bool {
	for _, x := range xs[1 : len(xs)-1] {
		if y, ok := Float(g, varName, x); !ok || y < 0 {
			return false
		}
	}
	return true
}

// walk visits e and every sub-expression, parents first.
func walk(e Expr, fn func(Expr)) {
	fn(e)
	switch v := e.(type) {
	case *Add:
		for _, t := range v.terms {
			walk(t, fn)
		}
	case *Mul:
		for _, f := range v.factors {
			walk(f, fn)
		}
	case *Pow:
		walk(v.base, fn)
		walk(v.exp, fn)
	case *Func:
		walk(v.arg, fn)
	}
}
