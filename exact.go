package montecarlo

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/njchilds90/montecarlo/symbolic"
)

// Exact is a closed-form definite integral together with the antiderivative
// it was evaluated from.
type Exact struct {
	Value          float64
	Antiderivative string
	LaTeX          string
}

// Exact1D returns ∫[a,b] f(x) dx in closed form. ok is false when the value
// is unknown: the expression does not convert, no antiderivative rule
// applies, the integrand is singular in [a,b] or the result is not finite.
func Exact1D(src string, a, b float64) (float64, bool) {
	ex, ok := ExactDetail1D(src, a, b)
	if !ok {
		return 0, false
	}
	return ex.Value, true
}

// ExactDetail1D is Exact1D plus the antiderivative for display.
func ExactDetail1D(src string, a, b float64) (ex *Exact, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ex, ok = nil, false
		}
	}()
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return nil, false
	}
	f, err := symbolic.Parse(src, "x")
	if err != nil {
		return nil, false
	}
	anti, ok := symbolic.Integrate(f, "x")
	if !ok {
		return nil, false
	}
	v, ok := symbolic.Definite(f, "x", a, b)
	if !ok {
		return nil, false
	}
	return &Exact{Value: v, Antiderivative: anti.String(), LaTeX: anti.LaTeX()}, true
}

// Quadrature1D integrates f over [a,b] with an n-point Gauss–Legendre rule.
// It is a deterministic numeric reference for integrands that have no
// closed form; failing evaluations contribute 0 as in the estimators.
func Quadrature1D(src string, a, b float64, n int) (float64, error) {
	if err := checkInterval("x", a, b); err != nil {
		return 0, err
	}
	if err := checkSamples(n); err != nil {
		return 0, err
	}
	p := Compile(src, "x")
	return quad.Fixed(func(x float64) float64 { return p.Value(x) }, a, b, n, nil, 0), nil
}
