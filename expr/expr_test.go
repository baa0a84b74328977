package expr_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/montecarlo/expr"
)

func eval(t *testing.T, src string, ns expr.Namespace, x float64) float64 {
	t.Helper()
	p, err := expr.Compile(src, ns, "x")
	require.NoError(t, err, src)
	v, err := p.Eval(x)
	require.NoError(t, err, src)
	return v
}

func TestParse_Precedence(t *testing.T) {
	cases := []struct {
		src  string
		x    float64
		want float64
	}{
		{"1 + 2 * 3", 0, 7},
		{"(1 + 2) * 3", 0, 9},
		{"2 ** 3 ** 2", 0, 512},
		{"-x**2", 3, -9},
		{"(-x)**2", 3, 9},
		{"2^10", 0, 1024},
		{"7 // 2", 0, 3},
		{"-7 // 2", 0, -4},
		{"-7 % 3", 0, 2},
		{"7 % -3", 0, -2},
		{"x / 4", 2, 0.5},
		{"+x - -x", 1.5, 3},
		{"1e-3 * 1000", 0, 1},
		{".5 + .5", 0, 1},
		{"2 * x ** 2 + 3 * x + 1", 2, 15},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			assert.InDelta(t, tc.want, eval(t, tc.src, expr.Strict, tc.x), 1e-12)
		})
	}
}

func TestParse_QualifiedNames(t *testing.T) {
	assert.InDelta(t, 1.0, eval(t, "math.sin(math.pi / 2)", expr.Strict, 0), 1e-12)
	assert.InDelta(t, math.E, eval(t, "np.exp(x)", expr.Strict, 1), 1e-12)
	assert.InDelta(t, math.Pi/2, eval(t, "numpy.arcsin(x)", expr.Strict, 1), 1e-12)
	assert.InDelta(t, 2.0, eval(t, "math.log10(100)", expr.Strict, 0), 1e-12)
	assert.InDelta(t, 3.0, eval(t, "log(8, 2)", expr.Strict, 0), 1e-12)
	assert.InDelta(t, 2*math.Pi, eval(t, "tau", expr.Strict, 0), 1e-12)
	assert.InDelta(t, math.Pi, eval(t, "π", expr.Strict, 0), 1e-12)
}

func TestParse_SyntaxErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"   ",
		"1 +",
		"(x",
		"x)",
		"sin(x,",
		"math.",
		"x $ 2",
		"'x'",
		"x y",
	} {
		_, err := expr.Parse(src)
		assert.ErrorIs(t, err, expr.ErrSyntax, "%q", src)
	}
}

func TestParse_DepthLimit(t *testing.T) {
	src := ""
	for i := 0; i < 500; i++ {
		src += "("
	}
	src += "x"
	for i := 0; i < 500; i++ {
		src += ")"
	}
	_, err := expr.Parse(src)
	assert.ErrorIs(t, err, expr.ErrSyntax)
}

func TestCompile_UnknownNames(t *testing.T) {
	for _, src := range []string{
		"q + 1",
		"y * x",
		"os.system(1)",
		"__import__(x)",
		"math.arcsin(x)",
		"x(2)",
		"abs(x)",
	} {
		_, err := expr.Compile(src, expr.Strict, "x")
		assert.ErrorIs(t, err, expr.ErrUnknownName, "%q", src)
	}
}

func TestCompile_LenientBuiltins(t *testing.T) {
	assert.InDelta(t, 2.5, eval(t, "abs(x)", expr.Lenient, -2.5), 1e-12)
	assert.InDelta(t, 2.0, eval(t, "round(2.5)", expr.Lenient, 0), 1e-12)
	assert.InDelta(t, 1.24, eval(t, "round(x, 2)", expr.Lenient, 1.2351), 1e-12)
	assert.InDelta(t, -1.0, eval(t, "min(x, 3, -1)", expr.Lenient, 2), 1e-12)
	assert.InDelta(t, 3.0, eval(t, "max(x, 3)", expr.Lenient, 2), 1e-12)
	assert.InDelta(t, 2.0, eval(t, "int(x)", expr.Lenient, 2.9), 1e-12)

	_, err := expr.Compile("math.abs(x)", expr.Lenient, "x")
	assert.ErrorIs(t, err, expr.ErrUnknownName, "built-ins are never qualified")
}

func TestCompile_Arity(t *testing.T) {
	for _, src := range []string{"sin()", "sin(x, x)", "atan2(x)", "log(x, 2, 3)"} {
		_, err := expr.Compile(src, expr.Strict, "x")
		assert.ErrorIs(t, err, expr.ErrArity, "%q", src)
	}
	_, err := expr.Compile("max(x)", expr.Lenient, "x")
	assert.ErrorIs(t, err, expr.ErrArity)
}

func TestEval_DomainErrors(t *testing.T) {
	cases := []struct {
		src string
		x   float64
	}{
		{"1 / x", 0},
		{"x // 0", 1},
		{"x % 0", 1},
		{"math.log(x)", -1},
		{"log(x)", 0},
		{"log10(x)", -5},
		{"sqrt(x)", -1},
		{"asin(x)", 2},
		{"acos(x)", -2},
		{"exp(x)", 1000},
		{"x ** 0.5", -4},
		{"0 ** -1", 0},
		{"log(x, 1)", 2},
	}
	for _, tc := range cases {
		p, err := expr.Compile(tc.src, expr.Strict, "x")
		require.NoError(t, err, tc.src)
		_, err = p.Eval(tc.x)
		assert.True(t, errors.Is(err, expr.ErrDomain), "%s at x=%v: %v", tc.src, tc.x, err)
	}
}

func TestProgram_Variables(t *testing.T) {
	p, err := expr.Compile("x * y + e", expr.Strict, "x", "y")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, p.Vars())

	v, err := p.Eval(2, 3)
	require.NoError(t, err)
	assert.InDelta(t, 6+math.E, v, 1e-12)

	_, err = p.Eval(1)
	assert.ErrorIs(t, err, expr.ErrArity)
}

func TestProgram_VariableShadowsConstant(t *testing.T) {
	p, err := expr.Compile("e + 1", expr.Strict, "e")
	require.NoError(t, err)
	v, err := p.Eval(1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestCanonicalName(t *testing.T) {
	cases := []struct {
		id   expr.Ident
		want string
		ok   bool
	}{
		{expr.Ident{Name: "sin"}, "sin", true},
		{expr.Ident{Qualifier: "math", Name: "log"}, "log", true},
		{expr.Ident{Qualifier: "np", Name: "arcsin"}, "asin", true},
		{expr.Ident{Qualifier: "numpy", Name: "power"}, "pow", true},
		{expr.Ident{Qualifier: "math", Name: "arcsin"}, "", false},
		{expr.Ident{Name: "arcsin"}, "", false},
		{expr.Ident{Qualifier: "os", Name: "sin"}, "", false},
		{expr.Ident{Name: "abs"}, "", false},
		{expr.Ident{Qualifier: "np", Name: "pi"}, "pi", true},
	}
	for _, tc := range cases {
		got, ok := expr.CanonicalName(tc.id)
		assert.Equal(t, tc.ok, ok, tc.id.String())
		assert.Equal(t, tc.want, got, tc.id.String())
	}
}

func TestNode_String(t *testing.T) {
	n := expr.MustParse("math.sin(x) + 2 * x ** 2")
	assert.Equal(t, "math.sin(x) + (2 * (x ** 2))", n.String())

	var names []string
	expr.Walk(n, func(n expr.Node) {
		if id, ok := n.(*expr.Ident); ok {
			names = append(names, id.String())
		}
	})
	assert.Equal(t, []string{"x", "x"}, names)
}
