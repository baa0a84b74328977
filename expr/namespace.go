package expr

import (
	"errors"
	"fmt"
	"math"
)

// Namespace selects which names a compiled expression may resolve.
type Namespace int

const (
	// Strict exposes the bound variables plus the math functions and
	// constants, bare or qualified by math., np. or numpy.
	Strict Namespace = iota
	// Lenient additionally exposes the host built-ins (abs, round, min,
	// max, float, int).
	Lenient
)

func (ns Namespace) String() string {
	if ns == Lenient {
		return "lenient"
	}
	return "strict"
}

var (
	// ErrUnknownName is returned when an identifier is not in the namespace.
	ErrUnknownName = errors.New("expr: unknown name")
	// ErrArity is returned when a function is called with the wrong
	// number of arguments.
	ErrArity = errors.New("expr: wrong number of arguments")
	// ErrDomain is returned when an operation has no finite real result.
	ErrDomain = errors.New("expr: math domain error")
)

type function struct {
	minArgs, maxArgs int // maxArgs < 0 means variadic
	fn               func(args []float64) (float64, error)
}

func fn1(f func(float64) float64) function {
	return function{1, 1, func(a []float64) (float64, error) { return f(a[0]), nil }}
}

func fn2(f func(float64, float64) float64) function {
	return function{2, 2, func(a []float64) (float64, error) { return f(a[0], a[1]), nil }}
}

func domainErr(name string, args []float64) error {
	return fmt.Errorf("%w: %s%v", ErrDomain, name, args)
}

// mathFuncs are reachable bare and under every qualifier.
var mathFuncs = map[string]function{
	"sin":     fn1(math.Sin),
	"cos":     fn1(math.Cos),
	"tan":     fn1(math.Tan),
	"sinh":    fn1(math.Sinh),
	"cosh":    fn1(math.Cosh),
	"tanh":    fn1(math.Tanh),
	"atan":    fn1(math.Atan),
	"asinh":   fn1(math.Asinh),
	"exp":     fn1(math.Exp),
	"fabs":    fn1(math.Abs),
	"floor":   fn1(math.Floor),
	"ceil":    fn1(math.Ceil),
	"trunc":   fn1(math.Trunc),
	"atan2":   fn2(math.Atan2),
	"hypot":   fn2(math.Hypot),
	"pow":     fn2(math.Pow),
	"degrees": fn1(func(v float64) float64 { return v * 180 / math.Pi }),
	"radians": fn1(func(v float64) float64 { return v * math.Pi / 180 }),
	"asin": {1, 1, func(a []float64) (float64, error) {
		if a[0] < -1 || a[0] > 1 {
			return 0, domainErr("asin", a)
		}
		return math.Asin(a[0]), nil
	}},
	"acos": {1, 1, func(a []float64) (float64, error) {
		if a[0] < -1 || a[0] > 1 {
			return 0, domainErr("acos", a)
		}
		return math.Acos(a[0]), nil
	}},
	"acosh": {1, 1, func(a []float64) (float64, error) {
		if a[0] < 1 {
			return 0, domainErr("acosh", a)
		}
		return math.Acosh(a[0]), nil
	}},
	"atanh": {1, 1, func(a []float64) (float64, error) {
		if a[0] <= -1 || a[0] >= 1 {
			return 0, domainErr("atanh", a)
		}
		return math.Atanh(a[0]), nil
	}},
	"sqrt": {1, 1, func(a []float64) (float64, error) {
		if a[0] < 0 {
			return 0, domainErr("sqrt", a)
		}
		return math.Sqrt(a[0]), nil
	}},
	// log(x) is the natural log; log(x, base) divides by log(base).
	"log": {1, 2, func(a []float64) (float64, error) {
		if a[0] <= 0 {
			return 0, domainErr("log", a)
		}
		if len(a) == 1 {
			return math.Log(a[0]), nil
		}
		if a[1] <= 0 || a[1] == 1 {
			return 0, domainErr("log", a)
		}
		return math.Log(a[0]) / math.Log(a[1]), nil
	}},
	"ln":    logN("ln", math.Log),
	"log10": logN("log10", math.Log10),
	"log2":  logN("log2", math.Log2),
}

func logN(name string, f func(float64) float64) function {
	return function{1, 1, func(a []float64) (float64, error) {
		if a[0] <= 0 {
			return 0, domainErr(name, a)
		}
		return f(a[0]), nil
	}}
}

// numpyAliases are reachable under np. / numpy. only.
var numpyAliases = map[string]string{
	"arcsin":   "asin",
	"arccos":   "acos",
	"arctan":   "atan",
	"arctan2":  "atan2",
	"arcsinh":  "asinh",
	"arccosh":  "acosh",
	"arctanh":  "atanh",
	"absolute": "fabs",
	"abs":      "fabs",
	"power":    "pow",
}

var constants = map[string]float64{
	"pi":  math.Pi,
	"π":   math.Pi,
	"e":   math.E,
	"tau": 2 * math.Pi,
}

// builtins are only visible in the Lenient namespace and never qualified.
var builtins = map[string]function{
	"abs":   fn1(math.Abs),
	"float": fn1(func(v float64) float64 { return v }),
	"int":   fn1(math.Trunc),
	"round": {1, 2, func(a []float64) (float64, error) {
		if len(a) == 1 {
			return math.RoundToEven(a[0]), nil
		}
		scale := math.Pow(10, math.Trunc(a[1]))
		return math.RoundToEven(a[0]*scale) / scale, nil
	}},
	"min": {2, -1, func(a []float64) (float64, error) {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m, nil
	}},
	"max": {2, -1, func(a []float64) (float64, error) {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m, nil
	}},
}

// Qualifiers lists the accepted namespace prefixes.
var Qualifiers = []string{"math", "np", "numpy"}

func isQualifier(q string) bool {
	for _, s := range Qualifiers {
		if s == q {
			return true
		}
	}
	return false
}

// CanonicalName maps a function or constant identifier to its unqualified
// math name (np.arcsin -> asin, math.log -> log). ok is false when the
// identifier is not a whitelisted math name. Bound variables and Lenient
// built-ins are not canonical names.
func CanonicalName(id Ident) (name string, ok bool) {
	if id.Qualifier != "" && !isQualifier(id.Qualifier) {
		return "", false
	}
	if _, ok := mathFuncs[id.Name]; ok {
		return id.Name, true
	}
	if _, ok := constants[id.Name]; ok {
		return id.Name, true
	}
	if id.Qualifier == "np" || id.Qualifier == "numpy" {
		if alias, ok := numpyAliases[id.Name]; ok {
			return alias, true
		}
	}
	return "", false
}

func (ns Namespace) lookupFunc(id Ident) (function, bool) {
	if name, ok := CanonicalName(id); ok {
		f, ok := mathFuncs[name]
		return f, ok
	}
	if ns == Lenient && id.Qualifier == "" {
		f, ok := builtins[id.Name]
		return f, ok
	}
	return function{}, false
}

func (ns Namespace) lookupConst(id Ident) (float64, bool) {
	name, ok := CanonicalName(id)
	if !ok {
		return 0, false
	}
	v, ok := constants[name]
	return v, ok
}
