// Package montecarlo estimates definite integrals of user-supplied one- and
// two-variable functions by uniform random sampling, and derives an exact
// value for comparison when the integrand has a closed-form antiderivative.
//
// Expressions are plain text over x (and y for the 2D estimator) in the
// grammar of package expr. They are not validated ahead of time: a sample
// whose evaluation fails contributes 0 and is counted in Failures.
package montecarlo

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"golang.org/x/exp/rand"
)

// ============================================================
// Errors
// ============================================================

var (
	// ErrInvalidDomain is wrapped when a lower bound is not strictly below
	// its upper bound or a bound is not finite.
	ErrInvalidDomain = errors.New("montecarlo: lower bound must be less than upper bound")
	// ErrInvalidSampleCount is wrapped when fewer than one sample is requested.
	ErrInvalidSampleCount = errors.New("montecarlo: sample count must be at least 1")
)

// DomainError reports rejected estimator input. It is returned before any
// sampling takes place.
type DomainError struct {
	Param        string // "x", "y" or "n"
	Lower, Upper float64
	N            int
	Err          error
}

func (e *DomainError) Error() string {
	if e.Param == "n" {
		return fmt.Sprintf("%v (got %d)", e.Err, e.N)
	}
	return fmt.Sprintf("%v: %s in [%g, %g]", e.Err, e.Param, e.Lower, e.Upper)
}

func (e *DomainError) Unwrap() error { return e.Err }

func checkInterval(param string, lo, hi float64) error {
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || !(lo < hi) {
		return &DomainError{Param: param, Lower: lo, Upper: hi, Err: ErrInvalidDomain}
	}
	return nil
}

func checkSamples(n int) error {
	if n < 1 {
		return &DomainError{Param: "n", N: n, Err: ErrInvalidSampleCount}
	}
	return nil
}

// ============================================================
// Results
// ============================================================

type Point1D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Result1D is one 1D estimation run. Points holds every sample in draw order.
type Result1D struct {
	Expr     string
	A, B     float64
	N        int
	Estimate float64
	// StdErr is the standard error of Estimate computed from the sample
	// variance. It is 0 when N == 1.
	StdErr   float64
	Failures int
	Points   []Point1D
	Elapsed  time.Duration
}

// Result2D is one 2D estimation run over [AX,BX]×[CY,DY].
type Result2D struct {
	Expr           string
	AX, BX, CY, DY float64
	N              int
	Estimate       float64
	StdErr         float64
	Failures       int
	Points         []Point2D
	Elapsed        time.Duration
}

// ============================================================
// Options
// ============================================================

// Source yields uniform values in [0, 1). *rand.Rand from golang.org/x/exp
// satisfies it; tests inject fixed sequences.
type Source interface {
	Float64() float64
}

type options struct {
	src    Source
	seed   uint64
	seeded bool
	logger *zap.Logger
}

type Option func(*options)

// WithSource makes the run draw from src instead of a fresh generator.
func WithSource(src Source) Option { return func(o *options) { o.src = src } }

// WithSeed seeds the run's private generator so results are reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed, o.seeded = seed, true }
}

// WithLogger sets the logger for per-run diagnostics. The default discards.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

func newOptions(opts []Option) *options {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// source returns the injected source, or a new PCG generator owned by this
// call so concurrent runs never share state.
func (o *options) source() Source {
	if o.src != nil {
		return o.src
	}
	seed := o.seed
	if !o.seeded {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewSource(seed))
}

// ============================================================
// Estimators
// ============================================================

// Estimate1D approximates ∫[a,b] f(x) dx as (b−a)·Σf(xᵢ)/n over n uniform
// draws xᵢ ∈ [a,b].
func Estimate1D(src string, a, b float64, n int, opts ...Option) (*Result1D, error) {
	if err := checkInterval("x", a, b); err != nil {
		return nil, err
	}
	if err := checkSamples(n); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	start := time.Now()
	f := Compile(src, "x")
	rng := o.source()

	points := make([]Point1D, n)
	ys := make([]float64, n)
	var sum float64
	var fails failureLog
	for i := range points {
		x := a + (b-a)*rng.Float64()
		y := fails.eval(f, x)
		points[i] = Point1D{X: x, Y: y}
		ys[i] = y
		sum += y
	}
	width := b - a
	res := &Result1D{
		Expr:     src,
		A:        a,
		B:        b,
		N:        n,
		Estimate: width * sum / float64(n),
		StdErr:   width * stdErr(ys),
		Failures: fails.count,
		Points:   points,
		Elapsed:  time.Since(start),
	}
	fails.report(o.logger, src, n)
	o.logger.Debug("estimate complete",
		zap.String("expr", src),
		zap.Int("n", n),
		zap.Float64("estimate", res.Estimate),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// Estimate2D approximates ∬ f(x,y) dA as (bx−ax)(dy−cy)·Σf(xᵢ,yᵢ)/n. Each
// sample draws x first, then y.
func Estimate2D(src string, ax, bx, cy, dy float64, n int, opts ...Option) (*Result2D, error) {
	if err := checkInterval("x", ax, bx); err != nil {
		return nil, err
	}
	if err := checkInterval("y", cy, dy); err != nil {
		return nil, err
	}
	if err := checkSamples(n); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	start := time.Now()
	f := Compile(src, "x", "y")
	rng := o.source()

	points := make([]Point2D, n)
	zs := make([]float64, n)
	var sum float64
	var fails failureLog
	for i := range points {
		x := ax + (bx-ax)*rng.Float64()
		y := cy + (dy-cy)*rng.Float64()
		z := fails.eval(f, x, y)
		points[i] = Point2D{X: x, Y: y, Z: z}
		zs[i] = z
		sum += z
	}
	area := (bx - ax) * (dy - cy)
	res := &Result2D{
		Expr:     src,
		AX:       ax,
		BX:       bx,
		CY:       cy,
		DY:       dy,
		N:        n,
		Estimate: area * sum / float64(n),
		StdErr:   area * stdErr(zs),
		Failures: fails.count,
		Points:   points,
		Elapsed:  time.Since(start),
	}
	fails.report(o.logger, src, n)
	o.logger.Debug("estimate complete",
		zap.String("expr", src),
		zap.Int("n", n),
		zap.Float64("estimate", res.Estimate),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// failureLog counts failed samples and keeps the first cause so a run logs
// once instead of once per sample.
type failureLog struct {
	count int
	first error
}

func (l *failureLog) eval(p *Program, vals ...float64) float64 {
	v, err := p.Eval(vals...)
	if err != nil {
		l.count++
		if l.first == nil {
			l.first = err
		}
		return 0
	}
	return v
}

func (l *failureLog) report(logger *zap.Logger, src string, n int) {
	if l.count == 0 {
		return
	}
	logger.Debug("samples fell back to zero",
		zap.String("expr", src),
		zap.Int("n", n),
		zap.Int("failures", l.count),
		zap.Error(l.first),
	)
}

func stdErr(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	_, std := stat.MeanStdDev(xs, nil)
	return stat.StdErr(std, float64(len(xs)))
}
