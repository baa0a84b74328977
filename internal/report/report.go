// Package report renders estimation runs as plain-text reports for the CLI.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/njchilds90/montecarlo"
)

// PreviewPoints is how many samples a report lists before summarising.
const PreviewPoints = 10

const rule = "============================================================"

// Comparison is the estimate checked against a closed-form value.
type Comparison struct {
	Exact    float64
	AbsError float64
	// RelError is a percentage; it is NaN when Exact is 0.
	RelError float64
}

// Compare computes absolute and relative error of estimate against exact.
func Compare(estimate, exact float64) Comparison {
	c := Comparison{Exact: exact, AbsError: math.Abs(estimate - exact), RelError: math.NaN()}
	if exact != 0 {
		c.RelError = c.AbsError / math.Abs(exact) * 100
	}
	return c
}

type writer struct {
	w   io.Writer
	err error
}

func (p *writer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// Write1D renders a 1D run. exact may be nil when no closed form is known.
func Write1D(w io.Writer, res *montecarlo.Result1D, exact *montecarlo.Exact) error {
	p := &writer{w: w}
	width := res.B - res.A

	p.printf("%s\nDEFINITE INTEGRAL - MONTE CARLO METHOD\n%s\n\n", rule, rule)
	p.printf("RUN\n")
	p.printf("   Function: f(x) = %s\n", res.Expr)
	p.printf("   Interval: [%g, %g]\n", res.A, res.B)
	p.printf("   Samples (N): %s\n", humanize.Comma(int64(res.N)))
	if res.Failures > 0 {
		p.printf("   Failed evaluations (counted as 0): %s\n", humanize.Comma(int64(res.Failures)))
	}
	p.printf("\nESTIMATE\n")
	p.printf("   ∫f(x)dx ≈ %.8f  (std. error %.8f)\n\n", res.Estimate, res.StdErr)

	if exact != nil {
		c := Compare(res.Estimate, exact.Value)
		p.printf("EXACT VALUE\n")
		p.printf("   F(x) = %s\n", exact.Antiderivative)
		p.printf("   Exact value: %.8f\n", c.Exact)
		p.printf("   Absolute error: %.8f\n", c.AbsError)
		if !math.IsNaN(c.RelError) {
			p.printf("   Relative error: %.4f%%\n", c.RelError)
		}
		p.printf("\n")
	}

	p.printf("SAMPLES (first %d)\n", PreviewPoints)
	for i, pt := range res.Points {
		if i == PreviewPoints {
			break
		}
		p.printf("   Point %d: x = %.4f, f(x) = %.4f\n", i+1, pt.X, pt.Y)
	}
	if more := len(res.Points) - PreviewPoints; more > 0 {
		p.printf("   ... and %s more\n", humanize.Comma(int64(more)))
	}

	p.printf("\nMETHOD\n")
	p.printf("   1. Draw %s points xᵢ uniformly in [%g, %g]\n", humanize.Comma(int64(res.N)), res.A, res.B)
	p.printf("   2. Evaluate f(xᵢ) at each point\n")
	p.printf("   3. Average: (1/%d) × Σ f(xᵢ)\n", res.N)
	p.printf("   4. Scale by the interval width (%g)\n", width)
	p.printf("   ∫f(x)dx ≈ (b-a) × (1/N) × Σ f(xᵢ) = %g × %.8f = %.8f\n", width, res.Estimate/width, res.Estimate)
	return p.err
}

// Write2D renders a 2D run.
func Write2D(w io.Writer, res *montecarlo.Result2D) error {
	p := &writer{w: w}
	area := (res.BX - res.AX) * (res.DY - res.CY)

	p.printf("%s\nDOUBLE INTEGRAL - MONTE CARLO METHOD\n%s\n\n", rule, rule)
	p.printf("RUN\n")
	p.printf("   Function: f(x,y) = %s\n", res.Expr)
	p.printf("   X interval: [%g, %g]\n", res.AX, res.BX)
	p.printf("   Y interval: [%g, %g]\n", res.CY, res.DY)
	p.printf("   Area: %.4f\n", area)
	p.printf("   Samples (N): %s\n", humanize.Comma(int64(res.N)))
	if res.Failures > 0 {
		p.printf("   Failed evaluations (counted as 0): %s\n", humanize.Comma(int64(res.Failures)))
	}
	p.printf("\nESTIMATE\n")
	p.printf("   ∬f(x,y)dxdy ≈ %.8f  (std. error %.8f)\n\n", res.Estimate, res.StdErr)

	p.printf("SAMPLES (first %d)\n", PreviewPoints)
	for i, pt := range res.Points {
		if i == PreviewPoints {
			break
		}
		p.printf("   Point %d: x = %.3f, y = %.3f, f(x,y) = %.4f\n", i+1, pt.X, pt.Y, pt.Z)
	}
	if more := len(res.Points) - PreviewPoints; more > 0 {
		p.printf("   ... and %s more\n", humanize.Comma(int64(more)))
	}

	p.printf("\nMETHOD\n")
	p.printf("   1. Draw %s points (xᵢ,yᵢ) uniformly in the rectangle\n", humanize.Comma(int64(res.N)))
	p.printf("   2. Evaluate f(xᵢ,yᵢ) at each point\n")
	p.printf("   3. Average: (1/%d) × Σ f(xᵢ,yᵢ)\n", res.N)
	p.printf("   4. Scale by the area (%.4f)\n", area)
	p.printf("   ∬f(x,y)dxdy ≈ Area × (1/N) × Σ f(xᵢ,yᵢ) = %.4f × %.8f = %.8f\n", area, res.Estimate/area, res.Estimate)
	return p.err
}

// WriteCurve renders sampled curve points as two tab-separated columns.
func WriteCurve(w io.Writer, pts []montecarlo.Point1D) error {
	var b strings.Builder
	b.WriteString("x\tf(x)\n")
	for _, pt := range pts {
		fmt.Fprintf(&b, "%g\t%g\n", pt.X, pt.Y)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
