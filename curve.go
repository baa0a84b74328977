package montecarlo

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultCurvePoints = 200
	DefaultSurfaceGrid = 30
)

var errGridSize = errors.New("montecarlo: grid needs at least 2 points per axis")

// Curve1D samples f at n evenly spaced points from a to b inclusive, for
// plotting alongside the random points. Failed evaluations plot as 0.
func Curve1D(src string, a, b float64, n int) ([]Point1D, error) {
	if err := checkInterval("x", a, b); err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, &DomainError{Param: "n", N: n, Err: errGridSize}
	}
	p := Compile(src, "x")
	xs := floats.Span(make([]float64, n), a, b)
	out := make([]Point1D, n)
	for i, x := range xs {
		out[i] = Point1D{X: x, Y: p.Value(x)}
	}
	return out, nil
}

// Surface is f sampled on a rectangular grid; Z[j][i] = f(X[i], Y[j]).
type Surface struct {
	X []float64   `json:"x"`
	Y []float64   `json:"y"`
	Z [][]float64 `json:"z"`
}

// Surface2D samples f on an nx×ny grid spanning [ax,bx]×[cy,dy].
func Surface2D(src string, ax, bx, cy, dy float64, nx, ny int) (*Surface, error) {
	if err := checkInterval("x", ax, bx); err != nil {
		return nil, err
	}
	if err := checkInterval("y", cy, dy); err != nil {
		return nil, err
	}
	if nx < 2 || ny < 2 {
		return nil, &DomainError{Param: "n", N: min(nx, ny), Err: errGridSize}
	}
	p := Compile(src, "x", "y")
	s := &Surface{
		X: floats.Span(make([]float64, nx), ax, bx),
		Y: floats.Span(make([]float64, ny), cy, dy),
		Z: make([][]float64, ny),
	}
	for j, y := range s.Y {
		row := make([]float64, nx)
		for i, x := range s.X {
			row[i] = p.Value(x, y)
		}
		s.Z[j] = row
	}
	return s, nil
}
