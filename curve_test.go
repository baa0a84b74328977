package montecarlo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/montecarlo"
)

func TestCurve1D(t *testing.T) {
	pts, err := montecarlo.Curve1D("x**2", 0, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []montecarlo.Point1D{{0, 0}, {0.25, 0.0625}, {0.5, 0.25}, {0.75, 0.5625}, {1, 1}}, pts)

	pts, err = montecarlo.Curve1D("1/x", -1, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pts[1].Y, "pole plots as 0")

	_, err = montecarlo.Curve1D("x", 0, 1, 1)
	assert.Error(t, err)
	_, err = montecarlo.Curve1D("x", 2, 1, 10)
	assert.ErrorIs(t, err, montecarlo.ErrInvalidDomain)
}

func TestSurface2D(t *testing.T) {
	s, err := montecarlo.Surface2D("x + y", 0, 1, 0, 2, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, s.X)
	assert.Equal(t, []float64{0, 2}, s.Y)
	require.Len(t, s.Z, 2)
	assert.Equal(t, []float64{2, 2.5, 3}, s.Z[1])

	_, err = montecarlo.Surface2D("x", 0, 1, 0, 1, 1, 30)
	assert.Error(t, err)
}

func TestPresets(t *testing.T) {
	ps := montecarlo.Presets()
	require.Len(t, ps, 5)
	for _, p := range ps {
		if p.Dim == 1 {
			res, err := montecarlo.Estimate1D(p.Expr, p.A, p.B, 2000, montecarlo.WithSeed(1))
			require.NoError(t, err, p.Name)
			assert.Zero(t, res.Failures, p.Name)
			_, ok := montecarlo.Exact1D(p.Expr, p.A, p.B)
			assert.True(t, ok, p.Name)
			continue
		}
		res, err := montecarlo.Estimate2D(p.Expr, p.A, p.B, p.C, p.D, 2000, montecarlo.WithSeed(1))
		require.NoError(t, err, p.Name)
		assert.Zero(t, res.Failures, p.Name)
	}

	p, ok := montecarlo.LookupPreset("sine")
	require.True(t, ok)
	assert.Equal(t, "math.sin(x)", p.Expr)
	_, ok = montecarlo.LookupPreset("missing")
	assert.False(t, ok)
}
