package montecarlo_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/njchilds90/montecarlo"
)

// seqSource replays a fixed sequence of uniforms, cycling when exhausted.
type seqSource struct {
	vals []float64
	i    int
}

func (s *seqSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func TestEstimate1D_InjectedSource(t *testing.T) {
	src := &seqSource{vals: []float64{0, 0.25, 0.5, 0.75}}
	res, err := montecarlo.Estimate1D("x", 0, 2, 4, montecarlo.WithSource(src))
	require.NoError(t, err)

	assert.Equal(t, []montecarlo.Point1D{{0, 0}, {0.5, 0.5}, {1, 1}, {1.5, 1.5}}, res.Points)
	assert.Equal(t, 1.5, res.Estimate)
	assert.Equal(t, 0, res.Failures)
	assert.Greater(t, res.StdErr, 0.0)
}

func TestEstimate2D_InjectedSource(t *testing.T) {
	// x is drawn before y for every sample.
	src := &seqSource{vals: []float64{0.5, 0.5, 0.25, 0.75}}
	res, err := montecarlo.Estimate2D("x*y", 0, 1, 0, 2, 2, montecarlo.WithSource(src))
	require.NoError(t, err)

	assert.Equal(t, []montecarlo.Point2D{{0.5, 1, 0.5}, {0.25, 1.5, 0.375}}, res.Points)
	assert.InDelta(t, 0.875, res.Estimate, 1e-15)
}

func TestEstimate1D_PointsInDomain(t *testing.T) {
	res, err := montecarlo.Estimate1D("math.sin(x)", -2, 3, 5000, montecarlo.WithSeed(7))
	require.NoError(t, err)
	require.Len(t, res.Points, 5000)
	for _, p := range res.Points {
		assert.GreaterOrEqual(t, p.X, -2.0)
		assert.LessOrEqual(t, p.X, 3.0)
		assert.InDelta(t, math.Sin(p.X), p.Y, 1e-15)
	}
}

func TestEstimate2D_PointsInDomain(t *testing.T) {
	res, err := montecarlo.Estimate2D("x**2 + y**2", -1, 1, 2, 5, 5000, montecarlo.WithSeed(7))
	require.NoError(t, err)
	require.Len(t, res.Points, 5000)
	for _, p := range res.Points {
		assert.True(t, p.X >= -1 && p.X <= 1, "x=%v", p.X)
		assert.True(t, p.Y >= 2 && p.Y <= 5, "y=%v", p.Y)
	}
}

func TestEstimate_SeedIsDeterministic(t *testing.T) {
	a, err := montecarlo.Estimate1D("x**2", 0, 1, 1000, montecarlo.WithSeed(42))
	require.NoError(t, err)
	b, err := montecarlo.Estimate1D("x**2", 0, 1, 1000, montecarlo.WithSeed(42))
	require.NoError(t, err)
	c, err := montecarlo.Estimate1D("x**2", 0, 1, 1000, montecarlo.WithSeed(43))
	require.NoError(t, err)

	assert.Equal(t, a.Points, b.Points)
	assert.Equal(t, a.Estimate, b.Estimate)
	assert.NotEqual(t, a.Estimate, c.Estimate)
}

func TestEstimate1D_Converges(t *testing.T) {
	const runs = 5
	var mean float64
	for seed := uint64(1); seed <= runs; seed++ {
		res, err := montecarlo.Estimate1D("x**2", 0, 1, 200000, montecarlo.WithSeed(seed))
		require.NoError(t, err)
		mean += res.Estimate / runs
	}
	assert.InDelta(t, 1.0/3, mean, 0.01)
}

func TestEstimate2D_Converges(t *testing.T) {
	res, err := montecarlo.Estimate2D("x*y", 0, 1, 0, 1, 200000, montecarlo.WithSeed(3))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, res.Estimate, 0.01)
	assert.InDelta(t, 0.25, res.Estimate, 5*res.StdErr)
}

func TestEstimate_UnknownNameIsZero(t *testing.T) {
	r1, err := montecarlo.Estimate1D("q + 1", 0, 1, 100, montecarlo.WithSeed(1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r1.Estimate)
	assert.Equal(t, 100, r1.Failures)
	for _, p := range r1.Points {
		assert.Equal(t, 0.0, p.Y)
	}

	r2, err := montecarlo.Estimate2D("q + 1", 0, 1, 0, 1, 100, montecarlo.WithSeed(1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r2.Estimate)
	assert.Equal(t, 100, r2.Failures)
}

func TestEstimate1D_PartialFailures(t *testing.T) {
	src := &seqSource{vals: []float64{0, 0.5}}
	res, err := montecarlo.Estimate1D("1/x", 0, 1, 2, montecarlo.WithSource(src))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failures)
	assert.Equal(t, 0.0, res.Points[0].Y)
	assert.Equal(t, 2.0, res.Points[1].Y)
	assert.Equal(t, 1.0, res.Estimate)
}

func TestEstimate_LogsFailuresOncePerRun(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, err := montecarlo.Estimate1D("math.log(x)", -1, 1, 500,
		montecarlo.WithSeed(9), montecarlo.WithLogger(zap.New(core)))
	require.NoError(t, err)

	failed := logs.FilterMessage("samples fell back to zero").All()
	require.Len(t, failed, 1)
	fields := failed[0].ContextMap()
	assert.Equal(t, "math.log(x)", fields["expr"])
	assert.Greater(t, fields["failures"], int64(0))
	assert.Equal(t, 1, logs.FilterMessage("estimate complete").Len())
}

func TestEstimate_InvalidInput(t *testing.T) {
	cases := []struct {
		name string
		run  func(montecarlo.Option) error
		want error
	}{
		{"equal bounds", func(o montecarlo.Option) error {
			_, err := montecarlo.Estimate1D("x", 1, 1, 10, o)
			return err
		}, montecarlo.ErrInvalidDomain},
		{"reversed bounds", func(o montecarlo.Option) error {
			_, err := montecarlo.Estimate1D("x", 1, 0, 10, o)
			return err
		}, montecarlo.ErrInvalidDomain},
		{"nan bound", func(o montecarlo.Option) error {
			_, err := montecarlo.Estimate1D("x", math.NaN(), 1, 10, o)
			return err
		}, montecarlo.ErrInvalidDomain},
		{"infinite bound", func(o montecarlo.Option) error {
			_, err := montecarlo.Estimate1D("x", 0, math.Inf(1), 10, o)
			return err
		}, montecarlo.ErrInvalidDomain},
		{"zero samples", func(o montecarlo.Option) error {
			_, err := montecarlo.Estimate1D("x", 0, 1, 0, o)
			return err
		}, montecarlo.ErrInvalidSampleCount},
		{"2d reversed y", func(o montecarlo.Option) error {
			_, err := montecarlo.Estimate2D("x*y", 0, 1, 1, 0, 10, o)
			return err
		}, montecarlo.ErrInvalidDomain},
		{"2d negative samples", func(o montecarlo.Option) error {
			_, err := montecarlo.Estimate2D("x*y", 0, 1, 0, 1, -5, o)
			return err
		}, montecarlo.ErrInvalidSampleCount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &seqSource{vals: []float64{0.5}}
			err := tc.run(montecarlo.WithSource(src))
			require.ErrorIs(t, err, tc.want)

			var de *montecarlo.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, 0, src.i, "no samples may be drawn")
		})
	}
}

func TestDomainError_Message(t *testing.T) {
	_, err := montecarlo.Estimate2D("x", 0, 1, 3, 2, 10)
	require.Error(t, err)
	assert.Equal(t, "montecarlo: lower bound must be less than upper bound: y in [3, 2]", err.Error())

	_, err = montecarlo.Estimate1D("x", 0, 1, 0)
	assert.Equal(t, "montecarlo: sample count must be at least 1 (got 0)", err.Error())
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		src  string
		vars map[string]float64
		want float64
	}{
		{"x**2 + 1", map[string]float64{"x": 3}, 10},
		{"x * y", map[string]float64{"x": 2, "y": 4}, 8},
		{"math.sqrt(x)", map[string]float64{"x": 16}, 4},
		{"abs(x)", map[string]float64{"x": -3}, 3},
		{"round(x)", map[string]float64{"x": 2.5}, 2},
		{"q + 1", map[string]float64{"x": 1}, 0},
		{"math.log(x)", map[string]float64{"x": -1}, 0},
		{"1/x", map[string]float64{"x": 0}, 0},
		{"x +", map[string]float64{"x": 1}, 0},
		{"", nil, 0},
		{"__import__(x)", map[string]float64{"x": 1}, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, montecarlo.Evaluate(tc.src, tc.vars), tc.src)
	}
}

func TestEvaluateErr(t *testing.T) {
	v, err := montecarlo.EvaluateErr("x - y", map[string]float64{"y": 1, "x": 3})
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	v, err = montecarlo.EvaluateErr("1/x", map[string]float64{"x": 0})
	assert.Error(t, err)
	assert.Equal(t, 0.0, v)
}

func TestProgram_TwoTier(t *testing.T) {
	p := montecarlo.Compile("abs(x) + math.fabs(x)", "x")
	require.NoError(t, p.Err(), "lenient tier compiles")
	v, err := p.Eval(-2)
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)

	bad := montecarlo.Compile("nope(x)", "x")
	assert.Error(t, bad.Err())
	_, err = bad.Eval(1)
	assert.Error(t, err)
	assert.Equal(t, 0.0, bad.Value(1))
}
