package history_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/montecarlo"
	"github.com/njchilds90/montecarlo/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(history.Options{InMemory: true, CompressionLevel: 3})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCodec_RoundTrip(t *testing.T) {
	for level := 1; level <= 4; level++ {
		c, err := history.NewCodec(level)
		require.NoError(t, err)

		values := []float64{0, 1.5, -2.25, math.Pi, 1e-300, math.MaxFloat64, 0}
		got, err := c.DecodeFloats(c.EncodeFloats(values), len(values))
		require.NoError(t, err)
		assert.Equal(t, values, got)

		_, err = c.DecodeFloats(c.EncodeFloats(values), len(values)+1)
		assert.Error(t, err)
		c.Close()
	}
}

func TestCodec_Empty(t *testing.T) {
	c, err := history.NewCodec(1)
	require.NoError(t, err)
	defer c.Close()
	assert.Nil(t, c.EncodeFloats(nil))
	got, err := c.DecodeFloats(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_SaveGetTrace(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	res, err := montecarlo.Estimate1D("x**2", 0, 1, 1000, montecarlo.WithSeed(1))
	require.NoError(t, err)
	exact := 1.0 / 3
	run, trace := history.Run1D(res, &exact)

	id, err := s.Save(ctx, run, trace)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "x**2", got.Expr)
	assert.Equal(t, []float64{0, 1}, got.Bounds)
	assert.Equal(t, res.Estimate, got.Estimate)
	require.NotNil(t, got.Exact)
	assert.Equal(t, exact, *got.Exact)
	assert.WithinDuration(t, time.Now(), got.Time, time.Minute)

	tr, err := s.Trace(ctx, id)
	require.NoError(t, err)
	require.Len(t, tr.Columns, 2)
	for i, p := range res.Points {
		assert.Equal(t, p.X, tr.Columns[0][i])
		assert.Equal(t, p.Y, tr.Columns[1][i])
	}
}

func TestStore_Run2D(t *testing.T) {
	s := openStore(t)
	res, err := montecarlo.Estimate2D("x*y", 0, 1, 0, 2, 50, montecarlo.WithSeed(2))
	require.NoError(t, err)

	run, trace := history.Run2D(res)
	id, err := s.Save(context.Background(), run, trace)
	require.NoError(t, err)

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Dim)
	assert.Nil(t, got.Exact)

	tr, err := s.Trace(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, tr.Columns, 3)
	assert.Equal(t, res.Points[49].Z, tr.Columns[2][49])
}

func TestStore_NotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, history.ErrNotFound)
	_, err = s.Trace(context.Background(), "missing")
	assert.ErrorIs(t, err, history.ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	var ids []string
	for i, src := range []string{"x", "x**2", "x**3"} {
		id, err := s.Save(ctx, &history.Run{Dim: 1, Expr: src, N: i + 1}, nil)
		require.NoError(t, err)
		ids = append(ids, id)
		time.Sleep(2 * time.Millisecond)
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})

	two, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
	assert.Equal(t, "x**3", two[0].Expr)

	_, err = s.Trace(ctx, ids[0])
	assert.ErrorIs(t, err, history.ErrNotFound, "runs saved without a trace")
}

func TestStore_RejectsRaggedTrace(t *testing.T) {
	s := openStore(t)
	_, err := s.Save(context.Background(), &history.Run{Expr: "x"},
		&history.Trace{Columns: [][]float64{{1, 2}, {1}}})
	assert.Error(t, err)
}

func TestStore_CanceledContext(t *testing.T) {
	s := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Save(ctx, &history.Run{Expr: "x"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
