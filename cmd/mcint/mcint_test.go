package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errout bytes.Buffer
	cmd := NewCmdRoot("mcint", &out, &errout)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestEstimate1D(t *testing.T) {
	out, err := run(t, "estimate1d", "x**2", "--a", "0", "--b", "1", "-n", "2000", "--seed", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "DEFINITE INTEGRAL - MONTE CARLO METHOD")
	assert.Contains(t, out, "Samples (N): 2,000")
	assert.Contains(t, out, "F(x) = 1/3*x^3")
	assert.Contains(t, out, "Exact value: 0.33333333")
	assert.Contains(t, out, "... and 1,990 more")

	again, err := run(t, "estimate1d", "x**2", "--a", "0", "--b", "1", "-n", "2000", "--seed", "5")
	require.NoError(t, err)
	assert.Equal(t, out, again, "seeded runs repeat")
}

func TestEstimate1D_NoClosedForm(t *testing.T) {
	out, err := run(t, "estimate1d", "math.exp(x**2)", "-n", "100", "--seed", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "EXACT VALUE")
}

func TestEstimate1D_Invalid(t *testing.T) {
	_, err := run(t, "estimate1d", "x", "--a", "2", "--b", "1")
	assert.ErrorContains(t, err, "lower bound must be less than upper bound")

	_, err = run(t, "estimate1d", "x", "-n", "0")
	assert.ErrorContains(t, err, "samples must be at least 1")

	_, err = run(t, "estimate1d")
	assert.Error(t, err)
}

func TestEstimate2D(t *testing.T) {
	out, err := run(t, "estimate2d", "x*y", "--ax", "0", "--bx", "2", "--cy", "0", "--dy", "1", "-n", "500", "--seed", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "DOUBLE INTEGRAL - MONTE CARLO METHOD")
	assert.Contains(t, out, "Area: 2.0000")
}

func TestSamplesFromEnvironment(t *testing.T) {
	t.Setenv("MCINT_SAMPLES", "300")
	out, err := run(t, "estimate1d", "x", "--seed", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Samples (N): 300")
}

func TestExact(t *testing.T) {
	out, err := run(t, "exact", "2*x", "--a", "0", "--b", "3")
	require.NoError(t, err)
	assert.Equal(t, "F(x) = x^2\n∫[0, 3] = 9\n", out)

	out, err = run(t, "exact", "math.exp(x**2)", "--quadrature", "32")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "unknown\nquadrature(32) = 1.46265174590718"), out)
}

func TestEval(t *testing.T) {
	out, err := run(t, "eval", "x**2 + y", "--set", "x=3", "--set", "y=0.5")
	require.NoError(t, err)
	assert.Equal(t, "9.5\n", out)

	out, err = run(t, "eval", "math.log(-1)")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)

	_, err = run(t, "eval", "x", "--set", "x=abc")
	assert.Error(t, err)
}

func TestExact_PolynomialProduct(t *testing.T) {
	out, err := run(t, "exact", "x*(x+1)", "--a", "0", "--b", "1")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "∫[0, 1] = 0.833333333333333\n"), out)

	out, err = run(t, "estimate1d", "(x+1)*(x+2)", "-n", "100", "--seed", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Exact value: 3.8333")
}

func TestDebugLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mcint := func(args ...string) string {
		var out, errout bytes.Buffer
		cmd := newCmdRoot("mcint", &GlobalFlags{logCore: core}, &out, &errout)
		cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	assert.Equal(t, "unknown\n", mcint("exact", "math.exp(x**2)"))
	assert.Equal(t, 1, logs.FilterMessage("no closed form").Len())

	assert.Equal(t, "0\n", mcint("eval", "1/x", "--set", "x=0"))
	failed := logs.FilterMessage("evaluation failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "1/x", failed[0].ContextMap()["expr"])

	mcint("curve", "x", "--points", "4")
	tab := logs.FilterMessage("tabulated curve").All()
	require.Len(t, tab, 1)
	assert.EqualValues(t, 4, tab[0].ContextMap()["points"])
}

func TestCurve(t *testing.T) {
	out, err := run(t, "curve", "x", "--points", "3")
	require.NoError(t, err)
	assert.Equal(t, "x\tf(x)\n0\t0\n0.5\t0.5\n1\t1\n", out)

	path := filepath.Join(t.TempDir(), "c.tsv")
	_, err = run(t, "curve", "x", "--points", "2", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\tf(x)\n0\t0\n1\t1\n", string(data))
}

func TestPreset(t *testing.T) {
	out, err := run(t, "preset")
	require.NoError(t, err)
	for _, name := range []string{"square", "sine", "exponential", "product", "paraboloid"} {
		assert.Contains(t, out, name)
	}

	out, err = run(t, "preset", "product", "-n", "100", "--seed", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Samples (N): 100")
	assert.Contains(t, out, "DOUBLE INTEGRAL")

	_, err = run(t, "preset", "nope")
	assert.ErrorContains(t, err, `unknown preset "nope"`)
}

func TestHistoryRoundTrip(t *testing.T) {
	t.Setenv("MCINT_HISTORY_PATH", filepath.Join(t.TempDir(), "runs"))

	out, err := run(t, "estimate1d", "x**3", "-n", "50", "--seed", "9", "--history")
	require.NoError(t, err)
	i := strings.Index(out, "Saved run ")
	require.GreaterOrEqual(t, i, 0)
	id := strings.TrimSpace(out[i+len("Saved run "):])

	out, err = run(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "x**3")
	assert.Contains(t, out, "0.25")

	out, err = run(t, "history", "show", id, "--trace")
	require.NoError(t, err)
	assert.Contains(t, out, `"expr": "x**3"`)
	assert.Contains(t, out, "x\tf(x)\n")
	assert.Equal(t, 50+1, strings.Count(out[strings.Index(out, "x\tf(x)"):], "\n"))

	_, err = run(t, "history", "show", "missing")
	assert.ErrorContains(t, err, "run not found")
}
