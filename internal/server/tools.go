package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/njchilds90/montecarlo"
	"github.com/njchilds90/montecarlo/internal/history"
	"github.com/njchilds90/montecarlo/internal/metrics"
	"github.com/njchilds90/montecarlo/internal/report"
)

// ============================================================
// Tool interface
// ============================================================

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// DefaultQuadratureNodes is the Gauss–Legendre order used by quadrature_1d
// when the caller gives none.
const DefaultQuadratureNodes = 64

// Tools dispatches tool calls. Store and Metrics are optional.
type Tools struct {
	MaxSamples int
	Store      *history.Store
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

// EstimateResult is the result payload of estimate_1d and estimate_2d.
type EstimateResult struct {
	Estimate  float64              `json:"estimate"`
	StdErr    float64              `json:"std_err"`
	N         int                  `json:"n"`
	Failures  int                  `json:"failures"`
	ElapsedMS float64              `json:"elapsed_ms"`
	Exact     *float64             `json:"exact,omitempty"`
	AbsError  *float64             `json:"abs_error,omitempty"`
	RunID     string               `json:"run_id,omitempty"`
	Points    []montecarlo.Point1D `json:"points,omitempty"`
	Points2D  []montecarlo.Point2D `json:"points_2d,omitempty"`
}

// ExactResult is the result payload of exact_1d. Known is false when no
// closed form was found; Value is then 0 and Antiderivative empty.
type ExactResult struct {
	Known          bool    `json:"known"`
	Value          float64 `json:"value"`
	Antiderivative string  `json:"antiderivative,omitempty"`
}

type params map[string]interface{}

func (p params) number(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("missing param: %s", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	}
	return 0, fmt.Errorf("param %s must be a number", key)
}

func (p params) string(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing param: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %s must be a string", key)
	}
	return s, nil
}

// integer returns def when key is absent.
func (p params) integer(key string, def int) (int, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	f, err := p.number(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("param %s must be an integer", key)
	}
	return int(f), nil
}

func (p params) boolean(key string) (bool, error) {
	v, ok := p[key]
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("param %s must be a boolean", key)
	}
	return b, nil
}

func (p params) numbers(keys ...string) ([]float64, error) {
	out := make([]float64, len(keys))
	for i, k := range keys {
		v, err := p.number(k)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (p params) vars(key string) (map[string]float64, error) {
	v, ok := p[key]
	if !ok {
		return map[string]float64{}, nil
	}
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("param %s must be an object", key)
	}
	out := make(map[string]float64, len(raw))
	for name := range raw {
		f, err := params(raw).number(name)
		if err != nil {
			return nil, fmt.Errorf("%s.%s must be a number", key, name)
		}
		out[name] = f
	}
	return out, nil
}

// ============================================================
// Dispatch
// ============================================================

// Handle runs one tool call. Errors are reported in the response, never
// returned.
func (t *Tools) Handle(ctx context.Context, req ToolRequest) ToolResponse {
	start := time.Now()
	resp := t.dispatch(ctx, req)
	if t.Metrics != nil {
		t.Metrics.ObserveTool(req.Tool, resp.Error == "", time.Since(start))
	}
	t.logger().Debug("tool call",
		zap.String("tool", req.Tool),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("error", resp.Error),
	)
	return resp
}

func (t *Tools) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}

func fail(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

func (t *Tools) dispatch(ctx context.Context, req ToolRequest) ToolResponse {
	p := params(req.Params)
	switch req.Tool {
	case "estimate_1d":
		return t.estimate1D(ctx, p)
	case "estimate_2d":
		return t.estimate2D(ctx, p)

	case "exact_1d":
		src, err := p.string("expr")
		if err != nil {
			return fail(err)
		}
		b, err := p.numbers("a", "b")
		if err != nil {
			return fail(err)
		}
		ex, ok := montecarlo.ExactDetail1D(src, b[0], b[1])
		if !ok {
			return ToolResponse{Result: ExactResult{}, String: "unknown"}
		}
		return ToolResponse{
			Result: ExactResult{Known: true, Value: ex.Value, Antiderivative: ex.Antiderivative},
			LaTeX:  ex.LaTeX,
			String: fmt.Sprintf("%.10g", ex.Value),
		}

	case "evaluate":
		src, err := p.string("expr")
		if err != nil {
			return fail(err)
		}
		vars, err := p.vars("vars")
		if err != nil {
			return fail(err)
		}
		v := montecarlo.Evaluate(src, vars)
		return ToolResponse{Result: v, String: fmt.Sprintf("%g", v)}

	case "curve_1d":
		src, err := p.string("expr")
		if err != nil {
			return fail(err)
		}
		b, err := p.numbers("a", "b")
		if err != nil {
			return fail(err)
		}
		n, err := p.integer("points", montecarlo.DefaultCurvePoints)
		if err != nil {
			return fail(err)
		}
		if n > t.MaxSamples {
			return fail(fmt.Errorf("points %d exceeds server limit %d", n, t.MaxSamples))
		}
		pts, err := montecarlo.Curve1D(src, b[0], b[1], n)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: pts, String: fmt.Sprintf("%d points", len(pts))}

	case "surface_2d":
		src, err := p.string("expr")
		if err != nil {
			return fail(err)
		}
		b, err := p.numbers("ax", "bx", "cy", "dy")
		if err != nil {
			return fail(err)
		}
		g, err := p.integer("grid", montecarlo.DefaultSurfaceGrid)
		if err != nil {
			return fail(err)
		}
		if g*g > t.MaxSamples {
			return fail(fmt.Errorf("grid %d×%d exceeds server limit %d", g, g, t.MaxSamples))
		}
		s, err := montecarlo.Surface2D(src, b[0], b[1], b[2], b[3], g, g)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: s, String: fmt.Sprintf("%d×%d grid", g, g)}

	case "quadrature_1d":
		src, err := p.string("expr")
		if err != nil {
			return fail(err)
		}
		b, err := p.numbers("a", "b")
		if err != nil {
			return fail(err)
		}
		n, err := p.integer("n", DefaultQuadratureNodes)
		if err != nil {
			return fail(err)
		}
		if n > t.MaxSamples {
			return fail(fmt.Errorf("n %d exceeds server limit %d", n, t.MaxSamples))
		}
		v, err := montecarlo.Quadrature1D(src, b[0], b[1], n)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: v, String: fmt.Sprintf("%.10g", v)}

	case "presets":
		ps := montecarlo.Presets()
		names := make([]string, len(ps))
		for i, preset := range ps {
			names[i] = preset.Name
		}
		return ToolResponse{Result: ps, String: fmt.Sprint(names)}

	case "mcp_spec":
		return ToolResponse{Result: ToolSpec(), String: "MCP tool specification"}
	}

	return ToolResponse{Error: fmt.Sprintf("unknown tool: %s", req.Tool)}
}

// sampling reads the shared n and seed params.
func (t *Tools) sampling(p params) (int, []montecarlo.Option, error) {
	n, err := p.integer("n", montecarlo.DefaultSamples)
	if err != nil {
		return 0, nil, err
	}
	if n > t.MaxSamples {
		return 0, nil, fmt.Errorf("n %d exceeds server limit %d", n, t.MaxSamples)
	}
	opts := []montecarlo.Option{montecarlo.WithLogger(t.logger())}
	if _, ok := p["seed"]; ok {
		seed, err := p.integer("seed", 0)
		if err != nil {
			return 0, nil, err
		}
		if seed < 0 {
			return 0, nil, errors.New("param seed must be non-negative")
		}
		opts = append(opts, montecarlo.WithSeed(uint64(seed)))
	}
	return n, opts, nil
}

func (t *Tools) estimate1D(ctx context.Context, p params) ToolResponse {
	src, err := p.string("expr")
	if err != nil {
		return fail(err)
	}
	b, err := p.numbers("a", "b")
	if err != nil {
		return fail(err)
	}
	n, opts, err := t.sampling(p)
	if err != nil {
		return fail(err)
	}
	withPoints, err := p.boolean("points")
	if err != nil {
		return fail(err)
	}

	res, err := montecarlo.Estimate1D(src, b[0], b[1], n, opts...)
	if err != nil {
		return fail(err)
	}
	if t.Metrics != nil {
		t.Metrics.ObserveSamples("1d", res.N, res.Failures)
	}

	out := EstimateResult{
		Estimate:  res.Estimate,
		StdErr:    res.StdErr,
		N:         res.N,
		Failures:  res.Failures,
		ElapsedMS: float64(res.Elapsed.Microseconds()) / 1000,
	}
	resp := ToolResponse{String: fmt.Sprintf("%.10g", res.Estimate)}
	ex, ok := montecarlo.ExactDetail1D(src, b[0], b[1])
	if ok {
		c := report.Compare(res.Estimate, ex.Value)
		out.Exact, out.AbsError = &c.Exact, &c.AbsError
		resp.LaTeX = ex.LaTeX
		resp.String = fmt.Sprintf("%.10g (exact %.10g)", res.Estimate, ex.Value)
	}
	if withPoints {
		out.Points = res.Points
	}
	if t.Store != nil {
		run, trace := history.Run1D(res, out.Exact)
		if out.RunID, err = t.Store.Save(ctx, run, trace); err != nil {
			t.logger().Warn("failed to journal run", zap.Error(err))
		}
	}
	resp.Result = out
	return resp
}

func (t *Tools) estimate2D(ctx context.Context, p params) ToolResponse {
	src, err := p.string("expr")
	if err != nil {
		return fail(err)
	}
	b, err := p.numbers("ax", "bx", "cy", "dy")
	if err != nil {
		return fail(err)
	}
	n, opts, err := t.sampling(p)
	if err != nil {
		return fail(err)
	}
	withPoints, err := p.boolean("points")
	if err != nil {
		return fail(err)
	}

	res, err := montecarlo.Estimate2D(src, b[0], b[1], b[2], b[3], n, opts...)
	if err != nil {
		return fail(err)
	}
	if t.Metrics != nil {
		t.Metrics.ObserveSamples("2d", res.N, res.Failures)
	}

	out := EstimateResult{
		Estimate:  res.Estimate,
		StdErr:    res.StdErr,
		N:         res.N,
		Failures:  res.Failures,
		ElapsedMS: float64(res.Elapsed.Microseconds()) / 1000,
	}
	if withPoints {
		out.Points2D = res.Points
	}
	if t.Store != nil {
		run, trace := history.Run2D(res)
		if out.RunID, err = t.Store.Save(ctx, run, trace); err != nil {
			t.logger().Warn("failed to journal run", zap.Error(err))
		}
	}
	return ToolResponse{Result: out, String: fmt.Sprintf("%.10g", res.Estimate)}
}

// ============================================================
// Tool schema
// ============================================================

// ToolSpec describes every tool for agent registration.
func ToolSpec() map[string]interface{} {
	tools := []map[string]interface{}{
		ts("estimate_1d", "Monte Carlo estimate of ∫[a,b] f(x) dx. Optional: n, seed, points (bool)",
			[]string{"expr", "a", "b"},
			map[string]string{"expr": "string", "a": "number", "b": "number", "n": "integer", "seed": "integer", "points": "boolean"}),
		ts("estimate_2d", "Monte Carlo estimate of ∫∫ f(x,y) over [ax,bx]×[cy,dy]. Optional: n, seed, points (bool, returned as points_2d)",
			[]string{"expr", "ax", "bx", "cy", "dy"},
			map[string]string{"expr": "string", "ax": "number", "bx": "number", "cy": "number", "dy": "number", "n": "integer", "seed": "integer", "points": "boolean"}),
		ts("exact_1d", "Closed-form ∫[a,b] f(x) dx, or known=false",
			[]string{"expr", "a", "b"},
			map[string]string{"expr": "string", "a": "number", "b": "number"}),
		ts("evaluate", "Evaluate expr with vars; 0 on any failure",
			[]string{"expr"},
			map[string]string{"expr": "string", "vars": "object"}),
		ts("curve_1d", "Sample f on evenly spaced points in [a,b]. Optional: points",
			[]string{"expr", "a", "b"},
			map[string]string{"expr": "string", "a": "number", "b": "number", "points": "integer"}),
		ts("surface_2d", "Sample f(x,y) on a square grid. Optional: grid",
			[]string{"expr", "ax", "bx", "cy", "dy"},
			map[string]string{"expr": "string", "ax": "number", "bx": "number", "cy": "number", "dy": "number", "grid": "integer"}),
		ts("quadrature_1d", "Gauss–Legendre ∫[a,b] f(x) dx. Optional: n",
			[]string{"expr", "a", "b"},
			map[string]string{"expr": "string", "a": "number", "b": "number", "n": "integer"}),
		ts("presets", "List built-in example problems", []string{}, map[string]string{}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	return map[string]interface{}{"tools": tools}
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
