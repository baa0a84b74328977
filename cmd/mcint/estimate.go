package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/njchilds90/montecarlo"
	"github.com/njchilds90/montecarlo/internal/config"
	"github.com/njchilds90/montecarlo/internal/history"
	"github.com/njchilds90/montecarlo/internal/report"
)

var estimate1DExample = `# estimate the integral of x² over [0, 1] with 10,000 samples
%[1]s estimate1d "x**2" --a 0 --b 1

# reproducible run with 50,000 samples, journaled to the run history
%[1]s estimate1d "math.sin(x)" --a 0 --b 3.14159 -n 50000 --seed 7 --history
`

var estimate2DExample = `# estimate the integral of x·y over the unit square
%[1]s estimate2d "x*y" --ax 0 --bx 1 --cy 0 --dy 1

# paraboloid with a fixed seed
%[1]s estimate2d "x**2 + y**2" --ax -1 --bx 1 --cy -1 --dy 1 --seed 3
`

// samplingKeys binds the flags every estimating command shares.
var samplingKeys = map[string]string{
	"samples": "samples",
	"seed":    "seed",
	"history": "history.enabled",
}

func addSamplingFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("samples", "n", montecarlo.DefaultSamples, "number of random samples.")
	cmd.Flags().Uint64("seed", 0, "seed for the random generator; 0 seeds from the clock.")
	cmd.Flags().Bool("history", false, "journal the run to the history store.")
}

// EstimateOpts holds everything a 1D or 2D estimation needs once flags and
// config are merged.
type EstimateOpts struct {
	Expr   string
	Bounds []float64
	N      int
	Seed   uint64

	Config *config.Config
	Logger *zap.Logger

	Out    io.Writer
	ErrOut io.Writer
}

// EstimateFlags are the raw flag values.
type EstimateFlags struct {
	A, B, C, D float64
}

func (f *EstimateFlags) ToOptions(g *GlobalFlags, cmd *cobra.Command, args []string, dim int, out, errout io.Writer) (*EstimateOpts, error) {
	cfg, logger, err := g.Load(cmd.Flags(), samplingKeys)
	if err != nil {
		return nil, err
	}
	o := &EstimateOpts{
		Expr:   args[0],
		Bounds: []float64{f.A, f.B},
		N:      cfg.Samples,
		Seed:   cfg.Seed,
		Config: cfg,
		Logger: logger,
		Out:    out,
		ErrOut: errout,
	}
	if dim == 2 {
		o.Bounds = append(o.Bounds, f.C, f.D)
	}
	return o, nil
}

func (o *EstimateOpts) Validate() error {
	if o.Expr == "" {
		return errors.New("an expression is required")
	}
	if o.N < 1 {
		return fmt.Errorf("sample count must be at least 1, got %d", o.N)
	}
	return nil
}

func (o *EstimateOpts) options() []montecarlo.Option {
	opts := []montecarlo.Option{montecarlo.WithLogger(o.Logger)}
	if o.Seed != 0 {
		opts = append(opts, montecarlo.WithSeed(o.Seed))
	}
	return opts
}

// Run1D estimates, reports and optionally journals a 1D integral.
func (o *EstimateOpts) Run1D() error {
	res, err := montecarlo.Estimate1D(o.Expr, o.Bounds[0], o.Bounds[1], o.N, o.options()...)
	if err != nil {
		return err
	}
	ex, _ := montecarlo.ExactDetail1D(o.Expr, o.Bounds[0], o.Bounds[1])
	if err := report.Write1D(o.Out, res, ex); err != nil {
		return err
	}
	var exact *float64
	if ex != nil {
		exact = &ex.Value
	}
	run, trace := history.Run1D(res, exact)
	return o.journal(run, trace)
}

// Run2D estimates, reports and optionally journals a 2D integral.
func (o *EstimateOpts) Run2D() error {
	b := o.Bounds
	res, err := montecarlo.Estimate2D(o.Expr, b[0], b[1], b[2], b[3], o.N, o.options()...)
	if err != nil {
		return err
	}
	if err := report.Write2D(o.Out, res); err != nil {
		return err
	}
	run, trace := history.Run2D(res)
	return o.journal(run, trace)
}

func (o *EstimateOpts) journal(run *history.Run, trace *history.Trace) error {
	store, err := openHistory(o.Config, o.Logger)
	if err != nil || store == nil {
		return err
	}
	defer store.Close()
	id, err := store.Save(context.Background(), run, trace)
	if err != nil {
		return err
	}
	fmt.Fprintf(o.Out, "\nSaved run %s\n", id)
	return nil
}

func NewCmdEstimate1D(parent string, g *GlobalFlags, out, errout io.Writer) *cobra.Command {
	flags := &EstimateFlags{B: 1}

	cmd := &cobra.Command{
		Use:     "estimate1d EXPR",
		Short:   "Estimates ∫[a,b] f(x) dx by uniform sampling",
		Long:    "Estimates ∫[a,b] f(x) dx by uniform sampling and compares the estimate with the closed-form value when one is known.",
		Example: fmt.Sprintf(estimate1DExample, parent),
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			opts, err := flags.ToOptions(g, c, args, 1, out, errout)
			if err != nil {
				return err
			}
			defer opts.Logger.Sync()
			if err := opts.Validate(); err != nil {
				return err
			}
			return opts.Run1D()
		},
	}

	cmd.Flags().Float64Var(&flags.A, "a", flags.A, "lower bound of x.")
	cmd.Flags().Float64Var(&flags.B, "b", flags.B, "upper bound of x.")
	addSamplingFlags(cmd)
	return cmd
}

func NewCmdEstimate2D(parent string, g *GlobalFlags, out, errout io.Writer) *cobra.Command {
	flags := &EstimateFlags{B: 1, D: 1}

	cmd := &cobra.Command{
		Use:     "estimate2d EXPR",
		Short:   "Estimates ∬ f(x,y) dx dy over a rectangle by uniform sampling",
		Example: fmt.Sprintf(estimate2DExample, parent),
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			opts, err := flags.ToOptions(g, c, args, 2, out, errout)
			if err != nil {
				return err
			}
			defer opts.Logger.Sync()
			if err := opts.Validate(); err != nil {
				return err
			}
			return opts.Run2D()
		},
	}

	cmd.Flags().Float64Var(&flags.A, "ax", flags.A, "lower bound of x.")
	cmd.Flags().Float64Var(&flags.B, "bx", flags.B, "upper bound of x.")
	cmd.Flags().Float64Var(&flags.C, "cy", flags.C, "lower bound of y.")
	cmd.Flags().Float64Var(&flags.D, "dy", flags.D, "upper bound of y.")
	addSamplingFlags(cmd)
	return cmd
}
