package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/njchilds90/montecarlo"
	"github.com/njchilds90/montecarlo/internal/report"
)

var exactExample = `# closed form of ∫[0,1] eˣ dx
%[1]s exact "math.exp(x)" --a 0 --b 1

# Gauss–Legendre reference value for an integrand with no closed form
%[1]s exact "math.exp(x**2)" --a 0 --b 1 --quadrature 64
`

var evalExample = `# evaluate with bound variables
%[1]s eval "x**2 + y" --set x=3 --set y=0.5
`

var curveExample = `# tabulate f on 200 points for plotting
%[1]s curve "math.sin(x)" --a 0 --b 6.28318 > sin.tsv
`

type ExactFlags struct {
	A, B       float64
	Quadrature int
}

func NewCmdExact(parent string, g *GlobalFlags, out, errout io.Writer) *cobra.Command {
	flags := &ExactFlags{B: 1}

	cmd := &cobra.Command{
		Use:     "exact EXPR",
		Short:   "Prints the closed-form value of ∫[a,b] f(x) dx",
		Long:    "Prints the closed-form value of ∫[a,b] f(x) dx and its antiderivative, or \"unknown\" when none is found. With --quadrature, an n-point Gauss–Legendre value is printed as well.",
		Example: fmt.Sprintf(exactExample, parent),
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			_, logger, err := g.Load(c.Flags(), nil)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ex, ok := montecarlo.ExactDetail1D(args[0], flags.A, flags.B)
			if ok {
				fmt.Fprintf(out, "F(x) = %s\n", ex.Antiderivative)
				fmt.Fprintf(out, "∫[%g, %g] = %.15g\n", flags.A, flags.B, ex.Value)
			} else {
				logger.Debug("no closed form", zap.String("expr", args[0]),
					zap.Float64("a", flags.A), zap.Float64("b", flags.B))
				fmt.Fprintln(out, "unknown")
			}
			if flags.Quadrature > 0 {
				v, err := montecarlo.Quadrature1D(args[0], flags.A, flags.B, flags.Quadrature)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "quadrature(%d) = %.15g\n", flags.Quadrature, v)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&flags.A, "a", flags.A, "lower bound of x.")
	cmd.Flags().Float64Var(&flags.B, "b", flags.B, "upper bound of x.")
	cmd.Flags().IntVar(&flags.Quadrature, "quadrature", 0, "also print an n-point Gauss–Legendre value; 0 disables.")
	return cmd
}

func NewCmdEval(parent string, g *GlobalFlags, out, errout io.Writer) *cobra.Command {
	vars := map[string]string{}

	cmd := &cobra.Command{
		Use:     "eval EXPR",
		Short:   "Evaluates an expression; failures print 0",
		Example: fmt.Sprintf(evalExample, parent),
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			_, logger, err := g.Load(c.Flags(), nil)
			if err != nil {
				return err
			}
			defer logger.Sync()

			values := make(map[string]float64, len(vars))
			for name, s := range vars {
				f, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return fmt.Errorf("--set %s: %w", name, err)
				}
				values[name] = f
			}
			v, err := montecarlo.EvaluateErr(args[0], values)
			if err != nil {
				logger.Debug("evaluation failed", zap.String("expr", args[0]), zap.Error(err))
				v = 0
			}
			fmt.Fprintf(out, "%g\n", v)
			return nil
		},
	}

	cmd.Flags().StringToStringVar(&vars, "set", vars, "bind a variable, as name=value. Repeatable.")
	return cmd
}

type CurveFlags struct {
	A, B   float64
	Points int
	Output string
}

func NewCmdCurve(parent string, g *GlobalFlags, out, errout io.Writer) *cobra.Command {
	flags := &CurveFlags{B: 1, Points: montecarlo.DefaultCurvePoints}

	cmd := &cobra.Command{
		Use:     "curve EXPR",
		Short:   "Tabulates f(x) on evenly spaced points as TSV",
		Example: fmt.Sprintf(curveExample, parent),
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			_, logger, err := g.Load(c.Flags(), nil)
			if err != nil {
				return err
			}
			defer logger.Sync()

			pts, err := montecarlo.Curve1D(args[0], flags.A, flags.B, flags.Points)
			if err != nil {
				return err
			}
			logger.Debug("tabulated curve", zap.String("expr", args[0]), zap.Int("points", len(pts)),
				zap.String("output", flags.Output))
			w := out
			if flags.Output != "" {
				f, err := os.Create(flags.Output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return report.WriteCurve(w, pts)
		},
	}

	cmd.Flags().Float64Var(&flags.A, "a", flags.A, "lower bound of x.")
	cmd.Flags().Float64Var(&flags.B, "b", flags.B, "upper bound of x.")
	cmd.Flags().IntVar(&flags.Points, "points", flags.Points, "number of points, at least 2.")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "write to this file instead of stdout.")
	return cmd
}
