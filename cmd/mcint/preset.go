package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/njchilds90/montecarlo"
)

var presetExample = `# list the built-in problems
%[1]s preset

# run one of them
%[1]s preset sine --seed 1
`

func NewCmdPreset(parent string, g *GlobalFlags, out, errout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "preset [NAME]",
		Short:   "Lists or runs the built-in example problems",
		Example: fmt.Sprintf(presetExample, parent),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listPresets(out)
			}
			p, ok := montecarlo.LookupPreset(args[0])
			if !ok {
				return fmt.Errorf("unknown preset %q", args[0])
			}

			keys := map[string]string{"seed": "seed", "history": "history.enabled"}
			if c.Flags().Changed("samples") {
				keys["samples"] = "samples"
			}
			cfg, logger, err := g.Load(c.Flags(), keys)
			if err != nil {
				return err
			}
			defer logger.Sync()

			n := p.N
			if c.Flags().Changed("samples") {
				n = cfg.Samples
			}
			opts := &EstimateOpts{
				Expr:   p.Expr,
				Bounds: []float64{p.A, p.B, p.C, p.D},
				N:      n,
				Seed:   cfg.Seed,
				Config: cfg,
				Logger: logger,
				Out:    out,
				ErrOut: errout,
			}
			if p.Dim == 2 {
				return opts.Run2D()
			}
			return opts.Run1D()
		},
	}
	addSamplingFlags(cmd)
	return cmd
}

func listPresets(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDIM\tEXPR\tDOMAIN")
	for _, p := range montecarlo.Presets() {
		domain := fmt.Sprintf("[%g, %g]", p.A, p.B)
		if p.Dim == 2 {
			domain += fmt.Sprintf(" × [%g, %g]", p.C, p.D)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", p.Name, p.Dim, p.Expr, domain)
	}
	return tw.Flush()
}
