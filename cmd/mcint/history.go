package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/njchilds90/montecarlo/internal/history"
)

var historyExample = `# ten most recent runs
%[1]s history list --limit 10

# one run with its samples as TSV
%[1]s history show 0190b6b4-5e0e-7c5a-9b7e-3f0a3d2e1c4b --trace
`

func NewCmdHistory(parent string, g *GlobalFlags, out, errout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Short:   "Inspects journaled runs",
		Example: fmt.Sprintf(historyExample, parent),
	}
	cmd.PersistentFlags().String("history-path", "", "history store directory; defaults to history.path from config.")
	cmd.AddCommand(newCmdHistoryList(g, out), newCmdHistoryShow(g, out))
	return cmd
}

func openHistoryForRead(g *GlobalFlags, c *cobra.Command) (*history.Store, error) {
	cfg, logger, err := g.Load(c.Flags(), map[string]string{"history-path": "history.path"})
	if err != nil {
		return nil, err
	}
	cfg.History.Enabled = true
	if cfg.History.Path == "" {
		return nil, errors.New("history path is required")
	}
	return openHistory(cfg, logger)
}

func newCmdHistoryList(g *GlobalFlags, out io.Writer) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Lists runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			store, err := openHistoryForRead(g, c)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(context.Background(), limit)
			if err != nil {
				return err
			}
			return writeRuns(out, runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs; 0 lists all.")
	return cmd
}

func writeRuns(out io.Writer, runs []*history.Run) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tDIM\tEXPR\tSAMPLES\tESTIMATE\tEXACT")
	for _, r := range runs {
		exact := "-"
		if r.Exact != nil {
			exact = fmt.Sprintf("%.8g", *r.Exact)
		}
		fmt.Fprintf(tw, "%s\t%s\t%dd\t%s\t%s\t%.8g\t%s\n",
			r.ID, humanize.Time(r.Time), r.Dim, r.Expr, humanize.Comma(int64(r.N)), r.Estimate, exact)
	}
	return tw.Flush()
}

func newCmdHistoryShow(g *GlobalFlags, out io.Writer) *cobra.Command {
	var withTrace bool
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Prints one run as JSON, optionally followed by its samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			store, err := openHistoryForRead(g, c)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			run, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(run); err != nil {
				return err
			}
			if !withTrace {
				return nil
			}
			trace, err := store.Trace(ctx, args[0])
			if err != nil {
				return err
			}
			return writeTrace(out, run.Dim, trace)
		},
	}
	cmd.Flags().BoolVar(&withTrace, "trace", false, "also print the sampled points as TSV.")
	return cmd
}

func writeTrace(out io.Writer, dim int, trace *history.Trace) error {
	header := []string{"x", "f(x)"}
	if dim == 2 {
		header = []string{"x", "y", "f(x,y)"}
	}
	var b strings.Builder
	b.WriteString(strings.Join(header, "\t"))
	b.WriteByte('\n')
	if len(trace.Columns) > 0 {
		for i := range trace.Columns[0] {
			for j, col := range trace.Columns {
				if j > 0 {
					b.WriteByte('\t')
				}
				fmt.Fprintf(&b, "%g", col[i])
			}
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(out, b.String())
	return err
}
