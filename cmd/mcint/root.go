package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/njchilds90/montecarlo/internal/config"
	"github.com/njchilds90/montecarlo/internal/history"
)

// GlobalFlags are the persistent flags shared by every subcommand.
type GlobalFlags struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string

	// logCore, when set, receives every entry alongside the configured
	// output.
	logCore zapcore.Core
}

// Load merges defaults, the config file, MCINT_* variables and the flags
// named in keys (flag name to config key), then builds the logger.
func (g *GlobalFlags) Load(fs *pflag.FlagSet, keys map[string]string) (*config.Config, *zap.Logger, error) {
	v := config.New()
	all := map[string]string{
		"log-level":  "log.level",
		"log-format": "log.format",
	}
	for flag, key := range keys {
		all[flag] = key
	}
	if err := config.BindFlags(v, fs, all); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(v, g.ConfigFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Log.Logger()
	if err != nil {
		return nil, nil, err
	}
	if g.logCore != nil {
		logger = logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, g.logCore)
		}))
	}
	return cfg, logger, nil
}

// openHistory opens the run journal when enabled; it returns nil otherwise.
func openHistory(cfg *config.Config, logger *zap.Logger) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(history.Options{
		Path:             cfg.History.Path,
		CompressionLevel: cfg.History.CompressionLevel,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return store, nil
}

// NewCmdRoot builds the command tree.
func NewCmdRoot(name string, out, errout io.Writer) *cobra.Command {
	return newCmdRoot(name, &GlobalFlags{}, out, errout)
}

func newCmdRoot(name string, g *GlobalFlags, out, errout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           name,
		Short:         "Monte Carlo estimation of definite integrals",
		Long:          "Estimates single and double definite integrals by uniform random sampling and compares them with closed-form values where one is known.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetOut(out)
	cmd.SetErr(errout)

	cmd.PersistentFlags().StringVar(&g.ConfigFile, "config", "", "path to a YAML, TOML or JSON config file.")
	cmd.PersistentFlags().StringVar(&g.LogLevel, "log-level", "info", "log level: debug, info, warn or error.")
	cmd.PersistentFlags().StringVar(&g.LogFormat, "log-format", "console", "log format: console or json.")

	cmd.AddCommand(
		NewCmdEstimate1D(name, g, out, errout),
		NewCmdEstimate2D(name, g, out, errout),
		NewCmdExact(name, g, out, errout),
		NewCmdEval(name, g, out, errout),
		NewCmdCurve(name, g, out, errout),
		NewCmdPreset(name, g, out, errout),
		NewCmdServe(name, g, out, errout),
		NewCmdHistory(name, g, out, errout),
	)
	return cmd
}
