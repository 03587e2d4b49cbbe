// Command liknorm integrates exponential-family likelihoods against Gaussian
// messages and checks the integrator against a reference table.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	liknorm "github.com/ieee0824/liknorm-go"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the flags shared by every subcommand.
type options struct {
	configPath string
	nodes      int
	precision  float64
	workers    int
	verbose    bool
}

func newRootCmd() *cobra.Command {
	return newRoot(&options{})
}

func newRoot(opts *options) *cobra.Command {
	def := liknorm.DefaultConfig()

	root := &cobra.Command{
		Use:          "liknorm",
		Short:        "Moments of exponential-family likelihoods times Gaussian messages",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML file with nodes, precision and workers")
	pf.IntVar(&opts.nodes, "nodes", def.Nodes, "quadrature node budget per integration")
	pf.Float64Var(&opts.precision, "precision", def.Precision, "relative tail-mass precision")
	pf.IntVar(&opts.workers, "workers", def.Workers, "parallel machines (0 = NumCPU)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newCheckCmd(opts), newIntegrateCmd(opts), newFamiliesCmd())
	return root
}

// config merges the config file (if any) with flags set on the command line.
func (o *options) config(cmd *cobra.Command) (liknorm.Config, error) {
	cfg := liknorm.DefaultConfig()
	if o.configPath != "" {
		var err error
		cfg, err = liknorm.LoadConfig(o.configPath)
		if err != nil {
			return liknorm.Config{}, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("nodes") {
		cfg.Nodes = o.nodes
	}
	if flags.Changed("precision") {
		cfg.Precision = o.precision
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	return cfg, cfg.Validate()
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
