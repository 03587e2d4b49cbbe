package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	liknorm "github.com/ieee0824/liknorm-go"
	"github.com/ieee0824/liknorm-go/family"
)

func newIntegrateCmd(opts *options) *cobra.Command {
	var (
		name                   string
		y, dispersion          float64
		normalMean, normalVari float64
	)
	cmd := &cobra.Command{
		Use:   "integrate",
		Short: "Print mean, variance and log zeroth moment for one observation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			ef, err := liknorm.NewExpFam(name, y, dispersion)
			if err != nil {
				return err
			}
			m, err := cfg.NewMachine(liknorm.WithLogger(opts.logger(cmd)))
			if err != nil {
				return err
			}
			defer m.Destroy()

			mom, err := m.Integrate(ef, liknorm.NormalFromMeanVar(normalMean, normalVari))
			if err != nil {
				return fmt.Errorf("integrate %s y=%g: %w", name, y, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.10g %.10g %.10g\n", mom.Mean, mom.Variance, mom.LogZeroth)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "family", "", "likelihood family (see the families command)")
	f.Float64Var(&y, "y", 0, "observation")
	f.Float64Var(&dispersion, "dispersion", 1, "signed dispersion scaling")
	f.Float64Var(&normalMean, "mean", 0, "Gaussian message mean")
	f.Float64Var(&normalVari, "variance", 1, "Gaussian message variance")
	if err := cmd.MarkFlagRequired("family"); err != nil {
		panic(err) // only fails for an undefined flag
	}
	return cmd
}

func newFamiliesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List the supported likelihood families and their theta domains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range family.Names() {
				left, right, err := family.GetInterval(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t(%g, %g)\n", name, left, right)
			}
			return w.Flush()
		},
	}
}
