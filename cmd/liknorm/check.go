package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	liknorm "github.com/ieee0824/liknorm-go"
	"github.com/ieee0824/liknorm-go/internal/table"
)

var errMismatch = errors.New("reference mismatch")

func newCheckCmd(opts *options) *cobra.Command {
	var (
		path       string
		tol        float64
		metricsOut string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Integrate every row of a reference table and compare the moments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			log := opts.logger(cmd)
			rows, err := table.ReadFile(path)
			if err != nil {
				return err
			}
			log.Debug("loaded reference table", slog.String("path", path), slog.Int("rows", len(rows)))

			reg := prometheus.NewRegistry()
			bad, err := checkRows(cmd.Context(), rows, cfg, tol, log, newCheckMetrics(reg))
			if err != nil {
				return err
			}
			if metricsOut != "" {
				if err := prometheus.WriteToTextfile(metricsOut, reg); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}
			for _, mm := range bad {
				log.Error("row mismatch",
					slog.Int("line", mm.row.Line),
					slog.String("family", mm.row.Family),
					slog.Float64("mean", mm.mean),
					slog.Float64("want_mean", mm.row.Mean),
					slog.Float64("variance", mm.variance),
					slog.Float64("want_variance", mm.row.Variance),
					slog.Any("err", mm.err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows, %d mismatches\n", len(rows), len(bad))
			if len(bad) > 0 {
				return fmt.Errorf("%w: %d of %d rows", errMismatch, len(bad), len(rows))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "table", "testdata/table.csv", "reference table (CSV)")
	cmd.Flags().Float64Var(&tol, "tol", 1e-4, "absolute tolerance on mean and variance")
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write Prometheus metrics in textfile-collector format")
	return cmd
}

// mismatch is a row whose moments could not be reproduced.
type mismatch struct {
	row            table.Row
	mean, variance float64
	err            error
}

// checkRows integrates rows on cfg.Workers goroutines. Every goroutine owns
// its machine; rows are dealt round-robin so results stay in table order.
func checkRows(ctx context.Context, rows []table.Row, cfg liknorm.Config, tol float64, log *slog.Logger, metrics *checkMetrics) ([]mismatch, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(rows))

	results := make([]*mismatch, len(rows))
	g, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			m, err := cfg.NewMachine(liknorm.WithLogger(log))
			if err != nil {
				return err
			}
			defer m.Destroy()
			for i := w; i < len(rows); i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				start := time.Now()
				mm := checkRow(m, rows[i], tol)
				metrics.observe(rows[i].Family, mm.result(), time.Since(start))
				results[i] = mm
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var bad []mismatch
	for _, r := range results {
		if r != nil {
			bad = append(bad, *r)
		}
	}
	return bad, nil
}

func (mm *mismatch) result() string {
	switch {
	case mm == nil:
		return resultOK
	case mm.err != nil:
		return resultError
	}
	return resultMismatch
}

func checkRow(m *liknorm.Machine, row table.Row, tol float64) *mismatch {
	ef, err := row.ExpFam()
	if err != nil {
		return &mismatch{row: row, err: err}
	}
	mean, variance, err := m.MeanVariance(ef, row.Normal())
	if err != nil {
		return &mismatch{row: row, err: err}
	}
	ok := math.Abs(mean-row.Mean) < tol && math.Abs(variance-row.Variance) < tol
	ok = ok && !math.IsNaN(mean) && !math.IsInf(mean, 0) && !math.IsNaN(variance) && !math.IsInf(variance, 0)
	if ok {
		return nil
	}
	return &mismatch{row: row, mean: mean, variance: variance}
}
