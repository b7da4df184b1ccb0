package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cervical-sim/cervical-sim/sim/batch"
	"github.com/cervical-sim/cervical-sim/sim/output"
	"github.com/cervical-sim/cervical-sim/sim/scenario"
)

var (
	// CLI flags for batch
	scenarioDirs []string // Scenario directories
	iterations   int      // Iterations per scenario
	workers      int      // Concurrent runs
	metricsAddr  string   // Address serving Prometheus metrics during the batch
)

// batchCmd runs every iteration of every scenario concurrently
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run many scenario iterations concurrently",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		if len(scenarioDirs) == 0 {
			logrus.Fatalf("at least one --scenario is required")
		}
		if iterations <= 0 {
			logrus.Fatalf("--iterations must be positive, got %d", iterations)
		}
		if !output.IsValidFormat(format) {
			logrus.Fatalf("Unknown output format %q", format)
		}
		scenarios := make([]*scenario.Scenario, 0, len(scenarioDirs))
		for _, dir := range scenarioDirs {
			s, err := scenario.Open(dir)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			scenarios = append(scenarios, s)
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		if metricsAddr != "" {
			srv := serveMetrics(metricsAddr, reg)
			defer shutdown(srv)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		tasks := batch.Tasks(scenarios, iterations)
		progress := newProgress(os.Stderr)
		cfg := batch.Config{
			Workers:     workers,
			StoreEvents: storeEvents,
			Format:      format,
			OnResult:    func(batch.Result) { progress.task(len(tasks)) },
		}
		started := time.Now()
		results, err := batch.NewRunner(cfg, batch.NewMetrics(reg)).Run(ctx, tasks)
		progress.finish()
		failed := printBatchSummary(os.Stdout, results, time.Since(started))
		if err != nil {
			logrus.Fatalf("Batch interrupted: %v", err)
		}
		if failed > 0 {
			logrus.Errorf("%d of %d runs failed", failed, len(results))
			os.Exit(1)
		}
	},
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("metrics server: %v", err)
		}
	}()
	logrus.Infof("Serving metrics on %s/metrics", addr)
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Warnf("metrics server shutdown: %v", err)
	}
}

func init() {
	addOutputFlags(batchCmd)
	batchCmd.Flags().StringSliceVar(&scenarioDirs, "scenario", nil, "Scenario directories (repeatable or comma-separated)")
	batchCmd.Flags().IntVar(&iterations, "iterations", 1, "Iterations per scenario")
	batchCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent runs (default: number of CPUs)")
	batchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the batch runs (e.g. :9090)")

	rootCmd.AddCommand(batchCmd)
}
