package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/blastkit/blast/internal/logger"
	"github.com/blastkit/blast/pkg/config"
)

var (
	workerJobs      []string
	workerOnce      bool
	workerInterval  time.Duration
	workerBatchSize int
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background worker",
	Long: `Run the background worker that drives the delivery pipeline.

The worker ticks the outbox dispatcher on an interval and, when the broker
dispatch strategy is configured, also runs the event bus consumer. Jobs can
be selected individually for split deployments.

Examples:
  # Run every job
  blast worker

  # Run only the dispatcher, ticking every 500ms
  blast worker --job dispatch_outbox_events --interval 500ms

  # Drain one dispatcher tick and exit
  blast worker --once

  # Run with custom config
  blast worker --config /etc/blast/config.yaml`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().StringSliceVar(&workerJobs, "job", []string{"all"}, "Jobs to run (name or \"all\")")
	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "Run one tick of each periodic job and exit")
	workerCmd.Flags().DurationVar(&workerInterval, "interval", 0, "Override the outbox dispatch interval")
	workerCmd.Flags().IntVar(&workerBatchSize, "batch-size", 0, "Override the outbox dispatch batch size")
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Flag overrides
	if workerInterval > 0 {
		cfg.Worker.DispatchInterval = workerInterval
	}
	if workerBatchSize > 0 {
		cfg.Outbox.BatchSize = workerBatchSize
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("Worker configured",
		"strategy", cfg.Outbox.DispatchStrategy,
		"batch_size", cfg.Outbox.BatchSize,
		"interval", cfg.Worker.DispatchInterval.String(),
		"jobs", a.runner.Names())

	if workerOnce {
		return a.runner.RunOnce(ctx, workerJobs...)
	}

	metricsServer := startMetricsServer(a)

	err = a.runner.Run(ctx, workerJobs...)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("metrics server shutdown error", "error", shutdownErr)
		}
	}

	if err != nil {
		return err
	}
	logger.Info("Worker stopped")
	return nil
}

// startMetricsServer exposes the Prometheus registry over HTTP when metrics
// are enabled. Returns nil otherwise.
func startMetricsServer(a *app) *http.Server {
	if a.promRegistry == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.promRegistry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Metrics.Port),
		Handler: mux,
	}

	go func() {
		logger.Info("Metrics server listening", "port", a.cfg.Metrics.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	return server
}
