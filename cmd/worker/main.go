package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"toolgate/internal/config"
	"toolgate/internal/handler/http/respond"
	workerPkg "toolgate/internal/infra/worker"
	"toolgate/internal/observability/logging"
	"toolgate/internal/observability/metrics"
	"toolgate/internal/observability/slo"
	"toolgate/internal/usecase/invoke"
	"toolgate/pkg/idempotency"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig := workerPkg.LoadConfigFromEnv(logger, workerMetrics.ConfigMetrics)
	logger.Info("worker configuration loaded",
		slog.String("stats_schedule", workerConfig.StatsSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("metrics_port", workerConfig.MetricsPort),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Duration("shutdown_timeout", workerConfig.ShutdownTimeout),
		slog.Int("dependencies", len(workerConfig.Dependencies)))

	// Load gate policy configuration (fail-closed strategy)
	gateConfig, err := config.Load()
	metrics.RecordConfigLoad(err == nil)
	if err != nil {
		logger.Error("failed to load gate configuration", slog.Any("error", err))
		os.Exit(1)
	}

	components := setupGate(logger, gateConfig, workerConfig.Dependencies)

	readiness := workerPkg.NewReadiness(logger)
	version := getVersion()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsServer := workerPkg.NewServer("metrics",
		fmt.Sprintf(":%d", workerConfig.MetricsPort),
		newMetricsHandler(components.prometheus.Registry()),
		workerConfig.ShutdownTimeout,
		logger)
	opsServer := workerPkg.NewServer("ops",
		fmt.Sprintf(":%d", workerConfig.HealthPort),
		newOpsHandler(logger, components, readiness, workerConfig, version),
		workerConfig.ShutdownTimeout,
		logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return metricsServer.Start(gctx) })
	g.Go(func() error { return opsServer.Start(gctx) })

	serversDone := make(chan error, 1)
	go func() { serversDone <- g.Wait() }()

	scheduler, err := startScheduler(logger, workerConfig, gateConfig, components, workerMetrics)
	if err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}

	// Mark as ready once the listeners and schedules are up
	readiness.Set(true)
	logger.Info("worker started",
		slog.String("version", version),
		slog.Int("metrics_port", workerConfig.MetricsPort),
		slog.Int("health_port", workerConfig.HealthPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serversDone:
		// A listener died without being asked to stop
		logger.Error("listener failed", slog.Any("error", err))
		readiness.Set(false)
		scheduler.Stop()
		os.Exit(1)
	}

	readiness.Set(false)

	// Let running jobs finish before the listeners go away
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(workerConfig.ShutdownTimeout):
		logger.Warn("scheduled jobs did not finish before timeout")
	}

	cancel()
	if err := <-serversDone; err != nil && err != http.ErrServerClosed {
		logger.Error("listener shutdown failed", slog.Any("error", err))
	}
	logger.Info("worker stopped")
}

// gateComponents holds the gate and the pieces main wires around it.
type gateComponents struct {
	gate       *invoke.Service
	store      idempotency.Store
	capacity   int
	prometheus *invoke.PrometheusRecorder
	stats      *invoke.StatsRecorder
}

// setupGate builds the gate from the policy configuration and warms the
// metric series for the configured dependencies so dashboards see them
// at zero from startup.
func setupGate(logger *slog.Logger, cfg *config.Config, dependencies []string) *gateComponents {
	promRecorder := invoke.NewPrometheusRecorder()
	statsRecorder := invoke.NewStatsRecorder()
	for _, dependency := range dependencies {
		promRecorder.InitDependency(dependency)
		statsRecorder.Track(dependency)
	}

	// The store is built here rather than taken from Gate so the sweep
	// job and the health check keep a handle on it.
	store := idempotency.NewInMemoryStore(cfg.StoreConfig())
	capacity := cfg.Idempotency.MaxEntries
	if capacity <= 0 {
		capacity = idempotency.DefaultInMemoryStoreConfig().MaxEntries
	}

	gateCfg := cfg.Gate()
	gateCfg.Store = store
	gateCfg.Recorder = invoke.MultiRecorder{promRecorder, statsRecorder}

	logger.Info("gate initialized",
		slog.Int("dependencies_warmed", len(dependencies)),
		slog.Int("store_capacity", capacity),
		slog.Duration("sweep_interval", cfg.SweepInterval()))

	return &gateComponents{
		gate:       invoke.New(gateCfg),
		store:      store,
		capacity:   capacity,
		prometheus: promRecorder,
		stats:      statsRecorder,
	}
}

// startScheduler registers the sweep and stats jobs on a cron scheduler
// running in the configured timezone and starts it.
func startScheduler(logger *slog.Logger, cfg *workerPkg.WorkerConfig, gateConfig *config.Config, components *gateComponents, workerMetrics *workerPkg.WorkerMetrics) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	if interval := gateConfig.SweepInterval(); interval > 0 {
		spec := fmt.Sprintf("@every %s", interval)
		if _, err := c.AddFunc(spec, func() {
			runSweepJob(logger, components.store, workerMetrics)
		}); err != nil {
			return nil, fmt.Errorf("schedule sweep job: %w", err)
		}
		logger.Info("sweep job scheduled", slog.Duration("interval", interval))
	} else {
		logger.Info("sweep job disabled")
	}

	if _, err := c.AddFunc(cfg.StatsSchedule, func() {
		runStatsJob(logger, components.stats, workerMetrics)
	}); err != nil {
		return nil, fmt.Errorf("schedule stats job: %w", err)
	}
	logger.Info("stats job scheduled", slog.String("schedule", cfg.StatsSchedule))

	c.Start()
	return c, nil
}

// runSweepJob removes expired idempotency entries and refreshes the
// store occupancy gauge.
func runSweepJob(logger *slog.Logger, store idempotency.Store, workerMetrics *workerPkg.WorkerMetrics) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := store.Sweep(ctx)
	metrics.RecordSweep(time.Since(start), removed, err)
	if err != nil {
		logger.Error("idempotency sweep failed", slog.Any("error", respond.SanitizeError(err)))
		return
	}

	if entries, lenErr := store.Len(ctx); lenErr == nil {
		metrics.UpdateIdempotencyEntries(entries)
	}

	workerMetrics.RecordJobSuccess("sweep")
	logger.Info("idempotency sweep completed",
		slog.Int("removed", removed),
		slog.Duration("duration", time.Since(start)))
}

// runStatsJob publishes the gate's counters as an operator log line and
// refreshes the per-dependency SLO gauges.
func runStatsJob(logger *slog.Logger, stats *invoke.StatsRecorder, workerMetrics *workerPkg.WorkerMetrics) {
	snap := stats.Snapshot()
	metrics.RecordStatsSnapshot(len(snap.Dependencies))

	for dependency, d := range snap.Dependencies {
		slo.ObserveDependency(dependency, d.Calls, d.Attempts, d.Successes, d.RateLimitHits)
	}

	workerMetrics.RecordJobSuccess("stats")
	logger.Info("gate stats snapshot",
		slog.Int64("executions", snap.Executions),
		slog.Int64("attempts", snap.Attempts),
		slog.Int64("successes", snap.Successes),
		slog.Int64("failures", snap.Failures),
		slog.Int64("rate_limit_hits", snap.RateLimitHits),
		slog.Int64("circuit_transitions", snap.CircuitTransitions),
		slog.Float64("cache_hit_ratio", snap.CacheHitRatio),
		slog.Int("dependencies", len(snap.Dependencies)))
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}
