// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"clinqo-prescriber/internal/api"
	"clinqo-prescriber/internal/common/cache"
	"clinqo-prescriber/internal/common/camunda"
	"clinqo-prescriber/internal/common/config"
	"clinqo-prescriber/internal/common/database"
	"clinqo-prescriber/internal/common/logger"
	"clinqo-prescriber/internal/common/observability"
	"clinqo-prescriber/internal/prescription"

	gp "clinqo-prescriber/internal/workers/prescription/generate-prescription"
	sp "clinqo-prescriber/internal/workers/prescription/submit-prescription"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting worker manager",
		zap.String("version", cfg.App.Version),
		zap.String("model", cfg.Inference.Model),
		zap.String("schemaMode", cfg.Pipeline.SchemaMode))

	if !cfg.Inference.HasCredential() {
		zapLog.Warn("OPENROUTER_API_KEY is not configured; generation requests will be rejected")
	}

	obs := observability.New(cfg.App.Name, cfg.Tracing.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Pipeline ---
	var pipeline prescription.Pipeline = prescription.NewFromApp(cfg, log,
		prescription.WithRecorder(obs),
		prescription.WithTracer(obs.Tracer()),
	)

	deps := api.Dependencies{
		AIConfigured: cfg.Inference.HasCredential(),
		Logger:       log,
	}

	// --- Redis result cache ---
	if cfg.Cache.Enabled {
		redis := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()

		results := cache.NewResultCache(redis.Client, cfg.Inference.Model, config.GetDuration(cfg.Cache.TTL), log)
		pipeline = prescription.NewCachedGenerator(pipeline, results, log)
		deps.CacheCheck = results.Ping
		zapLog.Info("result cache enabled", zap.Int("ttlMs", cfg.Cache.TTL))
	}
	deps.Pipeline = pipeline

	// --- PostgreSQL prescription store ---
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			if pg == nil {
				if pg, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
					return err
				}
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		if err := pg.Migrate(ctx); err != nil {
			zapLog.Fatal("postgres migration failed", zap.Error(err))
		}

		deps.Submitter = sp.NewHandler(sp.LoadConfig(cfg), pg.DB, log)
		deps.DatabaseCheck = pg.Ping
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Zeebe workers ---
	var workers []*camunda.Worker
	if cfg.Camunda.Enabled {
		zeebe, err := camunda.NewClientWithConfig(camunda.ConfigFromApp(cfg.Camunda))
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		defer zeebe.Close()
		deps.WorkflowCheck = zeebe.HealthCheck

		if config.IsWorkerEnabled(cfg, gp.TaskType) {
			handler := gp.NewHandler(gp.LoadConfig(cfg), pipeline, log)
			workers = append(workers, startWorker(zeebe, cfg, gp.TaskType, handler, zapLog))
		}

		if config.IsWorkerEnabled(cfg, sp.TaskType) {
			if pg == nil {
				zapLog.Warn("submit-prescription worker needs postgres; skipping")
			} else {
				handler := sp.NewHandler(sp.LoadConfig(cfg), pg.DB, log)
				workers = append(workers, startWorker(zeebe, cfg, sp.TaskType, handler, zapLog))
			}
		}

		zapLog.Info("workers registered", zap.Int("count", len(workers)))
	}

	// --- HTTP API ---
	server := api.NewServer(deps).HTTPServer(
		cfg.Server.Address,
		config.GetDuration(cfg.Server.ReadTimeout),
		config.GetDuration(cfg.Server.WriteTimeout),
	)

	go func() {
		zapLog.Info("HTTP API listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	zapLog.Info("shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}

	zapLog.Info("worker manager stopped")
}

func startWorker(zeebe *camunda.Client, cfg *config.Config, taskType string, handler camunda.JobHandler, log *zap.Logger) *camunda.Worker {
	wcfg := config.GetWorkerConfig(cfg, taskType)
	return camunda.StartWorker(zeebe.GetClient(), taskType, camunda.WorkerOptions{
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       config.GetDuration(wcfg.Timeout),
	}, handler, log)
}
