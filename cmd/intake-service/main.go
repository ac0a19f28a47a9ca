// cmd/intake-service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"origination-intake/internal/common/config"
	"origination-intake/internal/common/database"
	"origination-intake/internal/common/logger"
	"origination-intake/internal/common/observability"
	"origination-intake/internal/draft"
	"origination-intake/internal/guard"
	"origination-intake/internal/intake"
	"origination-intake/internal/notify"
	"origination-intake/internal/platform"
	"origination-intake/internal/records"
	"origination-intake/internal/search"
	"origination-intake/internal/transport/httpapi"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting intake service...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (only when search is on) ---
	var esClient *database.ElasticsearchClient
	if cfg.Search.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Wire the intake core ---
	snapshots := draft.NewRedisSnapshotStore(rdb.Client)
	recordStore := records.NewStore(pg.DB, log)

	statusChecker := guard.NewCachedStatusChecker(
		guard.NewHTTPStatusChecker(cfg.Platform),
		rdb.Client,
		cfg.Guard,
	)
	accessGuard := guard.New(statusChecker, cfg.Guard, cfg.App.IsProduction(), log)

	platformClient := platform.NewClient(cfg.Platform, log)

	var (
		indexer intake.SubmissionIndexer = noopIndexer{}
		finder  httpapi.SubmissionFinder
	)
	if cfg.Search.Enabled {
		searchIndexer := search.NewIndexer(esClient.Client, cfg.Search, log)
		indexer = searchIndexer
		finder = searchIndexer
	}

	notifier, err := notify.NewNotifier(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notifier init failed", zap.Error(err))
	}

	service := intake.NewService(snapshots, accessGuard, platformClient, recordStore, indexer, notifier, log)
	server := httpapi.NewServer(service, recordStore, finder, obs, log)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.ListenAddress,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping intake service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown error", zap.Error(err))
	}

	zapLog.Info("Intake service stopped")
}

type noopIndexer struct{}

func (noopIndexer) IndexSubmission(context.Context, *records.SubmissionRecord) error {
	return nil
}
