// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Norbert250/ORION-2-sub000/internal/admin"
	"github.com/Norbert250/ORION-2-sub000/internal/analysis"
	awsclients "github.com/Norbert250/ORION-2-sub000/internal/common/aws"
	"github.com/Norbert250/ORION-2-sub000/internal/common/config"
	"github.com/Norbert250/ORION-2-sub000/internal/common/database"
	"github.com/Norbert250/ORION-2-sub000/internal/common/httpclient"
	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/common/observability"
	"github.com/Norbert250/ORION-2-sub000/internal/common/storage"
	"github.com/Norbert250/ORION-2-sub000/internal/intake"
	"github.com/Norbert250/ORION-2-sub000/internal/notify"
	"github.com/Norbert250/ORION-2-sub000/internal/persistence"
	"github.com/Norbert250/ORION-2-sub000/internal/server"
	"github.com/Norbert250/ORION-2-sub000/internal/session"
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

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting intake server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("intake-server")
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
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (optional: search degrades) ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 5, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Warn("elasticsearch unavailable, search and indexing disabled", zap.Error(err))
		esClient = nil
	} else {
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init Object Storage with retry ---
	var objectStore *storage.MinioStore
	err = retryWithBackoff(func() error {
		var err error
		objectStore, err = storage.NewMinioStore(cfg.Storage)
		if err != nil {
			return err
		}
		return objectStore.EnsureBuckets(ctx)
	}, 10, 2*time.Second, zapLog, "Object storage connection")

	if err != nil {
		zapLog.Fatal("object storage failed after retries", zap.Error(err))
	}
	zapLog.Info("Object storage ready")

	// --- Init AWS notification clients (config gated) ---
	var sms notify.SMSPublisher
	var email notify.EmailSender
	if cfg.Notifications.SMS.Enabled {
		client, err := awsclients.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("sns client init failed, sms disabled", zap.Error(err))
		} else {
			sms = client
		}
	}
	if cfg.Notifications.Email.Enabled {
		client, err := awsclients.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("ses client init failed, email disabled", zap.Error(err))
		} else {
			email = client
		}
	}
	notifier := notify.NewNotifier(cfg.Notifications, sms, email, log)

	// --- Wire application components ---
	analyzer := analysis.NewClient(cfg.Analyzers, log)
	draftStore := intake.NewDraftStore(redisClient.Client, time.Duration(cfg.Intake.DraftTTL)*time.Minute)
	tracker := session.NewTracker(pg.DB, redisClient.Client, log)

	var indexer persistence.Indexer
	var searcher admin.Searcher
	if esClient != nil {
		indexer = esClient
		searcher = esClient
	}

	gateway := persistence.NewGateway(pg.DB, objectStore, draftStore, indexer,
		cfg.Storage.Buckets, cfg.Database.Elasticsearch.Index, log)
	orchestrator := intake.NewOrchestrator(draftStore, analyzer, gateway, tracker, notifier, log)
	views := admin.NewViews(pg.DB, searcher, notifier, cfg.Database.Elasticsearch.Index, log)

	board := admin.NewLiveBoard()
	watcher := admin.NewWatcher(board, redisClient.Client, views,
		time.Duration(cfg.Intake.SessionPollTick)*time.Second, log)

	watcherCtx, stopWatcher := context.WithCancel(ctx)
	defer stopWatcher()
	go watcher.Run(watcherCtx)

	handler, err := server.NewHandler(orchestrator, views, board, tracker, log)
	if err != nil {
		zapLog.Fatal("handler init failed", zap.Error(err))
	}

	proxyClient := httpclient.NewClient(config.GetDuration(cfg.Proxy.Timeout))
	proxy := server.NewProxy(cfg.Proxy.ImageProcessingURL, cfg.Proxy.PassthroughURL, proxyClient, log)

	router := server.NewRouter(handler, proxy, obs, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	stopWatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Intake server stopped gracefully")
}
