// cmd/pipeline-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"jobingest/internal/common/config"
	"jobingest/internal/common/database"
	"jobingest/internal/common/httpx"
	"jobingest/internal/common/logger"
	"jobingest/internal/common/observability"
	"jobingest/internal/crawler"
	"jobingest/internal/crawler/browser"
	"jobingest/internal/crawler/extract"
	"jobingest/internal/dedup"
	"jobingest/internal/enrich"
	"jobingest/internal/notify"
	"jobingest/internal/pipeline"
	"jobingest/internal/quality"
	"jobingest/internal/ratelimit"
	"jobingest/internal/scheduler"
	"jobingest/internal/search"
	"jobingest/internal/store"
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
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting pipeline manager...")

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
		zapLog.Warn("redis unavailable, url dedup cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	var indexer pipeline.Indexer
	if err != nil {
		zapLog.Warn("elasticsearch unavailable, search projection disabled", zap.Error(err))
	} else {
		zapLog.Info("Elasticsearch connected successfully")
		indexer = search.NewIndexer(esClient, cfg.Database.Elasticsearch.JobsIndex, log)
	}

	// --- Notifications ---
	var notifier pipeline.Notifier
	n, err := notify.New(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Warn("notifier init failed, notifications disabled", zap.Error(err))
	} else {
		notifier = n
	}

	// --- Assemble the pipeline ---
	jobStore := store.New(pg, log)
	detector := dedup.NewDetector(jobStore, redisClient, log)
	enricher := enrich.NewClient(cfg.AI, httpx.NewClient(time.Duration(cfg.AI.TimeoutMs)*time.Millisecond).HTTP(), log)
	scorer := quality.NewScorer(cfg.Quality)

	processor := pipeline.NewProcessor(detector, enricher, scorer, jobStore, indexer, notifier, obs, log)

	// --- Assemble the crawl side ---
	limiter := ratelimit.New(cfg.RateLimit)
	httpClient := httpx.NewClient(30 * time.Second)

	fetchers := make(map[string]scheduler.Fetcher, len(cfg.Crawler.Sources))
	for _, source := range cfg.Crawler.Sources {
		fetchers[source.Name] = crawler.NewFetcher(source, limiter, httpClient, log, cfg.Crawler.MaxConsecutiveFails)
	}

	pages := browser.NewFactory(time.Duration(cfg.Crawler.NavigationTimeoutMs)*time.Millisecond, log)
	defer pages.Close()
	extractor := extract.NewExtractor(pages, log)

	sched := scheduler.New(cfg.Crawler, fetchers, extractor, processor, log)
	if err := sched.Start(ctx); err != nil {
		zapLog.Fatal("scheduler start failed", zap.Error(err))
	}

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := pg.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on " + cfg.Metrics.Address)
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	zapLog.Info("Pipeline manager started",
		zap.Int("sources", len(cfg.Crawler.Sources)),
		zap.String("cron_spec", cfg.Crawler.CronSpec),
	)

	<-ctx.Done()

	zapLog.Info("Shutdown signal received, draining crawl runs...")
	sched.Stop()

	zapLog.Info("Pipeline manager stopped gracefully")
}
