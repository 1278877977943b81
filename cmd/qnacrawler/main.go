// Package main wires together the crawler service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qnalytics/qna-crawler/internal/api"
	"github.com/qnalytics/qna-crawler/internal/archive"
	"github.com/qnalytics/qna-crawler/internal/cache"
	"github.com/qnalytics/qna-crawler/internal/clock/system"
	"github.com/qnalytics/qna-crawler/internal/config"
	"github.com/qnalytics/qna-crawler/internal/crawler"
	"github.com/qnalytics/qna-crawler/internal/dispatcher"
	collyfetcher "github.com/qnalytics/qna-crawler/internal/fetcher/colly"
	"github.com/qnalytics/qna-crawler/internal/id/uuid"
	"github.com/qnalytics/qna-crawler/internal/logging"
	"github.com/qnalytics/qna-crawler/internal/metrics"
	memorypublisher "github.com/qnalytics/qna-crawler/internal/publisher/memory"
	redispublisher "github.com/qnalytics/qna-crawler/internal/publisher/redis"
	queueMemory "github.com/qnalytics/qna-crawler/internal/queue/memory"
	"github.com/qnalytics/qna-crawler/internal/registry"
	"github.com/qnalytics/qna-crawler/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	clock := system.New()
	idGen := uuid.New()
	taskRegistry := registry.New(clock, logger.Named("registry"))
	queue := queueMemory.NewQueue(cfg.Crawler.QueueDepth)
	extractor := crawler.NewExtractor(cfg.Crawler.Origin, logger.Named("extract"))

	archiveStore, err := archive.NewStore(cfg.Output.Dir, logger.Named("archive"))
	if err != nil {
		logger.Fatal("archive init failed", zap.Error(err))
	}

	var cacheService cache.Service
	switch cfg.Cache.Backend {
	case config.CacheBackendMemcached:
		cacheService = cache.NewMemcached(cfg.Cache.MemcachedAddr, logger.Named("cache"))
	default:
		cacheService = cache.NewMemory(clock, logger.Named("cache"))
	}

	var publisher crawler.Publisher
	switch cfg.Publisher.Backend {
	case config.PublisherBackendRedis:
		redisPub := redispublisher.New(
			cfg.Publisher.RedisAddr,
			cfg.Publisher.RedisDB,
			cfg.Publisher.Stream,
			cfg.Publisher.StreamMaxLength,
		)
		defer func() {
			if closeErr := redisPub.Close(); closeErr != nil {
				logger.Warn("redis publisher close failed", zap.Error(closeErr))
			}
		}()
		publisher = redisPub
	case config.PublisherBackendMemory:
		publisher = memorypublisher.New()
	}

	newFetcher := func(timeout time.Duration) crawler.PageFetcher {
		return collyfetcher.New(collyfetcher.Config{
			Origin:       cfg.Crawler.Origin,
			ListingPath:  cfg.Crawler.ListingPath,
			ItemSelector: cfg.Crawler.ItemSelector,
			UserAgent:    cfg.Crawler.UserAgent,
			Timeout:      timeout,
		}, logger.Named("fetcher"))
	}

	workerCfg := worker.Config{
		PolitenessDelay: cfg.PolitenessDelay(),
		DefaultTimeout:  cfg.FetchTimeout(),
	}

	var workers []*worker.Worker
	for i := 0; i < cfg.Crawler.Concurrency; i++ {
		workers = append(workers, worker.New(
			queue,
			taskRegistry,
			archiveStore,
			publisher,
			clock,
			newFetcher,
			extractor,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)

	// The synchronous submission path runs the same crawl routine inline on
	// the request goroutine, bypassing the queue.
	syncRunner := worker.New(
		queue,
		taskRegistry,
		archiveStore,
		publisher,
		clock,
		newFetcher,
		extractor,
		workerCfg,
		logger.Named("worker").With(zap.String("mode", "sync")),
	)

	apiServer := api.NewServer(
		taskRegistry,
		dispatch,
		syncRunner,
		archiveStore,
		cacheService,
		idGen,
		clock,
		cfg,
		logger,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", len(workers)))
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	logger.Info("shutdown complete")
}
