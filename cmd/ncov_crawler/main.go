package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ncov-crawler/internal/crawler/api"
	"ncov-crawler/internal/crawler/fetcher"
	"ncov-crawler/internal/crawler/model"
	"ncov-crawler/internal/crawler/namemap"
	"ncov-crawler/internal/crawler/normalizer"
	"ncov-crawler/internal/crawler/notify"
	"ncov-crawler/internal/crawler/scheduler"
	"ncov-crawler/internal/crawler/store"
	"ncov-crawler/internal/middleware/logger"
	"ncov-crawler/pkg/config"
)

func main() {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Development)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting nCoV crawler...")

	backend := openStore(ctx, log, cfg.Mongo)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = backend.Close(closeCtx)
	}()

	var notifier notify.Notifier = notify.Nop{}
	if cfg.NATS.URL != "" {
		pub, err := notify.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			panic(err)
		}
		defer pub.Close()
		notifier = pub
		log.Info("Publishing crawl summaries", zap.String("subject", cfg.NATS.Subject))
	}

	// 1) 抓取任务：每 60 秒一轮
	worker := scheduler.NewWorker(
		log,
		fetcher.New(log, 30*time.Second, nil),
		backend,
		normalizer.New(log, namemap.Default()),
		notifier,
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	// 2) 只读 HTTP API
	if cfg.API.Address != "" {
		srv := &api.Server{Reader: backend, Log: log}
		r := srv.Router()
		_ = r.SetTrustedProxies(nil)
		httpServer := &http.Server{Addr: cfg.API.Address, Handler: r}

		go func() {
			log.Info("nCoV crawler API is running", zap.String("address", cfg.API.Address))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("API server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()
	}

	<-done
	log.Info("nCoV crawler stopped")
}

// openStore 未配置 mongo.host 时退回内存存储，只用于试运行
func openStore(ctx context.Context, log *zap.Logger, cfg config.MongoConfig) store.Backend {
	if cfg.Host == "" {
		log.Warn("mongo.host is empty, using in-memory store")
		return store.NewMemory()
	}

	indexes := make([]store.Index, 0, len(model.Collections))
	for _, c := range model.Collections {
		indexes = append(indexes, store.Index{Collection: c.Name, Field: c.TimestampField})
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	m, err := store.Connect(connectCtx, cfg, indexes)
	if err != nil {
		panic(err)
	}
	log.Info("Connected to MongoDB", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))
	return m
}
