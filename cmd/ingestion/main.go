// Command ingestion starts the dataset ingestion HTTP service.
//
// The service accepts packed-array (.npz) and image-archive (.zip) uploads via
// POST /upload, converts them into the canonical x_train/x_test/y_train/y_test
// arrays under the data root, records them in the catalog and announces them
// on Kafka. Catalog reads are served from GET /api/v1/datasets.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/ingestion/catalog"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion service", "port", cfg.Server.Port, "data_root", cfg.Dataset.DataRoot)

	if err := os.MkdirAll(cfg.Dataset.DataRoot, 0o755); err != nil {
		slog.Error("failed to create data root", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	checker := health.NewChecker()
	checker.Register("data_root", health.DirWritable(cfg.Dataset.DataRoot))

	var (
		store    publisher.RecordStore
		cache    publisher.RecordCache
		producer publisher.EventProducer
		reader   catalog.Reader = catalog.Disk{Root: cfg.Dataset.DataRoot}
	)

	if cfg.Catalog.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := prometheus.Register(db.StatsCollector()); err != nil {
			slog.Warn("catalog pool metrics not registered", "error", err)
		}
		repo := catalog.NewRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare catalog schema", "error", err)
			os.Exit(1)
		}
		store, reader = repo, repo
		checker.Register("postgres", health.Pinger(db.Ping, health.StatusDown))
		slog.Info("connected to postgres catalog")
	}

	if cfg.Redis.Enabled {
		rdb, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, serving catalog without cache", "error", err)
		} else {
			defer rdb.Close()
			c := catalog.NewCache(rdb, cfg.Redis, m)
			cache = c
			reader = catalog.Cached{Next: reader, Cache: c}
			checker.Register("redis", health.Pinger(rdb.Ping, health.StatusDegraded))
			slog.Info("redis summary cache enabled", "ttl", cfg.Redis.CacheTTL)
		}
	}

	if cfg.Kafka.Enabled {
		p := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DatasetReady)
		defer p.Close()
		producer = p
		slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.DatasetReady)
	}

	pipe := pipeline.New(cfg.Dataset,
		pipeline.WithMetrics(m),
		pipeline.WithTracing(cfg.Tracing.Enabled),
	)
	pub := publisher.New(store, cache, producer, m)
	h := handler.New(pipe, pub, reader, cfg.Server.MaxUploadBytes)
	timeout := middleware.Timeout(cfg.Server.RequestTimeout)

	var upload http.Handler = http.HandlerFunc(h.Upload)
	if n := cfg.Server.UploadsPerMinute; n > 0 {
		upload = middleware.RateLimit(ratelimit.New(ctx, n, time.Minute))(upload)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /upload", upload)
	mux.Handle("POST /api/v1/datasets", upload)
	mux.Handle("GET /api/v1/datasets", timeout(http.HandlerFunc(h.ListDatasets)))
	mux.Handle("GET /api/v1/datasets/{id}", timeout(http.HandlerFunc(h.GetDataset)))
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var root http.Handler = mux
	root = middleware.Metrics(m)(root)
	root = middleware.CORS(cfg.CORS)(root)
	root = middleware.RequestID(root)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		ms := metrics.NewServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		g.Go(func() error { return ms.Run(gctx, cfg.Server.ShutdownTimeout) })
	}
	g.Go(func() error {
		slog.Info("ingestion service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if derr := pub.Drain(shutdownCtx); derr != nil {
			slog.Warn("dataset-ready events still in flight at shutdown", "error", derr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
