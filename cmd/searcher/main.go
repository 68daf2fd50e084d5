package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index/postings"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/metadata"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/scoring"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/blob"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/resilience"
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
	slog.Info("starting retrieval engine", "port", cfg.Server.Port, "storage", cfg.Storage.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	store, err := openStore(cfg.Storage, m)
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}

	var pg *postgres.Client
	if cfg.Metadata.Source == "postgres" || cfg.Analytics.SnapshotInterval > 0 {
		pg, err = postgres.New(cfg.Postgres)
		if err != nil {
			if cfg.Metadata.Source == "postgres" {
				slog.Error("failed to connect to postgres", "error", err)
				os.Exit(1)
			}
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer pg.Close()
			if err := pg.EnsureSchema(ctx); err != nil {
				slog.Error("failed to apply schema", "error", err)
				os.Exit(1)
			}
		}
	}

	type loaded struct {
		fields index.Fields
		meta   *metadata.Store
	}
	idx, err := resilience.WithTimeout(ctx, cfg.Storage.LoadTimeout, "index.load", func(ctx context.Context) (loaded, error) {
		fields, err := index.LoadFields(ctx, store, cfg.Fields)
		if err != nil {
			return loaded{}, err
		}
		var meta *metadata.Store
		if cfg.Metadata.Source == "postgres" {
			meta, err = metadata.LoadPostgres(ctx, pg)
		} else {
			meta, err = metadata.LoadBlobs(ctx, store, cfg.Metadata)
		}
		return loaded{fields, meta}, err
	})
	if err != nil {
		slog.Error("failed to load index", "error", err)
		os.Exit(1)
	}
	fields, meta := idx.fields, idx.meta
	authority, popularity, titles := meta.Sizes()
	slog.Info("index loaded", "fields", len(fields), "authority", authority, "popularity", popularity, "titles", titles)

	eng, err := engine.New(engine.Options{
		Fields:       fields,
		Source:       postings.NewReader(store, m),
		Tokenizer:    tokenizer.New(tokenizer.Pattern(cfg.Tokenizer.Pattern)),
		Metadata:     meta,
		Params:       scoring.ParamsFromConfig(cfg.Scoring),
		Weights:      ranker.WeightsFromConfig(cfg.Fusion),
		QueryTimeout: cfg.Search.QueryTimeout,
		SlowQuery:    cfg.Search.SlowQuery,
		Metrics:      m,
	})
	if err != nil {
		slog.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	var redisClient *pkgredis.Client
	queryCache := cache.New(nil, cfg.Redis.CacheTTL, m)
	if cfg.Search.CacheEnabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher = aggregator
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		publisher = producer
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, analytics.HandleEvent(aggregator))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
		slog.Info("analytics streaming to kafka", "topic", cfg.Kafka.Topics.SearchEvents)
	}
	if pg != nil && cfg.Analytics.SnapshotInterval > 0 {
		snapshots := analytics.NewSnapshotStore(pg)
		if latest, err := snapshots.Latest(ctx); err != nil {
			slog.Warn("could not restore analytics snapshot", "error", err)
		} else if latest != nil {
			aggregator.Restore(*latest)
		}
		snapshots.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
	}
	collector := analytics.NewCollector(publisher, cfg.Analytics.BufferSize, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval, m)
	collector.Start(ctx)
	defer collector.Close()

	checker := health.NewChecker()
	enabled := 0
	for _, f := range cfg.Fields {
		if f.Enabled {
			enabled++
		}
	}
	checker.Register("index", health.Loaded(func() int { return len(eng.Fields()) }, enabled))
	if rs, ok := store.(*blob.ResilientStore); ok {
		checker.Register("storage", health.Breaker(rs.BreakerState))
	}
	if pg != nil {
		checker.Register("postgres", health.Ping(pg.Ping, true))
	}
	if redisClient != nil {
		checker.Register("redis", health.Ping(redisClient.Ping, true))
	} else {
		checker.Register("redis", health.Disabled("not configured"))
	}

	h := handler.New(handler.Options{
		Engine:       eng,
		Cache:        queryCache,
		Collector:    collector,
		Metrics:      m,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
	})
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	stack := []func(http.Handler) http.Handler{middleware.RequestID}
	if len(cfg.Server.CORSOrigins) > 0 {
		stack = append(stack, middleware.CORS(cfg.Server.CORSOrigins))
	}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		limiter.StartSweeper(ctx, time.Minute)
		stack = append(stack, middleware.RateLimit(limiter))
		slog.Info("rate limiting enabled", "rps", cfg.Server.RateLimit, "burst", cfg.Server.RateBurst)
	}
	stack = append(stack, middleware.Metrics(m), middleware.Timeout(cfg.Server.WriteTimeout))
	chain := middleware.Chain(mux, stack...)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("retrieval engine listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("retrieval engine stopped")
}

// openStore builds the configured backend wrapped with retry and a circuit
// breaker.
func openStore(cfg config.StorageConfig, m *metrics.Metrics) (blob.Store, error) {
	var (
		base blob.Store
		err  error
	)
	switch cfg.Backend {
	case "s3":
		base, err = blob.NewS3Store(cfg)
	default:
		base, err = blob.NewDirStore(cfg.Dir)
	}
	if err != nil {
		return nil, err
	}
	return blob.NewResilientStore(base, "storage-"+cfg.Backend,
		resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.BreakerFailures,
			ResetTimeout:     cfg.BreakerReset,
			OnStateChange: func(_ string, _, to resilience.State) {
				m.CircuitBreakerState.WithLabelValues("storage").Set(float64(to))
			},
		},
		resilience.RetryConfig{MaxAttempts: cfg.RetryAttempts},
	), nil
}
