// Command analytics runs the search analytics aggregator on its own.
//
// When several retrieval engines publish search events to Kafka, this
// service consumes the shared topic, keeps the combined statistics, and
// serves them at GET /api/v1/analytics. With postgres configured and a
// snapshot interval set, it restores the latest snapshot on start and saves
// new ones periodically.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081]
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
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8081, "HTTP port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if len(cfg.Kafka.Brokers) == 0 {
		slog.Error("kafka.brokers is empty; the standalone aggregator has nothing to consume")
		os.Exit(1)
	}
	slog.Info("starting analytics service", "port", *port, "topic", cfg.Kafka.Topics.SearchEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	aggregator := analytics.NewAggregator()
	checker := health.NewChecker()

	if cfg.Analytics.SnapshotInterval > 0 {
		pg, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, snapshots disabled", "error", err)
			checker.Register("postgres", health.Disabled("unavailable at startup"))
		} else {
			defer pg.Close()
			if err := pg.EnsureSchema(ctx); err != nil {
				slog.Error("failed to apply schema", "error", err)
				os.Exit(1)
			}
			snapshots := analytics.NewSnapshotStore(pg)
			if latest, err := snapshots.Latest(ctx); err != nil {
				slog.Warn("could not restore analytics snapshot", "error", err)
			} else if latest != nil {
				aggregator.Restore(*latest)
			}
			snapshots.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
			checker.Register("postgres", health.Ping(pg.Ping, true))
		}
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, analytics.HandleEvent(aggregator))
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Metrics(m),
	)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port + 1)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}
