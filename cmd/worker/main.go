package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/bp-admin-api/config"
	"github.com/jwalitptl/bp-admin-api/internal/email"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository/postgres"
	"github.com/jwalitptl/bp-admin-api/pkg/logger"
	"github.com/jwalitptl/bp-admin-api/pkg/messaging/redis"
	"github.com/jwalitptl/bp-admin-api/pkg/metrics"
	"github.com/jwalitptl/bp-admin-api/pkg/worker"
)

const cleanupInterval = time.Hour

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Setup(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("worker failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), logger.Component("redis"))
	if err != nil {
		return fmt.Errorf("failed to create redis broker: %w", err)
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.Metrics.Namespace)
	m.MustRegister(registry)

	outboxRepo := postgres.NewOutboxRepository(db)

	wc := cfg.Outbox.ToWorkerConfig()
	wc.Channel = cfg.Redis.Channel
	processor, err := worker.NewOutboxProcessor(outboxRepo, broker, wc, logger.Component("outbox"), m)
	if err != nil {
		return err
	}
	mailer := email.NewSMTPService(cfg.SMTP, logger.Component("email"))
	processor.Handle(model.EventReadingAbnormal, email.NewCrisisAlertHandler(mailer, m))

	cleanup := worker.NewCleanupWorker(outboxRepo, cfg.Outbox.Retention, cleanupInterval, logger.Component("cleanup"))

	srv := healthServer(cfg.Metrics.WorkerPort, db, registry)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server failed")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Info().Msg("shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func healthServer(port int, db pinger, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
