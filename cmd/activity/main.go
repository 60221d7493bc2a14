package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/picshare/activity-service/internal/application/factories/infrastructure"
	"github.com/picshare/activity-service/internal/config"
	"github.com/picshare/activity-service/internal/infrastructure/kafka"
	"github.com/picshare/activity-service/internal/infrastructure/postgres"
	redisInfra "github.com/picshare/activity-service/internal/infrastructure/redis"
	"github.com/picshare/activity-service/internal/ingest"
	"github.com/picshare/activity-service/internal/ops"
	"github.com/picshare/activity-service/internal/schema"
)

func main() {
	// Initialize structured JSON logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	redisClient, err := infraFactory.Redis(ctx)
	if err != nil {
		// The seen cache is a fast path only; the ledger's unique index
		// still guarantees dedup, so start degraded rather than fail.
		logger.Error("failed to connect to redis, running without seen cache", "error", err)
		redisClient = nil
	}

	// Ops server (health, readiness, metrics)
	go func() {
		router := ops.NewRouter(pgPool, redisClient)
		logger.Info("ops server listening", "port", cfg.HTTP.Port)
		if err := http.ListenAndServe(":"+cfg.HTTP.Port, router); err != nil {
			logger.Error("ops server stopped", "error", err)
		}
	}()

	ledger := postgres.NewActivityRepository(pgPool)

	var seen ingest.SeenCache
	if redisClient != nil {
		seen = redisInfra.NewSeenCache(redisClient, cfg.Ingest.SeenTTL)
	}

	mapper := schema.NewMapper(schema.DefaultMappings())
	pipeline := ingest.NewPipeline(mapper, ledger, seen, logger)

	dlq := kafka.NewDeadLetterWriter(kafka.DeadLetterConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.DeadLetterTopic,
	})
	defer dlq.Close()

	// Explicit channel registration: one reader per subscribed topic.
	var bindings []ingest.Binding
	for _, channel := range schema.Channels() {
		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       channel,
			GroupID:     cfg.Kafka.GroupID,
			StartOffset: cfg.Kafka.StartOffset,
		})
		defer consumer.Close()
		bindings = append(bindings, ingest.Binding{Channel: channel, Source: consumer})
	}

	service := ingest.NewService(bindings, pipeline, dlq, cfg.Ingest.Lanes, ingest.Options{
		BatchSize:   cfg.Ingest.BatchSize,
		MaxRetries:  cfg.Ingest.MaxRetries,
		BackoffBase: cfg.Ingest.BackoffBase,
	}, logger)

	logger.Info("activity ingestion started",
		"app", cfg.App.Name,
		"group_id", cfg.Kafka.GroupID,
		"channels", schema.Channels(),
		"lanes", cfg.Ingest.Lanes)

	service.Run(ctx)
}
