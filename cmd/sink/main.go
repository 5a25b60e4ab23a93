package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/lakehouse-shop/internal/config"
	"github.com/example/lakehouse-shop/internal/infrastructure/kafka"
	"github.com/example/lakehouse-shop/internal/infrastructure/store"
	"github.com/example/lakehouse-shop/internal/logging"
	"github.com/example/lakehouse-shop/internal/sink"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("[Sink] %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("[Sink] %v", err)
	}
	defer logger.Sync()
	logger = logger.Named("sink")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting",
		zap.Strings("brokers", cfg.Brokers()),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID))

	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	writer := sink.NewPostgresWriter(db)
	if err := writer.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to create events table", zap.Error(err))
	}

	consumer := kafka.NewConsumer(cfg.Brokers(), cfg.KafkaTopic, cfg.KafkaGroupID, logger.Named("consumer"))
	defer consumer.Close()

	s := sink.New(writer, logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Run(ctx, consumer); err != nil && ctx.Err() == nil {
			logger.Error("consumer stopped", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-done:
	}

	logger.Info("shutting down")
	cancel()
	<-done

	stats := s.Stats()
	logger.Info("stopped",
		zap.Int64("inserted", stats.Inserted),
		zap.Int64("duplicates", stats.Duplicates),
		zap.Int64("skipped", stats.Skipped),
		zap.Int64("failed", stats.Failed))
}
