package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/lakehouse-shop/internal/config"
	"github.com/example/lakehouse-shop/internal/infrastructure/store"
	"github.com/example/lakehouse-shop/internal/ingest"
	"github.com/example/lakehouse-shop/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("[Ingest] %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("[Ingest] %v", err)
	}
	defer logger.Sync()
	logger = logger.Named("ingest")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, closer, err := store.Open(ctx, store.Options{
		Backend:       cfg.StorageBackend,
		DatabaseURL:   cfg.DatabaseURL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisPrefix:   cfg.RedisPrefix,
	})
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer closer.Close()

	console := ingest.NewConsolePublisher(ingest.ExecRunner{}, cfg.ConsoleContainer, cfg.ConsoleBroker, logger.Named("console"))
	direct := ingest.NewDirectPublisher(ingest.KafkaProducerFactory, logger.Named("direct"))
	defer func() {
		if err := direct.Close(); err != nil {
			logger.Warn("failed to close producers", zap.Error(err))
		}
	}()

	service := ingest.NewService(ctx, kv, ingest.Settings{
		BootstrapServers: cfg.KafkaBrokers,
		Topic:            cfg.KafkaTopic,
	}, console, direct, ingest.WithLogger(logger))

	settings := service.Settings()
	logger.Info("starting",
		zap.String("addr", cfg.IngestAddr),
		zap.String("bootstrap_servers", settings.BootstrapServers),
		zap.String("topic", settings.Topic))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(logger.Named("http")))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)
	ingest.NewHandlers(service, logger.Named("api")).Routes(r)

	server := &http.Server{
		Addr:              cfg.IngestAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", zap.String("addr", cfg.IngestAddr))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
