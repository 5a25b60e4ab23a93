package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/lakehouse-shop/internal/api"
	"github.com/example/lakehouse-shop/internal/config"
	"github.com/example/lakehouse-shop/internal/domain/catalog"
	"github.com/example/lakehouse-shop/internal/gateway"
	"github.com/example/lakehouse-shop/internal/infrastructure/store"
	"github.com/example/lakehouse-shop/internal/logging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("[Shop] %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("[Shop] %v", err)
	}
	defer logger.Sync()
	logger = logger.Named("shop")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("storage", cfg.StorageBackend),
		zap.String("ingest_url", cfg.IngestURL),
		zap.Stringer("delivery", cfg.Delivery()))

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

	cat := catalog.Default()
	logger.Info("catalog loaded", zap.Int("items", cat.Len()))
	client := gateway.NewClient(cfg.IngestURL,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		gateway.WithLogger(logger.Named("gateway")))

	sessions := api.NewSessions(api.SessionConfig{
		Catalog:  cat,
		Store:    kv,
		Gateway:  client,
		Delivery: cfg.Delivery(),
		Logger:   logger,
	})
	handlers := api.NewHandlers(sessions, cat, cfg.KafkaTopic, logger.Named("api"))

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.RouterConfig{
			Handlers:       handlers,
			Logger:         logger.Named("http"),
			CORSOrigins:    cfg.CORSOrigins,
			RequestTimeout: cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", zap.String("addr", cfg.HTTPAddr))
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
