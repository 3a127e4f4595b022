package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	_ "time/tzdata"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-chat-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/weather-chat-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-chat-service/internal/bootstrap"
	"github.com/couchcryptid/weather-chat-service/internal/config"
	"github.com/couchcryptid/weather-chat-service/internal/observability"
	"github.com/couchcryptid/weather-chat-service/internal/pipeline"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := bootstrap.LoadResources(cfg, logger)
	if err != nil {
		logger.Error("failed to load dialogue resources", "error", err)
		os.Exit(1)
	}
	svc, err := bootstrap.NewServices(ctx, cfg, logger, metrics, clock)
	if err != nil {
		logger.Error("failed to create services", "error", err)
		os.Exit(1)
	}
	store := bootstrap.NewStore(cfg, logger, metrics, clock)
	engine, err := bootstrap.NewEngine(cfg, res, svc, store, logger, metrics, clock)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, engine, logger)

	var wg sync.WaitGroup

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Expire idle conversations.
	if cfg.ContextSweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.RunSweeper(ctx, cfg.ContextSweepInterval)
		}()
	}

	// Start Kafka pipeline.
	var reader *kafkaadapter.Reader
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(reader, engine, writer, logger, metrics, cfg.BatchSize)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka transport disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
