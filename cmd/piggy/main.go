package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"piggy/internal/advice"
	"piggy/internal/config"
	"piggy/internal/events"
	apphttp "piggy/internal/http"
	"piggy/internal/ledger"
	"piggy/internal/store"
	"piggy/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Choose data backend
	var st store.Store
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		st = repo
	case "jsonfile":
		files, err := store.NewJSONFile(cfg.DataDir)
		if err != nil {
			logger.Error("Failed to initialize JSON file store", "error", err, "dir", cfg.DataDir)
			os.Exit(1)
		}
		st = files
	default:
		st = store.NewMemory()
	}
	defer st.Close()
	logger.Info("Initialized data backend", "backend", cfg.DataBackend)

	// Optional AMQP event publisher
	var opts []ledger.Option
	if cfg.AMQPURL != "" {
		pub, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP publisher", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		opts = append(opts, ledger.WithEvents(pub))
		logger.Info("Event publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	svc, err := ledger.New(ctx, st, opts...)
	if err != nil {
		logger.Error("Failed to load ledger", "error", err)
		os.Exit(1)
	}

	// Advice client and its debounced refresher
	adviser := advice.NewClient(advice.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.AdviceTimeout,
	})
	if cfg.GeminiAPIKey == "" {
		logger.Info("Advice disabled - no GEMINI_API_KEY provided")
	}
	refresher := advice.NewRefresher(adviser, func() advice.Snapshot {
		_, goals := svc.Snapshot()
		snap := advice.Snapshot{Summary: svc.Summary(), Goals: goals}
		if latest, ok := svc.Latest(); ok {
			snap.Latest = &latest
		}
		return snap
	}, cfg.AdviceDebounce)

	srv := apphttp.NewServer(":"+cfg.Port, svc, refresher)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting piggy server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := refresher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
