package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"piggy/internal/config"
	"piggy/internal/events"
	"piggy/internal/export"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting piggy-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Mirror destination: Google Sheets when configured, JSONL audit file otherwise.
	var mirror export.TransactionMirror
	if os.Getenv("GOOGLE_SPREADSHEET_ID") != "" {
		sheets, err := export.NewSheetsFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", "error", err)
			os.Exit(1)
		}
		mirror = sheets
		logger.Info("Mirroring transactions to Google Sheets")
	} else {
		audit, err := export.NewAuditLog(cfg.AuditLogPath)
		if err != nil {
			logger.Error("Failed to open audit log", "error", err, "path", cfg.AuditLogPath)
			os.Exit(1)
		}
		mirror = audit
		logger.Info("Mirroring transactions to audit log", "path", cfg.AuditLogPath)
	}
	defer mirror.Close()

	client, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	handler := func(e *events.LedgerEvent) error {
		switch e.Type {
		case events.TransactionCreated:
			if e.Transaction == nil {
				logger.Warn("Created event without transaction payload")
				return nil
			}
			return mirror.AppendTransaction(ctx, *e.Transaction)
		case events.TransactionDeleted:
			logger.Info("Transaction deleted upstream", "id", e.TransactionID)
			return nil
		case events.GoalDeposited:
			logger.Info("Goal deposit observed",
				"goal", e.GoalName, "amount_cents", e.AmountCents, "current_cents", e.CurrentCents)
			return nil
		default:
			logger.Warn("Unknown event type", "type", e.Type)
			return nil
		}
	}

	if err := client.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
