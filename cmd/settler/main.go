package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peerpush/platform/internal/infra"
	"github.com/peerpush/platform/internal/repository"
	"github.com/peerpush/platform/internal/settlement"
	"github.com/peerpush/platform/internal/wallet"
)

const (
	settleBatchSize  = 50
	settleJobTimeout = 30 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("settler failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	interval, err := time.ParseDuration(cfg.SettlerInterval)
	if err != nil {
		return fmt.Errorf("parse settler interval: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("settler connected to postgres")

	ledgerRepo := repository.NewLedgerRepository()
	allocationRepo := repository.NewAllocationRepository()
	challengeRepo := repository.NewChallengeRepository()
	participantRepo := repository.NewParticipantRepository()
	settlementRepo := repository.NewSettlementRepository()
	outboxRepo := repository.NewOutboxRepository()

	walletEngine := wallet.NewEngine(ledgerRepo, allocationRepo, outboxRepo)
	engine := settlement.NewEngine(pool, challengeRepo, participantRepo, settlementRepo, outboxRepo,
		walletEngine, logger, cfg.PlatformID())

	logger.Info("settler starting", "interval", interval, "batch_size", settleBatchSize)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("settler shutting down")
			return nil
		case <-ticker.C:
			settled, err := engine.SettleDue(ctx, settleBatchSize, settleJobTimeout)
			if err != nil {
				logger.Error("settle sweep failed", "error", err)
				continue
			}
			if settled > 0 {
				logger.Info("settle sweep complete", "settled", settled)
			}
		}
	}
}
