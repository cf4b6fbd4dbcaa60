package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/peerpush/platform/internal/auth"
	"github.com/peerpush/platform/internal/guard"
	"github.com/peerpush/platform/internal/handler"
	"github.com/peerpush/platform/internal/infra"
	"github.com/peerpush/platform/internal/provider"
	"github.com/peerpush/platform/internal/repository"
	"github.com/peerpush/platform/internal/service"
	"github.com/peerpush/platform/internal/settlement"
	"github.com/peerpush/platform/internal/wallet"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
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

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	userExpiry, err := time.ParseDuration(cfg.JWTUserExpiry)
	if err != nil {
		return fmt.Errorf("parse user JWT expiry: %w", err)
	}
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, userExpiry, userExpiry)

	// Repositories
	ledgerRepo := repository.NewLedgerRepository()
	allocationRepo := repository.NewAllocationRepository()
	refundRepo := repository.NewRefundRepository()
	challengeRepo := repository.NewChallengeRepository()
	participantRepo := repository.NewParticipantRepository()
	settlementRepo := repository.NewSettlementRepository()
	outboxRepo := repository.NewOutboxRepository()

	// Wallet engine
	walletEngine := wallet.NewEngine(ledgerRepo, allocationRepo, outboxRepo)

	// External provider + circuit breaker
	stripeProvider := provider.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	breaker := guard.NewCircuitBreaker(5, 30*time.Second)

	// Services
	walletSvc := service.NewWalletService(pool, ledgerRepo, logger)
	paymentSvc := service.NewPaymentService(pool, stripeProvider, ledgerRepo, outboxRepo, walletEngine, breaker, logger,
		cfg.TokenPriceCents, cfg.DailyDepositCap)
	withdrawalSvc := service.NewWithdrawalService(pool, stripeProvider, walletEngine, refundRepo, outboxRepo, breaker, logger,
		cfg.WithdrawMode, cfg.TokenPriceCents, cfg.RefundWindowDays)
	challengeSvc := service.NewChallengeService(pool, challengeRepo, participantRepo, settlementRepo, outboxRepo,
		walletEngine, logger, cfg.AllowLateJoin)
	settlementEngine := settlement.NewEngine(pool, challengeRepo, participantRepo, settlementRepo, outboxRepo,
		walletEngine, logger, cfg.PlatformID())

	// Handlers
	walletHandler := handler.NewWalletHandler(walletSvc, paymentSvc, withdrawalSvc)
	webhookHandler := handler.NewWebhookHandler(paymentSvc)
	challengeHandler := handler.NewChallengeHandler(challengeSvc, settlementEngine)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS(cfg.CORSAllowedOrigins))

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(pool))

	// Webhooks (no auth, no JSON content-type middleware; raw body required
	// for signature verification)
	r.Post("/stripe/webhook", webhookHandler.HandleStripe)

	// User-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticateUser(jwtMgr))
		r.Use(handler.JSONContentType)

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", walletHandler.GetWallet)
			r.Post("/deposit/checkout", walletHandler.BeginDeposit)
			r.Post("/withdraw", walletHandler.Withdraw)
		})

		r.Post("/challenges/{id}/join", challengeHandler.Join)
	})

	// Admin-authenticated routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.AuthenticateAdmin(jwtMgr))
		r.Use(handler.JSONContentType)

		r.Route("/challenges", func(r chi.Router) {
			r.Post("/{id}/settle", challengeHandler.Settle)
			r.Post("/{id}/cancel", challengeHandler.Cancel)
		})

		r.Get("/platform/revenue", challengeHandler.PlatformRevenue)
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
