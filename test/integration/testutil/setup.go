//go:build integration

package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerpush/platform/internal/infra"
	"github.com/peerpush/platform/internal/repository"
	"github.com/peerpush/platform/internal/wallet"
)

const (
	TestStripeWebhookSecret = "whsec_test_integration_secret"
	TestDBHost              = "localhost"
	TestDBPort              = 5432
	TestDBUser              = "peerpush"
	TestDBPass              = "peerpush"
	TestDBName              = "peerpush_test"
)

// TestEnv holds all resources for an integration test: a migrated shared
// pool, the repositories, and the wallet engine wired against them.
type TestEnv struct {
	Pool         *pgxpool.Pool
	Logger       *slog.Logger
	Ledger       repository.LedgerRepository
	Allocations  repository.AllocationRepository
	Refunds      repository.RefundRepository
	Challenges   repository.ChallengeRepository
	Participants repository.ParticipantRepository
	Settlements  repository.SettlementRepository
	Outbox       repository.OutboxRepository
	Wallet       *wallet.Engine
	t            *testing.T
}

var (
	sharedPool *pgxpool.Pool
	poolOnce   sync.Once
	poolErr    error
)

func testDSN() string {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, TestDBName)
}

func bootstrapDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, TestDBUser)
}

func ensureTestDB() error {
	if os.Getenv("TEST_DATABASE_URL") != "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bPool, err := pgxpool.New(ctx, bootstrapDSN())
	if err != nil {
		return fmt.Errorf("connect bootstrap db: %w", err)
	}
	defer bPool.Close()

	var exists bool
	err = bPool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", TestDBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check db exists: %w", err)
	}

	if !exists {
		if _, err := bPool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", TestDBName)); err != nil {
			return fmt.Errorf("create test db: %w", err)
		}
	}
	return nil
}

func getSharedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	poolOnce.Do(func() {
		if err := ensureTestDB(); err != nil {
			poolErr = err
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		poolCfg, err := pgxpool.ParseConfig(testDSN())
		if err != nil {
			poolErr = fmt.Errorf("parse pool config: %w", err)
			return
		}
		poolCfg.MaxConns = 10
		poolCfg.MinConns = 1

		sharedPool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			poolErr = fmt.Errorf("create pool: %w", err)
			return
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		if err := infra.RunMigrations(testDSN(), logger); err != nil {
			poolErr = fmt.Errorf("run migrations: %w", err)
			sharedPool.Close()
			sharedPool = nil
			return
		}
	})

	if poolErr != nil {
		t.Fatalf("failed to initialize test pool: %v", poolErr)
	}
	return sharedPool
}

// NewTestEnv creates a test environment backed by the shared migrated pool.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	pool := getSharedPool(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ledgerRepo := repository.NewLedgerRepository()
	allocationRepo := repository.NewAllocationRepository()

	env := &TestEnv{
		Pool:         pool,
		Logger:       logger,
		Ledger:       ledgerRepo,
		Allocations:  allocationRepo,
		Refunds:      repository.NewRefundRepository(),
		Challenges:   repository.NewChallengeRepository(),
		Participants: repository.NewParticipantRepository(),
		Settlements:  repository.NewSettlementRepository(),
		Outbox:       repository.NewOutboxRepository(),
		t:            t,
	}
	env.Wallet = wallet.NewEngine(ledgerRepo, allocationRepo, env.Outbox)

	t.Cleanup(env.CleanAll)
	env.CleanAll()

	return env
}

// CleanAll truncates all tables in reverse-dependency order and restores
// the seeded treasury account.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables := []string{
		"event_outbox",
		"settlements",
		"participants",
		"challenges",
		"refunds",
		"allocations",
		"ledger_entries",
		"users",
	}
	for _, table := range tables {
		_, _ = env.Pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE")
	}

	// The treasury account is seeded by migration; truncating users removes
	// it, so put it back.
	_, _ = env.Pool.Exec(ctx, `
		INSERT INTO users (id, email) VALUES ('00000000-0000-0000-0000-000000000000', 'treasury@peerpush.internal')
		ON CONFLICT (id) DO NOTHING`)
}
