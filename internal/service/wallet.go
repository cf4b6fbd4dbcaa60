package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerpush/platform/internal/domain"
	"github.com/peerpush/platform/internal/repository"
)

// WalletService serves wallet read models. All writes go through the
// payment, withdrawal, challenge, and settlement services.
type WalletService struct {
	pool   *pgxpool.Pool
	ledger repository.LedgerRepository
	logger *slog.Logger
}

// NewWalletService creates a WalletService.
func NewWalletService(pool *pgxpool.Pool, ledger repository.LedgerRepository, logger *slog.Logger) *WalletService {
	return &WalletService{pool: pool, ledger: ledger, logger: logger}
}

// Snapshot returns the user's balance and recent ledger entries. The
// balance is computed from the ledger on every call.
func (s *WalletService) Snapshot(ctx context.Context, userID uuid.UUID, limit int) (*domain.WalletSnapshot, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	balance, err := s.ledger.Balance(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("wallet balance", err)
	}
	entries, err := s.ledger.ListByUser(ctx, s.pool, userID, limit)
	if err != nil {
		return nil, domain.ErrInternal("wallet history", err)
	}

	return &domain.WalletSnapshot{Balance: balance, Entries: entries}, nil
}
