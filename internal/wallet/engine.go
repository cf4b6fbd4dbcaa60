package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/peerpush/platform/internal/domain"
	"github.com/peerpush/platform/internal/repository"
)

// Engine provides the foundational wallet operations:
//  1. Lock — exclusive per-user advisory lock
//  2. FindExisting — idempotency check on (kind, external_id)
//  3. PostEntry — append-only ledger insert + outbox event
//
// The Credit and Debit commands compose these three. All methods must run
// within the caller's transaction; the lock releases at commit or rollback.
type Engine struct {
	ledger      repository.LedgerRepository
	allocations repository.AllocationRepository
	outbox      repository.OutboxRepository
}

// NewEngine creates a wallet engine with the given repositories.
func NewEngine(
	ledger repository.LedgerRepository,
	allocations repository.AllocationRepository,
	outbox repository.OutboxRepository,
) *Engine {
	return &Engine{
		ledger:      ledger,
		allocations: allocations,
		outbox:      outbox,
	}
}

// Lock acquires the exclusive per-user wallet lock. No two concurrent
// wallet mutations for the same user may interleave; callers that touch
// multiple wallets must lock them in ascending user_id order.
func (e *Engine) Lock(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	return repository.AcquireWalletLock(ctx, tx, userID)
}

// FindExisting returns the ledger entry already carrying the given
// idempotency key, or nil when none exists.
func (e *Engine) FindExisting(ctx context.Context, tx pgx.Tx, kind domain.EntryKind, externalID string) (*domain.LedgerEntry, error) {
	existing, err := e.ledger.FindByExternalID(ctx, tx, kind, externalID)
	if err != nil {
		return nil, fmt.Errorf("find existing entry: %w", err)
	}
	return existing, nil
}

// Balance returns the user's authoritative balance, computed from the
// ledger. Never cached as a scalar.
func (e *Engine) Balance(ctx context.Context, db repository.DBTX, userID uuid.UUID) (int64, error) {
	return e.ledger.Balance(ctx, db, userID)
}

// RefundableLots returns the user's refundable allocations inside the
// refund window, oldest first. Must be called with the wallet lock held.
func (e *Engine) RefundableLots(ctx context.Context, tx pgx.Tx, userID uuid.UUID, windowStart time.Time) ([]domain.Allocation, error) {
	return e.allocations.RefundableByUser(ctx, tx, userID, windowStart)
}

// ConsumeLot decrements one allocation's remaining. Must be called with
// the wallet lock held.
func (e *Engine) ConsumeLot(ctx context.Context, tx pgx.Tx, allocationID uuid.UUID, amount int64) error {
	return e.allocations.Consume(ctx, tx, allocationID, amount)
}

// PostEntry appends one ledger entry and inserts the matching outbox event.
// This is the core write primitive — every command delegates to it.
func (e *Engine) PostEntry(ctx context.Context, tx pgx.Tx, params domain.AppendParams) (*domain.LedgerEntry, error) {
	entry, err := e.ledger.Append(ctx, tx, params)
	if err != nil {
		return nil, err
	}
	if err := e.outbox.Insert(ctx, tx, domain.NewTokenMovementEvent(entry)); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}
	return entry, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
