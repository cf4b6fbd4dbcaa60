package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/peerpush/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// LedgerRepository provides access to ledger_entries. The table is
// append-only: there is no update or delete path.
type LedgerRepository interface {
	// Append inserts one ledger entry. The (kind, external_id) partial
	// unique index rejects duplicates; callers detect that via IsUniqueViolation.
	Append(ctx context.Context, db DBTX, params domain.AppendParams) (*domain.LedgerEntry, error)

	// FindByExternalID returns the entry carrying the given idempotency key,
	// or nil when none exists.
	FindByExternalID(ctx context.Context, db DBTX, kind domain.EntryKind, externalID string) (*domain.LedgerEntry, error)

	// Balance sums all amounts for the user, straight from storage.
	Balance(ctx context.Context, db DBTX, userID uuid.UUID) (int64, error)

	// SumSince sums amounts of one kind for the user since the given instant.
	// Used for the daily deposit cap (since midnight UTC).
	SumSince(ctx context.Context, db DBTX, userID uuid.UUID, kind domain.EntryKind, since time.Time) (int64, error)

	// ListByUser returns the user's entries, newest first.
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
}

// AllocationRepository provides access to allocations (FIFO deposit lots).
type AllocationRepository interface {
	// Create inserts a new lot with remaining = original.
	Create(ctx context.Context, db DBTX, a *domain.Allocation) error

	// ActiveByUser returns lots with remaining > 0, oldest first.
	ActiveByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.Allocation, error)

	// RefundableByUser returns lots with remaining > 0, a payment ref, and
	// created on or after the window cutoff, oldest first.
	RefundableByUser(ctx context.Context, db DBTX, userID uuid.UUID, windowStart time.Time) ([]domain.Allocation, error)

	// Consume decrements remaining by amount. Fails when the decrement would
	// drive remaining negative (guarded by the schema CHECK as well).
	Consume(ctx context.Context, db DBTX, allocationID uuid.UUID, amount int64) error

	// SumRemaining sums remaining over the user's lots. Equals the ledger
	// balance whenever the wallet invariants hold.
	SumRemaining(ctx context.Context, db DBTX, userID uuid.UUID) (int64, error)
}

// RefundRepository provides access to refunds (external refund audit rows).
type RefundRepository interface {
	// Insert records one executed external refund.
	Insert(ctx context.Context, db DBTX, r *domain.Refund) error

	// LinkWithdrawal sets the WITHDRAWAL ledger entry on the given refunds.
	LinkWithdrawal(ctx context.Context, db DBTX, refundIDs []uuid.UUID, entryID uuid.UUID) error

	// ListByAllocation returns refunds against one lot, oldest first.
	ListByAllocation(ctx context.Context, db DBTX, allocationID uuid.UUID) ([]domain.Refund, error)
}

// ChallengeRepository provides read access and status transitions for
// challenges. Creation and verification belong to the challenge registry.
type ChallengeRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Challenge, error)

	// LockForUpdate acquires a row-level lock on the challenge row.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Challenge, error)

	// UpdateStatus transitions the challenge, refusing to leave a terminal state.
	UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, from, to domain.ChallengeStatus) error

	// ListDueForSettlement returns COMPLETED challenges whose end instant has
	// passed, oldest first, for the settlement job runner.
	ListDueForSettlement(ctx context.Context, db DBTX, now time.Time, limit int) ([]domain.Challenge, error)
}

// ParticipantRepository provides access to participants.
type ParticipantRepository interface {
	// Create inserts a participant. The (challenge_id, user_id) unique
	// constraint rejects double joins.
	Create(ctx context.Context, db DBTX, p *domain.Participant) error

	Find(ctx context.Context, db DBTX, challengeID, userID uuid.UUID) (*domain.Participant, error)

	// ListByChallenge returns all participants ordered by joined_at, then
	// user_id. The ordering is what makes remainder distribution deterministic.
	ListByChallenge(ctx context.Context, db DBTX, challengeID uuid.UUID) ([]domain.Participant, error)

	CountByChallenge(ctx context.Context, db DBTX, challengeID uuid.UUID) (int, error)
}

// SettlementRepository persists settlement results so replays return the
// original outcome byte-for-byte.
type SettlementRepository interface {
	Insert(ctx context.Context, db DBTX, result *domain.SettlementResult) error
	FindByChallenge(ctx context.Context, db DBTX, challengeID uuid.UUID) (*domain.SettlementResult, error)

	// PlatformRevenueSince sums treasury PAYOUT credits since the cutoff and
	// counts the distinct challenges that produced them.
	PlatformRevenueSince(ctx context.Context, db DBTX, since time.Time) (total int64, challenges int, err error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event within the same transaction as the
	// ledger write it describes.
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns pending events for the outbox poller.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxDraft, []int64, error)

	// MarkPublished removes delivered events.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}
