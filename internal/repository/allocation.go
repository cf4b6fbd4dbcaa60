package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/peerpush/platform/internal/domain"
)

type allocationRepo struct{}

// NewAllocationRepository returns a pgx-backed AllocationRepository.
func NewAllocationRepository() AllocationRepository {
	return &allocationRepo{}
}

func (r *allocationRepo) Create(ctx context.Context, db DBTX, a *domain.Allocation) error {
	row := db.QueryRow(ctx, `
		INSERT INTO allocations (user_id, original, remaining, payment_ref, ledger_entry_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		a.UserID,
		Int64ToNumeric(a.Original),
		Int64ToNumeric(a.Remaining),
		a.PaymentRef,
		a.LedgerEntryID,
	)
	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("insert allocation: %w", err)
	}
	return nil
}

func (r *allocationRepo) ActiveByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.Allocation, error) {
	rows, err := db.Query(ctx, `
		SELECT id, user_id, original, remaining, payment_ref, ledger_entry_id, created_at
		FROM allocations
		WHERE user_id = $1 AND remaining > 0
		ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query active allocations: %w", err)
	}
	defer rows.Close()
	return collectAllocations(rows)
}

func (r *allocationRepo) RefundableByUser(ctx context.Context, db DBTX, userID uuid.UUID, windowStart time.Time) ([]domain.Allocation, error) {
	rows, err := db.Query(ctx, `
		SELECT id, user_id, original, remaining, payment_ref, ledger_entry_id, created_at
		FROM allocations
		WHERE user_id = $1 AND remaining > 0 AND payment_ref IS NOT NULL AND created_at >= $2
		ORDER BY created_at ASC, id ASC`, userID, windowStart)
	if err != nil {
		return nil, fmt.Errorf("query refundable allocations: %w", err)
	}
	defer rows.Close()
	return collectAllocations(rows)
}

func (r *allocationRepo) Consume(ctx context.Context, db DBTX, allocationID uuid.UUID, amount int64) error {
	tag, err := db.Exec(ctx, `
		UPDATE allocations
		SET remaining = remaining - $2
		WHERE id = $1 AND remaining >= $2`,
		allocationID, Int64ToNumeric(amount))
	if err != nil {
		return fmt.Errorf("consume allocation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("allocation %s has less than %d remaining", allocationID, amount)
	}
	return nil
}

func (r *allocationRepo) SumRemaining(ctx context.Context, db DBTX, userID uuid.UUID) (int64, error) {
	var num pgtype.Numeric
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(remaining), 0) FROM allocations WHERE user_id = $1`,
		userID).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("sum remaining: %w", err)
	}
	return NumericToInt64(num)
}

func collectAllocations(rows pgx.Rows) ([]domain.Allocation, error) {
	var allocs []domain.Allocation
	for rows.Next() {
		var a domain.Allocation
		var origNum, remNum pgtype.Numeric
		if err := rows.Scan(&a.ID, &a.UserID, &origNum, &remNum, &a.PaymentRef, &a.LedgerEntryID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan allocation row: %w", err)
		}
		var convErr error
		if a.Original, convErr = NumericToInt64(origNum); convErr != nil {
			return nil, convErr
		}
		if a.Remaining, convErr = NumericToInt64(remNum); convErr != nil {
			return nil, convErr
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}
