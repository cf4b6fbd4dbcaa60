package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/peerpush/platform/internal/domain"
)

type refundRepo struct{}

// NewRefundRepository returns a pgx-backed RefundRepository.
func NewRefundRepository() RefundRepository {
	return &refundRepo{}
}

func (r *refundRepo) Insert(ctx context.Context, db DBTX, ref *domain.Refund) error {
	row := db.QueryRow(ctx, `
		INSERT INTO refunds (user_id, allocation_id, amount, external_refund_id, withdrawal_ledger_entry_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		ref.UserID,
		ref.AllocationID,
		Int64ToNumeric(ref.Amount),
		ref.ExternalRefundID,
		ref.WithdrawalLedgerEntryID,
	)
	if err := row.Scan(&ref.ID, &ref.CreatedAt); err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}
	return nil
}

func (r *refundRepo) LinkWithdrawal(ctx context.Context, db DBTX, refundIDs []uuid.UUID, entryID uuid.UUID) error {
	if len(refundIDs) == 0 {
		return nil
	}
	_, err := db.Exec(ctx, `
		UPDATE refunds SET withdrawal_ledger_entry_id = $2 WHERE id = ANY($1)`,
		refundIDs, entryID)
	if err != nil {
		return fmt.Errorf("link refunds to withdrawal: %w", err)
	}
	return nil
}

func (r *refundRepo) ListByAllocation(ctx context.Context, db DBTX, allocationID uuid.UUID) ([]domain.Refund, error) {
	rows, err := db.Query(ctx, `
		SELECT id, user_id, allocation_id, amount, external_refund_id, withdrawal_ledger_entry_id, created_at
		FROM refunds
		WHERE allocation_id = $1
		ORDER BY created_at ASC`, allocationID)
	if err != nil {
		return nil, fmt.Errorf("query refunds: %w", err)
	}
	defer rows.Close()

	var refunds []domain.Refund
	for rows.Next() {
		var ref domain.Refund
		var amountNum pgtype.Numeric
		if err := rows.Scan(&ref.ID, &ref.UserID, &ref.AllocationID, &amountNum, &ref.ExternalRefundID, &ref.WithdrawalLedgerEntryID, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan refund row: %w", err)
		}
		if ref.Amount, err = NumericToInt64(amountNum); err != nil {
			return nil, err
		}
		refunds = append(refunds, ref)
	}
	return refunds, rows.Err()
}
