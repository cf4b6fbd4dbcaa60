package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/peerpush/platform/internal/domain"
)

type ledgerRepo struct{}

// NewLedgerRepository returns a pgx-backed LedgerRepository.
func NewLedgerRepository() LedgerRepository {
	return &ledgerRepo{}
}

// IsUniqueViolation reports whether err is a unique constraint violation
// (SQLSTATE 23505), the storage-level signal for a duplicate external ID.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *ledgerRepo) Append(ctx context.Context, db DBTX, params domain.AppendParams) (*domain.LedgerEntry, error) {
	if err := domain.ValidateEntrySign(params.Kind, params.Amount); err != nil {
		return nil, fmt.Errorf("sign violation: %w", err)
	}

	currency := params.Currency
	if currency == "" {
		currency = "usd"
	}

	row := db.QueryRow(ctx, `
		INSERT INTO ledger_entries (user_id, kind, amount, currency, external_id, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, kind, amount, currency, external_id, note, created_at`,
		params.UserID,
		string(params.Kind),
		Int64ToNumeric(params.Amount),
		currency,
		params.ExternalID,
		params.Note,
	)
	return scanLedgerEntry(row)
}

func (r *ledgerRepo) FindByExternalID(ctx context.Context, db DBTX, kind domain.EntryKind, externalID string) (*domain.LedgerEntry, error) {
	row := db.QueryRow(ctx, `
		SELECT id, user_id, kind, amount, currency, external_id, note, created_at
		FROM ledger_entries
		WHERE kind = $1 AND external_id = $2`,
		string(kind), externalID)
	return scanLedgerEntry(row)
}

func (r *ledgerRepo) Balance(ctx context.Context, db DBTX, userID uuid.UUID) (int64, error) {
	var num pgtype.Numeric
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE user_id = $1`,
		userID).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("sum balance: %w", err)
	}
	return NumericToInt64(num)
}

func (r *ledgerRepo) SumSince(ctx context.Context, db DBTX, userID uuid.UUID, kind domain.EntryKind, since time.Time) (int64, error) {
	var num pgtype.Numeric
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE user_id = $1 AND kind = $2 AND created_at >= $3`,
		userID, string(kind), since).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("sum since: %w", err)
	}
	return NumericToInt64(num)
}

func (r *ledgerRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := db.Query(ctx, `
		SELECT id, user_id, kind, amount, currency, external_id, note, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var amountNum pgtype.Numeric
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &amountNum, &e.Currency, &e.ExternalID, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		if e.Amount, err = NumericToInt64(amountNum); err != nil {
			return nil, fmt.Errorf("convert amount: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var amountNum pgtype.Numeric
	err := row.Scan(&e.ID, &e.UserID, &e.Kind, &amountNum, &e.Currency, &e.ExternalID, &e.Note, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	if e.Amount, err = NumericToInt64(amountNum); err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	return &e, nil
}
