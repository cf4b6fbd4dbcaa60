package wallet

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/peerpush/platform/internal/domain"
	"github.com/peerpush/platform/internal/repository"
)

// Credit adds tokens to the user's wallet as a DEPOSIT or PAYOUT.
// Pattern: Lock → Idempotency → PostEntry + Allocation.
//
// Every credit creates an allocation so the balance always equals the sum
// of lot remainders. DEPOSIT credits carrying a payment ref create a
// refundable lot; PAYOUT credits create a synthetic lot that can be spent
// on future stakes but never leaves as a card refund.
func (e *Engine) Credit(ctx context.Context, tx pgx.Tx, params domain.CreditParams) (*domain.WalletResult, error) {
	if params.Kind != domain.KindDeposit && params.Kind != domain.KindPayout {
		return nil, domain.ErrValidation(fmt.Sprintf("credit kind must be DEPOSIT or PAYOUT, got %s", params.Kind))
	}
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, domain.ErrInvalidAmount(err.Error())
	}

	// Lock
	if err := e.Lock(ctx, tx, params.UserID); err != nil {
		return nil, fmt.Errorf("credit: %w", err)
	}

	// Idempotency check
	if params.ExternalID != "" {
		existing, err := e.FindExisting(ctx, tx, params.Kind, params.ExternalID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			balance, err := e.ledger.Balance(ctx, tx, params.UserID)
			if err != nil {
				return nil, fmt.Errorf("credit balance: %w", err)
			}
			return &domain.WalletResult{Entry: existing, Balance: balance, Idempotent: true}, nil
		}
	}

	entry, err := e.PostEntry(ctx, tx, domain.AppendParams{
		UserID:     params.UserID,
		Kind:       params.Kind,
		Amount:     params.Amount,
		ExternalID: strPtr(params.ExternalID),
		Note:       strPtr(params.Note),
	})
	if err != nil {
		// A concurrent delivery of the same external event can slip past the
		// idempotency read; the unique index turns that race into Duplicate.
		// The transaction is aborted at this point, so the caller rolls back
		// and treats Duplicate as success.
		if params.ExternalID != "" && repository.IsUniqueViolation(err) {
			return nil, domain.ErrDuplicate(params.ExternalID)
		}
		return nil, fmt.Errorf("credit post: %w", err)
	}

	alloc := &domain.Allocation{
		UserID:        params.UserID,
		Original:      params.Amount,
		Remaining:     params.Amount,
		LedgerEntryID: entry.ID,
	}
	if params.Kind == domain.KindDeposit && params.PaymentRef != "" {
		alloc.PaymentRef = strPtr(params.PaymentRef)
	}
	if err := e.allocations.Create(ctx, tx, alloc); err != nil {
		return nil, fmt.Errorf("credit allocation: %w", err)
	}

	balance, err := e.ledger.Balance(ctx, tx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("credit balance: %w", err)
	}
	return &domain.WalletResult{Entry: entry, Balance: balance}, nil
}
