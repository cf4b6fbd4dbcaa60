package wallet

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/peerpush/platform/internal/domain"
)

// Debit removes tokens from the user's wallet as a STAKE or WITHDRAWAL.
// Pattern: Lock → Balance check → PostEntry → FIFO lot consumption.
//
// The debit consumes allocations oldest-first until the amount is
// exhausted; one debit may span several lots. Stake debits consume lot
// capacity even though no refund is produced — that keeps the balance
// equal to the sum of lot remainders at all times.
func (e *Engine) Debit(ctx context.Context, tx pgx.Tx, params domain.DebitParams) (*domain.WalletResult, error) {
	if params.Kind != domain.KindStake && params.Kind != domain.KindWithdrawal {
		return nil, domain.ErrValidation(fmt.Sprintf("debit kind must be STAKE or WITHDRAWAL, got %s", params.Kind))
	}
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, domain.ErrInvalidAmount(err.Error())
	}

	// Lock
	if err := e.Lock(ctx, tx, params.UserID); err != nil {
		return nil, fmt.Errorf("debit: %w", err)
	}

	balance, err := e.ledger.Balance(ctx, tx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("debit balance: %w", err)
	}
	if balance < params.Amount {
		return nil, domain.ErrInsufficient()
	}

	entry, err := e.PostEntry(ctx, tx, domain.AppendParams{
		UserID: params.UserID,
		Kind:   params.Kind,
		Amount: -params.Amount,
		Note:   strPtr(params.Note),
	})
	if err != nil {
		return nil, fmt.Errorf("debit post: %w", err)
	}

	lots, err := e.allocations.ActiveByUser(ctx, tx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("debit lots: %w", err)
	}
	draws, err := PlanConsumption(lots, params.Amount)
	if err != nil {
		// Balance passed but lots cannot cover the amount: the wallet
		// invariants are broken and the transaction must not commit.
		return nil, domain.ErrInternal("allocation ledger mismatch", err)
	}
	for _, d := range draws {
		if err := e.allocations.Consume(ctx, tx, d.AllocationID, d.Amount); err != nil {
			return nil, fmt.Errorf("debit consume: %w", err)
		}
	}

	return &domain.WalletResult{Entry: entry, Balance: balance - params.Amount}, nil
}
