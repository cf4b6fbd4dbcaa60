package domain

import (
	"time"

	"github.com/google/uuid"
)

// Allocation is a FIFO deposit lot. Created once per DEPOSIT credit; only
// the remaining column ever changes, and it only decreases. Lots with a
// payment ref can leave the platform as external refunds; synthetic lots
// (winnings) have no payment ref and are spendable but not refundable.
type Allocation struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Original      int64     `json:"original"`
	Remaining     int64     `json:"remaining"`
	PaymentRef    *string   `json:"payment_ref,omitempty"`
	LedgerEntryID uuid.UUID `json:"ledger_entry_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Refundable reports whether this lot can be refunded to its original
// payment method.
func (a *Allocation) Refundable() bool {
	return a.PaymentRef != nil && *a.PaymentRef != ""
}

// Refund is the audit record of one executed external refund against one
// allocation. Created-and-final, like ledger entries.
type Refund struct {
	ID                      uuid.UUID  `json:"id"`
	UserID                  uuid.UUID  `json:"user_id"`
	AllocationID            uuid.UUID  `json:"allocation_id"`
	Amount                  int64      `json:"amount"`
	ExternalRefundID        string     `json:"external_refund_id"`
	WithdrawalLedgerEntryID *uuid.UUID `json:"withdrawal_ledger_entry_id,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}

// CreditParams is the input to the wallet Credit operation.
type CreditParams struct {
	UserID     uuid.UUID
	Amount     int64
	Kind       EntryKind // KindDeposit or KindPayout
	ExternalID string    // idempotency key when non-empty
	PaymentRef string    // present for refundable deposits
	Note       string
}

// DebitParams is the input to the wallet Debit operation.
type DebitParams struct {
	UserID uuid.UUID
	Amount int64
	Kind   EntryKind // KindStake or KindWithdrawal
	Note   string
}

// WalletResult is returned from Credit and Debit.
type WalletResult struct {
	Entry      *LedgerEntry
	Balance    int64
	Idempotent bool // true when an existing entry was returned for the same external ID
}

// WithdrawalResult reports the outcome of a withdrawal request. Partial
// success is a valid outcome, not an error: the refunded total may be less
// than requested when some allocations fail at the processor or when
// refundable capacity runs out.
type WithdrawalResult struct {
	Requested int64       `json:"requested"`
	Refunded  int64       `json:"refunded"`
	RefundIDs []uuid.UUID `json:"refund_ids"`
	Partial   bool        `json:"partial"`
}

// WalletSnapshot is the read model for GET /wallet.
type WalletSnapshot struct {
	Balance int64         `json:"balance"`
	Entries []LedgerEntry `json:"entries"`
}
