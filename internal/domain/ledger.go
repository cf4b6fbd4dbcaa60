package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind enumerates the four token movement kinds.
type EntryKind string

const (
	KindDeposit    EntryKind = "DEPOSIT"
	KindStake      EntryKind = "STAKE"
	KindPayout     EntryKind = "PAYOUT"
	KindWithdrawal EntryKind = "WITHDRAWAL"
)

// Sign returns +1 for credit kinds and -1 for debit kinds.
// The ledger schema enforces the same invariant with a CHECK constraint.
func (k EntryKind) Sign() int64 {
	switch k {
	case KindDeposit, KindPayout:
		return 1
	case KindStake, KindWithdrawal:
		return -1
	}
	return 0
}

// IsCredit reports whether entries of this kind carry a positive amount.
func (k EntryKind) IsCredit() bool { return k.Sign() > 0 }

// LedgerEntry is an append-only token movement. Amounts are signed integer
// tokens; no row is ever updated or deleted after commit.
type LedgerEntry struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Kind       EntryKind `json:"kind"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	ExternalID *string   `json:"external_id,omitempty"`
	Note       *string   `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AppendParams is the input to LedgerRepository.Append.
type AppendParams struct {
	UserID     uuid.UUID
	Kind       EntryKind
	Amount     int64 // signed; must match Kind.Sign()
	Currency   string
	ExternalID *string
	Note       *string
}

// PlatformUserID is the reserved treasury identity. Forfeited stakes are
// credited to it; it is excluded from user-facing balance totals.
var PlatformUserID = uuid.Nil
