package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Validator Tests ---

func TestValidateCurrency(t *testing.T) {
	tests := []struct {
		name     string
		currency string
		wantErr  bool
	}{
		{"valid USD", "USD", false},
		{"valid EUR", "EUR", false},
		{"lowercase", "usd", false},
		{"too short", "US", true},
		{"too long", "EURO", true},
		{"empty", "", true},
		{"numbers", "123", true},
		{"with space", "US ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCurrency(tt.currency)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid currency code")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidatePositiveAmount(t *testing.T) {
	require.NoError(t, ValidatePositiveAmount(1))
	require.NoError(t, ValidatePositiveAmount(1_000_000))
	require.Error(t, ValidatePositiveAmount(0))
	require.Error(t, ValidatePositiveAmount(-50))
}

func TestValidateEntrySign(t *testing.T) {
	tests := []struct {
		name    string
		kind    EntryKind
		amount  int64
		wantErr bool
	}{
		{"deposit positive", KindDeposit, 100, false},
		{"payout positive", KindPayout, 33, false},
		{"stake negative", KindStake, -50, false},
		{"withdrawal negative", KindWithdrawal, -10, false},
		{"deposit negative", KindDeposit, -100, true},
		{"deposit zero", KindDeposit, 0, true},
		{"stake positive", KindStake, 50, true},
		{"stake zero", KindStake, 0, true},
		{"unknown kind", EntryKind("BONUS"), 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntrySign(tt.kind, tt.amount)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// --- EntryKind Tests ---

func TestEntryKindSign(t *testing.T) {
	assert.Equal(t, int64(1), KindDeposit.Sign())
	assert.Equal(t, int64(1), KindPayout.Sign())
	assert.Equal(t, int64(-1), KindStake.Sign())
	assert.Equal(t, int64(-1), KindWithdrawal.Sign())
	assert.Equal(t, int64(0), EntryKind("BOGUS").Sign())

	assert.True(t, KindDeposit.IsCredit())
	assert.True(t, KindPayout.IsCredit())
	assert.False(t, KindStake.IsCredit())
	assert.False(t, KindWithdrawal.IsCredit())
}

// --- Challenge Status Tests ---

func TestChallengeStatusTerminal(t *testing.T) {
	assert.False(t, ChallengeDraft.Terminal())
	assert.False(t, ChallengeActive.Terminal())
	assert.False(t, ChallengeCompleted.Terminal())
	assert.True(t, ChallengeSettled.Terminal())
	assert.True(t, ChallengeCancelled.Terminal())
}

// --- Allocation Tests ---

func TestAllocationRefundable(t *testing.T) {
	ref := "pi_123"
	empty := ""

	assert.True(t, (&Allocation{PaymentRef: &ref}).Refundable())
	assert.False(t, (&Allocation{PaymentRef: nil}).Refundable())
	assert.False(t, (&Allocation{PaymentRef: &empty}).Refundable())
}

// --- AppError Tests ---

func TestAppErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"invalid amount", ErrInvalidAmount("bad"), "INVALID_AMOUNT", 400},
		{"daily limit", ErrDailyLimit(1000, 250), "DAILY_LIMIT", 400},
		{"insufficient", ErrInsufficient(), "INSUFFICIENT", 400},
		{"no refundable funds", ErrNoRefundableFunds(), "NO_REFUNDABLE_FUNDS", 400},
		{"invalid signature", ErrInvalidSignature("bad sig"), "INVALID_SIGNATURE", 400},
		{"wallet busy", ErrWalletBusy(), "WALLET_BUSY", 503},
		{"disabled", ErrDisabled("withdrawal"), "DISABLED", 503},
		{"processor", ErrProcessor("stripe down", nil), "PROCESSOR_ERROR", 502},
		{"not found", ErrNotFound("challenge", "x"), "NOT_FOUND", 404},
		{"state conflict", ErrStateConflict("already settled"), "STATE_CONFLICT", 409},
		{"unauthorized", ErrUnauthorized("no token"), "UNAUTHORIZED", 401},
		{"forbidden", ErrForbidden("nope"), "FORBIDDEN", 403},
		{"internal", ErrInternal("boom", nil), "INTERNAL_ERROR", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrInternal("db query", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestErrDailyLimitMessage(t *testing.T) {
	err := ErrDailyLimit(100000, 40)
	assert.Contains(t, err.Message, "100000")
	assert.Contains(t, err.Message, "40")
}

func TestPlatformUserID(t *testing.T) {
	assert.Equal(t, uuid.Nil, PlatformUserID)
}
