//go:build integration

package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/peerpush/platform/internal/domain"
	"github.com/peerpush/platform/internal/guard"
	"github.com/peerpush/platform/internal/provider"
	"github.com/peerpush/platform/internal/service"
	"github.com/peerpush/platform/internal/settlement"
	"github.com/stretchr/testify/require"
)

// CreateUser inserts a user row and returns its ID.
func (env *TestEnv) CreateUser(email string) uuid.UUID {
	env.t.Helper()
	var id uuid.UUID
	err := env.Pool.QueryRow(context.Background(),
		`INSERT INTO users (email) VALUES ($1) RETURNING id`, email).Scan(&id)
	require.NoError(env.t, err)
	return id
}

// Deposit credits a refundable deposit lot through the real wallet engine.
func (env *TestEnv) Deposit(userID uuid.UUID, tokens int64, paymentRef string) {
	env.t.Helper()
	ctx := context.Background()

	tx, err := env.Pool.Begin(ctx)
	require.NoError(env.t, err)
	defer tx.Rollback(ctx)

	_, err = env.Wallet.Credit(ctx, tx, domain.CreditParams{
		UserID:     userID,
		Amount:     tokens,
		Kind:       domain.KindDeposit,
		ExternalID: paymentRef,
		PaymentRef: paymentRef,
	})
	require.NoError(env.t, err)
	require.NoError(env.t, tx.Commit(ctx))

	// Lot ordering in FIFO queries is by created_at; keep sequential
	// deposits distinguishable.
	time.Sleep(2 * time.Millisecond)
}

// PayoutCredit credits a synthetic (non-refundable) lot.
func (env *TestEnv) PayoutCredit(userID uuid.UUID, tokens int64, externalID string) {
	env.t.Helper()
	ctx := context.Background()

	tx, err := env.Pool.Begin(ctx)
	require.NoError(env.t, err)
	defer tx.Rollback(ctx)

	_, err = env.Wallet.Credit(ctx, tx, domain.CreditParams{
		UserID:     userID,
		Amount:     tokens,
		Kind:       domain.KindPayout,
		ExternalID: externalID,
	})
	require.NoError(env.t, err)
	require.NoError(env.t, tx.Commit(ctx))
	time.Sleep(2 * time.Millisecond)
}

// TryStake attempts a STAKE debit in its own transaction and returns the
// engine's verdict. Used directly by concurrency tests.
func (env *TestEnv) TryStake(userID uuid.UUID, tokens int64) error {
	ctx := context.Background()

	tx, err := env.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := env.Wallet.Debit(ctx, tx, domain.DebitParams{
		UserID: userID,
		Amount: tokens,
		Kind:   domain.KindStake,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Stake performs a STAKE debit that must succeed.
func (env *TestEnv) Stake(userID uuid.UUID, tokens int64) {
	env.t.Helper()
	require.NoError(env.t, env.TryStake(userID, tokens))
}

// Balance returns the user's ledger balance.
func (env *TestEnv) Balance(userID uuid.UUID) int64 {
	env.t.Helper()
	bal, err := env.Ledger.Balance(context.Background(), env.Pool, userID)
	require.NoError(env.t, err)
	return bal
}

// SumRemaining returns the sum of the user's lot remainders.
func (env *TestEnv) SumRemaining(userID uuid.UUID) int64 {
	env.t.Helper()
	sum, err := env.Allocations.SumRemaining(context.Background(), env.Pool, userID)
	require.NoError(env.t, err)
	return sum
}

// LotRemainders returns the user's lot remainders in FIFO order,
// drained lots included.
func (env *TestEnv) LotRemainders(userID uuid.UUID) []int64 {
	env.t.Helper()
	rows, err := env.Pool.Query(context.Background(), `
		SELECT remaining FROM allocations
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`, userID)
	require.NoError(env.t, err)
	defer rows.Close()

	var remainders []int64
	for rows.Next() {
		var r int64
		require.NoError(env.t, rows.Scan(&r))
		remainders = append(remainders, r)
	}
	require.NoError(env.t, rows.Err())
	return remainders
}

// CountEntries counts the user's ledger entries of one kind.
func (env *TestEnv) CountEntries(userID uuid.UUID, kind domain.EntryKind) int {
	env.t.Helper()
	var count int
	err := env.Pool.QueryRow(context.Background(), `
		SELECT COUNT(*) FROM ledger_entries WHERE user_id = $1 AND kind = $2`,
		userID, string(kind)).Scan(&count)
	require.NoError(env.t, err)
	return count
}

// CreateChallenge inserts a challenge row in the given status.
func (env *TestEnv) CreateChallenge(creatorID uuid.UUID, stake int64, status domain.ChallengeStatus, startAt, endAt time.Time) uuid.UUID {
	env.t.Helper()
	var id uuid.UUID
	err := env.Pool.QueryRow(context.Background(), `
		INSERT INTO challenges (creator_id, stake, start_at, end_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		creatorID, stake, startAt, endAt, string(status)).Scan(&id)
	require.NoError(env.t, err)
	return id
}

// SetChallengeStatus forces a challenge status, bypassing the CAS guard.
// Test setup only.
func (env *TestEnv) SetChallengeStatus(challengeID uuid.UUID, status domain.ChallengeStatus) {
	env.t.Helper()
	_, err := env.Pool.Exec(context.Background(),
		`UPDATE challenges SET status = $2 WHERE id = $1`, challengeID, string(status))
	require.NoError(env.t, err)
}

// SetParticipantStatus marks one participant's outcome.
func (env *TestEnv) SetParticipantStatus(challengeID, userID uuid.UUID, status domain.ParticipantStatus) {
	env.t.Helper()
	tag, err := env.Pool.Exec(context.Background(), `
		UPDATE participants SET status = $3 WHERE challenge_id = $1 AND user_id = $2`,
		challengeID, userID, string(status))
	require.NoError(env.t, err)
	require.EqualValues(env.t, 1, tag.RowsAffected())
}

// FundedUser creates a user with one refundable deposit lot.
func (env *TestEnv) FundedUser(name string, tokens int64) uuid.UUID {
	env.t.Helper()
	userID := env.CreateUser(fmt.Sprintf("%s@test.peerpush.net", name))
	env.Deposit(userID, tokens, "pi_fund_"+name)
	return userID
}

// PaymentService builds a PaymentService against the test pool.
func (env *TestEnv) PaymentService(stripe *provider.StripeProvider, tokenPriceCents, dailyCap int64) *service.PaymentService {
	breaker := guard.NewCircuitBreaker(5, 30*time.Second)
	return service.NewPaymentService(env.Pool, stripe, env.Ledger, env.Outbox, env.Wallet, breaker, env.Logger,
		tokenPriceCents, dailyCap)
}

// WithdrawalService builds a WithdrawalService against the test pool.
func (env *TestEnv) WithdrawalService(stripe *provider.StripeProvider, breaker *guard.CircuitBreaker, mode string) *service.WithdrawalService {
	return service.NewWithdrawalService(env.Pool, stripe, env.Wallet, env.Refunds, env.Outbox, breaker, env.Logger,
		mode, 1, 90)
}

// ChallengeService builds a ChallengeService against the test pool.
func (env *TestEnv) ChallengeService(allowLateJoin bool) *service.ChallengeService {
	return service.NewChallengeService(env.Pool, env.Challenges, env.Participants, env.Settlements, env.Outbox,
		env.Wallet, env.Logger, allowLateJoin)
}

// SettlementEngine builds a settlement engine paying forfeitures to the
// seeded treasury account.
func (env *TestEnv) SettlementEngine() *settlement.Engine {
	return settlement.NewEngine(env.Pool, env.Challenges, env.Participants, env.Settlements, env.Outbox,
		env.Wallet, env.Logger, domain.PlatformUserID)
}
