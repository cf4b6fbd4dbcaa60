package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerpush/platform/internal/domain"
	"github.com/peerpush/platform/internal/guard"
	"github.com/peerpush/platform/internal/provider"
	"github.com/peerpush/platform/internal/repository"
	"github.com/peerpush/platform/internal/wallet"
)

// WithdrawMode selects how withdrawals leave the platform.
const (
	WithdrawModeRefund   = "refund"
	WithdrawModeDisabled = "disabled"
)

// WithdrawalService executes withdrawals as refunds against the original
// payment methods, oldest refundable deposit lot first.
type WithdrawalService struct {
	pool    *pgxpool.Pool
	stripe  *provider.StripeProvider
	engine  *wallet.Engine
	refunds repository.RefundRepository
	outbox  repository.OutboxRepository
	breaker *guard.CircuitBreaker
	logger  *slog.Logger

	mode             string
	tokenPriceCents  int64
	refundWindowDays int
	now              func() time.Time
}

// NewWithdrawalService creates a WithdrawalService.
func NewWithdrawalService(
	pool *pgxpool.Pool,
	stripe *provider.StripeProvider,
	engine *wallet.Engine,
	refunds repository.RefundRepository,
	outbox repository.OutboxRepository,
	breaker *guard.CircuitBreaker,
	logger *slog.Logger,
	mode string,
	tokenPriceCents int64,
	refundWindowDays int,
) *WithdrawalService {
	return &WithdrawalService{
		pool:             pool,
		stripe:           stripe,
		engine:           engine,
		refunds:          refunds,
		outbox:           outbox,
		breaker:          breaker,
		logger:           logger,
		mode:             mode,
		tokenPriceCents:  tokenPriceCents,
		refundWindowDays: refundWindowDays,
		now:              time.Now,
	}
}

// Withdraw refunds up to the requested token amount to the user's original
// payment methods. Partial success is a valid outcome: lots whose refund
// fails at the processor are skipped and the rest proceed. Only the tokens
// actually refunded are debited from the ledger.
func (s *WithdrawalService) Withdraw(ctx context.Context, userID uuid.UUID, tokens int64) (*domain.WithdrawalResult, error) {
	if s.mode != WithdrawModeRefund {
		return nil, domain.ErrDisabled("withdrawal")
	}
	if tokens <= 0 {
		return nil, domain.ErrInvalidAmount(fmt.Sprintf("withdrawal must be a positive token amount, got %d", tokens))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := s.engine.Lock(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}

	balance, err := s.engine.Balance(ctx, tx, userID)
	if err != nil {
		return nil, domain.ErrInternal("withdraw balance", err)
	}
	if balance < tokens {
		return nil, domain.ErrInsufficient()
	}

	windowStart := s.now().AddDate(0, 0, -s.refundWindowDays)
	lots, err := s.engine.RefundableLots(ctx, tx, userID, windowStart)
	if err != nil {
		return nil, domain.ErrInternal("withdraw lots", err)
	}
	if len(lots) == 0 {
		return nil, domain.ErrNoRefundableFunds()
	}

	// Walk lots oldest-first, refunding from each until the request is
	// covered. External refund calls happen inside the transaction so a
	// successful refund and its lot decrement commit or roll back together;
	// failed calls only skip their own lot.
	var (
		refunded  int64
		refundIDs []uuid.UUID
		skipped   int
	)
	remaining := tokens
	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		take := min(remaining, lot.Remaining)

		// A tripped breaker counts as a processor failure for every lot it
		// blocks, so an untouched wallet reports PROCESSOR_ERROR rather
		// than claiming there was nothing to refund.
		if res := s.breaker.Check(ctx, circuitRefund); !res.Allowed {
			s.logger.Warn("refund circuit open, stopping withdrawal early", "user_id", userID)
			skipped++
			break
		}

		refund, err := s.stripe.RefundPayment(*lot.PaymentRef, take*s.tokenPriceCents)
		if err != nil {
			s.breaker.RecordFailure(circuitRefund)
			s.logger.Warn("lot refund failed, skipping",
				"user_id", userID, "allocation_id", lot.ID, "tokens", take, "error", err)
			skipped++
			continue
		}
		s.breaker.RecordSuccess(circuitRefund)

		if err := s.engine.ConsumeLot(ctx, tx, lot.ID, take); err != nil {
			return nil, domain.ErrInternal("consume lot", err)
		}
		row := &domain.Refund{
			UserID:           userID,
			AllocationID:     lot.ID,
			Amount:           take,
			ExternalRefundID: refund.ID,
		}
		if err := s.refunds.Insert(ctx, tx, row); err != nil {
			return nil, domain.ErrInternal("record refund", err)
		}

		refundIDs = append(refundIDs, row.ID)
		refunded += take
		remaining -= take
	}

	if refunded == 0 {
		if skipped > 0 {
			return nil, domain.ErrProcessor(fmt.Sprintf("no lots refunded, %d attempts failed or blocked", skipped), nil)
		}
		return nil, domain.ErrNoRefundableFunds()
	}

	// One WITHDRAWAL entry for the total that actually left, not the
	// amount requested.
	entry, err := s.engine.PostEntry(ctx, tx, domain.AppendParams{
		UserID: userID,
		Kind:   domain.KindWithdrawal,
		Amount: -refunded,
		Note:   strPtr(fmt.Sprintf("refund withdrawal across %d lots", len(refundIDs))),
	})
	if err != nil {
		return nil, domain.ErrInternal("withdraw post", err)
	}
	if err := s.refunds.LinkWithdrawal(ctx, tx, refundIDs, entry.ID); err != nil {
		return nil, domain.ErrInternal("link refunds", err)
	}

	result := &domain.WithdrawalResult{
		Requested: tokens,
		Refunded:  refunded,
		RefundIDs: refundIDs,
		Partial:   refunded < tokens,
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewWithdrawalCompletedEvent(userID, result)); err != nil {
		return nil, domain.ErrInternal("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}
	s.logger.Info("withdrawal completed",
		"user_id", userID, "requested", tokens, "refunded", refunded, "partial", result.Partial)
	return result, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
