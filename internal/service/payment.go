package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerpush/platform/internal/domain"
	"github.com/peerpush/platform/internal/guard"
	"github.com/peerpush/platform/internal/policy"
	"github.com/peerpush/platform/internal/provider"
	"github.com/peerpush/platform/internal/repository"
	"github.com/peerpush/platform/internal/wallet"
)

// Circuit breaker keys for processor operations.
const (
	circuitCheckout = "stripe_checkout"
	circuitRefund   = "stripe_refund"
)

// PaymentService orchestrates the deposit pipeline: checkout session
// creation and webhook-driven wallet credits.
type PaymentService struct {
	pool    *pgxpool.Pool
	stripe  *provider.StripeProvider
	ledger  repository.LedgerRepository
	outbox  repository.OutboxRepository
	engine  *wallet.Engine
	breaker *guard.CircuitBreaker
	logger  *slog.Logger

	tokenPriceCents int64
	dailyCap        int64
	now             func() time.Time
}

// NewPaymentService creates a PaymentService.
func NewPaymentService(
	pool *pgxpool.Pool,
	stripe *provider.StripeProvider,
	ledger repository.LedgerRepository,
	outbox repository.OutboxRepository,
	engine *wallet.Engine,
	breaker *guard.CircuitBreaker,
	logger *slog.Logger,
	tokenPriceCents, dailyCap int64,
) *PaymentService {
	return &PaymentService{
		pool:            pool,
		stripe:          stripe,
		ledger:          ledger,
		outbox:          outbox,
		engine:          engine,
		breaker:         breaker,
		logger:          logger,
		tokenPriceCents: tokenPriceCents,
		dailyCap:        dailyCap,
		now:             time.Now,
	}
}

// DepositSession holds the Stripe checkout session details returned to the
// client.
type DepositSession struct {
	SessionID  string `json:"session_id"`
	SessionURL string `json:"session_url"`
	Tokens     int64  `json:"tokens"`
}

// BeginDeposit creates a Stripe checkout session for buying tokens.
// Nothing is written to the ledger here; tokens are credited only when the
// confirmation webhook arrives.
func (s *PaymentService) BeginDeposit(ctx context.Context, userID uuid.UUID, tokens int64, successURL, cancelURL string) (*DepositSession, error) {
	if tokens <= 0 {
		return nil, domain.ErrInvalidAmount(fmt.Sprintf("deposit must be a positive token amount, got %d", tokens))
	}

	// Daily cap counts confirmed deposits since midnight UTC; pending
	// checkout sessions do not count against it.
	depositedToday, err := s.ledger.SumSince(ctx, s.pool, userID, domain.KindDeposit, policy.MidnightUTC(s.now()))
	if err != nil {
		return nil, domain.ErrInternal("daily deposit query", err)
	}
	eval := policy.EvaluateDeposit(policy.DepositLimitPolicy{DailyDepositCap: s.dailyCap}, tokens, depositedToday)
	if !eval.Allowed {
		return nil, domain.ErrDailyLimit(eval.LimitValue, eval.Remaining)
	}

	if res := s.breaker.Check(ctx, circuitCheckout); !res.Allowed {
		return nil, domain.ErrProcessor(res.Reason, nil)
	}

	amountCents := tokens * s.tokenPriceCents
	session, err := s.stripe.CreateCheckoutSession(amountCents, "USD", userID.String(), successURL, cancelURL)
	if err != nil {
		s.breaker.RecordFailure(circuitCheckout)
		return nil, domain.ErrProcessor("create checkout session", err)
	}
	s.breaker.RecordSuccess(circuitCheckout)

	s.logger.Info("checkout session created",
		"user_id", userID, "tokens", tokens, "amount_cents", amountCents, "session_id", session.ID)

	return &DepositSession{
		SessionID:  session.ID,
		SessionURL: session.URL,
		Tokens:     tokens,
	}, nil
}

// HandleStripeWebhook verifies and processes a Stripe webhook delivery.
// Returning an error makes the handler respond non-2xx so Stripe retries.
func (s *PaymentService) HandleStripeWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.stripe.VerifyWebhookSignature(payload, sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature(fmt.Sprintf("webhook verification failed: %v", err))
	}

	// Both confirmation paths share the payment intent as idempotency key,
	// so a payment confirmed through one never double-credits via the other.
	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "payment_intent.succeeded":
		return s.handlePaymentIntentSucceeded(ctx, event)
	default:
		s.logger.Info("unhandled stripe event type", "type", event.Type)
		return nil
	}
}

func (s *PaymentService) handleCheckoutCompleted(ctx context.Context, event *provider.StripeWebhookEvent) error {
	session, err := provider.ParseCheckoutSessionData(event.Data)
	if err != nil {
		return domain.ErrInternal("parse checkout session", err)
	}

	// Async payment methods complete the session before the money moves.
	// Only credit on paid.
	if session.PaymentStatus != "paid" {
		s.logger.Info("checkout completed but unpaid, skipping",
			"session_id", session.ID, "payment_status", session.PaymentStatus)
		return nil
	}
	if session.PaymentIntent == "" {
		return domain.ErrValidation("checkout session has no payment intent")
	}

	userID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		return domain.ErrValidation(fmt.Sprintf("invalid client reference %q", session.ClientReferenceID))
	}

	tokens := session.AmountTotal / s.tokenPriceCents
	if tokens <= 0 {
		return domain.ErrInvalidAmount(fmt.Sprintf("amount %d cents buys no tokens at %d cents each", session.AmountTotal, s.tokenPriceCents))
	}

	return s.creditDeposit(ctx, userID, tokens, session.PaymentIntent, fmt.Sprintf("stripe checkout %s", session.ID))
}

func (s *PaymentService) handlePaymentIntentSucceeded(ctx context.Context, event *provider.StripeWebhookEvent) error {
	intent, err := provider.ParsePaymentIntentData(event.Data)
	if err != nil {
		return domain.ErrInternal("parse payment intent", err)
	}
	if intent.Status != "succeeded" {
		s.logger.Info("payment intent not succeeded, skipping",
			"payment_intent", intent.ID, "status", intent.Status)
		return nil
	}
	// Intents without our metadata are not token purchases; ack so Stripe
	// stops retrying.
	if intent.Metadata.UserID == "" {
		s.logger.Info("payment intent without user metadata, skipping", "payment_intent", intent.ID)
		return nil
	}
	userID, err := uuid.Parse(intent.Metadata.UserID)
	if err != nil {
		return domain.ErrValidation(fmt.Sprintf("invalid user metadata %q", intent.Metadata.UserID))
	}

	tokens := intent.ReceivedCents() / s.tokenPriceCents
	if tokens <= 0 {
		s.logger.Info("payment intent received no funds, skipping", "payment_intent", intent.ID)
		return nil
	}

	return s.creditDeposit(ctx, userID, tokens, intent.ID, fmt.Sprintf("stripe payment intent %s", intent.ID))
}

// creditDeposit credits one confirmed deposit. The payment intent is the
// idempotency key: Stripe retries, duplicate session events, and the
// second leg of the checkout/intent pair all collapse onto one entry.
func (s *PaymentService) creditDeposit(ctx context.Context, userID uuid.UUID, tokens int64, paymentIntent, note string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	result, err := s.engine.Credit(ctx, tx, domain.CreditParams{
		UserID:     userID,
		Amount:     tokens,
		Kind:       domain.KindDeposit,
		ExternalID: paymentIntent,
		PaymentRef: paymentIntent,
		Note:       note,
	})
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) && appErr.Code == "DUPLICATE" {
			// Concurrent delivery lost the unique-index race. The first
			// delivery committed the credit, so this one is done.
			s.logger.Info("duplicate deposit webhook", "payment_intent", paymentIntent)
			return nil
		}
		return err
	}
	if result.Idempotent {
		s.logger.Info("deposit webhook replay", "payment_intent", paymentIntent)
		return nil
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewDepositConfirmedEvent(userID, tokens, paymentIntent)); err != nil {
		return domain.ErrInternal("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("deposit credited",
		"user_id", userID, "tokens", tokens, "payment_intent", paymentIntent, "balance", result.Balance)
	return nil
}
