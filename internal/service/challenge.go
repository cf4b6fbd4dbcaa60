package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peerpush/platform/internal/domain"
	"github.com/peerpush/platform/internal/repository"
	"github.com/peerpush/platform/internal/wallet"
)

// ChallengeService drives the money-facing challenge transitions: joining
// (stake debit), cancellation (stake return), and platform revenue stats.
// Challenge creation and verification live in the challenge registry.
type ChallengeService struct {
	pool         *pgxpool.Pool
	challenges   repository.ChallengeRepository
	participants repository.ParticipantRepository
	settlements  repository.SettlementRepository
	outbox       repository.OutboxRepository
	engine       *wallet.Engine
	logger       *slog.Logger

	allowLateJoin bool
	now           func() time.Time
}

// NewChallengeService creates a ChallengeService.
func NewChallengeService(
	pool *pgxpool.Pool,
	challenges repository.ChallengeRepository,
	participants repository.ParticipantRepository,
	settlements repository.SettlementRepository,
	outbox repository.OutboxRepository,
	engine *wallet.Engine,
	logger *slog.Logger,
	allowLateJoin bool,
) *ChallengeService {
	return &ChallengeService{
		pool:          pool,
		challenges:    challenges,
		participants:  participants,
		settlements:   settlements,
		outbox:        outbox,
		engine:        engine,
		logger:        logger,
		allowLateJoin: allowLateJoin,
	}
}

func (s *ChallengeService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Join stakes the user into a challenge. The stake debit, the participant
// row, and the capacity check share one transaction; the row lock on the
// challenge serializes competing joins for the last slot.
func (s *ChallengeService) Join(ctx context.Context, challengeID, userID uuid.UUID) (*domain.JoinResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	ch, err := s.challenges.LockForUpdate(ctx, tx, challengeID)
	if err != nil {
		return nil, domain.ErrInternal("lock challenge", err)
	}
	if ch == nil {
		return nil, domain.ErrNotFound("challenge", challengeID.String())
	}
	if ch.Status != domain.ChallengeActive {
		return nil, domain.ErrStateConflict(fmt.Sprintf("challenge is %s, not open for joining", ch.Status))
	}

	now := s.clock()
	if !now.Before(ch.StartAt) {
		if !s.allowLateJoin {
			return nil, domain.ErrStateConflict("challenge has already started")
		}
		if !now.Before(ch.EndAt) {
			return nil, domain.ErrStateConflict("challenge has already ended")
		}
	}

	existing, err := s.participants.Find(ctx, tx, challengeID, userID)
	if err != nil {
		return nil, domain.ErrInternal("find participant", err)
	}
	if existing != nil {
		return nil, domain.ErrStateConflict("already joined this challenge")
	}

	if ch.MaxParticipants != nil {
		count, err := s.participants.CountByChallenge(ctx, tx, challengeID)
		if err != nil {
			return nil, domain.ErrInternal("count participants", err)
		}
		if count >= *ch.MaxParticipants {
			return nil, domain.ErrStateConflict("challenge is full")
		}
	}

	debit, err := s.engine.Debit(ctx, tx, domain.DebitParams{
		UserID: userID,
		Amount: ch.Stake,
		Kind:   domain.KindStake,
		Note:   fmt.Sprintf("stake for challenge %s", challengeID),
	})
	if err != nil {
		return nil, err
	}

	p := &domain.Participant{
		ChallengeID:        challengeID,
		UserID:             userID,
		Status:             domain.ParticipantJoined,
		StakeLedgerEntryID: debit.Entry.ID,
	}
	if err := s.participants.Create(ctx, tx, p); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.ErrStateConflict("already joined this challenge")
		}
		return nil, domain.ErrInternal("create participant", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("challenge joined",
		"challenge_id", challengeID, "user_id", userID, "stake", ch.Stake, "balance", debit.Balance)
	return &domain.JoinResult{ParticipantID: p.ID, StakePaid: ch.Stake}, nil
}

// Cancel voids a challenge and returns every participant's stake as a
// PAYOUT credit. Returned stakes become synthetic lots: spendable on
// future stakes but not refundable to a card. Operator-only.
func (s *ChallengeService) Cancel(ctx context.Context, challengeID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := repository.AcquireChallengeLock(ctx, tx, challengeID); err != nil {
		return fmt.Errorf("cancel: %w", err)
	}

	ch, err := s.challenges.LockForUpdate(ctx, tx, challengeID)
	if err != nil {
		return domain.ErrInternal("lock challenge", err)
	}
	if ch == nil {
		return domain.ErrNotFound("challenge", challengeID.String())
	}
	if ch.Status == domain.ChallengeCancelled {
		return nil
	}
	if ch.Status == domain.ChallengeSettled {
		return domain.ErrStateConflict("challenge is already settled")
	}

	list, err := s.participants.ListByChallenge(ctx, tx, challengeID)
	if err != nil {
		return domain.ErrInternal("list participants", err)
	}

	// Wallet locks are taken inside Credit; ascending user_id order keeps
	// concurrent multi-wallet transactions from deadlocking.
	sorted := make([]domain.Participant, len(list))
	copy(sorted, list)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].UserID.String() < sorted[j].UserID.String()
	})

	var returned int64
	for _, p := range sorted {
		_, err := s.engine.Credit(ctx, tx, domain.CreditParams{
			UserID:     p.UserID,
			Amount:     ch.Stake,
			Kind:       domain.KindPayout,
			ExternalID: fmt.Sprintf("cancel_%s_%s", challengeID, p.UserID),
			Note:       fmt.Sprintf("stake returned, challenge %s cancelled", challengeID),
		})
		if err != nil {
			return err
		}
		returned += ch.Stake
	}

	if err := s.challenges.UpdateStatus(ctx, tx, challengeID, ch.Status, domain.ChallengeCancelled); err != nil {
		return err
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewChallengeCancelledEvent(challengeID, returned)); err != nil {
		return domain.ErrInternal("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("challenge cancelled",
		"challenge_id", challengeID, "participants", len(sorted), "stakes_returned", returned)
	return nil
}

// PlatformRevenue reports treasury income from settlements since the cutoff.
type PlatformRevenue struct {
	Since      time.Time `json:"since"`
	Total      int64     `json:"total_tokens"`
	Challenges int       `json:"challenges"`
}

// RevenueSince sums platform revenue captured by settlements since the
// given instant.
func (s *ChallengeService) RevenueSince(ctx context.Context, since time.Time) (*PlatformRevenue, error) {
	total, challenges, err := s.settlements.PlatformRevenueSince(ctx, s.pool, since)
	if err != nil {
		return nil, domain.ErrInternal("platform revenue query", err)
	}
	return &PlatformRevenue{Since: since, Total: total, Challenges: challenges}, nil
}
