package settlement

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

// Engine settles completed challenges: it splits the staked pool across
// winners and credits the payouts, all in one transaction. Settling the
// same challenge twice replays the stored result without moving tokens.
type Engine struct {
	pool         *pgxpool.Pool
	challenges   repository.ChallengeRepository
	participants repository.ParticipantRepository
	settlements  repository.SettlementRepository
	outbox       repository.OutboxRepository
	wallets      *wallet.Engine
	logger       *slog.Logger

	platformUserID uuid.UUID
	now            func() time.Time
}

// NewEngine creates a settlement engine.
func NewEngine(
	pool *pgxpool.Pool,
	challenges repository.ChallengeRepository,
	participants repository.ParticipantRepository,
	settlements repository.SettlementRepository,
	outbox repository.OutboxRepository,
	wallets *wallet.Engine,
	logger *slog.Logger,
	platformUserID uuid.UUID,
) *Engine {
	return &Engine{
		pool:           pool,
		challenges:     challenges,
		participants:   participants,
		settlements:    settlements,
		outbox:         outbox,
		wallets:        wallets,
		logger:         logger,
		platformUserID: platformUserID,
		now:            time.Now,
	}
}

// Settle distributes a completed challenge's pool. The challenge row lock
// serializes concurrent settle calls; the loser of the race sees SETTLED
// and replays the stored result.
func (e *Engine) Settle(ctx context.Context, challengeID uuid.UUID) (*domain.SettlementResult, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	// Advisory lock first, then the row lock: same order as cancellation,
	// so a settle and a cancel for one challenge never interleave.
	if err := repository.AcquireChallengeLock(ctx, tx, challengeID); err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}

	ch, err := e.challenges.LockForUpdate(ctx, tx, challengeID)
	if err != nil {
		return nil, domain.ErrInternal("lock challenge", err)
	}
	if ch == nil {
		return nil, domain.ErrNotFound("challenge", challengeID.String())
	}
	if ch.Status == domain.ChallengeSettled {
		stored, err := e.settlements.FindByChallenge(ctx, tx, challengeID)
		if err != nil {
			return nil, domain.ErrInternal("load stored settlement", err)
		}
		if stored == nil {
			return nil, domain.ErrInternal("challenge settled but result missing", nil)
		}
		return stored, nil
	}
	if ch.Status != domain.ChallengeCompleted {
		return nil, domain.ErrStateConflict(fmt.Sprintf("challenge is %s, only COMPLETED challenges settle", ch.Status))
	}

	all, err := e.participants.ListByChallenge(ctx, tx, challengeID)
	if err != nil {
		return nil, domain.ErrInternal("list participants", err)
	}

	pool := ch.Stake * int64(len(all))
	var winners []domain.Participant
	for _, p := range all {
		if p.Status == domain.ParticipantCompleted {
			winners = append(winners, p)
		}
	}

	result := &domain.SettlementResult{
		ChallengeID: challengeID,
		TotalPool:   pool,
		SettledAt:   e.now().UTC(),
	}

	if len(winners) == 0 {
		// Full forfeiture: the pool goes to the treasury.
		result.PlatformRevenue = pool
		if pool > 0 {
			_, err := e.wallets.Credit(ctx, tx, domain.CreditParams{
				UserID:     e.platformUserID,
				Amount:     pool,
				Kind:       domain.KindPayout,
				ExternalID: fmt.Sprintf("settle_%s_platform", challengeID),
				Note:       fmt.Sprintf("forfeited pool, challenge %s", challengeID),
			})
			if err != nil {
				return nil, err
			}
		}
	} else {
		shares, perWinner := ComputePayouts(pool, winners)
		result.Winners = shares
		result.PerWinner = perWinner

		// Shares are computed in join order but credited in ascending
		// user_id order so concurrent multi-wallet transactions cannot
		// deadlock on the wallet locks.
		credits := make([]domain.PayoutShare, len(shares))
		copy(credits, shares)
		sort.Slice(credits, func(i, j int) bool {
			return credits[i].UserID.String() < credits[j].UserID.String()
		})
		for _, share := range credits {
			_, err := e.wallets.Credit(ctx, tx, domain.CreditParams{
				UserID:     share.UserID,
				Amount:     share.Amount,
				Kind:       domain.KindPayout,
				ExternalID: fmt.Sprintf("settle_%s_%s", challengeID, share.UserID),
				Note:       fmt.Sprintf("winnings, challenge %s", challengeID),
			})
			if err != nil {
				return nil, err
			}
		}
	}

	if err := e.settlements.Insert(ctx, tx, result); err != nil {
		return nil, domain.ErrInternal("persist settlement", err)
	}
	if err := e.challenges.UpdateStatus(ctx, tx, challengeID, domain.ChallengeCompleted, domain.ChallengeSettled); err != nil {
		return nil, err
	}
	if err := e.outbox.Insert(ctx, tx, domain.NewChallengeSettledEvent(result)); err != nil {
		return nil, domain.ErrInternal("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	e.logger.Info("challenge settled",
		"challenge_id", challengeID, "pool", pool, "winners", len(winners),
		"per_winner", result.PerWinner, "platform_revenue", result.PlatformRevenue)
	return result, nil
}

// SettleDue settles every challenge whose end instant has passed. Used by
// the settlement job runner; each challenge gets its own transaction and
// timeout so one stuck settlement cannot stall the batch.
func (e *Engine) SettleDue(ctx context.Context, batchSize int, perJobTimeout time.Duration) (int, error) {
	due, err := e.challenges.ListDueForSettlement(ctx, e.pool, e.now(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("list due challenges: %w", err)
	}

	settled := 0
	for _, ch := range due {
		jobCtx, cancel := context.WithTimeout(ctx, perJobTimeout)
		_, err := e.Settle(jobCtx, ch.ID)
		cancel()
		if err != nil {
			e.logger.Error("settlement failed", "challenge_id", ch.ID, "error", err)
			continue
		}
		settled++
	}
	return settled, nil
}
