package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/peerpush/platform/internal/domain"
)

type settlementRepo struct{}

// NewSettlementRepository returns a pgx-backed SettlementRepository.
func NewSettlementRepository() SettlementRepository {
	return &settlementRepo{}
}

func (r *settlementRepo) Insert(ctx context.Context, db DBTX, result *domain.SettlementResult) error {
	winners, err := json.Marshal(result.Winners)
	if err != nil {
		return fmt.Errorf("marshal winners: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO settlements (challenge_id, total_pool, per_winner, platform_revenue, winners, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		result.ChallengeID,
		Int64ToNumeric(result.TotalPool),
		Int64ToNumeric(result.PerWinner),
		Int64ToNumeric(result.PlatformRevenue),
		winners,
		result.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

func (r *settlementRepo) FindByChallenge(ctx context.Context, db DBTX, challengeID uuid.UUID) (*domain.SettlementResult, error) {
	var result domain.SettlementResult
	var poolNum, perNum, revNum pgtype.Numeric
	var winners json.RawMessage

	err := db.QueryRow(ctx, `
		SELECT challenge_id, total_pool, per_winner, platform_revenue, winners, settled_at
		FROM settlements WHERE challenge_id = $1`, challengeID).
		Scan(&result.ChallengeID, &poolNum, &perNum, &revNum, &winners, &result.SettledAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan settlement: %w", err)
	}

	if result.TotalPool, err = NumericToInt64(poolNum); err != nil {
		return nil, err
	}
	if result.PerWinner, err = NumericToInt64(perNum); err != nil {
		return nil, err
	}
	if result.PlatformRevenue, err = NumericToInt64(revNum); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(winners, &result.Winners); err != nil {
		return nil, fmt.Errorf("unmarshal winners: %w", err)
	}
	return &result, nil
}

func (r *settlementRepo) PlatformRevenueSince(ctx context.Context, db DBTX, since time.Time) (int64, int, error) {
	var num pgtype.Numeric
	var challenges int
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(platform_revenue), 0), COUNT(*) FILTER (WHERE platform_revenue > 0)
		FROM settlements WHERE settled_at >= $1`, since).Scan(&num, &challenges)
	if err != nil {
		return 0, 0, fmt.Errorf("sum platform revenue: %w", err)
	}
	total, err := NumericToInt64(num)
	if err != nil {
		return 0, 0, err
	}
	return total, challenges, nil
}
