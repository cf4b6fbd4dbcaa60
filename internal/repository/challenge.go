package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/peerpush/platform/internal/domain"
)

type challengeRepo struct{}

// NewChallengeRepository returns a pgx-backed ChallengeRepository.
func NewChallengeRepository() ChallengeRepository {
	return &challengeRepo{}
}

const challengeColumns = `id, creator_id, stake, max_participants, start_at, end_at, status, verification_threshold, created_at`

func (r *challengeRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Challenge, error) {
	row := db.QueryRow(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id)
	return scanChallenge(row)
}

func (r *challengeRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Challenge, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id = $1 FOR UPDATE`, id)
	return scanChallenge(row)
}

func (r *challengeRepo) UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, from, to domain.ChallengeStatus) error {
	tag, err := db.Exec(ctx, `
		UPDATE challenges SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("update challenge status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStateConflict(fmt.Sprintf("challenge %s is not %s", id, from))
	}
	return nil
}

func (r *challengeRepo) ListDueForSettlement(ctx context.Context, db DBTX, now time.Time, limit int) ([]domain.Challenge, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
		SELECT `+challengeColumns+`
		FROM challenges
		WHERE status = $1 AND end_at <= $2
		ORDER BY end_at ASC
		LIMIT $3`, string(domain.ChallengeCompleted), now, limit)
	if err != nil {
		return nil, fmt.Errorf("query due challenges: %w", err)
	}
	defer rows.Close()

	var challenges []domain.Challenge
	for rows.Next() {
		var c domain.Challenge
		var stakeNum pgtype.Numeric
		if err := rows.Scan(&c.ID, &c.CreatorID, &stakeNum, &c.MaxParticipants, &c.StartAt, &c.EndAt, &c.Status, &c.VerificationThreshold, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan challenge row: %w", err)
		}
		if c.Stake, err = NumericToInt64(stakeNum); err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func scanChallenge(row pgx.Row) (*domain.Challenge, error) {
	var c domain.Challenge
	var stakeNum pgtype.Numeric
	err := row.Scan(&c.ID, &c.CreatorID, &stakeNum, &c.MaxParticipants, &c.StartAt, &c.EndAt, &c.Status, &c.VerificationThreshold, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan challenge: %w", err)
	}
	if c.Stake, err = NumericToInt64(stakeNum); err != nil {
		return nil, err
	}
	return &c, nil
}
