package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/peerpush/platform/internal/domain"
)

type participantRepo struct{}

// NewParticipantRepository returns a pgx-backed ParticipantRepository.
func NewParticipantRepository() ParticipantRepository {
	return &participantRepo{}
}

const participantColumns = `id, challenge_id, user_id, status, joined_at, stake_ledger_entry_id`

func (r *participantRepo) Create(ctx context.Context, db DBTX, p *domain.Participant) error {
	row := db.QueryRow(ctx, `
		INSERT INTO participants (challenge_id, user_id, status, stake_ledger_entry_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, joined_at`,
		p.ChallengeID, p.UserID, string(p.Status), p.StakeLedgerEntryID)
	if err := row.Scan(&p.ID, &p.JoinedAt); err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (r *participantRepo) Find(ctx context.Context, db DBTX, challengeID, userID uuid.UUID) (*domain.Participant, error) {
	row := db.QueryRow(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE challenge_id = $1 AND user_id = $2`, challengeID, userID)
	return scanParticipant(row)
}

func (r *participantRepo) ListByChallenge(ctx context.Context, db DBTX, challengeID uuid.UUID) ([]domain.Participant, error) {
	rows, err := db.Query(ctx, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE challenge_id = $1
		ORDER BY joined_at ASC, user_id ASC`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var parts []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.ChallengeID, &p.UserID, &p.Status, &p.JoinedAt, &p.StakeLedgerEntryID); err != nil {
			return nil, fmt.Errorf("scan participant row: %w", err)
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (r *participantRepo) CountByChallenge(ctx context.Context, db DBTX, challengeID uuid.UUID) (int, error) {
	var n int
	err := db.QueryRow(ctx,
		`SELECT COUNT(*) FROM participants WHERE challenge_id = $1`, challengeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

func scanParticipant(row pgx.Row) (*domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(&p.ID, &p.ChallengeID, &p.UserID, &p.Status, &p.JoinedAt, &p.StakeLedgerEntryID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan participant: %w", err)
	}
	return &p, nil
}
