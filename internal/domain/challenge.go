package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeStatus tracks the challenge lifecycle. SETTLED and CANCELLED
// are terminal.
type ChallengeStatus string

const (
	ChallengeDraft     ChallengeStatus = "DRAFT"
	ChallengeActive    ChallengeStatus = "ACTIVE"
	ChallengeCompleted ChallengeStatus = "COMPLETED"
	ChallengeSettled   ChallengeStatus = "SETTLED"
	ChallengeCancelled ChallengeStatus = "CANCELLED"
)

// Terminal reports whether the status permits no further transitions.
func (s ChallengeStatus) Terminal() bool {
	return s == ChallengeSettled || s == ChallengeCancelled
}

// Challenge metadata as seen by the financial core. The challenge registry
// owns creation and verification; the core reads it and drives the
// ACTIVE → COMPLETED → SETTLED / CANCELLED transitions.
type Challenge struct {
	ID                    uuid.UUID       `json:"id"`
	CreatorID             uuid.UUID       `json:"creator_id"`
	Stake                 int64           `json:"stake"`
	MaxParticipants       *int            `json:"max_participants,omitempty"`
	StartAt               time.Time       `json:"start_at"`
	EndAt                 time.Time       `json:"end_at"`
	Status                ChallengeStatus `json:"status"`
	VerificationThreshold int             `json:"verification_threshold"`
	CreatedAt             time.Time       `json:"created_at"`
}

// ParticipantStatus tracks one user's outcome within a challenge.
type ParticipantStatus string

const (
	ParticipantJoined    ParticipantStatus = "JOINED"
	ParticipantCompleted ParticipantStatus = "COMPLETED"
	ParticipantFailed    ParticipantStatus = "FAILED"
)

// Participant joins a user to a challenge. The stake debit happens at join
// time and is recorded via StakeLedgerEntryID.
type Participant struct {
	ID                 uuid.UUID         `json:"id"`
	ChallengeID        uuid.UUID         `json:"challenge_id"`
	UserID             uuid.UUID         `json:"user_id"`
	Status             ParticipantStatus `json:"status"`
	JoinedAt           time.Time         `json:"joined_at"`
	StakeLedgerEntryID uuid.UUID         `json:"stake_ledger_entry_id"`
}

// JoinResult is returned from ChallengeService.Join.
type JoinResult struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	StakePaid     int64     `json:"stake_paid"`
}

// PayoutShare is one winner's cut of a settled pool.
type PayoutShare struct {
	UserID uuid.UUID `json:"user_id"`
	Amount int64     `json:"amount"`
}

// SettlementResult is the persisted outcome of settling one challenge.
// Settling an already-settled challenge replays the stored result.
type SettlementResult struct {
	ChallengeID     uuid.UUID     `json:"challenge_id"`
	TotalPool       int64         `json:"total_pool"`
	Winners         []PayoutShare `json:"winners"`
	PerWinner       int64         `json:"per_winner"`
	PlatformRevenue int64         `json:"platform_revenue"`
	SettledAt       time.Time     `json:"settled_at"`
}
