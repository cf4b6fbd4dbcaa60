package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventTokenMovement    EventType = "peerpush.wallet.movement.posted"
	EventDepositConfirmed EventType = "peerpush.wallet.deposit.confirmed"
	EventWithdrawalDone   EventType = "peerpush.wallet.withdrawal.completed"
	EventChallengeSettled EventType = "peerpush.challenge.settled"
	EventChallengeVoided  EventType = "peerpush.challenge.cancelled"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateWallet    AggregateType = "wallet"
	AggregateChallenge AggregateType = "challenge"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// NewTokenMovementEvent creates the standard wallet event for a ledger entry.
func NewTokenMovementEvent(entry *LedgerEntry) OutboxDraft {
	payload, _ := json.Marshal(entry)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   entry.UserID.String(),
		EventType:     EventTokenMovement,
		PartitionKey:  entry.UserID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewDepositConfirmedEvent creates the notification event emitted when a
// processor-confirmed deposit lands in the wallet.
func NewDepositConfirmedEvent(userID uuid.UUID, tokens int64, paymentRef string) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":     userID.String(),
		"tokens":      tokens,
		"payment_ref": paymentRef,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   userID.String(),
		EventType:     EventDepositConfirmed,
		PartitionKey:  userID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewWithdrawalCompletedEvent creates the notification event emitted when a
// withdrawal commits, partial or not.
func NewWithdrawalCompletedEvent(userID uuid.UUID, result *WithdrawalResult) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":   userID.String(),
		"requested": result.Requested,
		"refunded":  result.Refunded,
		"partial":   result.Partial,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   userID.String(),
		EventType:     EventWithdrawalDone,
		PartitionKey:  userID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewChallengeSettledEvent creates the event emitted once per settlement.
func NewChallengeSettledEvent(result *SettlementResult) OutboxDraft {
	payload, _ := json.Marshal(result)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateChallenge,
		AggregateID:   result.ChallengeID.String(),
		EventType:     EventChallengeSettled,
		PartitionKey:  result.ChallengeID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewChallengeCancelledEvent creates the event emitted when a challenge is
// voided and stakes are returned.
func NewChallengeCancelledEvent(challengeID uuid.UUID, refunded int64) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"challenge_id":    challengeID.String(),
		"stakes_returned": refunded,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateChallenge,
		AggregateID:   challengeID.String(),
		EventType:     EventChallengeVoided,
		PartitionKey:  challengeID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
