package wallet

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/peerpush/platform/internal/domain"
)

// Draw is one planned decrement against one allocation.
type Draw struct {
	AllocationID uuid.UUID
	Amount       int64
}

// PlanConsumption splits a debit across lots in the order given, taking
// from each lot until the amount is exhausted. Lots must already be sorted
// oldest-first. Fails when the lots cannot cover the amount.
func PlanConsumption(lots []domain.Allocation, amount int64) ([]Draw, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("consumption amount must be positive, got %d", amount)
	}

	var draws []Draw
	remaining := amount
	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		if lot.Remaining <= 0 {
			continue
		}
		take := min(remaining, lot.Remaining)
		draws = append(draws, Draw{AllocationID: lot.ID, Amount: take})
		remaining -= take
	}
	if remaining > 0 {
		return nil, fmt.Errorf("lots cover %d of %d tokens", amount-remaining, amount)
	}
	return draws, nil
}
