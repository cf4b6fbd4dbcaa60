package wallet

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peerpush/platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lot(remaining int64) domain.Allocation {
	return domain.Allocation{
		ID:        uuid.New(),
		Remaining: remaining,
		CreatedAt: time.Now(),
	}
}

func TestPlanConsumptionSingleLot(t *testing.T) {
	lots := []domain.Allocation{lot(100)}

	draws, err := PlanConsumption(lots, 60)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, lots[0].ID, draws[0].AllocationID)
	assert.Equal(t, int64(60), draws[0].Amount)
}

func TestPlanConsumptionSpansLots(t *testing.T) {
	lots := []domain.Allocation{lot(30), lot(50), lot(100)}

	draws, err := PlanConsumption(lots, 90)
	require.NoError(t, err)
	require.Len(t, draws, 3)

	// Oldest-first: drain the first two fully, take 10 from the third.
	assert.Equal(t, int64(30), draws[0].Amount)
	assert.Equal(t, int64(50), draws[1].Amount)
	assert.Equal(t, int64(10), draws[2].Amount)

	var total int64
	for _, d := range draws {
		total += d.Amount
	}
	assert.Equal(t, int64(90), total)
}

func TestPlanConsumptionExactCover(t *testing.T) {
	lots := []domain.Allocation{lot(25), lot(75)}

	draws, err := PlanConsumption(lots, 100)
	require.NoError(t, err)
	require.Len(t, draws, 2)
	assert.Equal(t, int64(25), draws[0].Amount)
	assert.Equal(t, int64(75), draws[1].Amount)
}

func TestPlanConsumptionSkipsDrainedLots(t *testing.T) {
	lots := []domain.Allocation{lot(0), lot(40)}

	draws, err := PlanConsumption(lots, 40)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, lots[1].ID, draws[0].AllocationID)
}

func TestPlanConsumptionInsufficientLots(t *testing.T) {
	lots := []domain.Allocation{lot(10), lot(20)}

	_, err := PlanConsumption(lots, 31)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lots cover 30 of 31")
}

func TestPlanConsumptionNoLots(t *testing.T) {
	_, err := PlanConsumption(nil, 5)
	require.Error(t, err)
}

func TestPlanConsumptionInvalidAmount(t *testing.T) {
	lots := []domain.Allocation{lot(100)}

	_, err := PlanConsumption(lots, 0)
	require.Error(t, err)
	_, err = PlanConsumption(lots, -10)
	require.Error(t, err)
}

func TestPlanConsumptionLeavesLaterLotsUntouched(t *testing.T) {
	lots := []domain.Allocation{lot(100), lot(100)}

	draws, err := PlanConsumption(lots, 50)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, lots[0].ID, draws[0].AllocationID)
	assert.Equal(t, int64(50), draws[0].Amount)
}
