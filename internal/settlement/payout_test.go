package settlement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peerpush/platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func winner(joinOffset time.Duration) domain.Participant {
	return domain.Participant{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Status:   domain.ParticipantCompleted,
		JoinedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(joinOffset),
	}
}

func winners(n int) []domain.Participant {
	out := make([]domain.Participant, n)
	for i := range out {
		out[i] = winner(time.Duration(i) * time.Minute)
	}
	return out
}

func shareSum(shares []domain.PayoutShare) int64 {
	var total int64
	for _, s := range shares {
		total += s.Amount
	}
	return total
}

func TestComputePayoutsEvenSplit(t *testing.T) {
	ws := winners(4)

	shares, perWinner := ComputePayouts(400, ws)
	require.Len(t, shares, 4)
	assert.Equal(t, int64(100), perWinner)
	for _, s := range shares {
		assert.Equal(t, int64(100), s.Amount)
	}
	assert.Equal(t, int64(400), shareSum(shares))
}

func TestComputePayoutsRemainderToEarliest(t *testing.T) {
	ws := winners(3)

	// 100 / 3 = 33 each, remainder 1 goes to the earliest joiner.
	shares, perWinner := ComputePayouts(100, ws)
	require.Len(t, shares, 3)
	assert.Equal(t, int64(33), perWinner)
	assert.Equal(t, int64(34), shares[0].Amount)
	assert.Equal(t, int64(33), shares[1].Amount)
	assert.Equal(t, int64(33), shares[2].Amount)
	assert.Equal(t, ws[0].UserID, shares[0].UserID)
	assert.Equal(t, int64(100), shareSum(shares))
}

func TestComputePayoutsLargeRemainder(t *testing.T) {
	ws := winners(7)

	// things like 65 / 7 = 9 rem 2: first two winners get 10.
	shares, perWinner := ComputePayouts(65, ws)
	require.Len(t, shares, 7)
	assert.Equal(t, int64(9), perWinner)
	assert.Equal(t, int64(10), shares[0].Amount)
	assert.Equal(t, int64(10), shares[1].Amount)
	for _, s := range shares[2:] {
		assert.Equal(t, int64(9), s.Amount)
	}
	assert.Equal(t, int64(65), shareSum(shares))
}

func TestComputePayoutsSingleWinnerTakesAll(t *testing.T) {
	ws := winners(1)

	shares, perWinner := ComputePayouts(500, ws)
	require.Len(t, shares, 1)
	assert.Equal(t, int64(500), perWinner)
	assert.Equal(t, int64(500), shares[0].Amount)
}

func TestComputePayoutsNoWinners(t *testing.T) {
	shares, perWinner := ComputePayouts(300, nil)
	assert.Nil(t, shares)
	assert.Equal(t, int64(0), perWinner)
}

func TestComputePayoutsZeroPool(t *testing.T) {
	shares, perWinner := ComputePayouts(0, winners(3))
	assert.Nil(t, shares)
	assert.Equal(t, int64(0), perWinner)
}

func TestComputePayoutsConservation(t *testing.T) {
	// Shares must always sum to exactly the pool, whatever the split.
	pools := []int64{1, 2, 3, 10, 99, 100, 101, 997, 5000, 123457}
	for _, n := range []int{1, 2, 3, 5, 8, 13} {
		ws := winners(n)
		for _, pool := range pools {
			shares, _ := ComputePayouts(pool, ws)
			assert.Equal(t, pool, shareSum(shares), "pool=%d winners=%d", pool, n)
		}
	}
}

func TestComputePayoutsDeterministic(t *testing.T) {
	ws := winners(5)

	first, _ := ComputePayouts(1234, ws)
	second, _ := ComputePayouts(1234, ws)
	assert.Equal(t, first, second)
}
