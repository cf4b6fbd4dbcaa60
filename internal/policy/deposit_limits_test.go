package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateDepositWithinLimits(t *testing.T) {
	p := DepositLimitPolicy{SingleDepositMax: 10000, DailyDepositCap: 100000}

	eval := EvaluateDeposit(p, 5000, 0)
	assert.True(t, eval.Allowed)
}

func TestEvaluateDepositSingleMax(t *testing.T) {
	p := DepositLimitPolicy{SingleDepositMax: 10000, DailyDepositCap: 100000}

	eval := EvaluateDeposit(p, 10000, 0)
	assert.True(t, eval.Allowed, "exactly at the limit is allowed")

	eval = EvaluateDeposit(p, 10001, 0)
	assert.False(t, eval.Allowed)
	assert.Equal(t, "single_deposit", eval.BreachedLimit)
	assert.Equal(t, int64(10000), eval.LimitValue)
}

func TestEvaluateDepositDailyCap(t *testing.T) {
	p := DepositLimitPolicy{DailyDepositCap: 1000}

	eval := EvaluateDeposit(p, 400, 600)
	assert.True(t, eval.Allowed, "filling the cap exactly is allowed")

	eval = EvaluateDeposit(p, 401, 600)
	assert.False(t, eval.Allowed)
	assert.Equal(t, "daily_deposit", eval.BreachedLimit)
	assert.Equal(t, int64(1000), eval.LimitValue)
	assert.Equal(t, int64(400), eval.Remaining)
}

func TestEvaluateDepositCapAlreadyExceeded(t *testing.T) {
	p := DepositLimitPolicy{DailyDepositCap: 1000}

	eval := EvaluateDeposit(p, 1, 1500)
	assert.False(t, eval.Allowed)
	assert.Equal(t, int64(0), eval.Remaining, "remaining never goes negative")
}

func TestEvaluateDepositZeroLimitsDisabled(t *testing.T) {
	eval := EvaluateDeposit(DepositLimitPolicy{}, 1_000_000, 99_999_999)
	assert.True(t, eval.Allowed, "zero limits mean no caps")
}

func TestMidnightUTC(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 42, 9, 123, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), MidnightUTC(now))

	// Non-UTC inputs are normalized before truncation.
	est := time.FixedZone("EST", -5*3600)
	late := time.Date(2026, 3, 15, 22, 0, 0, 0, est) // 03:00 UTC on the 16th
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), MidnightUTC(late))
}
