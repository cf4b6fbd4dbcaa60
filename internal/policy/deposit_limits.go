package policy

import "time"

// DepositLimitPolicy defines the per-user deposit ceilings, in tokens.
type DepositLimitPolicy struct {
	SingleDepositMax int64 `json:"single_deposit_max"`
	DailyDepositCap  int64 `json:"daily_deposit_cap"`
}

// DepositEvaluation holds the result of a deposit limit check.
type DepositEvaluation struct {
	Allowed       bool   `json:"allowed"`
	BreachedLimit string `json:"breached_limit,omitempty"`
	LimitValue    int64  `json:"limit_value,omitempty"`
	Remaining     int64  `json:"remaining,omitempty"`
}

// EvaluateDeposit checks a requested deposit against the policy.
// depositedToday is the running DEPOSIT total since midnight UTC.
func EvaluateDeposit(policy DepositLimitPolicy, tokens, depositedToday int64) DepositEvaluation {
	if policy.SingleDepositMax > 0 && tokens > policy.SingleDepositMax {
		return DepositEvaluation{
			Allowed:       false,
			BreachedLimit: "single_deposit",
			LimitValue:    policy.SingleDepositMax,
		}
	}

	if policy.DailyDepositCap > 0 && depositedToday+tokens > policy.DailyDepositCap {
		return DepositEvaluation{
			Allowed:       false,
			BreachedLimit: "daily_deposit",
			LimitValue:    policy.DailyDepositCap,
			Remaining:     max(0, policy.DailyDepositCap-depositedToday),
		}
	}

	return DepositEvaluation{Allowed: true}
}

// MidnightUTC returns the start of the current calendar day in UTC, the
// boundary the daily cap resets on.
func MidnightUTC(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour)
}
