package settlement

import (
	"github.com/peerpush/platform/internal/domain"
)

// ComputePayouts splits an integer pool across winners. Every winner gets
// pool/n; the remainder is distributed one token each to the earliest
// winners, so the caller must pass winners already ordered by
// (joined_at, user_id). The shares always sum to exactly the pool.
func ComputePayouts(pool int64, winners []domain.Participant) (shares []domain.PayoutShare, perWinner int64) {
	n := int64(len(winners))
	if n == 0 || pool <= 0 {
		return nil, 0
	}

	perWinner = pool / n
	remainder := pool % n

	shares = make([]domain.PayoutShare, 0, n)
	for i, w := range winners {
		amount := perWinner
		if int64(i) < remainder {
			amount++
		}
		shares = append(shares, domain.PayoutShare{UserID: w.UserID, Amount: amount})
	}
	return shares, perWinner
}
