package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	ctx := context.Background()

	assert.True(t, cb.Check(ctx, "stripe_refund").Allowed)

	cb.RecordFailure("stripe_refund")
	cb.RecordFailure("stripe_refund")
	assert.True(t, cb.Check(ctx, "stripe_refund").Allowed, "below threshold stays closed")

	cb.RecordFailure("stripe_refund")
	res := cb.Check(ctx, "stripe_refund")
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "circuit open")
}

func TestCircuitKeysAreIndependent(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	ctx := context.Background()

	cb.Check(ctx, "stripe_checkout")
	cb.Check(ctx, "stripe_refund")
	cb.RecordFailure("stripe_refund")

	assert.False(t, cb.Check(ctx, "stripe_refund").Allowed)
	assert.True(t, cb.Check(ctx, "stripe_checkout").Allowed)
}

func TestCircuitHalfOpenAfterReset(t *testing.T) {
	cb := NewCircuitBreaker(1, 50*time.Millisecond)
	ctx := context.Background()

	cb.Check(ctx, "k")
	cb.RecordFailure("k")
	assert.False(t, cb.Check(ctx, "k").Allowed)

	time.Sleep(80 * time.Millisecond)

	// One probe allowed in half-open; a second is rejected.
	assert.True(t, cb.Check(ctx, "k").Allowed)
	cb.RecordSuccess("k")
	assert.True(t, cb.Check(ctx, "k").Allowed, "success closes the circuit")
}

func TestCircuitHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 50*time.Millisecond)
	ctx := context.Background()

	cb.Check(ctx, "k")
	cb.RecordFailure("k")
	time.Sleep(80 * time.Millisecond)

	assert.True(t, cb.Check(ctx, "k").Allowed)
	cb.RecordFailure("k")
	assert.False(t, cb.Check(ctx, "k").Allowed)
}

func TestCircuitSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	ctx := context.Background()

	cb.Check(ctx, "k")
	cb.RecordFailure("k")
	cb.RecordSuccess("k")
	cb.RecordFailure("k")

	assert.True(t, cb.Check(ctx, "k").Allowed, "interleaved success keeps the circuit closed")
}
