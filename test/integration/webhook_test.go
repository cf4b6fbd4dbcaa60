//go:build integration

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peerpush/platform/internal/domain"
	"github.com/peerpush/platform/internal/provider"
	"github.com/peerpush/platform/test/integration/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkoutCompletedPayload(userID uuid.UUID, paymentIntent string, amountCents int64) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_%s","type":"checkout.session.completed","data":{"object":{"id":"cs_%s","payment_intent":"%s","amount_total":%d,"currency":"usd","payment_status":"paid","client_reference_id":"%s"}}}`,
		paymentIntent, paymentIntent, paymentIntent, amountCents, userID))
}

func intentSucceededPayload(userID uuid.UUID, paymentIntent string, amountCents int64) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_%s","type":"payment_intent.succeeded","data":{"object":{"id":"%s","amount":%d,"amount_received":%d,"status":"succeeded","metadata":{"user_id":"%s"}}}}`,
		paymentIntent, paymentIntent, amountCents, amountCents, userID))
}

func deliverWebhook(t *testing.T, env *testutil.TestEnv, payload []byte) error {
	t.Helper()
	stripe := provider.NewStripeProvider("", testutil.TestStripeWebhookSecret)
	svc := env.PaymentService(stripe, 1, 1_000_000)
	header := provider.SignWebhookPayload(testutil.TestStripeWebhookSecret, time.Now().Unix(), payload)
	return svc.HandleStripeWebhook(context.Background(), payload, header)
}

func TestWebhookCreditsDeposit(t *testing.T) {
	env := testutil.NewTestEnv(t)
	userID := env.CreateUser("wh1@test.peerpush.net")

	require.NoError(t, deliverWebhook(t, env, checkoutCompletedPayload(userID, "pi_wh1", 5000)))

	assert.Equal(t, int64(5000), env.Balance(userID))
	assert.Equal(t, []int64{5000}, env.LotRemainders(userID))
}

func TestWebhookReplayYieldsOneDepositRow(t *testing.T) {
	env := testutil.NewTestEnv(t)
	userID := env.CreateUser("wh2@test.peerpush.net")
	payload := checkoutCompletedPayload(userID, "pi_wh2", 5000)

	require.NoError(t, deliverWebhook(t, env, payload))
	require.NoError(t, deliverWebhook(t, env, payload))
	require.NoError(t, deliverWebhook(t, env, payload))

	assert.Equal(t, 1, env.CountEntries(userID, domain.KindDeposit))
	assert.Equal(t, int64(5000), env.Balance(userID))
}

func TestWebhookIntentSucceededCreditsDeposit(t *testing.T) {
	// Async payment methods confirm through payment_intent.succeeded after
	// the session completed unpaid.
	env := testutil.NewTestEnv(t)
	userID := env.CreateUser("wh3@test.peerpush.net")

	require.NoError(t, deliverWebhook(t, env, intentSucceededPayload(userID, "pi_wh3", 2500)))

	assert.Equal(t, int64(2500), env.Balance(userID))
	assert.Equal(t, 1, env.CountEntries(userID, domain.KindDeposit))
}

func TestWebhookCheckoutAndIntentShareIdempotencyKey(t *testing.T) {
	// Both confirmation paths carry the same payment intent; whichever
	// lands second must be a no-op.
	env := testutil.NewTestEnv(t)
	userID := env.CreateUser("wh4@test.peerpush.net")

	require.NoError(t, deliverWebhook(t, env, checkoutCompletedPayload(userID, "pi_wh4", 5000)))
	require.NoError(t, deliverWebhook(t, env, intentSucceededPayload(userID, "pi_wh4", 5000)))

	assert.Equal(t, 1, env.CountEntries(userID, domain.KindDeposit))
	assert.Equal(t, int64(5000), env.Balance(userID))
}

func TestWebhookIgnoresIntentWithoutMetadata(t *testing.T) {
	env := testutil.NewTestEnv(t)
	payload := []byte(`{"id":"evt_x","type":"payment_intent.succeeded","data":{"object":{"id":"pi_other","amount":900,"amount_received":900,"status":"succeeded","metadata":{}}}}`)

	require.NoError(t, deliverWebhook(t, env, payload))
}
