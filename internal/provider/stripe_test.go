package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func testProvider(now time.Time) *StripeProvider {
	p := NewStripeProvider("sk_test_key", testWebhookSecret)
	p.now = func() time.Time { return now }
	return p
}

func eventPayload(eventType string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","type":"%s","data":{"object":{"id":"cs_1","payment_intent":"pi_1","amount_total":5000,"currency":"usd","payment_status":"paid","client_reference_id":"user-1"}}}`, eventType))
}

func TestVerifyWebhookSignatureRoundTrip(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	p := testProvider(now)
	payload := eventPayload("checkout.session.completed")

	header := SignWebhookPayload(testWebhookSecret, now.Unix(), payload)

	event, err := p.VerifyWebhookSignature(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "checkout.session.completed", event.Type)
}

func TestVerifyWebhookSignatureWrongSecret(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	p := testProvider(now)
	payload := eventPayload("checkout.session.completed")

	header := SignWebhookPayload("whsec_other", now.Unix(), payload)

	_, err := p.VerifyWebhookSignature(payload, header)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid webhook signature")
}

func TestVerifyWebhookSignatureTamperedBody(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	p := testProvider(now)
	payload := eventPayload("checkout.session.completed")

	header := SignWebhookPayload(testWebhookSecret, now.Unix(), payload)
	tampered := eventPayload("charge.refunded")

	_, err := p.VerifyWebhookSignature(tampered, header)
	require.Error(t, err)
}

func TestVerifyWebhookSignatureStaleTimestamp(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	p := testProvider(now)
	payload := eventPayload("checkout.session.completed")

	// Signed 6 minutes ago, past the 5-minute tolerance.
	stale := now.Add(-6 * time.Minute)
	header := SignWebhookPayload(testWebhookSecret, stale.Unix(), payload)

	_, err := p.VerifyWebhookSignature(payload, header)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tolerance")
}

func TestVerifyWebhookSignatureWithinTolerance(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	p := testProvider(now)
	payload := eventPayload("checkout.session.completed")

	recent := now.Add(-4 * time.Minute)
	header := SignWebhookPayload(testWebhookSecret, recent.Unix(), payload)

	_, err := p.VerifyWebhookSignature(payload, header)
	require.NoError(t, err)
}

func TestVerifyWebhookSignatureMalformedHeader(t *testing.T) {
	p := testProvider(time.Now())
	payload := eventPayload("checkout.session.completed")

	for _, header := range []string{"", "garbage", "t=,v1=", "v1=abc", "t=123"} {
		_, err := p.VerifyWebhookSignature(payload, header)
		require.Error(t, err, "header %q", header)
	}
}

func TestVerifyWebhookSignatureNoSecret(t *testing.T) {
	p := NewStripeProvider("sk_test_key", "")

	_, err := p.VerifyWebhookSignature([]byte("{}"), "t=1,v1=abc")
	require.Error(t, err)
}

func TestParseCheckoutSessionData(t *testing.T) {
	var event StripeWebhookEvent
	require.NoError(t, json.Unmarshal(eventPayload("checkout.session.completed"), &event))

	session, err := ParseCheckoutSessionData(event.Data)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.ID)
	assert.Equal(t, "pi_1", session.PaymentIntent)
	assert.Equal(t, int64(5000), session.AmountTotal)
	assert.Equal(t, "paid", session.PaymentStatus)
	assert.Equal(t, "user-1", session.ClientReferenceID)
}

func intentPayload(status string, received int64) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_2","type":"payment_intent.succeeded","data":{"object":{"id":"pi_2","amount":5000,"amount_received":%d,"status":"%s","metadata":{"user_id":"user-2"}}}}`, received, status))
}

func TestParsePaymentIntentData(t *testing.T) {
	var event StripeWebhookEvent
	require.NoError(t, json.Unmarshal(intentPayload("succeeded", 5000), &event))

	intent, err := ParsePaymentIntentData(event.Data)
	require.NoError(t, err)
	assert.Equal(t, "pi_2", intent.ID)
	assert.Equal(t, "succeeded", intent.Status)
	assert.Equal(t, "user-2", intent.Metadata.UserID)
	assert.Equal(t, int64(5000), intent.ReceivedCents())
}

func TestPaymentIntentReceivedCentsFallsBackToAmount(t *testing.T) {
	var event StripeWebhookEvent
	require.NoError(t, json.Unmarshal(intentPayload("succeeded", 0), &event))

	intent, err := ParsePaymentIntentData(event.Data)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), intent.ReceivedCents())
}

func TestCheckoutSessionCarriesIntentMetadata(t *testing.T) {
	// The user ref must ride on the payment intent so async confirmations
	// can be attributed without the session.
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		fmt.Fprint(w, `{"id":"cs_9","url":"https://checkout.stripe.com/cs_9"}`)
	}))
	defer srv.Close()

	p := testProvider(time.Now())
	p.baseURL = srv.URL

	session, err := p.CreateCheckoutSession(5000, "USD", "user-3", "http://x/ok", "http://x/no")
	require.NoError(t, err)
	assert.Equal(t, "cs_9", session.ID)
	assert.Equal(t, "user-3", form.Get("client_reference_id"))
	assert.Equal(t, "user-3", form.Get("payment_intent_data[metadata][user_id]"))
}

func TestRefundPaymentRejectsNonPositiveAmount(t *testing.T) {
	p := testProvider(time.Now())

	_, err := p.RefundPayment("pi_1", 0)
	require.Error(t, err)
	_, err = p.RefundPayment("pi_1", -100)
	require.Error(t, err)
}
