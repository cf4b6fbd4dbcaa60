package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const stripeAPIBase = "https://api.stripe.com/v1"

// webhookTolerance is how far a webhook timestamp may drift from wall
// clock before the event is rejected as a possible replay.
const webhookTolerance = 5 * time.Minute

// StripeProvider wraps Stripe API operations. Every call is bounded by a
// 10-second client timeout; idempotency lives in the caller, not here.
type StripeProvider struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	client        *http.Client
	now           func() time.Time
}

// NewStripeProvider creates a Stripe provider.
func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	return &StripeProvider{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		baseURL:       stripeAPIBase,
		client:        &http.Client{Timeout: 10 * time.Second},
		now:           time.Now,
	}
}

// WithBaseURL points the provider at a different API base. Used by tests
// and local Stripe mocks.
func (s *StripeProvider) WithBaseURL(u string) *StripeProvider {
	s.baseURL = u
	return s
}

// CheckoutSession represents a Stripe checkout session response.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// RefundResult represents a Stripe refund object.
type RefundResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// StripeWebhookEvent represents a parsed Stripe webhook event.
type StripeWebhookEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// CheckoutSessionData is the nested data.object from a
// checkout.session.completed event.
type CheckoutSessionData struct {
	ID                string `json:"id"`
	PaymentIntent     string `json:"payment_intent"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
	PaymentStatus     string `json:"payment_status"`
	ClientReferenceID string `json:"client_reference_id"`
}

// PaymentIntentData is the nested data.object from a payment_intent.*
// event. Async payment methods confirm through this path, after the
// checkout session has already completed unpaid.
type PaymentIntentData struct {
	ID             string `json:"id"`
	Amount         int64  `json:"amount"`
	AmountReceived int64  `json:"amount_received"`
	Status         string `json:"status"`
	Metadata       struct {
		UserID string `json:"user_id"`
	} `json:"metadata"`
}

// ReceivedCents returns the amount that actually settled, falling back to
// the intent amount when amount_received is absent.
func (p *PaymentIntentData) ReceivedCents() int64 {
	if p.AmountReceived > 0 {
		return p.AmountReceived
	}
	return p.Amount
}

// CreateCheckoutSession creates a Stripe checkout session for a deposit.
// The user ID travels as client_reference_id and comes back on the webhook.
func (s *StripeProvider) CreateCheckoutSession(amountCents int64, currency, userRef, successURL, cancelURL string) (*CheckoutSession, error) {
	if s.secretKey == "" {
		return nil, fmt.Errorf("stripe secret key not configured")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", "PeerPush Token Top-up")
	form.Set("line_items[0][quantity]", "1")
	form.Set("client_reference_id", userRef)
	// The same user ref rides on the payment intent so async confirmations
	// (payment_intent.succeeded) can be attributed without the session.
	form.Set("payment_intent_data[metadata][user_id]", userRef)
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)

	var session CheckoutSession
	if err := s.post("/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RefundPayment refunds part or all of a charge identified by its payment
// intent. Returns the Stripe refund ID for the audit trail.
func (s *StripeProvider) RefundPayment(paymentIntentID string, amountCents int64) (*RefundResult, error) {
	if s.secretKey == "" {
		return nil, fmt.Errorf("stripe secret key not configured")
	}
	if amountCents <= 0 {
		return nil, fmt.Errorf("refund amount must be positive, got %d", amountCents)
	}

	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)
	form.Set("amount", strconv.FormatInt(amountCents, 10))

	var refund RefundResult
	if err := s.post("/refunds", form, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (s *StripeProvider) post(path string, form url.Values, out interface{}) error {
	req, err := http.NewRequest("POST", s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("stripe api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("stripe error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode stripe response: %w", err)
	}
	return nil
}

// VerifyWebhookSignature verifies a Stripe webhook signature.
// Returns the parsed event if valid.
func (s *StripeProvider) VerifyWebhookSignature(payload []byte, sigHeader string) (*StripeWebhookEvent, error) {
	if s.webhookSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret not configured")
	}

	// Parse Stripe-Signature header: t=timestamp,v1=signature
	parts := strings.Split(sigHeader, ",")
	var timestamp string
	var signatures []string
	for _, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return nil, fmt.Errorf("invalid signature header format")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp: %w", err)
	}
	skew := s.now().Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(webhookTolerance.Seconds()) {
		return nil, fmt.Errorf("webhook timestamp outside tolerance")
	}

	// Expected signature: HMAC-SHA256 over "{timestamp}.{raw body}"
	signedPayload := timestamp + "." + string(payload)
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	valid := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("invalid webhook signature")
	}

	var event StripeWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	return &event, nil
}

// SignWebhookPayload computes the Stripe-Signature header value for a
// payload at the given timestamp. Used by tests and local tooling.
func SignWebhookPayload(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// ParseCheckoutSessionData extracts checkout session data from a webhook event.
func ParseCheckoutSessionData(data json.RawMessage) (*CheckoutSessionData, error) {
	var wrapper struct {
		Object CheckoutSessionData `json:"object"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse checkout session data: %w", err)
	}
	return &wrapper.Object, nil
}

// ParsePaymentIntentData extracts payment intent data from a webhook event.
func ParsePaymentIntentData(data json.RawMessage) (*PaymentIntentData, error) {
	var wrapper struct {
		Object PaymentIntentData `json:"object"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse payment intent data: %w", err)
	}
	return &wrapper.Object, nil
}
