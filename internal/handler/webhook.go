package handler

import (
	"io"
	"net/http"

	"github.com/peerpush/platform/internal/domain"
	"github.com/peerpush/platform/internal/service"
)

// maxWebhookBody caps Stripe webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// WebhookHandler receives payment processor callbacks.
type WebhookHandler struct {
	payments *service.PaymentService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(payments *service.PaymentService) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

// HandleStripe handles POST /stripe/webhook. The body must stay raw:
// signature verification runs over the exact bytes Stripe sent.
func (h *WebhookHandler) HandleStripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		RespondError(w, domain.ErrValidation("read webhook body"))
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if err := h.payments.HandleStripeWebhook(r.Context(), payload, sigHeader); err != nil {
		// Non-2xx makes Stripe retry the delivery.
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"received": "true"})
}
