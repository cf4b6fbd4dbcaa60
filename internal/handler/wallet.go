package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/peerpush/platform/internal/auth"
	"github.com/peerpush/platform/internal/domain"
	"github.com/peerpush/platform/internal/service"
)

// WalletHandler handles wallet balance, deposit, and withdrawal endpoints.
type WalletHandler struct {
	wallets     *service.WalletService
	payments    *service.PaymentService
	withdrawals *service.WithdrawalService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallets *service.WalletService, payments *service.PaymentService, withdrawals *service.WithdrawalService) *WalletHandler {
	return &WalletHandler{wallets: wallets, payments: payments, withdrawals: withdrawals}
}

// GetWallet handles GET /wallet: balance plus recent ledger entries.
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	snapshot, err := h.wallets.Snapshot(r.Context(), userID, limit)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, snapshot)
}

type depositRequest struct {
	Tokens     int64  `json:"tokens"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// BeginDeposit handles POST /wallet/deposit/checkout.
func (h *WalletHandler) BeginDeposit(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req depositRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	session, err := h.payments.BeginDeposit(r.Context(), userID, req.Tokens, req.SuccessURL, req.CancelURL)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, session)
}

type withdrawRequest struct {
	Tokens int64 `json:"tokens"`
}

// Withdraw handles POST /wallet/withdraw.
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req withdrawRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	result, err := h.withdrawals.Withdraw(r.Context(), userID, req.Tokens)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// userIDFromContext extracts and validates the user UUID from auth context.
func userIDFromContext(r *http.Request) (uuid.UUID, error) {
	sub := auth.SubjectFromContext(r.Context())
	if sub == "" {
		return uuid.Nil, domain.ErrUnauthorized("no subject in context")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, domain.ErrUnauthorized("invalid subject")
	}
	return id, nil
}
