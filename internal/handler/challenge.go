package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/peerpush/platform/internal/domain"
	"github.com/peerpush/platform/internal/service"
	"github.com/peerpush/platform/internal/settlement"
)

// ChallengeHandler handles the money-facing challenge endpoints.
type ChallengeHandler struct {
	challenges *service.ChallengeService
	settler    *settlement.Engine
}

// NewChallengeHandler creates a new ChallengeHandler.
func NewChallengeHandler(challenges *service.ChallengeService, settler *settlement.Engine) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, settler: settler}
}

// Join handles POST /challenges/{id}/join.
func (h *ChallengeHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	challengeID, err := challengeIDFromPath(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	result, err := h.challenges.Join(r.Context(), challengeID, userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, result)
}

// Settle handles POST /admin/challenges/{id}/settle. Idempotent: settling
// an already-settled challenge returns the original result.
func (h *ChallengeHandler) Settle(w http.ResponseWriter, r *http.Request) {
	challengeID, err := challengeIDFromPath(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	result, err := h.settler.Settle(r.Context(), challengeID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// Cancel handles POST /admin/challenges/{id}/cancel.
func (h *ChallengeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	challengeID, err := challengeIDFromPath(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	if err := h.challenges.Cancel(r.Context(), challengeID); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": string(domain.ChallengeCancelled)})
}

// PlatformRevenue handles GET /admin/platform/revenue?days=N.
func (h *ChallengeHandler) PlatformRevenue(w http.ResponseWriter, r *http.Request) {
	days := 30
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 3650 {
			RespondError(w, domain.ErrValidation("days must be a positive integer"))
			return
		}
		days = n
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	revenue, err := h.challenges.RevenueSince(r.Context(), since)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, revenue)
}

func challengeIDFromPath(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.ErrValidation("invalid challenge id")
	}
	return id, nil
}
