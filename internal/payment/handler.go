// Package payment is the boundary to the external payment collaborator.
// The service never processes money itself: it only accepts the
// collaborator's confirmation and converts it into one quota overage credit,
// after which the client retries the identical upload.
package payment

import (
	"context"
	"encoding/json"
	"math"
	"net/http"

	"github.com/memora/service/internal/middleware"
	"github.com/memora/service/internal/quota"
	"github.com/memora/service/internal/response"
)

// CreditGranter records a confirmed overage payment; satisfied by *quota.Ledger.
type CreditGranter interface {
	GrantCredit(ctx context.Context, userID string) error
}

// Handler holds HTTP handlers for payment confirmation.
type Handler struct {
	credits CreditGranter
}

// NewHandler creates a new payment Handler.
func NewHandler(credits CreditGranter) *Handler {
	return &Handler{credits: credits}
}

type confirmRequest struct {
	Amount float64 `json:"amount" example:"0.25"`
}

// Confirm godoc
//
//	@Summary		Confirm overage payment
//	@Description	Called after the payment provider reports success. Grants one over-quota upload credit; the client then retries the rejected upload.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		confirmRequest	true	"Paid amount"
//	@Success		200		{object}	response.Envelope
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Router			/payments/confirm [post]
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if math.Abs(req.Amount-quota.OverageCost) > 1e-9 {
		response.BadRequest(w, "amount does not match the required overage cost")
		return
	}

	if err := h.credits.GrantCredit(r.Context(), middleware.UserID(r.Context())); err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"message": "payment recorded, retry the upload"})
}
