// AngelaMos | 2026
// handler.go

package payout

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelamos/nestfund/internal/core"
)

type DisburseResponse struct {
	HolderID          string          `json:"holder_id"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentsRemaining int             `json:"payments_remaining"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes exposes disburse without authentication. Keepers are
// anonymous, and the endpoint can only move value to the named holder.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/payouts/{holderID}/disburse", h.Disburse)
}

func (h *Handler) Disburse(w http.ResponseWriter, r *http.Request) {
	holderID := chi.URLParam(r, "holderID")
	if holderID == "" {
		core.BadRequest(w, "missing holder id")
		return
	}

	amount, remaining, err := h.service.Disburse(r.Context(), holderID)
	if err != nil {
		if appErr := core.EngineError(err); appErr != nil {
			core.JSONError(w, appErr)
			return
		}
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "savings")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, DisburseResponse{
		HolderID:          holderID,
		Amount:            amount,
		PaymentsRemaining: remaining,
	})
}
