// AngelaMos | 2026
// handler.go

package ledger

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelamos/nestfund/internal/core"
	"github.com/angelamos/nestfund/internal/middleware"
	"github.com/angelamos/nestfund/internal/plan"
)

type ContributeRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type ContributeResponse struct {
	Savings plan.SavingsResponse `json:"savings"`
}

type ReclaimResponse struct {
	Amount decimal.Decimal `json:"amount"`
}

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/savings", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMine)
		r.Post("/deposits", h.Contribute)
		r.Post("/reclaim", h.Reclaim)
	})
}

func (h *Handler) Contribute(w http.ResponseWriter, r *http.Request) {
	holderID := middleware.GetHolderID(r.Context())

	var req ContributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	sv, err := h.service.Contribute(r.Context(), holderID, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	core.OK(w, ContributeResponse{Savings: plan.ToSavingsResponse(sv)})
}

func (h *Handler) Reclaim(w http.ResponseWriter, r *http.Request) {
	holderID := middleware.GetHolderID(r.Context())

	amount, err := h.service.Reclaim(r.Context(), holderID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	core.OK(w, ReclaimResponse{Amount: amount})
}

func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	holderID := middleware.GetHolderID(r.Context())

	sv, err := h.service.Savings(r.Context(), holderID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "savings")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, plan.ToSavingsResponse(sv))
}

func writeEngineError(w http.ResponseWriter, err error) {
	if appErr := core.EngineError(err); appErr != nil {
		core.JSONError(w, appErr)
		return
	}
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "savings")
		return
	}
	core.InternalServerError(w, err)
}
