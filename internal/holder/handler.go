// AngelaMos | 2026
// handler.go

package holder

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/angelamos/nestfund/internal/core"
	"github.com/angelamos/nestfund/internal/middleware"
)

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
	r.Route("/holders", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.Put("/me", h.UpdateMe)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	holderID := middleware.GetHolderID(r.Context())

	record, err := h.service.GetMe(r.Context(), holderID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "holder")
			return
		}
		if errors.Is(err, core.ErrUnauthorized) {
			core.Unauthorized(w, "")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToHolderResponse(record))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	holderID := middleware.GetHolderID(r.Context())

	var req UpdateHolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	record, err := h.service.UpdateMe(r.Context(), holderID, req)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "holder")
			return
		}
		if errors.Is(err, core.ErrUnauthorized) {
			core.Unauthorized(w, "")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToHolderResponse(record))
}
