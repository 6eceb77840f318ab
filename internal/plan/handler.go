// AngelaMos | 2026
// handler.go

package plan

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
	r.Route("/plans", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/", h.Create)
		r.Get("/me", h.GetMine)
		r.Put("/", h.Update)
		r.Delete("/", h.Deactivate)
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	holderID := middleware.GetHolderID(r.Context())

	req, ok := h.decodePlanRequest(w, r)
	if !ok {
		return
	}

	p, sv, err := h.service.Create(r.Context(), holderID, req.Params())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	core.Created(w, ToPlanResponse(p, sv))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	holderID := middleware.GetHolderID(r.Context())

	req, ok := h.decodePlanRequest(w, r)
	if !ok {
		return
	}

	p, sv, err := h.service.Update(r.Context(), holderID, req.Params())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	core.OK(w, ToPlanResponse(p, sv))
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	holderID := middleware.GetHolderID(r.Context())

	if err := h.service.Deactivate(r.Context(), holderID); err != nil {
		writeEngineError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	holderID := middleware.GetHolderID(r.Context())

	p, sv, err := h.service.Get(r.Context(), holderID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "plan")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToPlanResponse(p, sv))
}

func (h *Handler) decodePlanRequest(
	w http.ResponseWriter,
	r *http.Request,
) (PlanRequest, bool) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return req, false
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return req, false
	}

	return req, true
}

// writeEngineError maps engine sentinels onto the API error surface;
// anything unmapped is a genuine server fault.
func writeEngineError(w http.ResponseWriter, err error) {
	if appErr := core.EngineError(err); appErr != nil {
		core.JSONError(w, appErr)
		return
	}
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "plan")
		return
	}
	core.InternalServerError(w, err)
}
