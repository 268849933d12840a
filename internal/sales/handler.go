package sales

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// sortFields maps API sort keys to order columns.
var sortFields = map[string]string{
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"customer_name": "customer_name",
	"total_cents":   "total_cents",
	"status":        "status",
}

// Handler wires the order HTTP surface.
type Handler struct {
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler constructs a handler.
func NewHandler(service *Service, guard authz.Guard) *Handler {
	return &Handler{service: service, guard: guard, validator: validator.New()}
}

// Routes registers order routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.With(h.guard.Require("SALES.READ")).Get("/", h.list)
		r.With(h.guard.Require("SALES.READ")).Head("/", h.list)
		r.With(h.guard.Require("SALES.READ")).Get("/{id}", h.get)
		r.With(h.guard.Require("SALES.READ")).Head("/{id}", h.get)
		r.With(h.guard.Require("SALES.CREATE")).Post("/", h.create)
		r.With(h.guard.Require("SALES.UPDATE")).Put("/{id}", h.update)
		r.With(h.guard.Require("SALES.APPROVE")).Post("/{id}/approve", h.action(h.service.Approve))
		r.With(h.guard.Require("SALES.FULFILL")).Post("/{id}/fulfill", h.action(h.service.Fulfill))
		r.With(h.guard.Require("SALES.COMPLETE")).Post("/{id}/complete", h.action(h.service.Complete))
		r.With(h.guard.Require("SALES.CANCEL")).Post("/{id}/cancel", h.action(h.service.Cancel))
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := shared.NormalizePagination(q.Get("limit"), q.Get("offset"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	orderBy, err := shared.ParseSort(q.Get("sort"), sortFields, "id")
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	claims := shared.ClaimsFromContext(r.Context())
	var requested int64
	if raw := q.Get("branch_id"); raw != "" {
		if requested, err = shared.ParseID(raw); err != nil {
			httpx.RespondError(w, r, err)
			return
		}
	}
	f := ListFilter{
		BranchIDs: authz.BranchFilter(claims, requested),
		Status:    q.Get("status"),
		Query:     q.Get("q"),
		OrderBy:   orderBy,
		Limit:     limit,
		Offset:    offset,
	}
	orders, total, latest, err := h.service.List(r.Context(), claims, f)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	httpx.List(w, r, orders, ids, total, limit, offset, latest)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	order, err := h.service.Get(r.Context(), shared.ClaimsFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Resource(w, r, order.ID, order.UpdatedAt, order)
}

type createRequest struct {
	BranchID     int64  `json:"branch_id" validate:"required,gt=0"`
	CustomerName string `json:"customer_name" validate:"required,max=200"`
	TotalCents   int64  `json:"total_cents" validate:"gte=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid order payload"))
		return
	}
	order, err := h.service.Create(r.Context(), shared.ClaimsFromContext(r.Context()), CreateInput{
		BranchID:     req.BranchID,
		CustomerName: req.CustomerName,
		TotalCents:   req.TotalCents,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

type updateRequest struct {
	CustomerName string `json:"customer_name" validate:"required,max=200"`
	TotalCents   int64  `json:"total_cents" validate:"gte=0"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid order payload"))
		return
	}
	order, err := h.service.Update(r.Context(), shared.ClaimsFromContext(r.Context()), id, UpdateInput{
		CustomerName: req.CustomerName,
		TotalCents:   req.TotalCents,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type actionFunc func(ctx context.Context, claims *shared.Claims, id int64) (Order, error)

func (h *Handler) action(fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := shared.ParseID(chi.URLParam(r, "id"))
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		order, err := fn(r.Context(), shared.ClaimsFromContext(r.Context()), id)
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, order)
	}
}
