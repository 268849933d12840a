package vendors

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

var sortFields = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"name":       "name",
	"status":     "status",
}

// Handler wires the vendor HTTP surface.
type Handler struct {
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler constructs a handler.
func NewHandler(service *Service, guard authz.Guard) *Handler {
	return &Handler{service: service, guard: guard, validator: validator.New()}
}

// Routes registers vendor routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/vendors", func(r chi.Router) {
		r.With(h.guard.Require("PO.VENDOR.READ")).Get("/", h.list)
		r.With(h.guard.Require("PO.VENDOR.READ")).Head("/", h.list)
		r.With(h.guard.Require("PO.VENDOR.READ")).Get("/{id}", h.get)
		r.With(h.guard.Require("PO.VENDOR.READ")).Head("/{id}", h.get)
		r.With(h.guard.Require("PO.VENDOR.CREATE")).Post("/", h.create)
		r.With(h.guard.Require("PO.VENDOR.UPDATE")).Put("/{id}", h.update)
		r.With(h.guard.Require("PO.VENDOR.ACTIVATE")).Post("/{id}/activate", h.action(h.service.Activate))
		r.With(h.guard.Require("PO.VENDOR.DEACTIVATE")).Post("/{id}/deactivate", h.action(h.service.Deactivate))
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
	list, total, latest, err := h.service.List(r.Context(), claims, ListFilter{
		BranchIDs: authz.BranchFilter(claims, requested),
		Status:    q.Get("status"),
		Query:     q.Get("q"),
		OrderBy:   orderBy,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	ids := make([]int64, len(list))
	for i, v := range list {
		ids[i] = v.ID
	}
	httpx.List(w, r, list, ids, total, limit, offset, latest)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	v, err := h.service.Get(r.Context(), shared.ClaimsFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Resource(w, r, v.ID, v.UpdatedAt, v)
}

type vendorRequest struct {
	BranchID     int64  `json:"branch_id" validate:"required,gt=0"`
	Name         string `json:"name" validate:"required,max=200"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid vendor payload"))
		return
	}
	v, err := h.service.Create(r.Context(), shared.ClaimsFromContext(r.Context()), VendorInput{
		BranchID:     req.BranchID,
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req vendorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid vendor payload"))
		return
	}
	v, err := h.service.Update(r.Context(), shared.ClaimsFromContext(r.Context()), id, VendorInput{
		BranchID:     req.BranchID,
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

type actionFunc func(ctx context.Context, claims *shared.Claims, id int64) (Vendor, error)

func (h *Handler) action(fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := shared.ParseID(chi.URLParam(r, "id"))
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		v, err := fn(r.Context(), shared.ClaimsFromContext(r.Context()), id)
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, v)
	}
}
