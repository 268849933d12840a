package procurement

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

var sortFields = map[string]string{
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"vendor_name": "vendor_name",
	"total_cents": "total_cents",
	"status":      "status",
}

// Handler wires the purchase order HTTP surface.
type Handler struct {
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler constructs a handler.
func NewHandler(service *Service, guard authz.Guard) *Handler {
	return &Handler{service: service, guard: guard, validator: validator.New()}
}

// Routes registers purchase order routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/purchase-orders", func(r chi.Router) {
		r.With(h.guard.Require("PO.READ")).Get("/", h.list)
		r.With(h.guard.Require("PO.READ")).Head("/", h.list)
		r.With(h.guard.Require("PO.READ")).Get("/{id}", h.get)
		r.With(h.guard.Require("PO.READ")).Head("/{id}", h.get)
		r.With(h.guard.Require("PO.CREATE")).Post("/", h.create)
		r.With(h.guard.Require("PO.RECEIVE")).Post("/{id}/receive", h.receive)
		r.With(h.guard.Require("PO.CLOSE")).Post("/{id}/close", h.close)
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
	orders, total, latest, err := h.service.List(r.Context(), claims, ListFilter{
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
	ids := make([]int64, len(orders))
	for i, po := range orders {
		ids[i] = po.ID
	}
	httpx.List(w, r, orders, ids, total, limit, offset, latest)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	po, err := h.service.Get(r.Context(), shared.ClaimsFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Resource(w, r, po.ID, po.UpdatedAt, po)
}

type createRequest struct {
	BranchID   int64  `json:"branch_id" validate:"required,gt=0"`
	VendorName string `json:"vendor_name" validate:"required,max=200"`
	TotalCents int64  `json:"total_cents" validate:"gte=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid purchase order payload"))
		return
	}
	po, err := h.service.Create(r.Context(), shared.ClaimsFromContext(r.Context()), CreateInput{
		BranchID:   req.BranchID,
		VendorName: req.VendorName,
		TotalCents: req.TotalCents,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	po, err := h.service.Receive(r.Context(), shared.ClaimsFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	po, err := h.service.Close(r.Context(), shared.ClaimsFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}
