package inventory

import (
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
	"sku":        "sku",
	"quantity":   "quantity",
}

// Handler wires the inventory HTTP surface.
type Handler struct {
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler constructs a handler.
func NewHandler(service *Service, guard authz.Guard) *Handler {
	return &Handler{service: service, guard: guard, validator: validator.New()}
}

// Routes registers inventory routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.With(h.guard.Require("INV.READ")).Get("/", h.list)
		r.With(h.guard.Require("INV.READ")).Head("/", h.list)
		r.With(h.guard.Require("INV.READ")).Get("/{id}", h.get)
		r.With(h.guard.Require("INV.READ")).Head("/{id}", h.get)
		r.With(h.guard.Require("INV.ADJUST")).Post("/", h.create)
		r.With(h.guard.Require("INV.ADJUST")).Post("/{id}/adjust", h.adjust)
		r.With(h.guard.Require("INV.RECEIVE_PO")).Post("/{id}/receive", h.receive)
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
	products, total, latest, err := h.service.List(r.Context(), claims, ListFilter{
		BranchIDs: authz.BranchFilter(claims, requested),
		Query:     q.Get("q"),
		OrderBy:   orderBy,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	httpx.List(w, r, products, ids, total, limit, offset, latest)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	p, err := h.service.Get(r.Context(), shared.ClaimsFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Resource(w, r, p.ID, p.UpdatedAt, p)
}

type createRequest struct {
	BranchID        int64             `json:"branch_id" validate:"required,gt=0"`
	Name            string            `json:"name" validate:"required,max=200"`
	SKU             string            `json:"sku" validate:"required,max=64"`
	Quantity        int64             `json:"quantity" validate:"gte=0"`
	DescriptionI18n map[string]string `json:"description_i18n"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid product payload"))
		return
	}
	p, err := h.service.Create(r.Context(), shared.ClaimsFromContext(r.Context()), CreateInput{
		BranchID:        req.BranchID,
		Name:            req.Name,
		SKU:             req.SKU,
		Quantity:        req.Quantity,
		DescriptionI18n: req.DescriptionI18n,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

type adjustRequest struct {
	Delta  int64  `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"max=200"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid adjustment payload"))
		return
	}
	p, err := h.service.Adjust(r.Context(), shared.ClaimsFromContext(r.Context()), id, req.Delta, req.Reason)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

type receiveRequest struct {
	Quantity        int64 `json:"quantity" validate:"required,gt=0"`
	PurchaseOrderID int64 `json:"purchase_order_id" validate:"gte=0"`
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid receive payload"))
		return
	}
	p, err := h.service.ReceiveStock(r.Context(), shared.ClaimsFromContext(r.Context()), id, req.Quantity, req.PurchaseOrderID)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
