package catalog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

var sortFields = map[string]string{
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"name":        "name",
	"sku":         "sku",
	"price_cents": "price_cents",
	"status":      "status",
}

// Handler wires the catalog HTTP surface.
type Handler struct {
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler constructs a handler.
func NewHandler(service *Service, guard authz.Guard) *Handler {
	return &Handler{service: service, guard: guard, validator: validator.New()}
}

// Routes registers catalog routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/catalog/items", func(r chi.Router) {
		r.With(h.guard.Require("CAT.READ")).Get("/", h.list)
		r.With(h.guard.Require("CAT.READ")).Head("/", h.list)
		r.With(h.guard.Require("CAT.READ")).Get("/{id}", h.get)
		r.With(h.guard.Require("CAT.READ")).Head("/{id}", h.get)
		r.With(h.guard.Require("CAT.CREATE")).Post("/", h.create)
		r.With(h.guard.Require("CAT.MANAGE")).Put("/{id}", h.update)
		r.With(h.guard.Require("CAT.MANAGE")).Post("/{id}/archive", h.action(h.service.Archive))
		r.With(h.guard.Require("CAT.MANAGE")).Post("/{id}/activate", h.action(h.service.Activate))
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
	priceMin, err := parsePrice(q.Get("price_min"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	priceMax, err := parsePrice(q.Get("price_max"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	items, total, latest, err := h.service.List(r.Context(), claims, ListFilter{
		BranchIDs: authz.BranchFilter(claims, requested),
		Status:    q.Get("status"),
		Category:  q.Get("category"),
		Query:     q.Get("q"),
		PriceMin:  priceMin,
		PriceMax:  priceMax,
		OrderBy:   orderBy,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	httpx.List(w, r, items, ids, total, limit, offset, latest)
}

func parsePrice(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, shared.ValidationErrorf("invalid price filter %q", raw)
	}
	return &v, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	it, err := h.service.Get(r.Context(), shared.ClaimsFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Resource(w, r, it.ID, it.UpdatedAt, it)
}

type itemRequest struct {
	BranchID        int64             `json:"branch_id" validate:"required,gt=0"`
	Name            string            `json:"name" validate:"required,max=200"`
	Category        string            `json:"category" validate:"max=100"`
	SKU             string            `json:"sku" validate:"required,max=64"`
	PriceCents      int64             `json:"price_cents" validate:"gte=0"`
	DescriptionI18n map[string]string `json:"description_i18n"`
}

func (req itemRequest) input() ItemInput {
	return ItemInput{
		BranchID:        req.BranchID,
		Name:            req.Name,
		Category:        req.Category,
		SKU:             req.SKU,
		PriceCents:      req.PriceCents,
		DescriptionI18n: req.DescriptionI18n,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid catalog item payload"))
		return
	}
	it, err := h.service.Create(r.Context(), shared.ClaimsFromContext(r.Context()), req.input())
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, it)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid catalog item payload"))
		return
	}
	it, err := h.service.Update(r.Context(), shared.ClaimsFromContext(r.Context()), id, req.input())
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}

type actionFunc func(ctx context.Context, claims *shared.Claims, id int64) (Item, error)

func (h *Handler) action(fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := shared.ParseID(chi.URLParam(r, "id"))
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		it, err := fn(r.Context(), shared.ClaimsFromContext(r.Context()), id)
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, it)
	}
}
