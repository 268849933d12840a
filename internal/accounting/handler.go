package accounting

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
	"created_at":   "created_at",
	"updated_at":   "updated_at",
	"amount_cents": "amount_cents",
	"status":       "status",
}

// Handler wires the accounting transaction HTTP surface.
type Handler struct {
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler constructs a handler.
func NewHandler(service *Service, guard authz.Guard) *Handler {
	return &Handler{service: service, guard: guard, validator: validator.New()}
}

// Routes registers transaction routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.With(h.guard.Require("ACC.READ")).Get("/", h.list)
		r.With(h.guard.Require("ACC.READ")).Head("/", h.list)
		r.With(h.guard.Require("ACC.READ")).Get("/{id}", h.get)
		r.With(h.guard.Require("ACC.READ")).Head("/{id}", h.get)
		r.With(h.guard.Require("ACC.UPDATE")).Post("/", h.create)
		r.With(h.guard.Require("ACC.APPROVE")).Post("/{id}/approve", h.action(h.service.Approve))
		r.With(h.guard.Require("ACC.APPROVE")).Post("/{id}/reject", h.action(h.service.Reject))
		r.With(h.guard.Require("ACC.PAY")).Post("/{id}/pay", h.action(h.service.Pay))
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
	txs, total, latest, err := h.service.List(r.Context(), claims, ListFilter{
		BranchIDs: authz.BranchFilter(claims, requested),
		Status:    q.Get("status"),
		OrderBy:   orderBy,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	ids := make([]int64, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	httpx.List(w, r, txs, ids, total, limit, offset, latest)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	tx, err := h.service.Get(r.Context(), shared.ClaimsFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Resource(w, r, tx.ID, tx.UpdatedAt, tx)
}

type createRequest struct {
	BranchID    int64  `json:"branch_id" validate:"required,gt=0"`
	Description string `json:"description" validate:"required,max=500"`
	AmountCents int64  `json:"amount_cents" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid transaction payload"))
		return
	}
	tx, err := h.service.Create(r.Context(), shared.ClaimsFromContext(r.Context()), CreateInput{
		BranchID:    req.BranchID,
		Description: req.Description,
		AmountCents: req.AmountCents,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tx)
}

type actionFunc func(ctx context.Context, claims *shared.Claims, id int64) (Transaction, error)

func (h *Handler) action(fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := shared.ParseID(chi.URLParam(r, "id"))
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		tx, err := fn(r.Context(), shared.ClaimsFromContext(r.Context()), id)
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, tx)
	}
}
