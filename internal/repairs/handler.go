package repairs

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
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"customer_name": "customer_name",
	"device_type":   "device_type",
	"status":        "status",
}

// Handler wires the repair ticket HTTP surface.
type Handler struct {
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler constructs a handler.
func NewHandler(service *Service, guard authz.Guard) *Handler {
	return &Handler{service: service, guard: guard, validator: validator.New()}
}

// Routes registers repair ticket routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/repair-tickets", func(r chi.Router) {
		r.With(h.guard.Require("RPR.READ")).Get("/", h.list)
		r.With(h.guard.Require("RPR.READ")).Head("/", h.list)
		r.With(h.guard.Require("RPR.READ")).Get("/{id}", h.get)
		r.With(h.guard.Require("RPR.READ")).Head("/{id}", h.get)
		r.With(h.guard.Require("RPR.MANAGE")).Post("/", h.create)
		r.With(h.guard.Require("RPR.MANAGE")).Post("/{id}/start", h.action(h.service.Start))
		r.With(h.guard.Require("RPR.MANAGE")).Post("/{id}/complete", h.action(h.service.Complete))
		r.With(h.guard.Require("RPR.MANAGE")).Post("/{id}/cancel", h.action(h.service.Cancel))
		r.With(h.guard.Require("RPR.MANAGE")).Post("/{id}/close", h.action(h.service.CloseTicket))
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
	tickets, total, latest, err := h.service.List(r.Context(), claims, ListFilter{
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
	ids := make([]int64, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
	}
	httpx.List(w, r, tickets, ids, total, limit, offset, latest)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	ticket, err := h.service.Get(r.Context(), shared.ClaimsFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Resource(w, r, ticket.ID, ticket.UpdatedAt, ticket)
}

type createRequest struct {
	BranchID     int64  `json:"branch_id" validate:"required,gt=0"`
	CustomerName string `json:"customer_name" validate:"required,max=200"`
	DeviceType   string `json:"device_type" validate:"required,max=120"`
	IssueSummary string `json:"issue_summary" validate:"max=2000"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid repair ticket payload"))
		return
	}
	ticket, err := h.service.Create(r.Context(), shared.ClaimsFromContext(r.Context()), CreateInput{
		BranchID:     req.BranchID,
		CustomerName: req.CustomerName,
		DeviceType:   req.DeviceType,
		IssueSummary: req.IssueSummary,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ticket)
}

type actionFunc func(ctx context.Context, claims *shared.Claims, id int64) (RepairTicket, error)

func (h *Handler) action(fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := shared.ParseID(chi.URLParam(r, "id"))
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		ticket, err := fn(r.Context(), shared.ClaimsFromContext(r.Context()), id)
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, ticket)
	}
}
