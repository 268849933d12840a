package printjobs

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
	"status":     "status",
}

// Handler wires the print job HTTP surface.
type Handler struct {
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler constructs a handler.
func NewHandler(service *Service, guard authz.Guard) *Handler {
	return &Handler{service: service, guard: guard, validator: validator.New()}
}

// Routes registers print job routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/print-jobs", func(r chi.Router) {
		r.With(h.guard.Require("PRINT.READ")).Get("/", h.list)
		r.With(h.guard.Require("PRINT.READ")).Head("/", h.list)
		r.With(h.guard.Require("PRINT.READ")).Get("/{id}", h.get)
		r.With(h.guard.Require("PRINT.READ")).Head("/{id}", h.get)
		r.With(h.guard.Require("PRINT.START")).Post("/", h.create)
		r.With(h.guard.Require("PRINT.START")).Post("/{id}/start", h.start)
		r.With(h.guard.Require("PRINT.COMPLETE")).Post("/{id}/complete", h.complete)
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
	jobs, total, latest, err := h.service.List(r.Context(), claims, ListFilter{
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
	ids := make([]int64, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	httpx.List(w, r, jobs, ids, total, limit, offset, latest)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	job, err := h.service.Get(r.Context(), shared.ClaimsFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.Resource(w, r, job.ID, job.UpdatedAt, job)
}

type createRequest struct {
	BranchID  int64  `json:"branch_id" validate:"required,gt=0"`
	ProductID *int64 `json:"product_id,omitempty" validate:"omitempty,gt=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid print job payload"))
		return
	}
	job, err := h.service.Create(r.Context(), shared.ClaimsFromContext(r.Context()), CreateInput{
		BranchID:  req.BranchID,
		ProductID: req.ProductID,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, job)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	job, err := h.service.Start(r.Context(), shared.ClaimsFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	job, err := h.service.Complete(r.Context(), shared.ClaimsFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}
