package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Lister reads the audit trail. Satisfied by *Repository.
type Lister interface {
	List(ctx context.Context, filter ListFilter) ([]Entry, int, time.Time, error)
}

// Handler exposes the audit trail read surface.
type Handler struct {
	store Lister
	guard authz.Guard
}

// NewHandler constructs a handler.
func NewHandler(store Lister, guard authz.Guard) *Handler {
	return &Handler{store: store, guard: guard}
}

// Routes mounts the audit log listing under the settings permission.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require("ADMIN.SETTINGS.MANAGE"))
		r.Get("/iam/audit/logs", h.list)
		r.Head("/iam/audit/logs", h.list)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := shared.NormalizePagination(q.Get("limit"), q.Get("offset"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	filter := ListFilter{
		Action:   q.Get("action"),
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Limit:    limit,
		Offset:   offset,
	}
	if raw := q.Get("actor_id"); raw != "" {
		filter.ActorID, err = shared.ParseID(raw)
		if err != nil {
			httpx.RespondError(w, r, shared.ValidationErrorf("invalid actor_id"))
			return
		}
	}

	entries, total, latest, err := h.store.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	httpx.List(w, r, entries, ids, total, limit, offset, latest)
}
