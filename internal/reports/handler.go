package reports

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/httpcache"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler wires the reporting HTTP surface.
type Handler struct {
	service *Service
	guard   authz.Guard
}

// NewHandler constructs a handler.
func NewHandler(service *Service, guard authz.Guard) *Handler {
	return &Handler{service: service, guard: guard}
}

// Routes registers the reporting routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(h.guard.Require("RPT.READ")).Get("/metrics", h.metrics)
		r.With(h.guard.Require("RPT.READ")).Head("/metrics", h.metrics)
	})
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	claims := shared.ClaimsFromContext(r.Context())
	win, err := parseWindow(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	m, latest, err := h.service.Metrics(r.Context(), claims, win)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}

	// The validator seed is the caller's visibility, not a row page: the
	// branch scope, whether the financial block is present, the requested
	// window, and the most recent mutation across the aggregated sources.
	financial := 0
	if m.Financials != nil {
		financial = 1
	}
	token := httpcache.Fingerprint(claims.BranchIDs, financial, windowSeed(win.Start), windowSeed(win.End), latest)
	if httpcache.NotModified(r, token, latest) {
		httpcache.WriteNotModified(w, token, latest)
		return
	}
	httpcache.SetValidators(w, token, latest)
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

const dateLayout = "2006-01-02"

// parseWindow reads the optional start_date/end_date query parameters.
// Both bounds are inclusive calendar dates; the end date is widened to the
// following midnight so the whole day counts.
func parseWindow(r *http.Request) (Window, error) {
	var win Window
	if raw := r.URL.Query().Get("start_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return Window{}, shared.ValidationErrorf("invalid start_date %q, want YYYY-MM-DD", raw)
		}
		win.Start = &t
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return Window{}, shared.ValidationErrorf("invalid end_date %q, want YYYY-MM-DD", raw)
		}
		t = t.Add(24 * time.Hour)
		win.End = &t
	}
	if win.Start != nil && win.End != nil && !win.Start.Before(*win.End) {
		return Window{}, shared.ValidationErrorf("start_date must not be after end_date")
	}
	return win, nil
}

func windowSeed(t *time.Time) int {
	if t == nil {
		return 0
	}
	return int(t.Unix())
}
