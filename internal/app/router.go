package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-erp/meridian-erp/internal/accounting"
	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/iam"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/printjobs"
	"github.com/meridian-erp/meridian-erp/internal/procurement"
	"github.com/meridian-erp/meridian-erp/internal/repairs"
	"github.com/meridian-erp/meridian-erp/internal/reports"
	"github.com/meridian-erp/meridian-erp/internal/sales"
	"github.com/meridian-erp/meridian-erp/internal/vendors"
	"github.com/meridian-erp/meridian-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config
	Auth   auth.Middleware

	AuthHandler        *auth.Handler
	IAMHandler         *iam.Handler
	AuditHandler       *audit.Handler
	SalesHandler       *sales.Handler
	PrintJobsHandler   *printjobs.Handler
	ProcurementHandler *procurement.Handler
	RepairsHandler     *repairs.Handler
	AccountingHandler  *accounting.Handler
	CatalogHandler     *catalog.Handler
	VendorsHandler     *vendors.Handler
	InventoryHandler   *inventory.Handler
	ReportsHandler     *reports.Handler
	JobsHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
		Auth:   params.Auth,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	params.AuthHandler.Routes(r)
	params.IAMHandler.Routes(r)
	params.AuditHandler.Routes(r)
	params.SalesHandler.Routes(r)
	params.PrintJobsHandler.Routes(r)
	params.ProcurementHandler.Routes(r)
	params.RepairsHandler.Routes(r)
	params.AccountingHandler.Routes(r)
	params.CatalogHandler.Routes(r)
	params.VendorsHandler.Routes(r)
	params.InventoryHandler.Routes(r)
	params.ReportsHandler.Routes(r)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.Routes)
	}

	return r
}
