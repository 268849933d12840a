package reports

import (
	"context"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Store is the aggregate query surface. Satisfied by *Repository.
type Store interface {
	StatusCounts(ctx context.Context, domain string, branchIDs []int64, win Window) (StatusCounts, error)
	StockSummary(ctx context.Context, branchIDs []int64) (StockSummary, error)
	Financials(ctx context.Context, branchIDs []int64, win Window) (Financials, error)
	LatestUpdate(ctx context.Context, branchIDs []int64) (time.Time, error)
}

// Service assembles the metrics snapshot.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

var statusDomains = []string{"orders", "print_jobs", "purchase_orders", "repair_tickets", "transactions"}

// Metrics builds a snapshot restricted to the caller's branch scope and the
// optional creation window. The financial block is included only when the
// caller can read accounting data. The returned timestamp is the most recent
// mutation across all sources; the stock summary is always current state,
// regardless of the window.
func (s *Service) Metrics(ctx context.Context, claims *shared.Claims, win Window) (Metrics, time.Time, error) {
	branchIDs := claims.BranchIDs

	counts := make(map[string]StatusCounts, len(statusDomains))
	for _, domain := range statusDomains {
		c, err := s.store.StatusCounts(ctx, domain, branchIDs, win)
		if err != nil {
			return Metrics{}, time.Time{}, err
		}
		counts[domain] = c
	}

	stock, err := s.store.StockSummary(ctx, branchIDs)
	if err != nil {
		return Metrics{}, time.Time{}, err
	}

	m := Metrics{
		Orders:         counts["orders"],
		PrintJobs:      counts["print_jobs"],
		PurchaseOrders: counts["purchase_orders"],
		RepairTickets:  counts["repair_tickets"],
		Transactions:   counts["transactions"],
		Stock:          stock,
		GeneratedAt:    s.now().UTC(),
	}

	if claims.HasPerm("ACC.READ") {
		f, err := s.store.Financials(ctx, branchIDs, win)
		if err != nil {
			return Metrics{}, time.Time{}, err
		}
		m.Financials = &f
	}

	latest, err := s.store.LatestUpdate(ctx, branchIDs)
	if err != nil {
		return Metrics{}, time.Time{}, err
	}
	return m, latest, nil
}
