package inventory

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Store is the persistence surface. Satisfied by *Repository.
type Store interface {
	List(ctx context.Context, f ListFilter) ([]Product, int, time.Time, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	AdjustQuantity(ctx context.Context, id, delta int64) (Product, error)
}

// Service implements inventory business rules.
type Service struct {
	store    Store
	recorder *audit.Recorder
}

// NewService constructs a service.
func NewService(store Store, recorder *audit.Recorder) *Service {
	return &Service{store: store, recorder: recorder}
}

// List returns products visible within the caller's branch scope.
func (s *Service) List(ctx context.Context, claims *shared.Claims, f ListFilter) ([]Product, int, time.Time, error) {
	return s.store.List(ctx, f)
}

// Get returns one product after asserting branch access.
func (s *Service) Get(ctx context.Context, claims *shared.Claims, id int64) (Product, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := authz.AssertBranchAccess(claims, p.BranchID); err != nil {
		return Product{}, err
	}
	return p, nil
}

// CreateInput carries the fields of a new product.
type CreateInput struct {
	BranchID        int64
	Name            string
	SKU             string
	Quantity        int64
	DescriptionI18n map[string]string
}

// Create inserts a product with its opening quantity.
func (s *Service) Create(ctx context.Context, claims *shared.Claims, in CreateInput) (Product, error) {
	if in.Name == "" {
		return Product{}, shared.ValidationErrorf("name is required")
	}
	if in.SKU == "" {
		return Product{}, shared.ValidationErrorf("sku is required")
	}
	if in.Quantity < 0 {
		return Product{}, shared.ValidationErrorf("quantity must not be negative")
	}
	for locale := range in.DescriptionI18n {
		if _, err := language.Parse(locale); err != nil {
			return Product{}, shared.ValidationErrorf("invalid locale %q in description_i18n", locale)
		}
	}
	if err := authz.AssertBranchAccess(claims, in.BranchID); err != nil {
		return Product{}, err
	}
	p, err := s.store.Create(ctx, Product{
		BranchID:        in.BranchID,
		Name:            in.Name,
		SKU:             in.SKU,
		Quantity:        in.Quantity,
		DescriptionI18n: in.DescriptionI18n,
	})
	if err != nil {
		return Product{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "PRODUCT.CREATE", Entity: "product", EntityID: entityID(p.ID),
		Meta: map[string]any{"branch_id": p.BranchID, "sku": p.SKU, "quantity": p.Quantity},
	})
	return p, nil
}

// Adjust applies a signed quantity delta. A delta that would take the
// quantity below zero is rejected.
func (s *Service) Adjust(ctx context.Context, claims *shared.Claims, id, delta int64, reason string) (Product, error) {
	if delta == 0 {
		return Product{}, shared.ValidationErrorf("delta must not be zero")
	}
	return s.applyDelta(ctx, claims, id, delta, "PRODUCT.ADJUST", map[string]any{"reason": reason})
}

// ReceiveStock books incoming goods against a product.
func (s *Service) ReceiveStock(ctx context.Context, claims *shared.Claims, id, quantity, purchaseOrderID int64) (Product, error) {
	if quantity <= 0 {
		return Product{}, shared.ValidationErrorf("quantity must be positive")
	}
	meta := map[string]any{}
	if purchaseOrderID > 0 {
		meta["purchase_order_id"] = purchaseOrderID
	}
	return s.applyDelta(ctx, claims, id, quantity, "PRODUCT.RECEIVE", meta)
}

func (s *Service) applyDelta(ctx context.Context, claims *shared.Claims, id, delta int64, action string, meta map[string]any) (Product, error) {
	p, err := s.Get(ctx, claims, id)
	if err != nil {
		return Product{}, err
	}

	before := map[string]any{"quantity": p.Quantity}
	updated, err := s.store.AdjustQuantity(ctx, id, delta)
	if err != nil {
		return Product{}, err
	}
	meta["delta"] = delta
	s.recorder.Observe(ctx, audit.Entry{
		Action: action, Entity: "product", EntityID: entityID(id),
		Meta: audit.WithChanges(meta, audit.Diff(before, map[string]any{"quantity": updated.Quantity}, []string{"quantity"})),
	})
	return updated, nil
}

func entityID(id int64) string {
	return fmt.Sprintf("%d", id)
}
