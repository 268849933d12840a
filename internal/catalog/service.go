package catalog

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
	List(ctx context.Context, f ListFilter) ([]Item, int, time.Time, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, it Item) (Item, error)
	Update(ctx context.Context, it Item) (Item, error)
}

var watchedFields = []string{"name", "category", "sku", "price_cents", "status"}

// Service implements catalog business rules.
type Service struct {
	store    Store
	recorder *audit.Recorder
}

// NewService constructs a service.
func NewService(store Store, recorder *audit.Recorder) *Service {
	return &Service{store: store, recorder: recorder}
}

// List returns catalog items visible within the caller's branch scope.
func (s *Service) List(ctx context.Context, claims *shared.Claims, f ListFilter) ([]Item, int, time.Time, error) {
	return s.store.List(ctx, f)
}

// Get returns one item after asserting branch access.
func (s *Service) Get(ctx context.Context, claims *shared.Claims, id int64) (Item, error) {
	it, err := s.store.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if err := authz.AssertBranchAccess(claims, it.BranchID); err != nil {
		return Item{}, err
	}
	return it, nil
}

// ItemInput carries the editable fields of an item.
type ItemInput struct {
	BranchID        int64
	Name            string
	Category        string
	SKU             string
	PriceCents      int64
	DescriptionI18n map[string]string
}

func (in ItemInput) validate() error {
	if in.Name == "" {
		return shared.ValidationErrorf("name is required")
	}
	if in.SKU == "" {
		return shared.ValidationErrorf("sku is required")
	}
	if in.PriceCents < 0 {
		return shared.ValidationErrorf("price_cents must not be negative")
	}
	for locale := range in.DescriptionI18n {
		if _, err := language.Parse(locale); err != nil {
			return shared.ValidationErrorf("invalid locale %q in description_i18n", locale)
		}
	}
	return nil
}

// Create inserts a new active item.
func (s *Service) Create(ctx context.Context, claims *shared.Claims, in ItemInput) (Item, error) {
	if err := in.validate(); err != nil {
		return Item{}, err
	}
	if err := authz.AssertBranchAccess(claims, in.BranchID); err != nil {
		return Item{}, err
	}
	it, err := s.store.Create(ctx, Item{
		BranchID:        in.BranchID,
		Name:            in.Name,
		Category:        in.Category,
		SKU:             in.SKU,
		PriceCents:      in.PriceCents,
		DescriptionI18n: in.DescriptionI18n,
		Status:          StatusActive,
	})
	if err != nil {
		return Item{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "CAT.ITEM.CREATE", Entity: "catalog_item", EntityID: entityID(it.ID),
		Meta: map[string]any{"branch_id": it.BranchID, "sku": it.SKU},
	})
	return it, nil
}

// Update rewrites an item's editable fields. Status is untouched.
func (s *Service) Update(ctx context.Context, claims *shared.Claims, id int64, in ItemInput) (Item, error) {
	if err := in.validate(); err != nil {
		return Item{}, err
	}
	it, err := s.Get(ctx, claims, id)
	if err != nil {
		return Item{}, err
	}

	before := snapshot(it)
	it.Name = in.Name
	it.Category = in.Category
	it.SKU = in.SKU
	it.PriceCents = in.PriceCents
	it.DescriptionI18n = in.DescriptionI18n

	updated, err := s.store.Update(ctx, it)
	if err != nil {
		return Item{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "CAT.ITEM.UPDATE", Entity: "catalog_item", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, audit.Diff(before, snapshot(updated), watchedFields)),
	})
	return updated, nil
}

// Archive retires an active item. Archiving twice is rejected.
func (s *Service) Archive(ctx context.Context, claims *shared.Claims, id int64) (Item, error) {
	return s.toggle(ctx, claims, id, StatusArchived, "CAT.ITEM.ARCHIVE")
}

// Activate restores an archived item. Activating an active item is rejected.
func (s *Service) Activate(ctx context.Context, claims *shared.Claims, id int64) (Item, error) {
	return s.toggle(ctx, claims, id, StatusActive, "CAT.ITEM.ACTIVATE")
}

func (s *Service) toggle(ctx context.Context, claims *shared.Claims, id int64, target, action string) (Item, error) {
	it, err := s.Get(ctx, claims, id)
	if err != nil {
		return Item{}, err
	}
	if it.Status == target {
		return Item{}, shared.ValidationErrorf("item is already %s", target)
	}

	before := snapshot(it)
	it.Status = target
	updated, err := s.store.Update(ctx, it)
	if err != nil {
		return Item{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: action, Entity: "catalog_item", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, audit.Diff(before, snapshot(updated), watchedFields)),
	})
	return updated, nil
}

func snapshot(it Item) map[string]any {
	return map[string]any{
		"name":        it.Name,
		"category":    it.Category,
		"sku":         it.SKU,
		"price_cents": it.PriceCents,
		"status":      it.Status,
	}
}

func entityID(id int64) string {
	return fmt.Sprintf("%d", id)
}
