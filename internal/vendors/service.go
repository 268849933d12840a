package vendors

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Store is the persistence surface. Satisfied by *Repository.
type Store interface {
	List(ctx context.Context, f ListFilter) ([]Vendor, int, time.Time, error)
	Get(ctx context.Context, id int64) (Vendor, error)
	Create(ctx context.Context, v Vendor) (Vendor, error)
	Update(ctx context.Context, v Vendor) (Vendor, error)
}

var watchedFields = []string{"name", "contact_email", "status"}

// Service implements vendor business rules.
type Service struct {
	store    Store
	recorder *audit.Recorder
}

// NewService constructs a service.
func NewService(store Store, recorder *audit.Recorder) *Service {
	return &Service{store: store, recorder: recorder}
}

// List returns vendors visible within the caller's branch scope.
func (s *Service) List(ctx context.Context, claims *shared.Claims, f ListFilter) ([]Vendor, int, time.Time, error) {
	return s.store.List(ctx, f)
}

// Get returns one vendor after asserting branch access.
func (s *Service) Get(ctx context.Context, claims *shared.Claims, id int64) (Vendor, error) {
	v, err := s.store.Get(ctx, id)
	if err != nil {
		return Vendor{}, err
	}
	if err := authz.AssertBranchAccess(claims, v.BranchID); err != nil {
		return Vendor{}, err
	}
	return v, nil
}

// VendorInput carries the editable fields of a vendor.
type VendorInput struct {
	BranchID     int64
	Name         string
	ContactEmail string
}

func (in VendorInput) validate() error {
	if in.Name == "" {
		return shared.ValidationErrorf("name is required")
	}
	return nil
}

// Create inserts a new active vendor.
func (s *Service) Create(ctx context.Context, claims *shared.Claims, in VendorInput) (Vendor, error) {
	if err := in.validate(); err != nil {
		return Vendor{}, err
	}
	if err := authz.AssertBranchAccess(claims, in.BranchID); err != nil {
		return Vendor{}, err
	}
	v, err := s.store.Create(ctx, Vendor{
		BranchID:     in.BranchID,
		Name:         in.Name,
		ContactEmail: in.ContactEmail,
		Status:       StatusActive,
	})
	if err != nil {
		return Vendor{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "VENDOR.CREATE", Entity: "vendor", EntityID: entityID(v.ID),
		Meta: map[string]any{"branch_id": v.BranchID, "name": v.Name},
	})
	return v, nil
}

// Update rewrites a vendor's editable fields. Status is untouched.
func (s *Service) Update(ctx context.Context, claims *shared.Claims, id int64, in VendorInput) (Vendor, error) {
	if err := in.validate(); err != nil {
		return Vendor{}, err
	}
	v, err := s.Get(ctx, claims, id)
	if err != nil {
		return Vendor{}, err
	}

	before := snapshot(v)
	v.Name = in.Name
	v.ContactEmail = in.ContactEmail

	updated, err := s.store.Update(ctx, v)
	if err != nil {
		return Vendor{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "VENDOR.UPDATE", Entity: "vendor", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, audit.Diff(before, snapshot(updated), watchedFields)),
	})
	return updated, nil
}

// Activate enables an inactive vendor. Activating twice is rejected.
func (s *Service) Activate(ctx context.Context, claims *shared.Claims, id int64) (Vendor, error) {
	return s.toggle(ctx, claims, id, StatusActive, "VENDOR.ACTIVATE")
}

// Deactivate disables an active vendor. Deactivating twice is rejected.
func (s *Service) Deactivate(ctx context.Context, claims *shared.Claims, id int64) (Vendor, error) {
	return s.toggle(ctx, claims, id, StatusInactive, "VENDOR.DEACTIVATE")
}

func (s *Service) toggle(ctx context.Context, claims *shared.Claims, id int64, target, action string) (Vendor, error) {
	v, err := s.Get(ctx, claims, id)
	if err != nil {
		return Vendor{}, err
	}
	if v.Status == target {
		return Vendor{}, shared.ValidationErrorf("vendor is already %s", target)
	}

	before := snapshot(v)
	v.Status = target
	updated, err := s.store.Update(ctx, v)
	if err != nil {
		return Vendor{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: action, Entity: "vendor", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, audit.Diff(before, snapshot(updated), watchedFields)),
	})
	return updated, nil
}

func snapshot(v Vendor) map[string]any {
	return map[string]any{
		"name":          v.Name,
		"contact_email": v.ContactEmail,
		"status":        v.Status,
	}
}

func entityID(id int64) string {
	return fmt.Sprintf("%d", id)
}
