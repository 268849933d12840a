package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/lifecycle"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Store is the persistence surface. Satisfied by *Repository.
type Store interface {
	List(ctx context.Context, f ListFilter) ([]PurchaseOrder, int, time.Time, error)
	Get(ctx context.Context, id int64) (PurchaseOrder, error)
	Create(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error)
	Update(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error)
}

var watchedFields = []string{"status"}

// Service implements purchase order business rules.
type Service struct {
	store    Store
	recorder *audit.Recorder
	fsm      *lifecycle.Validator
}

// NewService constructs a service.
func NewService(store Store, recorder *audit.Recorder) *Service {
	return &Service{store: store, recorder: recorder, fsm: lifecycle.PurchaseOrders}
}

// List returns purchase orders visible within the caller's branch scope.
func (s *Service) List(ctx context.Context, claims *shared.Claims, f ListFilter) ([]PurchaseOrder, int, time.Time, error) {
	return s.store.List(ctx, f)
}

// Get returns one purchase order after asserting branch access.
func (s *Service) Get(ctx context.Context, claims *shared.Claims, id int64) (PurchaseOrder, error) {
	po, err := s.store.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := authz.AssertBranchAccess(claims, po.BranchID); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// CreateInput carries the fields of a new purchase order.
type CreateInput struct {
	BranchID   int64
	VendorName string
	TotalCents int64
}

// Create opens a purchase order in status DRAFT.
func (s *Service) Create(ctx context.Context, claims *shared.Claims, in CreateInput) (PurchaseOrder, error) {
	if in.VendorName == "" {
		return PurchaseOrder{}, shared.ValidationErrorf("vendor_name is required")
	}
	if in.TotalCents < 0 {
		return PurchaseOrder{}, shared.ValidationErrorf("total_cents must not be negative")
	}
	if err := authz.AssertBranchAccess(claims, in.BranchID); err != nil {
		return PurchaseOrder{}, err
	}
	po, err := s.store.Create(ctx, PurchaseOrder{
		BranchID:   in.BranchID,
		VendorName: in.VendorName,
		TotalCents: in.TotalCents,
		Status:     StatusDraft,
		CreatedBy:  claims.UserID,
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "PO.CREATE", Entity: "purchase_order", EntityID: entityID(po.ID),
		Meta: map[string]any{"branch_id": po.BranchID, "vendor_name": po.VendorName},
	})
	return po, nil
}

// Receive moves a purchase order DRAFT -> RECEIVED.
func (s *Service) Receive(ctx context.Context, claims *shared.Claims, id int64) (PurchaseOrder, error) {
	return s.transition(ctx, claims, id, StatusReceived, "PO.RECEIVE")
}

// Close moves a purchase order RECEIVED -> CLOSED.
func (s *Service) Close(ctx context.Context, claims *shared.Claims, id int64) (PurchaseOrder, error) {
	return s.transition(ctx, claims, id, StatusClosed, "PO.CLOSE")
}

func (s *Service) transition(ctx context.Context, claims *shared.Claims, id int64, target, action string) (PurchaseOrder, error) {
	po, err := s.Get(ctx, claims, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := s.fsm.AssertCanTransition(po.Status, target); err != nil {
		return PurchaseOrder{}, err
	}

	before := map[string]any{"status": po.Status}
	po.Status = target
	updated, err := s.store.Update(ctx, po)
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: action, Entity: "purchase_order", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, audit.Diff(before, map[string]any{"status": updated.Status}, watchedFields)),
	})
	return updated, nil
}

func entityID(id int64) string {
	return fmt.Sprintf("%d", id)
}
