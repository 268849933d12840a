package sales

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
	List(ctx context.Context, f ListFilter) ([]Order, int, time.Time, error)
	Get(ctx context.Context, id int64) (Order, error)
	Create(ctx context.Context, o Order) (Order, error)
	Update(ctx context.Context, o Order) (Order, error)
}

// watchedFields are the attributes whose changes the audit trail records.
var watchedFields = []string{"customer_name", "total_cents", "status"}

// Service implements order business rules.
type Service struct {
	store    Store
	recorder *audit.Recorder
	fsm      *lifecycle.Validator
}

// NewService constructs a service.
func NewService(store Store, recorder *audit.Recorder) *Service {
	return &Service{store: store, recorder: recorder, fsm: lifecycle.Orders}
}

// List returns orders visible within the caller's branch scope.
func (s *Service) List(ctx context.Context, claims *shared.Claims, f ListFilter) ([]Order, int, time.Time, error) {
	return s.store.List(ctx, f)
}

// Get returns one order after asserting branch access.
func (s *Service) Get(ctx context.Context, claims *shared.Claims, id int64) (Order, error) {
	order, err := s.store.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if err := authz.AssertBranchAccess(claims, order.BranchID); err != nil {
		return Order{}, err
	}
	return order, nil
}

// CreateInput carries the fields of a new order.
type CreateInput struct {
	BranchID     int64
	CustomerName string
	TotalCents   int64
}

// Create opens a new order in status NEW.
func (s *Service) Create(ctx context.Context, claims *shared.Claims, in CreateInput) (Order, error) {
	if in.CustomerName == "" {
		return Order{}, shared.ValidationErrorf("customer_name is required")
	}
	if in.TotalCents < 0 {
		return Order{}, shared.ValidationErrorf("total_cents must not be negative")
	}
	if err := authz.AssertBranchAccess(claims, in.BranchID); err != nil {
		return Order{}, err
	}
	order, err := s.store.Create(ctx, Order{
		BranchID:     in.BranchID,
		CustomerName: in.CustomerName,
		TotalCents:   in.TotalCents,
		Status:       StatusNew,
		CreatedBy:    claims.UserID,
	})
	if err != nil {
		return Order{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "ORDER.CREATE", Entity: "order", EntityID: entityID(order.ID),
		Meta: map[string]any{"branch_id": order.BranchID, "total_cents": order.TotalCents},
	})
	return order, nil
}

// UpdateInput carries the editable fields of an order.
type UpdateInput struct {
	CustomerName string
	TotalCents   int64
}

// Update edits an order's customer name and total. Only orders still in
// status NEW are editable.
func (s *Service) Update(ctx context.Context, claims *shared.Claims, id int64, in UpdateInput) (Order, error) {
	order, err := s.Get(ctx, claims, id)
	if err != nil {
		return Order{}, err
	}
	if order.Status != StatusNew {
		return Order{}, shared.ValidationErrorf("only orders in status %s can be edited", StatusNew)
	}
	if in.CustomerName == "" {
		return Order{}, shared.ValidationErrorf("customer_name is required")
	}
	if in.TotalCents < 0 {
		return Order{}, shared.ValidationErrorf("total_cents must not be negative")
	}

	before := snapshot(order)
	order.CustomerName = in.CustomerName
	order.TotalCents = in.TotalCents
	updated, err := s.store.Update(ctx, order)
	if err != nil {
		return Order{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "ORDER.UPDATE", Entity: "order", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, audit.Diff(before, snapshot(updated), watchedFields)),
	})
	return updated, nil
}

// Approve moves an order NEW -> APPROVED.
func (s *Service) Approve(ctx context.Context, claims *shared.Claims, id int64) (Order, error) {
	return s.transition(ctx, claims, id, StatusApproved, "ORDER.APPROVE")
}

// Fulfill moves an order APPROVED -> FULFILLED.
func (s *Service) Fulfill(ctx context.Context, claims *shared.Claims, id int64) (Order, error) {
	return s.transition(ctx, claims, id, StatusFulfilled, "ORDER.FULFILL")
}

// Complete moves an order FULFILLED -> COMPLETED.
func (s *Service) Complete(ctx context.Context, claims *shared.Claims, id int64) (Order, error) {
	return s.transition(ctx, claims, id, StatusCompleted, "ORDER.COMPLETE")
}

// Cancel moves an order to CANCELLED from any pre-terminal status.
func (s *Service) Cancel(ctx context.Context, claims *shared.Claims, id int64) (Order, error) {
	return s.transition(ctx, claims, id, StatusCancelled, "ORDER.CANCEL")
}

func (s *Service) transition(ctx context.Context, claims *shared.Claims, id int64, target, action string) (Order, error) {
	order, err := s.Get(ctx, claims, id)
	if err != nil {
		return Order{}, err
	}
	if err := s.fsm.AssertCanTransition(order.Status, target); err != nil {
		return Order{}, err
	}

	before := snapshot(order)
	order.Status = target
	updated, err := s.store.Update(ctx, order)
	if err != nil {
		return Order{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: action, Entity: "order", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, audit.Diff(before, snapshot(updated), watchedFields)),
	})
	return updated, nil
}

func snapshot(o Order) map[string]any {
	return map[string]any{
		"customer_name": o.CustomerName,
		"total_cents":   o.TotalCents,
		"status":        o.Status,
	}
}

func entityID(id int64) string {
	return fmt.Sprintf("%d", id)
}
