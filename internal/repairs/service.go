package repairs

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
	List(ctx context.Context, f ListFilter) ([]RepairTicket, int, time.Time, error)
	Get(ctx context.Context, id int64) (RepairTicket, error)
	Create(ctx context.Context, t RepairTicket) (RepairTicket, error)
	Update(ctx context.Context, t RepairTicket) (RepairTicket, error)
}

var watchedFields = []string{"status", "assigned_user_id"}

// Service implements repair ticket business rules.
type Service struct {
	store    Store
	recorder *audit.Recorder
	fsm      *lifecycle.Validator
}

// NewService constructs a service.
func NewService(store Store, recorder *audit.Recorder) *Service {
	return &Service{store: store, recorder: recorder, fsm: lifecycle.RepairTickets}
}

// List returns tickets visible within the caller's branch scope.
func (s *Service) List(ctx context.Context, claims *shared.Claims, f ListFilter) ([]RepairTicket, int, time.Time, error) {
	return s.store.List(ctx, f)
}

// Get returns one ticket after asserting branch access.
func (s *Service) Get(ctx context.Context, claims *shared.Claims, id int64) (RepairTicket, error) {
	ticket, err := s.store.Get(ctx, id)
	if err != nil {
		return RepairTicket{}, err
	}
	if err := authz.AssertBranchAccess(claims, ticket.BranchID); err != nil {
		return RepairTicket{}, err
	}
	return ticket, nil
}

// CreateInput carries the fields of a new ticket.
type CreateInput struct {
	BranchID     int64
	CustomerName string
	DeviceType   string
	IssueSummary string
}

// Create opens a ticket in status NEW.
func (s *Service) Create(ctx context.Context, claims *shared.Claims, in CreateInput) (RepairTicket, error) {
	if in.CustomerName == "" || in.DeviceType == "" {
		return RepairTicket{}, shared.ValidationErrorf("customer_name and device_type are required")
	}
	if err := authz.AssertBranchAccess(claims, in.BranchID); err != nil {
		return RepairTicket{}, err
	}
	ticket, err := s.store.Create(ctx, RepairTicket{
		BranchID:     in.BranchID,
		CustomerName: in.CustomerName,
		DeviceType:   in.DeviceType,
		IssueSummary: in.IssueSummary,
		Status:       StatusNew,
		CreatedBy:    claims.UserID,
	})
	if err != nil {
		return RepairTicket{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "TICKET.CREATE", Entity: "repair_ticket", EntityID: entityID(ticket.ID),
		Meta: map[string]any{"branch_id": ticket.BranchID, "device_type": ticket.DeviceType},
	})
	return ticket, nil
}

// Start moves a ticket NEW -> IN_PROGRESS and assigns it to the actor.
func (s *Service) Start(ctx context.Context, claims *shared.Claims, id int64) (RepairTicket, error) {
	ticket, err := s.Get(ctx, claims, id)
	if err != nil {
		return RepairTicket{}, err
	}
	if err := s.fsm.AssertCanTransition(ticket.Status, StatusInProgress); err != nil {
		return RepairTicket{}, err
	}

	before := snapshot(ticket)
	ticket.Status = StatusInProgress
	actor := claims.UserID
	ticket.AssignedUserID = &actor
	updated, err := s.store.Update(ctx, ticket)
	if err != nil {
		return RepairTicket{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: "TICKET.START", Entity: "repair_ticket", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, audit.Diff(before, snapshot(updated), watchedFields)),
	})
	return updated, nil
}

// Complete moves a ticket IN_PROGRESS -> COMPLETED.
func (s *Service) Complete(ctx context.Context, claims *shared.Claims, id int64) (RepairTicket, error) {
	return s.transition(ctx, claims, id, StatusCompleted, "TICKET.COMPLETE")
}

// Cancel moves a ticket NEW or IN_PROGRESS -> CANCELLED.
func (s *Service) Cancel(ctx context.Context, claims *shared.Claims, id int64) (RepairTicket, error) {
	return s.transition(ctx, claims, id, StatusCancelled, "TICKET.CANCEL")
}

// CloseTicket moves a finished ticket to CLOSED.
func (s *Service) CloseTicket(ctx context.Context, claims *shared.Claims, id int64) (RepairTicket, error) {
	return s.transition(ctx, claims, id, StatusClosed, "TICKET.CLOSE")
}

func (s *Service) transition(ctx context.Context, claims *shared.Claims, id int64, target, action string) (RepairTicket, error) {
	ticket, err := s.Get(ctx, claims, id)
	if err != nil {
		return RepairTicket{}, err
	}
	if err := s.fsm.AssertCanTransition(ticket.Status, target); err != nil {
		return RepairTicket{}, err
	}

	before := snapshot(ticket)
	ticket.Status = target
	updated, err := s.store.Update(ctx, ticket)
	if err != nil {
		return RepairTicket{}, err
	}
	s.recorder.Observe(ctx, audit.Entry{
		Action: action, Entity: "repair_ticket", EntityID: entityID(id),
		Meta: audit.WithChanges(nil, audit.Diff(before, snapshot(updated), watchedFields)),
	})
	return updated, nil
}

func snapshot(t RepairTicket) map[string]any {
	var assigned any
	if t.AssignedUserID != nil {
		assigned = *t.AssignedUserID
	}
	return map[string]any{
		"status":           t.Status,
		"assigned_user_id": assigned,
	}
}

func entityID(id int64) string {
	return fmt.Sprintf("%d", id)
}
